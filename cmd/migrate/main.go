package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/rinhapay/payment-router/pkg/config"
	"github.com/rinhapay/payment-router/pkg/db"
	"github.com/rinhapay/payment-router/pkg/logger"
	"github.com/rinhapay/payment-router/pkg/migrate"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "migrate"})
	_ = godotenv.Load()

	cmdFlag := flag.String("cmd", string(migrate.CommandUp), "migration command: up|down|status|version|create|validate")
	dir := flag.String("dir", migrate.DefaultDir, "goose migrations directory")
	name := flag.String("name", "", "migration name (for create)")
	version := flag.String("version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")
	flag.Parse()

	command, err := migrate.ParseCommand(*cmdFlag)
	if err != nil {
		fail(err)
	}
	ctx := logg.WithFields(context.Background(), map[string]any{
		"cmd": string(command),
		"dir": *dir,
	})

	if !command.RequiresDB() {
		runOffline(command, *dir, *name)
		return
	}

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)
	logg = logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer dbClient.Close()

	sqlDB, err := dbClient.DB().DB()
	requireResource(ctx, logg, "sql database", err)

	if command == migrate.CommandVersion {
		if *version == "" {
			fail(fmt.Errorf("missing -version for version command"))
		}
		err = migrate.MigrateToVersion(ctx, sqlDB, *dir, *version)
	} else {
		err = migrate.Run(ctx, sqlDB, *dir, command)
	}
	if err != nil {
		logg.Error(ctx, "migration failed", err)
		dbClient.Close()
		os.Exit(1)
	}
	logg.Info(ctx, "migration finished")
}

func runOffline(command migrate.Command, dir, name string) {
	switch command {
	case migrate.CommandCreate:
		if name == "" {
			fail(fmt.Errorf("missing -name for create"))
		}
		path, err := migrate.CreateSQLMigration(dir, name)
		if err != nil {
			fail(fmt.Errorf("failed to create migration: %w", err))
		}
		fmt.Println("created migration:", path)
	case migrate.CommandValidate:
		if err := migrate.ValidateDir(dir); err != nil {
			fail(fmt.Errorf("migration validation failed: %w", err))
		}
		fmt.Println("migration validation passed")
	}
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
