package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/rinhapay/payment-router/pkg/db"
)

var errNilConnection = errors.New("repository has no database connection")

// Base carries the connection shared by the domain repositories.
type Base struct {
	db *gorm.DB
}

func NewBase(conn *gorm.DB) Base {
	return Base{db: conn}
}

// DB returns the connection bound to ctx. A nil ctx returns the raw connection.
func (b Base) DB(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return b.db
	}
	return b.db.WithContext(ctx)
}

// CreateOnce inserts row unless a row with the same conflict key already exists.
// It reports false when the insert was skipped. Unique violations raised by
// drivers that ignore ON CONFLICT are folded into the same outcome.
func (b Base) CreateOnce(ctx context.Context, row any, conflictColumns ...string) (bool, error) {
	if b.db == nil {
		return false, errNilConnection
	}
	cols := make([]clause.Column, 0, len(conflictColumns))
	for _, name := range conflictColumns {
		cols = append(cols, clause.Column{Name: name})
	}
	res := b.DB(ctx).
		Clauses(clause.OnConflict{Columns: cols, DoNothing: true}).
		Create(row)
	if res.Error != nil {
		if db.IsUniqueViolation(res.Error, "") {
			return false, nil
		}
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// DeleteAll removes every row of model's table.
func (b Base) DeleteAll(ctx context.Context, model any) (int64, error) {
	if b.db == nil {
		return 0, errNilConnection
	}
	res := b.DB(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(model)
	return res.RowsAffected, res.Error
}
