package payments

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/rinhapay/payment-router/internal/repo"
	"github.com/rinhapay/payment-router/pkg/db/models"
	pkgerrors "github.com/rinhapay/payment-router/pkg/errors"
)

// InsertResult distinguishes a new record from an idempotent repeat.
type InsertResult int

const (
	InsertCreated InsertResult = iota
	InsertDuplicate
)

func (r InsertResult) String() string {
	if r == InsertDuplicate {
		return "duplicate"
	}
	return "created"
}

// Repository exposes persistence helpers for processed payments.
type Repository interface {
	Insert(ctx context.Context, req PaymentRequest) (InsertResult, error)
	FindByRange(ctx context.Context, from, to *time.Time) ([]models.Payment, error)
	Purge(ctx context.Context) (int64, error)
}

type repositoryImpl struct {
	repo.Base
}

// NewRepository returns a payments repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{Base: repo.NewBase(db)}
}

func (r *repositoryImpl) Insert(ctx context.Context, req PaymentRequest) (InsertResult, error) {
	if !req.Strategy.IsValid() {
		return InsertCreated, pkgerrors.New(pkgerrors.CodeValidation, "payment strategy must be set before persisting")
	}
	if err := req.Validate(); err != nil {
		return InsertCreated, err
	}

	row := req.ToModel()
	created, err := r.CreateOnce(ctx, &row, "correlation_id")
	if err != nil {
		return InsertCreated, err
	}
	if !created {
		return InsertDuplicate, nil
	}
	return InsertCreated, nil
}

// FindByRange returns payments requested within [from, to]. A nil bound leaves that side open.
func (r *repositoryImpl) FindByRange(ctx context.Context, from, to *time.Time) ([]models.Payment, error) {
	query := r.DB(ctx).Model(&models.Payment{})
	if from != nil {
		query = query.Where("requested_at >= ?", from.UTC())
	}
	if to != nil {
		query = query.Where("requested_at <= ?", to.UTC())
	}

	var rows []models.Payment
	if err := query.Order("requested_at ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repositoryImpl) Purge(ctx context.Context) (int64, error) {
	return r.DeleteAll(ctx, &models.Payment{})
}
