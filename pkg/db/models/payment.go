package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/rinhapay/payment-router/pkg/enums"
)

// Payment is the permanent record of a payment accepted by a processor.
type Payment struct {
	CorrelationID string                `gorm:"column:correlation_id;type:text;primaryKey"`
	Amount        decimal.Decimal       `gorm:"type:numeric(12,2);not null"`
	RequestedAt   time.Time             `gorm:"not null;index:idx_payments_requested_at"`
	Strategy      enums.PaymentStrategy `gorm:"type:text;not null"`
	CreatedAt     time.Time
}

// TableName pins the table name used by the migrations.
func (Payment) TableName() string {
	return "payments"
}
