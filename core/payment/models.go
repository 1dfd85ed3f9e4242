package payment

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/akademyx/admissions/core"
)

// Payment statuses
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

const DefaultCurrency = "NGN"

type Payment struct {
	ID            string    `json:"id"`
	ApplicationID string    `json:"application_id"`
	Amount        float64   `json:"amount"`
	Currency      string    `json:"currency"`
	PaymentMethod string    `json:"payment_method"`
	Status        string    `json:"status"`
	TransactionID string    `json:"transaction_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"` // UTC
	UpdatedAt     time.Time `json:"updated_at"` // UTC
}

// NewPayment contains information needed to record a gateway payment attempt.
type NewPayment struct {
	ApplicationID string  `json:"application_id" validate:"required"`
	Amount        float64 `json:"amount" validate:"required,min=1000"`
	Currency      string  `json:"currency" validate:"omitempty,len=3"`
	PaymentMethod string  `json:"payment_method" validate:"required,min=2"`
}

func (np *NewPayment) Validate(validate *validator.Validate) error {
	np.ApplicationID = core.CleanString(np.ApplicationID)
	np.Currency = strings.ToUpper(core.CleanString(np.Currency))
	np.PaymentMethod = core.CleanString(np.PaymentMethod)
	return validate.Struct(np)
}

// StatusUpdate is the payload a gateway callback delivers.
type StatusUpdate struct {
	Status        string `json:"status" validate:"required,oneof=pending completed failed"`
	TransactionID string `json:"transaction_id"`
}

func (su *StatusUpdate) Validate(validate *validator.Validate) error {
	su.Status = core.CleanString(su.Status, true /* lower */)
	su.TransactionID = core.CleanString(su.TransactionID)
	return validate.Struct(su)
}
