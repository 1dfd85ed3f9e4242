package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/akademyx/admissions/core"
	"github.com/akademyx/admissions/core/payment"
)

type paymentRow struct {
	ID            string      `db:"id"`
	ApplicationID string      `db:"application_id"`
	Amount        float64     `db:"amount"`
	Currency      string      `db:"currency"`
	PaymentMethod string      `db:"payment_method"`
	Status        string      `db:"status"`
	TransactionID null.String `db:"transaction_id"`
	CreatedAt     time.Time   `db:"created_at"`
	UpdatedAt     time.Time   `db:"updated_at"`
}

const paymentColumns = `id, application_id, amount, currency, payment_method, status, transaction_id, created_at, updated_at`

type paymentRepository struct {
	exec core.DBExecutor
}

var _ payment.Repository = (*paymentRepository)(nil) // interface compliance check

func NewPaymentRepository(exec core.DBExecutor) *paymentRepository {
	return &paymentRepository{exec: exec}
}

func (repo paymentRepository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 && svcExec[0] != nil {
		return svcExec[0]
	}
	return repo.exec
}

func (repo paymentRepository) toRow(pmt payment.Payment) paymentRow {
	return paymentRow{
		ID:            pmt.ID,
		ApplicationID: pmt.ApplicationID,
		Amount:        pmt.Amount,
		Currency:      pmt.Currency,
		PaymentMethod: pmt.PaymentMethod,
		Status:        pmt.Status,
		TransactionID: null.NewString(pmt.TransactionID, pmt.TransactionID != ""),
		CreatedAt:     pmt.CreatedAt.UTC(),
		UpdatedAt:     pmt.UpdatedAt.UTC(),
	}
}

func (repo paymentRepository) fromRow(row paymentRow) payment.Payment {
	return payment.Payment{
		ID:            row.ID,
		ApplicationID: row.ApplicationID,
		Amount:        row.Amount,
		Currency:      row.Currency,
		PaymentMethod: row.PaymentMethod,
		Status:        row.Status,
		TransactionID: row.TransactionID.String,
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
	}
}

// trapNoRowsErr maps psql "no rows" err to payment.ErrNotFound
func (repo paymentRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return payment.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo paymentRepository) CreatePayment(ctx context.Context, pmt payment.Payment, exec ...core.DBExecutor) (payment.Payment, error) {
	pmt.ID = uuid.New().String()
	row := repo.toRow(pmt)

	query := `INSERT INTO payment (` + paymentColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := repo.getExec(exec).ExecContext(ctx, query,
		row.ID, row.ApplicationID, row.Amount, row.Currency, row.PaymentMethod, row.Status,
		row.TransactionID, row.CreatedAt, row.UpdatedAt,
	)
	if err != nil {
		return payment.Payment{}, errors.Wrap(err, "inserting payment")
	}
	return repo.fromRow(row), nil
}

func (repo paymentRepository) GetPaymentByID(ctx context.Context, id string, exec ...core.DBExecutor) (payment.Payment, error) {
	if _, err := uuid.Parse(id); err != nil {
		return payment.Payment{}, payment.ErrNotFound
	}

	var row paymentRow
	query := `SELECT ` + paymentColumns + ` FROM payment WHERE id = $1`
	if err := repo.getExec(exec).GetContext(ctx, &row, query, id); err != nil {
		return payment.Payment{}, repo.trapNoRowsErr(err, "finding payment by ID")
	}
	return repo.fromRow(row), nil
}

func (repo paymentRepository) UpdatePaymentStatus(ctx context.Context, id, status, transactionID string, updatedAt time.Time, exec ...core.DBExecutor) (payment.Payment, error) {
	var row paymentRow
	// an empty transaction ID keeps whatever the gateway reported earlier
	query := `UPDATE payment SET status = $1, transaction_id = COALESCE(NULLIF($2, ''), transaction_id), updated_at = $3 WHERE id = $4
RETURNING ` + paymentColumns
	if err := repo.getExec(exec).GetContext(ctx, &row, query, status, transactionID, updatedAt.UTC(), id); err != nil {
		return payment.Payment{}, repo.trapNoRowsErr(err, "updating payment status")
	}
	return repo.fromRow(row), nil
}

func (repo paymentRepository) QueryPaymentsByApplication(ctx context.Context, applicationID string, exec ...core.DBExecutor) ([]payment.Payment, error) {
	var rows []paymentRow
	query := `SELECT ` + paymentColumns + ` FROM payment WHERE application_id = $1 ORDER BY created_at`
	if err := repo.getExec(exec).SelectContext(ctx, &rows, query, applicationID); err != nil {
		return nil, errors.Wrap(err, "querying payments")
	}

	pmts := make([]payment.Payment, 0, len(rows))
	for _, row := range rows {
		pmts = append(pmts, repo.fromRow(row))
	}
	return pmts, nil
}
