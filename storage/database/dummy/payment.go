package dummydb

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/akademyx/admissions/core"
	"github.com/akademyx/admissions/core/payment"
)

type paymentRepository struct {
	db *paymentTable
}

var _ payment.Repository = (*paymentRepository)(nil) // interface compliance check

func NewPaymentRepository(db *DB) *paymentRepository {
	return &paymentRepository{db: db.payment}
}

func (repo *paymentRepository) CreatePayment(ctx context.Context, pmt payment.Payment, _ ...core.DBExecutor) (payment.Payment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	pmt.ID = uuid.New().String()
	repo.db.table[pmt.ID] = &pmt
	return pmt, nil
}

func (repo *paymentRepository) GetPaymentByID(ctx context.Context, id string, _ ...core.DBExecutor) (payment.Payment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if pmt, ok := repo.db.table[id]; ok {
		return *pmt, nil
	}
	return payment.Payment{}, payment.ErrNotFound
}

func (repo *paymentRepository) UpdatePaymentStatus(ctx context.Context, id, status, transactionID string, updatedAt time.Time, _ ...core.DBExecutor) (payment.Payment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	pmt, ok := repo.db.table[id]
	if !ok {
		return payment.Payment{}, payment.ErrNotFound
	}
	pmt.Status = status
	if transactionID != "" {
		pmt.TransactionID = transactionID
	}
	pmt.UpdatedAt = updatedAt.UTC()
	return *pmt, nil
}

func (repo *paymentRepository) QueryPaymentsByApplication(ctx context.Context, applicationID string, _ ...core.DBExecutor) ([]payment.Payment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var pmts []payment.Payment
	for _, pmt := range repo.db.table {
		if pmt.ApplicationID == applicationID {
			pmts = append(pmts, *pmt)
		}
	}
	sort.Slice(pmts, func(i, j int) bool { return pmts[i].CreatedAt.Before(pmts[j].CreatedAt) })
	return pmts, nil
}
