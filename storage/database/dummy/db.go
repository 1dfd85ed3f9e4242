// Package dummydb provides in-memory repositories for tests.
package dummydb

import (
	"context"
	"sync"

	"github.com/akademyx/admissions/core"
	"github.com/akademyx/admissions/core/application"
	"github.com/akademyx/admissions/core/course"
	"github.com/akademyx/admissions/core/partner"
	"github.com/akademyx/admissions/core/payment"
	"github.com/akademyx/admissions/core/user"
)

type (
	DB struct {
		application  *applicationTable
		payment      *paymentTable
		partner      *partnerTable
		commission   *commissionTable
		disbursement *disbursementTable
		user         *userTable
		course       *courseTable
	}

	applicationTable struct {
		sync.RWMutex
		table map[string]*application.Application
	}

	paymentTable struct {
		sync.RWMutex
		table map[string]*payment.Payment
	}

	partnerTable struct {
		sync.RWMutex
		table map[string]*partner.ReferralPartner
	}

	commissionTable struct {
		sync.RWMutex
		table map[string]*partner.Commission
	}

	disbursementTable struct {
		sync.RWMutex
		table map[string]*partner.Disbursement
	}

	userTable struct {
		sync.RWMutex
		table map[string]*user.User
	}

	courseTable struct {
		sync.RWMutex
		table map[string]*course.Course
	}
)

func Open() (*DB, error) {
	db := &DB{
		application:  &applicationTable{table: make(map[string]*application.Application)},
		payment:      &paymentTable{table: make(map[string]*payment.Payment)},
		partner:      &partnerTable{table: make(map[string]*partner.ReferralPartner)},
		commission:   &commissionTable{table: make(map[string]*partner.Commission)},
		disbursement: &disbursementTable{table: make(map[string]*partner.Disbursement)},
		user:         &userTable{table: make(map[string]*user.User)},
		course:       &courseTable{table: make(map[string]*course.Course)},
	}
	return db, nil
}

type txRunner struct{}

var _ core.TxRunner = (*txRunner)(nil)

// NewTxRunner returns a core.TxRunner that runs functions as-is; the dummy
// repositories mutate their maps in place so there is nothing to roll back.
func NewTxRunner() *txRunner {
	return &txRunner{}
}

func (txRunner) Atomic(ctx context.Context, fn core.AtomicFunc) error {
	return fn(nil)
}
