package dummydb

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/akademyx/admissions/core"
	"github.com/akademyx/admissions/core/application"
)

type applicationRepository struct {
	db *applicationTable
}

var _ application.Repository = (*applicationRepository)(nil) // interface compliance check

func NewApplicationRepository(db *DB) *applicationRepository {
	return &applicationRepository{db: db.application}
}

func (repo *applicationRepository) query() []application.Application {
	apps := make([]application.Application, 0, len(repo.db.table))
	for _, app := range repo.db.table {
		apps = append(apps, *app)
	}
	return apps
}

func (repo *applicationRepository) CreateApplication(ctx context.Context, app application.Application, _ ...core.DBExecutor) (application.Application, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	app.ID = uuid.New().String()
	repo.db.table[app.ID] = &app
	return app, nil
}

func (repo *applicationRepository) GetApplicationByID(ctx context.Context, id string, _ ...core.DBExecutor) (application.Application, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if app, ok := repo.db.table[id]; ok {
		return *app, nil
	}
	return application.Application{}, application.ErrNotFound
}

func (repo *applicationRepository) QueryApplications(ctx context.Context, filter *application.QueryFilter, _ []core.DBOrdering, _ ...core.DBExecutor) ([]application.Application, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	apps := repo.query()
	if filter == nil {
		return apps, nil
	}

	if filter.Status != "" {
		var filtered []application.Application
		for _, app := range apps {
			if app.Status == filter.Status {
				filtered = append(filtered, app)
			}
		}
		apps = filtered
	}
	if filter.ReferralCode != "" {
		var filtered []application.Application
		for _, app := range apps {
			if app.ReferralCode == filter.ReferralCode {
				filtered = append(filtered, app)
			}
		}
		apps = filtered
	}
	// applications with search keyword matching any name or email
	if filter.Search != "" {
		kw := strings.ToLower(filter.Search)
		var filtered []application.Application
		for _, app := range apps {
			if strings.Contains(strings.ToLower(app.FirstName), kw) ||
				strings.Contains(strings.ToLower(app.LastName), kw) ||
				strings.Contains(strings.ToLower(app.Email), kw) {
				filtered = append(filtered, app)
			}
		}
		apps = filtered
	}
	if !filter.CreatedFrom.IsZero() {
		timeUTC := filter.CreatedFrom.UTC()
		var filtered []application.Application
		for _, app := range apps {
			if !app.CreatedAt.Before(timeUTC) {
				filtered = append(filtered, app)
			}
		}
		apps = filtered
	}
	if !filter.CreatedTo.IsZero() {
		timeUTC := filter.CreatedTo.UTC()
		var filtered []application.Application
		for _, app := range apps {
			if !app.CreatedAt.After(timeUTC) {
				filtered = append(filtered, app)
			}
		}
		apps = filtered
	}

	return apps, nil
}

func (repo *applicationRepository) UpdateApplicationStatus(ctx context.Context, id, status, paymentStatus string, updatedAt time.Time, _ ...core.DBExecutor) (application.Application, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	app, ok := repo.db.table[id]
	if !ok {
		return application.Application{}, application.ErrNotFound
	}
	app.Status = status
	app.PaymentStatus = paymentStatus
	app.UpdatedAt = updatedAt.UTC()
	return *app, nil
}
