package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/akademyx/admissions/core"
	"github.com/akademyx/admissions/core/application"
)

type applicationRow struct {
	ID              string      `db:"id"`
	FirstName       string      `db:"first_name"`
	LastName        string      `db:"last_name"`
	Email           string      `db:"email"`
	Phone           string      `db:"phone"`
	Age             int         `db:"age"`
	Occupation      string      `db:"occupation"`
	Location        string      `db:"location"`
	NinNumber       string      `db:"nin_number"`
	StateOfResident string      `db:"state_of_resident"`
	StateOfOrigin   string      `db:"state_of_origin"`
	Motivation      string      `db:"motivation"`
	Experience      string      `db:"experience"`
	Goals           string      `db:"goals"`
	Status          string      `db:"status"`
	ReferralCode    null.String `db:"referral_code"`
	ReferralType    null.String `db:"referral_type"`
	PartnerID       null.String `db:"partner_id"`
	Amount          float64     `db:"amount"`
	PaymentStatus   string      `db:"payment_status"`
	CreatedAt       time.Time   `db:"created_at"`
	UpdatedAt       time.Time   `db:"updated_at"`
}

const applicationColumns = `id, first_name, last_name, email, phone, age, occupation, location,
nin_number, state_of_resident, state_of_origin, motivation, experience, goals, status,
referral_code, referral_type, partner_id, amount, payment_status, created_at, updated_at`

type applicationRepository struct {
	exec core.DBExecutor
}

var _ application.Repository = (*applicationRepository)(nil) // interface compliance check

func NewApplicationRepository(exec core.DBExecutor) *applicationRepository {
	return &applicationRepository{exec: exec}
}

func (repo applicationRepository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 && svcExec[0] != nil {
		return svcExec[0]
	}
	return repo.exec
}

func (repo applicationRepository) toRow(app application.Application) applicationRow {
	return applicationRow{
		ID:              app.ID,
		FirstName:       app.FirstName,
		LastName:        app.LastName,
		Email:           app.Email,
		Phone:           app.Phone,
		Age:             app.Age,
		Occupation:      app.Occupation,
		Location:        app.Location,
		NinNumber:       app.NinNumber,
		StateOfResident: app.StateOfResident,
		StateOfOrigin:   app.StateOfOrigin,
		Motivation:      app.Motivation,
		Experience:      app.Experience,
		Goals:           app.Goals,
		Status:          app.Status,
		ReferralCode:    null.NewString(app.ReferralCode, app.ReferralCode != ""),
		ReferralType:    null.NewString(app.ReferralType, app.ReferralType != ""),
		PartnerID:       null.NewString(app.PartnerID, app.PartnerID != ""),
		Amount:          app.Amount,
		PaymentStatus:   app.PaymentStatus,
		CreatedAt:       app.CreatedAt.UTC(),
		UpdatedAt:       app.UpdatedAt.UTC(),
	}
}

func (repo applicationRepository) fromRow(row applicationRow) application.Application {
	return application.Application{
		ID:              row.ID,
		FirstName:       row.FirstName,
		LastName:        row.LastName,
		Email:           row.Email,
		Phone:           row.Phone,
		Age:             row.Age,
		Occupation:      row.Occupation,
		Location:        row.Location,
		NinNumber:       row.NinNumber,
		StateOfResident: row.StateOfResident,
		StateOfOrigin:   row.StateOfOrigin,
		Motivation:      row.Motivation,
		Experience:      row.Experience,
		Goals:           row.Goals,
		Status:          row.Status,
		ReferralCode:    row.ReferralCode.String,
		ReferralType:    row.ReferralType.String,
		PartnerID:       row.PartnerID.String,
		Amount:          row.Amount,
		PaymentStatus:   row.PaymentStatus,
		CreatedAt:       row.CreatedAt,
		UpdatedAt:       row.UpdatedAt,
	}
}

func (repo applicationRepository) fromRows(rows []applicationRow) []application.Application {
	apps := make([]application.Application, 0, len(rows))
	for _, row := range rows {
		apps = append(apps, repo.fromRow(row))
	}
	return apps
}

// trapNoRowsErr maps psql "no rows" err to application.ErrNotFound
func (repo applicationRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return application.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo applicationRepository) CreateApplication(ctx context.Context, app application.Application, exec ...core.DBExecutor) (application.Application, error) {
	app.ID = uuid.New().String()
	row := repo.toRow(app)

	query := `INSERT INTO application (` + applicationColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)`
	_, err := repo.getExec(exec).ExecContext(ctx, query,
		row.ID, row.FirstName, row.LastName, row.Email, row.Phone, row.Age, row.Occupation, row.Location,
		row.NinNumber, row.StateOfResident, row.StateOfOrigin, row.Motivation, row.Experience, row.Goals,
		row.Status, row.ReferralCode, row.ReferralType, row.PartnerID, row.Amount, row.PaymentStatus,
		row.CreatedAt, row.UpdatedAt,
	)
	if err != nil {
		return application.Application{}, errors.Wrap(err, "inserting application")
	}
	return repo.fromRow(row), nil
}

func (repo applicationRepository) GetApplicationByID(ctx context.Context, id string, exec ...core.DBExecutor) (application.Application, error) {
	if _, err := uuid.Parse(id); err != nil {
		return application.Application{}, application.ErrNotFound
	}

	var row applicationRow
	query := `SELECT ` + applicationColumns + ` FROM application WHERE id = $1`
	if err := repo.getExec(exec).GetContext(ctx, &row, query, id); err != nil {
		return application.Application{}, repo.trapNoRowsErr(err, "finding application by ID")
	}
	return repo.fromRow(row), nil
}

func (repo applicationRepository) QueryApplications(ctx context.Context, filter *application.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]application.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM application`
	var conds []string
	var args []interface{}

	arg := func(val interface{}) string {
		args = append(args, val)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter != nil {
		if filter.Status != "" {
			conds = append(conds, "status = "+arg(filter.Status))
		}
		if filter.ReferralCode != "" {
			conds = append(conds, "referral_code = "+arg(filter.ReferralCode))
		}
		// applications with first_name, last_name or email matching the search keyword
		if filter.Search != "" {
			val := "%" + filter.Search + "%"
			conds = append(conds, fmt.Sprintf(
				"(first_name ILIKE %s OR last_name ILIKE %s OR email ILIKE %s)", arg(val), arg(val), arg(val)))
		}
		if !filter.CreatedFrom.IsZero() {
			conds = append(conds, "created_at >= "+arg(filter.CreatedFrom.UTC()))
		}
		if !filter.CreatedTo.IsZero() {
			conds = append(conds, "created_at <= "+arg(filter.CreatedTo.UTC()))
		}
	}

	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += orderByClause(ordering)

	var rows []applicationRow
	if err := repo.getExec(exec).SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying applications")
	}
	return repo.fromRows(rows), nil
}

func (repo applicationRepository) UpdateApplicationStatus(ctx context.Context, id, status, paymentStatus string, updatedAt time.Time, exec ...core.DBExecutor) (application.Application, error) {
	var row applicationRow
	query := `UPDATE application SET status = $1, payment_status = $2, updated_at = $3 WHERE id = $4
RETURNING ` + applicationColumns
	err := repo.getExec(exec).GetContext(ctx, &row, query, status, paymentStatus, updatedAt.UTC(), id)
	if err != nil {
		return application.Application{}, repo.trapNoRowsErr(err, "updating application status")
	}
	return repo.fromRow(row), nil
}
