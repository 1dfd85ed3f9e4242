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
	"github.com/akademyx/admissions/core/partner"
)

type (
	partnerRow struct {
		ID                  string      `db:"id"`
		Name                string      `db:"name"`
		Type                string      `db:"type"`
		Email               string      `db:"email"`
		Phone               string      `db:"phone"`
		NinNumber           string      `db:"nin_number"`
		StateOfResident     string      `db:"state_of_resident"`
		StateOfOrigin       string      `db:"state_of_origin"`
		ReferralCode        string      `db:"referral_code"`
		InstitutionName     null.String `db:"institution_name"`
		UnionPresidentName  null.String `db:"union_president_name"`
		UnionPresidentEmail null.String `db:"union_president_email"`
		UnionPresidentPhone null.String `db:"union_president_phone"`
		BankName            string      `db:"bank_name"`
		BankAccountNumber   string      `db:"bank_account_number"`
		BankAccountName     string      `db:"bank_account_name"`
		TotalReferrals      int         `db:"total_referrals"`
		ConfirmedReferrals  int         `db:"confirmed_referrals"`
		TotalCommission     float64     `db:"total_commission"`
		PaidCommission      float64     `db:"paid_commission"`
		PendingCommission   float64     `db:"pending_commission"`
		Status              string      `db:"status"`
		IsApproved          bool        `db:"is_approved"`
		CreatedAt           time.Time   `db:"created_at"`
		UpdatedAt           time.Time   `db:"updated_at"`
	}

	commissionRow struct {
		ID            string    `db:"id"`
		PartnerID     string    `db:"partner_id"`
		ApplicationID string    `db:"application_id"`
		Amount        float64   `db:"amount"`
		ReferralCode  string    `db:"referral_code"`
		Status        string    `db:"status"`
		CreatedAt     time.Time `db:"created_at"`
		PaidAt        null.Time `db:"paid_at"`
	}

	disbursementRow struct {
		ID            string    `db:"id"`
		PartnerID     string    `db:"partner_id"`
		Amount        float64   `db:"amount"`
		Status        string    `db:"status"`
		BankReference string    `db:"bank_reference"`
		CreatedAt     time.Time `db:"created_at"`
		CompletedAt   null.Time `db:"completed_at"`
	}
)

const (
	partnerColumns = `id, name, type, email, phone, nin_number, state_of_resident, state_of_origin,
referral_code, institution_name, union_president_name, union_president_email, union_president_phone,
bank_name, bank_account_number, bank_account_name, total_referrals, confirmed_referrals,
total_commission, paid_commission, pending_commission, status, is_approved, created_at, updated_at`

	commissionColumns = `id, partner_id, application_id, amount, referral_code, status, created_at, paid_at`

	disbursementColumns = `id, partner_id, amount, status, bank_reference, created_at, completed_at`
)

type partnerRepository struct {
	exec core.DBExecutor
}

// interface compliance checks
var (
	_ partner.Repository           = (*partnerRepository)(nil)
	_ application.PartnerDirectory = (*partnerRepository)(nil)
)

func NewPartnerRepository(exec core.DBExecutor) *partnerRepository {
	return &partnerRepository{exec: exec}
}

func (repo partnerRepository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 && svcExec[0] != nil {
		return svcExec[0]
	}
	return repo.exec
}

func (repo partnerRepository) toRow(ptn partner.ReferralPartner) partnerRow {
	row := partnerRow{
		ID:                 ptn.ID,
		Name:               ptn.Name,
		Type:               ptn.Type,
		Email:              ptn.Email,
		Phone:              ptn.Phone,
		NinNumber:          ptn.NinNumber,
		StateOfResident:    ptn.StateOfResident,
		StateOfOrigin:      ptn.StateOfOrigin,
		ReferralCode:       ptn.ReferralCode,
		InstitutionName:    null.NewString(ptn.InstitutionName, ptn.InstitutionName != ""),
		BankName:           ptn.BankingDetails.BankName,
		BankAccountNumber:  ptn.BankingDetails.AccountNumber,
		BankAccountName:    ptn.BankingDetails.AccountName,
		TotalReferrals:     ptn.TotalReferrals,
		ConfirmedReferrals: ptn.ConfirmedReferrals,
		TotalCommission:    ptn.TotalCommission,
		PaidCommission:     ptn.PaidCommission,
		PendingCommission:  ptn.PendingCommission,
		Status:             ptn.Status,
		IsApproved:         ptn.IsApproved,
		CreatedAt:          ptn.CreatedAt.UTC(),
		UpdatedAt:          ptn.UpdatedAt.UTC(),
	}
	if sup := ptn.StudentUnionPresident; sup != nil {
		row.UnionPresidentName = null.StringFrom(sup.Name)
		row.UnionPresidentEmail = null.StringFrom(sup.Email)
		row.UnionPresidentPhone = null.StringFrom(sup.Phone)
	}
	return row
}

func (repo partnerRepository) fromRow(row partnerRow) partner.ReferralPartner {
	ptn := partner.ReferralPartner{
		ID:              row.ID,
		Name:            row.Name,
		Type:            row.Type,
		Email:           row.Email,
		Phone:           row.Phone,
		NinNumber:       row.NinNumber,
		StateOfResident: row.StateOfResident,
		StateOfOrigin:   row.StateOfOrigin,
		ReferralCode:    row.ReferralCode,
		InstitutionName: row.InstitutionName.String,
		BankingDetails: partner.BankingDetails{
			BankName:      row.BankName,
			AccountNumber: row.BankAccountNumber,
			AccountName:   row.BankAccountName,
		},
		TotalReferrals:     row.TotalReferrals,
		ConfirmedReferrals: row.ConfirmedReferrals,
		TotalCommission:    row.TotalCommission,
		PaidCommission:     row.PaidCommission,
		PendingCommission:  row.PendingCommission,
		Status:             row.Status,
		IsApproved:         row.IsApproved,
		CreatedAt:          row.CreatedAt,
		UpdatedAt:          row.UpdatedAt,
	}
	if row.UnionPresidentName.Valid {
		ptn.StudentUnionPresident = &partner.ContactPerson{
			Name:  row.UnionPresidentName.String,
			Email: row.UnionPresidentEmail.String,
			Phone: row.UnionPresidentPhone.String,
		}
	}
	return ptn
}

func (repo partnerRepository) fromCommissionRow(row commissionRow) partner.Commission {
	return partner.Commission{
		ID:            row.ID,
		PartnerID:     row.PartnerID,
		ApplicationID: row.ApplicationID,
		Amount:        row.Amount,
		ReferralCode:  row.ReferralCode,
		Status:        row.Status,
		CreatedAt:     row.CreatedAt,
		PaidAt:        row.PaidAt.Ptr(),
	}
}

func (repo partnerRepository) fromDisbursementRow(row disbursementRow) partner.Disbursement {
	return partner.Disbursement{
		ID:            row.ID,
		PartnerID:     row.PartnerID,
		Amount:        row.Amount,
		Status:        row.Status,
		BankReference: row.BankReference,
		CreatedAt:     row.CreatedAt,
		CompletedAt:   row.CompletedAt.Ptr(),
	}
}

// trapNoRowsErr maps psql "no rows" err to notFound
func (repo partnerRepository) trapNoRowsErr(err, notFound error, msg string) error {
	if err == sql.ErrNoRows {
		return notFound
	}
	return errors.Wrap(err, msg)
}

func (repo partnerRepository) CreatePartner(ctx context.Context, ptn partner.ReferralPartner, exec ...core.DBExecutor) (partner.ReferralPartner, error) {
	ptn.ID = uuid.New().String()
	row := repo.toRow(ptn)

	query := `INSERT INTO referral_partner (` + partnerColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25)`
	_, err := repo.getExec(exec).ExecContext(ctx, query,
		row.ID, row.Name, row.Type, row.Email, row.Phone, row.NinNumber, row.StateOfResident, row.StateOfOrigin,
		row.ReferralCode, row.InstitutionName, row.UnionPresidentName, row.UnionPresidentEmail, row.UnionPresidentPhone,
		row.BankName, row.BankAccountNumber, row.BankAccountName, row.TotalReferrals, row.ConfirmedReferrals,
		row.TotalCommission, row.PaidCommission, row.PendingCommission, row.Status, row.IsApproved,
		row.CreatedAt, row.UpdatedAt,
	)
	if err != nil {
		return partner.ReferralPartner{}, errors.Wrap(err, "inserting partner")
	}
	return repo.fromRow(row), nil
}

func (repo partnerRepository) GetPartnerByID(ctx context.Context, id string, exec ...core.DBExecutor) (partner.ReferralPartner, error) {
	if _, err := uuid.Parse(id); err != nil {
		return partner.ReferralPartner{}, partner.ErrNotFound
	}

	var row partnerRow
	query := `SELECT ` + partnerColumns + ` FROM referral_partner WHERE id = $1`
	if err := repo.getExec(exec).GetContext(ctx, &row, query, id); err != nil {
		return partner.ReferralPartner{}, repo.trapNoRowsErr(err, partner.ErrNotFound, "finding partner by ID")
	}
	return repo.fromRow(row), nil
}

func (repo partnerRepository) GetPartnerByCode(ctx context.Context, code string, exec ...core.DBExecutor) (partner.ReferralPartner, error) {
	var row partnerRow
	query := `SELECT ` + partnerColumns + ` FROM referral_partner WHERE referral_code = $1`
	if err := repo.getExec(exec).GetContext(ctx, &row, query, code); err != nil {
		return partner.ReferralPartner{}, repo.trapNoRowsErr(err, partner.ErrNotFound, "finding partner by code")
	}
	return repo.fromRow(row), nil
}

func (repo partnerRepository) QueryPartners(ctx context.Context, filter *partner.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]partner.ReferralPartner, error) {
	query := `SELECT ` + partnerColumns + ` FROM referral_partner`
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
		if filter.Type != "" {
			conds = append(conds, "type = "+arg(filter.Type))
		}
		if filter.IsApproved != nil {
			conds = append(conds, "is_approved = "+arg(*filter.IsApproved))
		}
		// partners with name, email, referral_code or institution_name matching the search keyword
		if filter.Search != "" {
			val := "%" + filter.Search + "%"
			conds = append(conds, fmt.Sprintf(
				"(name ILIKE %s OR email ILIKE %s OR referral_code ILIKE %s OR institution_name ILIKE %s)",
				arg(val), arg(val), arg(val), arg(val)))
		}
	}

	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += orderByClause(ordering)

	var rows []partnerRow
	if err := repo.getExec(exec).SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying partners")
	}

	partners := make([]partner.ReferralPartner, 0, len(rows))
	for _, row := range rows {
		partners = append(partners, repo.fromRow(row))
	}
	return partners, nil
}

func (repo partnerRepository) UpdatePartnerStatus(ctx context.Context, id, status string, isApproved bool, updatedAt time.Time, exec ...core.DBExecutor) (partner.ReferralPartner, error) {
	var row partnerRow
	query := `UPDATE referral_partner SET status = $1, is_approved = $2, updated_at = $3 WHERE id = $4
RETURNING ` + partnerColumns
	err := repo.getExec(exec).GetContext(ctx, &row, query, status, isApproved, updatedAt.UTC(), id)
	if err != nil {
		return partner.ReferralPartner{}, repo.trapNoRowsErr(err, partner.ErrNotFound, "updating partner status")
	}
	return repo.fromRow(row), nil
}

func (repo partnerRepository) ApplyCommissionDelta(ctx context.Context, id string, totalDelta, pendingDelta, paidDelta float64, updatedAt time.Time, exec ...core.DBExecutor) error {
	query := `UPDATE referral_partner
SET total_commission = total_commission + $1,
    pending_commission = pending_commission + $2,
    paid_commission = paid_commission + $3,
    updated_at = $4
WHERE id = $5 AND pending_commission + $2 >= 0`
	res, err := repo.getExec(exec).ExecContext(ctx, query, totalDelta, pendingDelta, paidDelta, updatedAt.UTC(), id)
	if err != nil {
		return errors.Wrap(err, "applying commission delta")
	}
	if cnt, err := res.RowsAffected(); err == nil && cnt == 0 {
		// the guard rejected an overdraw, unless the partner is simply gone
		if _, err := repo.GetPartnerByID(ctx, id, exec...); err != nil {
			return err
		}
		return partner.ErrInsufficientPending
	}
	return nil
}

// FindPartnerByCode resolves a referral code for the application submission flow.
func (repo partnerRepository) FindPartnerByCode(ctx context.Context, code string, exec ...core.DBExecutor) (application.PartnerRef, error) {
	ptn, err := repo.GetPartnerByCode(ctx, code, exec...)
	if err != nil {
		if errors.Cause(err) == partner.ErrNotFound {
			return application.PartnerRef{}, application.ErrPartnerNotFound
		}
		return application.PartnerRef{}, err
	}
	return application.PartnerRef{ID: ptn.ID, Type: ptn.Type, Code: ptn.ReferralCode}, nil
}

// IncrementPartnerReferrals bumps totalReferrals on submission and
// confirmedReferrals on payment confirmation.
func (repo partnerRepository) IncrementPartnerReferrals(ctx context.Context, partnerID string, confirmed bool, exec ...core.DBExecutor) error {
	column := "total_referrals"
	if confirmed {
		column = "confirmed_referrals"
	}
	query := fmt.Sprintf(
		"UPDATE referral_partner SET %s = %s + 1, updated_at = $1 WHERE id = $2", column, column)
	res, err := repo.getExec(exec).ExecContext(ctx, query, time.Now().UTC(), partnerID)
	if err != nil {
		return errors.Wrap(err, "incrementing partner referrals")
	}
	if cnt, err := res.RowsAffected(); err == nil && cnt == 0 {
		return partner.ErrNotFound
	}
	return nil
}

func (repo partnerRepository) CreateCommission(ctx context.Context, cms partner.Commission, exec ...core.DBExecutor) (partner.Commission, error) {
	cms.ID = uuid.New().String()

	query := `INSERT INTO commission (` + commissionColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := repo.getExec(exec).ExecContext(ctx, query,
		cms.ID, cms.PartnerID, cms.ApplicationID, cms.Amount, cms.ReferralCode, cms.Status,
		cms.CreatedAt.UTC(), null.TimeFromPtr(cms.PaidAt),
	)
	if err != nil {
		return partner.Commission{}, errors.Wrap(err, "inserting commission")
	}
	return cms, nil
}

func (repo partnerRepository) GetCommissionByID(ctx context.Context, id string, exec ...core.DBExecutor) (partner.Commission, error) {
	if _, err := uuid.Parse(id); err != nil {
		return partner.Commission{}, partner.ErrCommissionNotFound
	}

	var row commissionRow
	query := `SELECT ` + commissionColumns + ` FROM commission WHERE id = $1`
	if err := repo.getExec(exec).GetContext(ctx, &row, query, id); err != nil {
		return partner.Commission{}, repo.trapNoRowsErr(err, partner.ErrCommissionNotFound, "finding commission by ID")
	}
	return repo.fromCommissionRow(row), nil
}

func (repo partnerRepository) QueryCommissions(ctx context.Context, filter partner.CommissionFilter, exec ...core.DBExecutor) ([]partner.Commission, error) {
	query := `SELECT ` + commissionColumns + ` FROM commission`
	var conds []string
	var args []interface{}

	if filter.PartnerID != "" {
		args = append(args, filter.PartnerID)
		conds = append(conds, fmt.Sprintf("partner_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at"

	var rows []commissionRow
	if err := repo.getExec(exec).SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying commissions")
	}

	commissions := make([]partner.Commission, 0, len(rows))
	for _, row := range rows {
		commissions = append(commissions, repo.fromCommissionRow(row))
	}
	return commissions, nil
}

func (repo partnerRepository) UpdateCommissionStatus(ctx context.Context, id, status string, paidAt *time.Time, exec ...core.DBExecutor) (partner.Commission, error) {
	var row commissionRow
	query := `UPDATE commission SET status = $1, paid_at = $2 WHERE id = $3 RETURNING ` + commissionColumns
	err := repo.getExec(exec).GetContext(ctx, &row, query, status, null.TimeFromPtr(paidAt), id)
	if err != nil {
		return partner.Commission{}, repo.trapNoRowsErr(err, partner.ErrCommissionNotFound, "updating commission status")
	}
	return repo.fromCommissionRow(row), nil
}

func (repo partnerRepository) CreateDisbursement(ctx context.Context, dsb partner.Disbursement, exec ...core.DBExecutor) (partner.Disbursement, error) {
	dsb.ID = uuid.New().String()

	query := `INSERT INTO disbursement (` + disbursementColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := repo.getExec(exec).ExecContext(ctx, query,
		dsb.ID, dsb.PartnerID, dsb.Amount, dsb.Status, dsb.BankReference,
		dsb.CreatedAt.UTC(), null.TimeFromPtr(dsb.CompletedAt),
	)
	if err != nil {
		return partner.Disbursement{}, errors.Wrap(err, "inserting disbursement")
	}
	return dsb, nil
}

func (repo partnerRepository) GetDisbursementByID(ctx context.Context, id string, exec ...core.DBExecutor) (partner.Disbursement, error) {
	if _, err := uuid.Parse(id); err != nil {
		return partner.Disbursement{}, partner.ErrDisbursementNotFound
	}

	var row disbursementRow
	query := `SELECT ` + disbursementColumns + ` FROM disbursement WHERE id = $1`
	if err := repo.getExec(exec).GetContext(ctx, &row, query, id); err != nil {
		return partner.Disbursement{}, repo.trapNoRowsErr(err, partner.ErrDisbursementNotFound, "finding disbursement by ID")
	}
	return repo.fromDisbursementRow(row), nil
}

func (repo partnerRepository) QueryDisbursementsByPartner(ctx context.Context, partnerID string, exec ...core.DBExecutor) ([]partner.Disbursement, error) {
	var rows []disbursementRow
	query := `SELECT ` + disbursementColumns + ` FROM disbursement WHERE partner_id = $1 ORDER BY created_at`
	if err := repo.getExec(exec).SelectContext(ctx, &rows, query, partnerID); err != nil {
		return nil, errors.Wrap(err, "querying disbursements")
	}

	disbursements := make([]partner.Disbursement, 0, len(rows))
	for _, row := range rows {
		disbursements = append(disbursements, repo.fromDisbursementRow(row))
	}
	return disbursements, nil
}
