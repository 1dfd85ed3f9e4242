package partner

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/akademyx/admissions/core"
)

var (
	// errors
	ErrNotFound             = errors.New("referral partner not found")
	ErrCommissionNotFound   = errors.New("commission not found")
	ErrDisbursementNotFound = errors.New("disbursement not found")
	ErrCodeExists           = errors.New("a partner with this referral code already exists")
	ErrInsufficientPending  = errors.New("amount exceeds the partner's pending commission")
)

type (
	Repository interface {
		CreatePartner(ctx context.Context, ptn ReferralPartner, exec ...core.DBExecutor) (ReferralPartner, error)
		GetPartnerByID(ctx context.Context, id string, exec ...core.DBExecutor) (ReferralPartner, error)
		GetPartnerByCode(ctx context.Context, code string, exec ...core.DBExecutor) (ReferralPartner, error)
		QueryPartners(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]ReferralPartner, error)
		// UpdatePartnerStatus patches status, isApproved and updatedAt only.
		UpdatePartnerStatus(ctx context.Context, id, status string, isApproved bool, updatedAt time.Time, exec ...core.DBExecutor) (ReferralPartner, error)
		// ApplyCommissionDelta shifts the partner's money aggregates with
		// in-place increments, delegating atomicity to the storage layer.
		// A delta that would leave pendingCommission negative fails with
		// ErrInsufficientPending.
		ApplyCommissionDelta(ctx context.Context, id string, totalDelta, pendingDelta, paidDelta float64, updatedAt time.Time, exec ...core.DBExecutor) error

		CreateCommission(ctx context.Context, cms Commission, exec ...core.DBExecutor) (Commission, error)
		GetCommissionByID(ctx context.Context, id string, exec ...core.DBExecutor) (Commission, error)
		QueryCommissions(ctx context.Context, filter CommissionFilter, exec ...core.DBExecutor) ([]Commission, error)
		// UpdateCommissionStatus patches status and paidAt only.
		UpdateCommissionStatus(ctx context.Context, id, status string, paidAt *time.Time, exec ...core.DBExecutor) (Commission, error)

		CreateDisbursement(ctx context.Context, dsb Disbursement, exec ...core.DBExecutor) (Disbursement, error)
		GetDisbursementByID(ctx context.Context, id string, exec ...core.DBExecutor) (Disbursement, error)
		QueryDisbursementsByPartner(ctx context.Context, partnerID string, exec ...core.DBExecutor) ([]Disbursement, error)
		// UpdateDisbursementStatus patches status and completedAt only.
		UpdateDisbursementStatus(ctx context.Context, id, status string, completedAt *time.Time, exec ...core.DBExecutor) (Disbursement, error)
	}

	Service struct {
		runner   core.TxRunner
		repo     Repository
		mailSvc  core.EmailService
		validate *validator.Validate
	}
)

func NewService(runner core.TxRunner, repo Repository, mailSvc core.EmailService, validate *validator.Validate) *Service {
	return &Service{
		runner:   runner,
		repo:     repo,
		mailSvc:  mailSvc,
		validate: validate,
	}
}

// Register validates and persists a new ReferralPartner with all aggregate
// counters zeroed, status "active" and isApproved false. Referral codes are
// unique: a taken code is rejected with a field error.
func (svc *Service) Register(ctx context.Context, np NewPartner) (ReferralPartner, error) {
	if err := np.Validate(svc.validate); err != nil {
		return ReferralPartner{}, err
	}

	if _, err := svc.repo.GetPartnerByCode(ctx, np.ReferralCode); err == nil {
		return ReferralPartner{}, core.NewValidationError(
			ErrCodeExists, core.FieldError{Field: "referral_code", Error: ErrCodeExists.Error()})
	} else if errors.Cause(err) != ErrNotFound {
		return ReferralPartner{}, errors.Wrap(err, "checking referral code uniqueness")
	}

	now := time.Now().UTC()
	ptn := ReferralPartner{
		Name:                  np.Name,
		Type:                  np.Type,
		Email:                 np.Email,
		Phone:                 np.Phone,
		NinNumber:             np.NinNumber,
		StateOfResident:       np.StateOfResident,
		StateOfOrigin:         np.StateOfOrigin,
		ReferralCode:          np.ReferralCode,
		InstitutionName:       np.InstitutionName,
		StudentUnionPresident: np.UnionPresident,
		BankingDetails:        np.BankingDetails,
		Status:                StatusActive,
		CreatedAt:             now,
		UpdatedAt:             now,
	}

	ptn, err := svc.repo.CreatePartner(ctx, ptn)
	if err != nil {
		return ReferralPartner{}, errors.Wrap(err, "creating partner")
	}

	svc.sendWelcomeMail(ptn)
	return ptn, nil
}

func (svc *Service) GetByID(ctx context.Context, id string) (ReferralPartner, error) {
	return svc.repo.GetPartnerByID(ctx, id)
}

func (svc *Service) GetByCode(ctx context.Context, code string) (ReferralPartner, error) {
	return svc.repo.GetPartnerByCode(ctx, core.CleanString(code))
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]ReferralPartner, error) {
	return svc.repo.QueryPartners(ctx, filter, ordering)
}

// SetStatus patches a partner's status and approval flag. No aggregate side effects.
func (svc *Service) SetStatus(ctx context.Context, id, status string, isApproved bool) (ReferralPartner, error) {
	if status != StatusActive && status != StatusInactive {
		return ReferralPartner{}, core.NewValidationError(
			nil, core.FieldError{Field: "status", Error: fmt.Sprintf("unknown partner status %q", status)})
	}
	return svc.repo.UpdatePartnerStatus(ctx, id, status, isApproved, time.Now().UTC())
}

// RecordCommission inserts a pending Commission and increments the owning
// partner's totalCommission and pendingCommission by the same amount, as one
// atomic unit.
func (svc *Service) RecordCommission(ctx context.Context, nc NewCommission) (Commission, error) {
	if err := nc.Validate(svc.validate); err != nil {
		return Commission{}, err
	}
	if _, err := svc.repo.GetPartnerByID(ctx, nc.PartnerID); err != nil {
		return Commission{}, err
	}

	now := time.Now().UTC()
	cms := Commission{
		PartnerID:     nc.PartnerID,
		ApplicationID: nc.ApplicationID,
		Amount:        nc.Amount,
		ReferralCode:  nc.ReferralCode,
		Status:        CommissionPending,
		CreatedAt:     now,
	}

	err := svc.runner.Atomic(ctx, func(tx core.DBExecutor) error {
		var err error
		if cms, err = svc.repo.CreateCommission(ctx, cms, tx); err != nil {
			return errors.Wrap(err, "creating commission")
		}
		if err = svc.repo.ApplyCommissionDelta(ctx, nc.PartnerID, nc.Amount, nc.Amount, 0, now, tx); err != nil {
			return errors.Wrap(err, "applying commission totals")
		}
		return nil
	})
	if err != nil {
		return Commission{}, err
	}
	return cms, nil
}

// RecordDisbursement inserts a pending Disbursement and shifts the amount
// from pendingCommission to paidCommission, as one atomic unit. The amount
// may not exceed the partner's pending commission.
func (svc *Service) RecordDisbursement(ctx context.Context, nd NewDisbursement) (Disbursement, error) {
	if err := nd.Validate(svc.validate); err != nil {
		return Disbursement{}, err
	}

	now := time.Now().UTC()
	dsb := Disbursement{
		PartnerID:     nd.PartnerID,
		Amount:        nd.Amount,
		BankReference: nd.BankReference,
		Status:        DisbursementPending,
		CreatedAt:     now,
	}

	// the sufficiency check runs inside the transaction, and the aggregate
	// update itself refuses to drive pendingCommission negative, so racing
	// disbursements cannot overdraw a partner
	err := svc.runner.Atomic(ctx, func(tx core.DBExecutor) error {
		ptn, err := svc.repo.GetPartnerByID(ctx, nd.PartnerID, tx)
		if err != nil {
			return err
		}
		if nd.Amount > ptn.PendingCommission {
			return insufficientPendingError()
		}
		if dsb, err = svc.repo.CreateDisbursement(ctx, dsb, tx); err != nil {
			return errors.Wrap(err, "creating disbursement")
		}
		if err = svc.repo.ApplyCommissionDelta(ctx, nd.PartnerID, 0, -nd.Amount, nd.Amount, now, tx); err != nil {
			if errors.Cause(err) == ErrInsufficientPending {
				return insufficientPendingError()
			}
			return errors.Wrap(err, "applying disbursement totals")
		}
		return nil
	})
	if err != nil {
		return Disbursement{}, err
	}
	return dsb, nil
}

func insufficientPendingError() error {
	return core.NewValidationError(
		ErrInsufficientPending, core.FieldError{Field: "amount", Error: ErrInsufficientPending.Error()})
}

// SetDisbursementStatus patches a disbursement; "completed" stamps completedAt.
func (svc *Service) SetDisbursementStatus(ctx context.Context, id, status string) (Disbursement, error) {
	switch status {
	case DisbursementPending, DisbursementCompleted, DisbursementFailed:
	default:
		return Disbursement{}, core.NewValidationError(
			nil, core.FieldError{Field: "status", Error: fmt.Sprintf("unknown disbursement status %q", status)})
	}

	var completedAt *time.Time
	if status == DisbursementCompleted {
		now := time.Now().UTC()
		completedAt = &now
	}
	return svc.repo.UpdateDisbursementStatus(ctx, id, status, completedAt)
}

// MarkCommissionPaid is the explicit admin step that settles a commission
// after its payout went through. Aggregates are untouched here: the
// disbursement already moved the money.
func (svc *Service) MarkCommissionPaid(ctx context.Context, id string) (Commission, error) {
	cms, err := svc.repo.GetCommissionByID(ctx, id)
	if err != nil {
		return Commission{}, err
	}
	if cms.Status == CommissionPaid {
		return cms, nil
	}
	now := time.Now().UTC()
	return svc.repo.UpdateCommissionStatus(ctx, id, CommissionPaid, &now)
}

func (svc *Service) ListCommissionsByPartner(ctx context.Context, partnerID string) ([]Commission, error) {
	return svc.repo.QueryCommissions(ctx, CommissionFilter{PartnerID: partnerID})
}

func (svc *Service) ListPendingCommissions(ctx context.Context) ([]Commission, error) {
	return svc.repo.QueryCommissions(ctx, CommissionFilter{Status: CommissionPending})
}

func (svc *Service) ListDisbursementsByPartner(ctx context.Context, partnerID string) ([]Disbursement, error) {
	return svc.repo.QueryDisbursementsByPartner(ctx, partnerID)
}

func (svc *Service) sendWelcomeMail(ptn ReferralPartner) {
	msg := &core.EmailMessage{
		To:      []mail.Address{{Name: ptn.Name, Address: ptn.Email}},
		Subject: "Referral Partner Registration Received",
	}
	msg.SetBody(
		fmt.Sprintf("Hello %s,", ptn.Name),
		fmt.Sprintf("Your referral partner registration has been received. Your referral code is %s.", ptn.ReferralCode),
		"You will be notified once your account is approved.",
	)
	svc.mailSvc.SendMessages(msg)
}
