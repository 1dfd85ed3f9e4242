package application

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
	ErrNotFound          = errors.New("application not found")
	ErrInvalidTransition = errors.New("illegal status transition")

	errUnknownReferralCode = "unknown referral code"
)

type (
	Repository interface {
		CreateApplication(ctx context.Context, app Application, exec ...core.DBExecutor) (Application, error)
		GetApplicationByID(ctx context.Context, id string, exec ...core.DBExecutor) (Application, error)
		QueryApplications(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Application, error)
		// UpdateApplicationStatus patches status, paymentStatus and updatedAt only.
		UpdateApplicationStatus(ctx context.Context, id, status, paymentStatus string, updatedAt time.Time, exec ...core.DBExecutor) (Application, error)
	}

	// PartnerRef is the slice of a referral partner the submission flow needs.
	PartnerRef struct {
		ID   string
		Type string
		Code string
	}

	// PartnerDirectory resolves referral codes and maintains the referral
	// counters denormalized onto partners.
	PartnerDirectory interface {
		FindPartnerByCode(ctx context.Context, code string, exec ...core.DBExecutor) (PartnerRef, error)
		IncrementPartnerReferrals(ctx context.Context, partnerID string, confirmed bool, exec ...core.DBExecutor) error
	}

	Service struct {
		runner   core.TxRunner
		repo     Repository
		partners PartnerDirectory
		mailSvc  core.EmailService
		conf     *core.Config
		validate *validator.Validate
	}
)

// ErrPartnerNotFound is returned by PartnerDirectory implementations when a
// referral code does not resolve.
var ErrPartnerNotFound = errors.New("referral partner not found")

func NewService(
	runner core.TxRunner,
	repo Repository,
	partners PartnerDirectory,
	mailSvc core.EmailService,
	conf *core.Config,
	validate *validator.Validate,
) *Service {
	return &Service{
		runner:   runner,
		repo:     repo,
		partners: partners,
		mailSvc:  mailSvc,
		conf:     conf,
		validate: validate,
	}
}

// Create validates and persists a new Application with status "pending",
// paymentStatus "pending" and the configured admission fee. A provided
// referral code is resolved to a partner and the partner's totalReferrals
// counter is bumped in the same transaction as the insert.
func (svc *Service) Create(ctx context.Context, na NewApplication) (Application, error) {
	if err := na.Validate(svc.validate); err != nil {
		return Application{}, err
	}

	now := time.Now().UTC()
	app := Application{
		FirstName:       na.FirstName,
		LastName:        na.LastName,
		Email:           na.Email,
		Phone:           na.Phone,
		Age:             na.Age,
		Occupation:      na.Occupation,
		Location:        na.Location,
		NinNumber:       na.NinNumber,
		StateOfResident: na.StateOfResident,
		StateOfOrigin:   na.StateOfOrigin,
		Motivation:      na.Motivation,
		Experience:      na.Experience,
		Goals:           na.Goals,
		Status:          StatusPending,
		ReferralType:    ReferralDirect,
		Amount:          svc.conf.ApplicationFee,
		PaymentStatus:   PaymentStatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if na.ReferralCode != "" {
		ptn, err := svc.partners.FindPartnerByCode(ctx, na.ReferralCode)
		if err != nil {
			if errors.Cause(err) == ErrPartnerNotFound {
				return Application{}, core.NewValidationError(
					err, core.FieldError{Field: "referral_code", Error: errUnknownReferralCode})
			}
			return Application{}, errors.Wrap(err, "resolving referral code")
		}
		app.ReferralCode = ptn.Code
		app.ReferralType = ptn.Type
		app.PartnerID = ptn.ID
	}

	err := svc.runner.Atomic(ctx, func(tx core.DBExecutor) error {
		var err error
		if app, err = svc.repo.CreateApplication(ctx, app, tx); err != nil {
			return errors.Wrap(err, "creating application")
		}
		if app.PartnerID != "" {
			if err = svc.partners.IncrementPartnerReferrals(ctx, app.PartnerID, false, tx); err != nil {
				return errors.Wrap(err, "incrementing partner referrals")
			}
		}
		return nil
	})
	if err != nil {
		return Application{}, err
	}

	svc.sendConfirmationMail(app)
	return app, nil
}

// SetStatus transitions an Application to the requested status. Illegal
// transitions are rejected unless transition enforcement is disabled.
func (svc *Service) SetStatus(ctx context.Context, id, status string) (Application, error) {
	app, err := svc.repo.GetApplicationByID(ctx, id)
	if err != nil {
		return Application{}, err
	}

	if svc.conf.EnforceStatusTransitions && status != app.Status && !CanTransition(app.Status, status) {
		return Application{}, core.NewValidationError(
			ErrInvalidTransition,
			core.FieldError{Field: "status", Error: fmt.Sprintf("cannot transition from %q to %q", app.Status, status)},
		)
	}

	paymentStatus := app.PaymentStatus
	if status == StatusPaid {
		paymentStatus = PaymentStatusCompleted
	}
	app, err = svc.repo.UpdateApplicationStatus(ctx, id, status, paymentStatus, time.Now().UTC())
	if err != nil {
		return Application{}, errors.Wrap(err, "updating application status")
	}

	if status == StatusApproved {
		svc.sendApprovalMail(app)
	}
	return app, nil
}

func (svc *Service) GetByID(ctx context.Context, id string) (Application, error) {
	return svc.repo.GetApplicationByID(ctx, id)
}

// GetPublicInfo returns the reduced field set used by the payment page.
func (svc *Service) GetPublicInfo(ctx context.Context, id string) (PublicInfo, error) {
	app, err := svc.repo.GetApplicationByID(ctx, id)
	if err != nil {
		return PublicInfo{}, err
	}
	return app.PublicInfo(), nil
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Application, error) {
	return svc.repo.QueryApplications(ctx, filter, ordering)
}

func (svc *Service) sendConfirmationMail(app Application) {
	msg := &core.EmailMessage{
		To:      []mail.Address{{Name: app.FirstName + " " + app.LastName, Address: app.Email}},
		Subject: "Application Received",
	}
	msg.SetBody(
		fmt.Sprintf("Welcome %s!", app.FirstName),
		"Thank you for applying to our 3-month digital skills programme.",
		"We've received your application and will review it within 24-48 hours.",
	)
	svc.mailSvc.SendMessages(msg)
}

func (svc *Service) sendApprovalMail(app Application) {
	msg := &core.EmailMessage{
		To:      []mail.Address{{Name: app.FirstName + " " + app.LastName, Address: app.Email}},
		Subject: "Application Approved",
	}
	msg.SetBody(
		fmt.Sprintf("Congratulations, %s!", app.FirstName),
		"Your application has been approved.",
		fmt.Sprintf("To secure your spot, please complete your payment of ₦%.0f within the next 48 hours.", app.Amount),
		fmt.Sprintf("%s/payment?applicationId=%s", svc.conf.FrontendBaseURL, app.ID),
	)
	svc.mailSvc.SendMessages(msg)
}
