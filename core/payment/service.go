package payment

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/akademyx/admissions/core"
	"github.com/akademyx/admissions/core/application"
)

var (
	// errors
	ErrNotFound = errors.New("payment not found")
)

type (
	Repository interface {
		CreatePayment(ctx context.Context, pmt Payment, exec ...core.DBExecutor) (Payment, error)
		GetPaymentByID(ctx context.Context, id string, exec ...core.DBExecutor) (Payment, error)
		// UpdatePaymentStatus patches status, transactionID and updatedAt only.
		UpdatePaymentStatus(ctx context.Context, id, status, transactionID string, updatedAt time.Time, exec ...core.DBExecutor) (Payment, error)
		QueryPaymentsByApplication(ctx context.Context, applicationID string, exec ...core.DBExecutor) ([]Payment, error)
	}

	// ApplicationStore is the slice of the application repository the payment
	// flow needs to progress the owning application.
	ApplicationStore interface {
		GetApplicationByID(ctx context.Context, id string, exec ...core.DBExecutor) (application.Application, error)
		UpdateApplicationStatus(ctx context.Context, id, status, paymentStatus string, updatedAt time.Time, exec ...core.DBExecutor) (application.Application, error)
	}

	Service struct {
		runner   core.TxRunner
		repo     Repository
		apps     ApplicationStore
		partners application.PartnerDirectory
		mailSvc  core.EmailService
		validate *validator.Validate
	}
)

func NewService(
	runner core.TxRunner,
	repo Repository,
	apps ApplicationStore,
	partners application.PartnerDirectory,
	mailSvc core.EmailService,
	validate *validator.Validate,
) *Service {
	return &Service{
		runner:   runner,
		repo:     repo,
		apps:     apps,
		partners: partners,
		mailSvc:  mailSvc,
		validate: validate,
	}
}

// Record inserts a pending Payment for an existing Application. It has no
// side effects beyond the insert; completion goes through Confirm.
func (svc *Service) Record(ctx context.Context, np NewPayment) (Payment, error) {
	if err := np.Validate(svc.validate); err != nil {
		return Payment{}, err
	}
	if _, err := svc.apps.GetApplicationByID(ctx, np.ApplicationID); err != nil {
		return Payment{}, err
	}

	now := time.Now().UTC()
	pmt := Payment{
		ApplicationID: np.ApplicationID,
		Amount:        np.Amount,
		Currency:      np.Currency,
		PaymentMethod: np.PaymentMethod,
		Status:        StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if pmt.Currency == "" {
		pmt.Currency = DefaultCurrency
	}

	pmt, err := svc.repo.CreatePayment(ctx, pmt)
	return pmt, errors.Wrap(err, "creating payment")
}

// UpdateStatus applies a gateway callback. A "completed" status is routed
// through Confirm so the payment and the owning application always move
// together; "pending" and "failed" patch the payment only.
func (svc *Service) UpdateStatus(ctx context.Context, id string, su StatusUpdate) (Payment, error) {
	if err := su.Validate(svc.validate); err != nil {
		return Payment{}, err
	}
	if su.Status == StatusCompleted {
		return svc.Confirm(ctx, id, su.TransactionID)
	}
	pmt, err := svc.repo.UpdatePaymentStatus(ctx, id, su.Status, su.TransactionID, time.Now().UTC())
	if err != nil {
		return Payment{}, err
	}
	return pmt, nil
}

// Confirm marks a Payment completed and, in the same transaction, moves the
// owning Application to "paid"/"completed" and bumps the referring partner's
// confirmed-referral counter. Re-confirming a completed payment is a no-op.
func (svc *Service) Confirm(ctx context.Context, id, transactionID string) (Payment, error) {
	pmt, err := svc.repo.GetPaymentByID(ctx, id)
	if err != nil {
		return Payment{}, err
	}
	if pmt.Status == StatusCompleted {
		return pmt, nil
	}

	app, err := svc.apps.GetApplicationByID(ctx, pmt.ApplicationID)
	if err != nil {
		return Payment{}, errors.Wrap(err, "finding owning application")
	}

	now := time.Now().UTC()
	err = svc.runner.Atomic(ctx, func(tx core.DBExecutor) error {
		var err error
		if pmt, err = svc.repo.UpdatePaymentStatus(ctx, id, StatusCompleted, transactionID, now, tx); err != nil {
			return errors.Wrap(err, "updating payment status")
		}
		if app.Status != application.StatusPaid {
			app, err = svc.apps.UpdateApplicationStatus(
				ctx, app.ID, application.StatusPaid, application.PaymentStatusCompleted, now, tx)
			if err != nil {
				return errors.Wrap(err, "updating application status")
			}
			if app.PartnerID != "" {
				if err = svc.partners.IncrementPartnerReferrals(ctx, app.PartnerID, true, tx); err != nil {
					return errors.Wrap(err, "incrementing confirmed referrals")
				}
			}
		}
		return nil
	})
	if err != nil {
		return Payment{}, err
	}

	svc.sendReceiptMail(app, pmt)
	return pmt, nil
}

func (svc *Service) GetByID(ctx context.Context, id string) (Payment, error) {
	return svc.repo.GetPaymentByID(ctx, id)
}

func (svc *Service) QueryByApplication(ctx context.Context, applicationID string) ([]Payment, error) {
	return svc.repo.QueryPaymentsByApplication(ctx, applicationID)
}

func (svc *Service) sendReceiptMail(app application.Application, pmt Payment) {
	msg := &core.EmailMessage{
		To:      []mail.Address{{Name: app.FirstName + " " + app.LastName, Address: app.Email}},
		Subject: "Payment Received",
	}
	msg.SetBody(
		fmt.Sprintf("Dear %s,", app.FirstName),
		fmt.Sprintf("We have received your payment of %s %.2f.", pmt.Currency, pmt.Amount),
		"Your spot on the programme is now secured. Welcome aboard!",
	)
	svc.mailSvc.SendMessages(msg)
}
