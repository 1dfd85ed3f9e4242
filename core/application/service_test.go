package application_test

import (
	"context"
	"net/mail"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akademyx/admissions/core"
	"github.com/akademyx/admissions/core/application"
	"github.com/akademyx/admissions/core/partner"
	emailsvc "github.com/akademyx/admissions/services/email"
	dummydb "github.com/akademyx/admissions/storage/database/dummy"
)

type testEnv struct {
	conf    *core.Config
	svc     *application.Service
	appRepo application.Repository
	ptnRepo partner.Repository
}

func setup(t *testing.T) *testEnv {
	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("setup() failed: %v", err)
	}
	conf := &core.Config{
		TestMode:                 true,
		AppName:                  "Akademyx",
		FrontendBaseURL:          "http://localhost:3000",
		DefaultFromEmail:         mail.Address{Name: "Akademyx", Address: "noreply@localhost"},
		ApplicationFee:           50000,
		EnforceStatusTransitions: true,
	}
	validate, _ := core.NewValidator()
	ptnRepo := dummydb.NewPartnerRepository(db)
	appRepo := dummydb.NewApplicationRepository(db)
	svc := application.NewService(
		dummydb.NewTxRunner(), appRepo, ptnRepo, emailsvc.NewConsoleServiceMock(conf), conf, validate)
	return &testEnv{conf: conf, svc: svc, appRepo: appRepo, ptnRepo: ptnRepo}
}

func resetMails() {
	emailsvc.SentMessages = emailsvc.SentMessages[:0]
}

func validNewApplication() application.NewApplication {
	return application.NewApplication{
		FirstName:       "Ada",
		LastName:        "Obi",
		Email:           "ada@test.ng",
		Phone:           "+2348012345678",
		Age:             24,
		Occupation:      "Customer Support Agent",
		Location:        "Lagos",
		NinNumber:       "12345678901",
		StateOfResident: "Lagos",
		StateOfOrigin:   "Anambra",
		Motivation:      "I want to learn digital skills to improve my career prospects and support my community.",
		Experience:      "Two years of customer support work at a fintech startup.",
		Goals:           "Become a professional frontend developer and mentor other young people in my state.",
	}
}

func createPartner(t *testing.T, repo partner.Repository, code string) partner.ReferralPartner {
	now := time.Now().UTC()
	ptn, err := repo.CreatePartner(context.Background(), partner.ReferralPartner{
		Name:            "Musa Ibrahim",
		Type:            partner.TypeInstitution,
		Email:           "musa@test.ng",
		Phone:           "+2348098765432",
		NinNumber:       "98765432109",
		StateOfResident: "Kano",
		StateOfOrigin:   "Kano",
		ReferralCode:    code,
		InstitutionName: "University of Kano",
		BankingDetails: partner.BankingDetails{
			BankName:      "GTBank",
			AccountNumber: "0123456789",
			AccountName:   "Musa Ibrahim",
		},
		Status:    partner.StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("createPartner() failed: %v", err)
	}
	return ptn
}

func Test_Service_Create(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	t.Run("direct application", func(t *testing.T) {
		resetMails()

		app, err := env.svc.Create(ctx, validNewApplication())
		require.NoError(t, err)

		assert.NotEmpty(t, app.ID)
		assert.Equal(t, application.StatusPending, app.Status)
		assert.Equal(t, application.PaymentStatusPending, app.PaymentStatus)
		assert.Equal(t, env.conf.ApplicationFee, app.Amount)
		assert.Equal(t, application.ReferralDirect, app.ReferralType)
		assert.Empty(t, app.ReferralCode)
		assert.Empty(t, app.PartnerID)

		require.Len(t, emailsvc.SentMessages, 1)
		assert.Equal(t, "Application Received", emailsvc.SentMessages[0].Subject)
	})

	t.Run("referred application", func(t *testing.T) {
		ptn := createPartner(t, env.ptnRepo, "SUG-UNIKANO-01")

		na := validNewApplication()
		na.Email = "referred@test.ng"
		na.ReferralCode = ptn.ReferralCode

		app, err := env.svc.Create(ctx, na)
		require.NoError(t, err)

		assert.Equal(t, ptn.ID, app.PartnerID)
		assert.Equal(t, ptn.ReferralCode, app.ReferralCode)
		assert.Equal(t, partner.TypeInstitution, app.ReferralType)

		ptn, err = env.ptnRepo.GetPartnerByID(ctx, ptn.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, ptn.TotalReferrals)
		assert.Equal(t, 0, ptn.ConfirmedReferrals)
	})

	t.Run("unknown referral code", func(t *testing.T) {
		na := validNewApplication()
		na.ReferralCode = "NOSUCHCODE"

		_, err := env.svc.Create(ctx, na)
		var vErr *core.ValidationError
		require.True(t, errors.As(err, &vErr))
		require.Len(t, vErr.Fields, 1)
		assert.Equal(t, "referral_code", vErr.Fields[0].Field)
	})

	t.Run("invalid payload", func(t *testing.T) {
		na := validNewApplication()
		na.NinNumber = "12AB"

		_, err := env.svc.Create(ctx, na)
		var vErrs validator.ValidationErrors
		assert.True(t, errors.As(err, &vErrs))
	})
}

func Test_Service_SetStatus(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	app, err := env.svc.Create(ctx, validNewApplication())
	require.NoError(t, err)

	t.Run("approve sends mail", func(t *testing.T) {
		resetMails()
		before := app.UpdatedAt

		app, err = env.svc.SetStatus(ctx, app.ID, application.StatusApproved)
		require.NoError(t, err)
		assert.Equal(t, application.StatusApproved, app.Status)
		assert.Equal(t, application.PaymentStatusPending, app.PaymentStatus)
		assert.True(t, app.UpdatedAt.After(before), "updatedAt did not advance")

		require.Len(t, emailsvc.SentMessages, 1)
		assert.Equal(t, "Application Approved", emailsvc.SentMessages[0].Subject)
	})

	t.Run("illegal transition rejected", func(t *testing.T) {
		_, err := env.svc.SetStatus(ctx, app.ID, application.StatusRejected)
		var vErr *core.ValidationError
		require.True(t, errors.As(err, &vErr))
		assert.Equal(t, "status", vErr.Fields[0].Field)
	})

	t.Run("paid completes payment status", func(t *testing.T) {
		app, err = env.svc.SetStatus(ctx, app.ID, application.StatusPaid)
		require.NoError(t, err)
		assert.Equal(t, application.StatusPaid, app.Status)
		assert.Equal(t, application.PaymentStatusCompleted, app.PaymentStatus)
	})

	t.Run("terminal status locked", func(t *testing.T) {
		_, err := env.svc.SetStatus(ctx, app.ID, application.StatusPending)
		var vErr *core.ValidationError
		assert.True(t, errors.As(err, &vErr))
	})

	t.Run("enforcement disabled", func(t *testing.T) {
		env.conf.EnforceStatusTransitions = false
		defer func() { env.conf.EnforceStatusTransitions = true }()

		app, err = env.svc.SetStatus(ctx, app.ID, application.StatusPending)
		require.NoError(t, err)
		assert.Equal(t, application.StatusPending, app.Status)
	})

	t.Run("unknown application", func(t *testing.T) {
		_, err := env.svc.SetStatus(ctx, "deadbeef", application.StatusApproved)
		assert.Equal(t, application.ErrNotFound, errors.Cause(err))
	})
}

func Test_Service_GetPublicInfo(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	app, err := env.svc.Create(ctx, validNewApplication())
	require.NoError(t, err)

	info, err := env.svc.GetPublicInfo(ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, application.PublicInfo{
		ID:        app.ID,
		FirstName: app.FirstName,
		LastName:  app.LastName,
		Email:     app.Email,
		Phone:     app.Phone,
		Amount:    app.Amount,
		Status:    app.Status,
	}, info)

	_, err = env.svc.GetPublicInfo(ctx, "deadbeef")
	assert.Equal(t, application.ErrNotFound, errors.Cause(err))
}
