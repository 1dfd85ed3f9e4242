package partner_test

import (
	"context"
	"net/mail"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akademyx/admissions/core"
	"github.com/akademyx/admissions/core/partner"
	emailsvc "github.com/akademyx/admissions/services/email"
	dummydb "github.com/akademyx/admissions/storage/database/dummy"
)

type testEnv struct {
	svc  *partner.Service
	repo partner.Repository
}

func setup(t *testing.T) *testEnv {
	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("setup() failed: %v", err)
	}
	conf := &core.Config{
		TestMode:         true,
		AppName:          "Akademyx",
		DefaultFromEmail: mail.Address{Name: "Akademyx", Address: "noreply@localhost"},
	}
	validate, _ := core.NewValidator()
	repo := dummydb.NewPartnerRepository(db)
	svc := partner.NewService(dummydb.NewTxRunner(), repo, emailsvc.NewConsoleServiceMock(conf), validate)
	return &testEnv{svc: svc, repo: repo}
}

func resetMails() {
	emailsvc.SentMessages = emailsvc.SentMessages[:0]
}

func validNewPartner(code string) partner.NewPartner {
	return partner.NewPartner{
		Name:            "Musa Ibrahim",
		Type:            partner.TypeIndividual,
		Email:           "musa@test.ng",
		Phone:           "+2348098765432",
		NinNumber:       "98765432109",
		StateOfResident: "Kano",
		StateOfOrigin:   "Kano",
		ReferralCode:    code,
		BankingDetails: partner.BankingDetails{
			BankName:      "GTBank",
			AccountNumber: "0123456789",
			AccountName:   "Musa Ibrahim",
		},
	}
}

func registerPartner(t *testing.T, env *testEnv, code string) partner.ReferralPartner {
	ptn, err := env.svc.Register(context.Background(), validNewPartner(code))
	if err != nil {
		t.Fatalf("registerPartner() failed: %v", err)
	}
	return ptn
}

func Test_Service_Register(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	t.Run("fresh registration", func(t *testing.T) {
		resetMails()

		ptn, err := env.svc.Register(ctx, validNewPartner("MUSA-KANO-01"))
		require.NoError(t, err)

		assert.NotEmpty(t, ptn.ID)
		assert.Equal(t, partner.StatusActive, ptn.Status)
		assert.False(t, ptn.IsApproved)
		assert.Zero(t, ptn.TotalReferrals)
		assert.Zero(t, ptn.ConfirmedReferrals)
		assert.Zero(t, ptn.TotalCommission)
		assert.Zero(t, ptn.PaidCommission)
		assert.Zero(t, ptn.PendingCommission)

		require.Len(t, emailsvc.SentMessages, 1)
		assert.Equal(t, "Referral Partner Registration Received", emailsvc.SentMessages[0].Subject)
	})

	t.Run("duplicate referral code", func(t *testing.T) {
		np := validNewPartner("MUSA-KANO-01")
		np.Email = "other@test.ng"

		_, err := env.svc.Register(ctx, np)
		var vErr *core.ValidationError
		require.True(t, errors.As(err, &vErr))
		assert.Equal(t, "referral_code", vErr.Fields[0].Field)
	})

	t.Run("institution requires a name", func(t *testing.T) {
		np := validNewPartner("SUG-LAGOS-01")
		np.Type = partner.TypeInstitution

		_, err := env.svc.Register(ctx, np)
		assert.Error(t, err)
	})
}

func Test_Service_SetStatus(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	ptn := registerPartner(t, env, "MUSA-KANO-02")

	ptn, err := env.svc.SetStatus(ctx, ptn.ID, partner.StatusInactive, true)
	require.NoError(t, err)
	assert.Equal(t, partner.StatusInactive, ptn.Status)
	assert.True(t, ptn.IsApproved)

	_, err = env.svc.SetStatus(ctx, ptn.ID, "suspended", false)
	var vErr *core.ValidationError
	assert.True(t, errors.As(err, &vErr))
}

func Test_Service_RecordCommission(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	ptn := registerPartner(t, env, "MUSA-KANO-03")

	t.Run("pending commission bumps aggregates", func(t *testing.T) {
		cms, err := env.svc.RecordCommission(ctx, partner.NewCommission{
			PartnerID:     ptn.ID,
			ApplicationID: "app-01",
			Amount:        5000,
			ReferralCode:  ptn.ReferralCode,
		})
		require.NoError(t, err)
		assert.Equal(t, partner.CommissionPending, cms.Status)
		assert.Nil(t, cms.PaidAt)

		refreshed, err := env.repo.GetPartnerByID(ctx, ptn.ID)
		require.NoError(t, err)
		assert.Equal(t, 5000.0, refreshed.TotalCommission)
		assert.Equal(t, 5000.0, refreshed.PendingCommission)
		assert.Zero(t, refreshed.PaidCommission)
	})

	t.Run("unknown partner", func(t *testing.T) {
		_, err := env.svc.RecordCommission(ctx, partner.NewCommission{
			PartnerID:     "deadbeef",
			ApplicationID: "app-01",
			Amount:        5000,
			ReferralCode:  "MUSA-KANO-03",
		})
		assert.Equal(t, partner.ErrNotFound, errors.Cause(err))
	})
}

func Test_Service_RecordDisbursement(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	ptn := registerPartner(t, env, "MUSA-KANO-04")

	_, err := env.svc.RecordCommission(ctx, partner.NewCommission{
		PartnerID:     ptn.ID,
		ApplicationID: "app-01",
		Amount:        5000,
		ReferralCode:  ptn.ReferralCode,
	})
	require.NoError(t, err)

	t.Run("amount exceeds pending commission", func(t *testing.T) {
		_, err := env.svc.RecordDisbursement(ctx, partner.NewDisbursement{
			PartnerID:     ptn.ID,
			Amount:        10000,
			BankReference: "REF-001",
		})
		var vErr *core.ValidationError
		require.True(t, errors.As(err, &vErr))
		assert.Equal(t, "amount", vErr.Fields[0].Field)
	})

	t.Run("storage guard refuses an overdraw", func(t *testing.T) {
		// a racing disbursement that slipped past the service check still
		// cannot drive pendingCommission negative
		err := env.repo.ApplyCommissionDelta(ctx, ptn.ID, 0, -10000, 10000, time.Now().UTC())
		assert.Equal(t, partner.ErrInsufficientPending, errors.Cause(err))

		refreshed, err := env.repo.GetPartnerByID(ctx, ptn.ID)
		require.NoError(t, err)
		assert.Equal(t, 5000.0, refreshed.PendingCommission)
		assert.Zero(t, refreshed.PaidCommission)
	})

	t.Run("payout shifts pending to paid", func(t *testing.T) {
		dsb, err := env.svc.RecordDisbursement(ctx, partner.NewDisbursement{
			PartnerID:     ptn.ID,
			Amount:        3000,
			BankReference: "REF-002",
		})
		require.NoError(t, err)
		assert.Equal(t, partner.DisbursementPending, dsb.Status)
		assert.Nil(t, dsb.CompletedAt)

		refreshed, err := env.repo.GetPartnerByID(ctx, ptn.ID)
		require.NoError(t, err)
		assert.Equal(t, 5000.0, refreshed.TotalCommission)
		assert.Equal(t, 2000.0, refreshed.PendingCommission)
		assert.Equal(t, 3000.0, refreshed.PaidCommission)
	})
}

func Test_Service_SetDisbursementStatus(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	ptn := registerPartner(t, env, "MUSA-KANO-05")

	_, err := env.svc.RecordCommission(ctx, partner.NewCommission{
		PartnerID:     ptn.ID,
		ApplicationID: "app-01",
		Amount:        5000,
		ReferralCode:  ptn.ReferralCode,
	})
	require.NoError(t, err)
	dsb, err := env.svc.RecordDisbursement(ctx, partner.NewDisbursement{
		PartnerID:     ptn.ID,
		Amount:        5000,
		BankReference: "REF-003",
	})
	require.NoError(t, err)

	t.Run("unknown status", func(t *testing.T) {
		_, err := env.svc.SetDisbursementStatus(ctx, dsb.ID, "bounced")
		var vErr *core.ValidationError
		assert.True(t, errors.As(err, &vErr))
	})

	t.Run("failed leaves completedAt unset", func(t *testing.T) {
		dsb, err := env.svc.SetDisbursementStatus(ctx, dsb.ID, partner.DisbursementFailed)
		require.NoError(t, err)
		assert.Equal(t, partner.DisbursementFailed, dsb.Status)
		assert.Nil(t, dsb.CompletedAt)
	})

	t.Run("completed stamps completedAt", func(t *testing.T) {
		dsb, err := env.svc.SetDisbursementStatus(ctx, dsb.ID, partner.DisbursementCompleted)
		require.NoError(t, err)
		assert.Equal(t, partner.DisbursementCompleted, dsb.Status)
		require.NotNil(t, dsb.CompletedAt)
	})
}

func Test_Service_MarkCommissionPaid(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	ptn := registerPartner(t, env, "MUSA-KANO-06")

	cms, err := env.svc.RecordCommission(ctx, partner.NewCommission{
		PartnerID:     ptn.ID,
		ApplicationID: "app-01",
		Amount:        5000,
		ReferralCode:  ptn.ReferralCode,
	})
	require.NoError(t, err)

	cms, err = env.svc.MarkCommissionPaid(ctx, cms.ID)
	require.NoError(t, err)
	assert.Equal(t, partner.CommissionPaid, cms.Status)
	require.NotNil(t, cms.PaidAt)
	paidAt := *cms.PaidAt

	// settling twice is a no-op
	cms, err = env.svc.MarkCommissionPaid(ctx, cms.ID)
	require.NoError(t, err)
	assert.Equal(t, partner.CommissionPaid, cms.Status)
	assert.Equal(t, paidAt, *cms.PaidAt)

	// settling does not touch the money aggregates
	refreshed, err := env.repo.GetPartnerByID(ctx, ptn.ID)
	require.NoError(t, err)
	assert.Equal(t, 5000.0, refreshed.TotalCommission)
	assert.Equal(t, 5000.0, refreshed.PendingCommission)
	assert.Zero(t, refreshed.PaidCommission)

	_, err = env.svc.MarkCommissionPaid(ctx, "deadbeef")
	assert.Equal(t, partner.ErrCommissionNotFound, errors.Cause(err))
}
