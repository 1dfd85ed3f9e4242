package partner

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/akademyx/admissions/core"
)

// Partner types
const (
	TypeInstitution = "institution"
	TypeIndividual  = "individual"
)

// Partner statuses
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// Commission statuses
const (
	CommissionPending = "pending"
	CommissionPaid    = "paid"
)

// Disbursement statuses
const (
	DisbursementPending   = "pending"
	DisbursementCompleted = "completed"
	DisbursementFailed    = "failed"
)

type (
	BankingDetails struct {
		BankName      string `json:"bank_name" validate:"required,min=2"`
		AccountNumber string `json:"account_number" validate:"required,len=10,digitsonly"`
		AccountName   string `json:"account_name" validate:"required,min=2"`
	}

	ContactPerson struct {
		Name  string `json:"name" validate:"required,min=2,max=50,personname"`
		Email string `json:"email" validate:"required,email"`
		Phone string `json:"phone" validate:"required,min=10,max=15,phone"`
	}

	ReferralPartner struct {
		ID              string `json:"id"`
		Name            string `json:"name"`
		Type            string `json:"type"`
		Email           string `json:"email"`
		Phone           string `json:"phone"`
		NinNumber       string `json:"nin_number"`
		StateOfResident string `json:"state_of_resident"`
		StateOfOrigin   string `json:"state_of_origin"`
		ReferralCode    string `json:"referral_code"`
		InstitutionName string `json:"institution_name,omitempty"`

		StudentUnionPresident *ContactPerson `json:"student_union_president,omitempty"`
		BankingDetails        BankingDetails `json:"banking_details"`

		// running aggregates; the partner service is their only writer
		TotalReferrals     int     `json:"total_referrals"`
		ConfirmedReferrals int     `json:"confirmed_referrals"`
		TotalCommission    float64 `json:"total_commission"`
		PaidCommission     float64 `json:"paid_commission"`
		PendingCommission  float64 `json:"pending_commission"`

		Status     string    `json:"status"`
		IsApproved bool      `json:"is_approved"`
		CreatedAt  time.Time `json:"created_at"` // UTC
		UpdatedAt  time.Time `json:"updated_at"` // UTC
	}

	Commission struct {
		ID            string     `json:"id"`
		PartnerID     string     `json:"partner_id"`
		ApplicationID string     `json:"application_id"`
		Amount        float64    `json:"amount"`
		ReferralCode  string     `json:"referral_code"`
		Status        string     `json:"status"`
		CreatedAt     time.Time  `json:"created_at"` // UTC
		PaidAt        *time.Time `json:"paid_at,omitempty"`
	}

	Disbursement struct {
		ID            string     `json:"id"`
		PartnerID     string     `json:"partner_id"`
		Amount        float64    `json:"amount"`
		Status        string     `json:"status"`
		BankReference string     `json:"bank_reference"`
		CreatedAt     time.Time  `json:"created_at"` // UTC
		CompletedAt   *time.Time `json:"completed_at,omitempty"`
	}
)

// NewPartner contains information needed to register a ReferralPartner.
type NewPartner struct {
	Name            string         `json:"name" validate:"required,min=2,max=50,personname"`
	Type            string         `json:"type" validate:"required,oneof=institution individual"`
	Email           string         `json:"email" validate:"required,email"`
	Phone           string         `json:"phone" validate:"required,min=10,max=15,phone"`
	NinNumber       string         `json:"nin_number" validate:"required,len=11,digitsonly"`
	StateOfResident string         `json:"state_of_resident" validate:"required,min=2"`
	StateOfOrigin   string         `json:"state_of_origin" validate:"required,min=2"`
	ReferralCode    string         `json:"referral_code" validate:"required,min=6,max=20"`
	InstitutionName string         `json:"institution_name" validate:"required_if=Type institution"`
	UnionPresident  *ContactPerson `json:"student_union_president" validate:"omitempty"`
	BankingDetails  BankingDetails `json:"banking_details" validate:"required"`
}

func (np *NewPartner) Validate(validate *validator.Validate) error {
	np.Name = core.CleanString(np.Name)
	np.Type = core.CleanString(np.Type, true /* lower */)
	np.Email = core.CleanString(np.Email, true /* lower */)
	np.Phone = core.CleanString(np.Phone)
	np.NinNumber = core.CleanString(np.NinNumber)
	np.ReferralCode = core.CleanString(np.ReferralCode)
	np.BankingDetails.AccountNumber = core.CleanString(np.BankingDetails.AccountNumber)
	return validate.Struct(np)
}

// NewCommission associates a confirmed referral with a partner.
type NewCommission struct {
	PartnerID     string  `json:"partner_id" validate:"required"`
	ApplicationID string  `json:"application_id" validate:"required"`
	Amount        float64 `json:"amount" validate:"required,gt=0"`
	ReferralCode  string  `json:"referral_code" validate:"required,min=6,max=20"`
}

func (nc *NewCommission) Validate(validate *validator.Validate) error {
	nc.PartnerID = core.CleanString(nc.PartnerID)
	nc.ApplicationID = core.CleanString(nc.ApplicationID)
	nc.ReferralCode = core.CleanString(nc.ReferralCode)
	return validate.Struct(nc)
}

// NewDisbursement records a payout of accumulated commission.
type NewDisbursement struct {
	PartnerID     string  `json:"partner_id" validate:"required"`
	Amount        float64 `json:"amount" validate:"required,gt=0"`
	BankReference string  `json:"bank_reference" validate:"required,min=2"`
}

func (nd *NewDisbursement) Validate(validate *validator.Validate) error {
	nd.PartnerID = core.CleanString(nd.PartnerID)
	nd.BankReference = core.CleanString(nd.BankReference)
	return validate.Struct(nd)
}

type QueryFilter struct {
	Status     string `query:"status"`
	Type       string `query:"type"`
	IsApproved *bool  `query:"is_approved"`
	Search     string `query:"search"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Status == "" && qf.Type == "" && qf.IsApproved == nil && qf.Search == ""
}

func (qf *QueryFilter) Clean() {
	qf.Status = core.CleanString(qf.Status, true /* lower */)
	qf.Type = core.CleanString(qf.Type, true /* lower */)
	qf.Search = core.CleanString(qf.Search)
}

type CommissionFilter struct {
	PartnerID string `query:"partner_id"`
	Status    string `query:"status"`
}
