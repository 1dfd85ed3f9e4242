package application

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/akademyx/admissions/core"
)

// Application statuses
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
	StatusPaid     = "paid"
)

// Payment statuses
const (
	PaymentStatusPending   = "pending"
	PaymentStatusCompleted = "completed"
)

// Referral types
const (
	ReferralDirect      = "direct"
	ReferralInstitution = "institution"
	ReferralIndividual  = "individual"
)

var Statuses = []string{StatusPending, StatusApproved, StatusRejected, StatusPaid}

// legalTransitions is the application state machine:
// pending -> approved | rejected (admin); pending/approved -> paid (payment).
// rejected and paid are terminal.
var legalTransitions = map[string][]string{
	StatusPending:  {StatusApproved, StatusRejected, StatusPaid},
	StatusApproved: {StatusPaid},
	StatusRejected: {},
	StatusPaid:     {},
}

// CanTransition reports whether moving from one status to another is legal.
func CanTransition(from, to string) bool {
	for _, s := range legalTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

type Application struct {
	ID              string    `json:"id"`
	FirstName       string    `json:"first_name"`
	LastName        string    `json:"last_name"`
	Email           string    `json:"email"`
	Phone           string    `json:"phone"`
	Age             int       `json:"age"`
	Occupation      string    `json:"occupation"`
	Location        string    `json:"location"`
	NinNumber       string    `json:"nin_number"`
	StateOfResident string    `json:"state_of_resident"`
	StateOfOrigin   string    `json:"state_of_origin"`
	Motivation      string    `json:"motivation"`
	Experience      string    `json:"experience"`
	Goals           string    `json:"goals"`
	Status          string    `json:"status"`
	ReferralCode    string    `json:"referral_code,omitempty"`
	ReferralType    string    `json:"referral_type,omitempty"`
	PartnerID       string    `json:"partner_id,omitempty"`
	Amount          float64   `json:"amount"`
	PaymentStatus   string    `json:"payment_status"`
	CreatedAt       time.Time `json:"created_at"` // UTC
	UpdatedAt       time.Time `json:"updated_at"` // UTC
}

// PublicInfo is the reduced projection exposed to the unauthenticated
// payment page. It must never leak the free-text or identity-number fields.
type PublicInfo struct {
	ID        string  `json:"id"`
	FirstName string  `json:"first_name"`
	LastName  string  `json:"last_name"`
	Email     string  `json:"email"`
	Phone     string  `json:"phone"`
	Amount    float64 `json:"amount"`
	Status    string  `json:"status"`
}

func (a Application) PublicInfo() PublicInfo {
	return PublicInfo{
		ID:        a.ID,
		FirstName: a.FirstName,
		LastName:  a.LastName,
		Email:     a.Email,
		Phone:     a.Phone,
		Amount:    a.Amount,
		Status:    a.Status,
	}
}

// NewApplication contains information needed to submit a new Application.
type NewApplication struct {
	FirstName       string `json:"first_name" validate:"required,min=2,max=50,personname"`
	LastName        string `json:"last_name" validate:"required,min=2,max=50,personname"`
	Email           string `json:"email" validate:"required,email"`
	Phone           string `json:"phone" validate:"required,min=10,max=15,phone"`
	Age             int    `json:"age" validate:"required,min=16,max=100"`
	Occupation      string `json:"occupation" validate:"required,min=2"`
	Location        string `json:"location" validate:"required,min=2"`
	NinNumber       string `json:"nin_number" validate:"required,len=11,digitsonly"`
	StateOfResident string `json:"state_of_resident" validate:"required,min=2"`
	StateOfOrigin   string `json:"state_of_origin" validate:"required,min=2"`
	Motivation      string `json:"motivation" validate:"required,min=50"`
	Experience      string `json:"experience" validate:"required,min=20"`
	Goals           string `json:"goals" validate:"required,min=50"`
	ReferralCode    string `json:"referral_code" validate:"omitempty,min=6,max=20"`
}

func (na *NewApplication) Validate(validate *validator.Validate) error {
	na.FirstName = core.CleanString(na.FirstName)
	na.LastName = core.CleanString(na.LastName)
	na.Email = core.CleanString(na.Email, true /* lower */)
	na.Phone = core.CleanString(na.Phone)
	na.NinNumber = core.CleanString(na.NinNumber)
	na.ReferralCode = core.CleanString(na.ReferralCode)
	return validate.Struct(na)
}

type QueryFilter struct {
	Status       string    `query:"status"`
	ReferralCode string    `query:"referral_code"`
	Search       string    `query:"search"`
	CreatedFrom  time.Time `query:"created_from"`
	CreatedTo    time.Time `query:"created_to"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Status == "" && qf.ReferralCode == "" && qf.Search == "" &&
		qf.CreatedFrom.IsZero() && qf.CreatedTo.IsZero()
}

func (qf *QueryFilter) Clean() {
	qf.Status = core.CleanString(qf.Status, true /* lower */)
	qf.ReferralCode = core.CleanString(qf.ReferralCode)
	qf.Search = core.CleanString(qf.Search)
}
