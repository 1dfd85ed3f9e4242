package echoapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io/ioutil"
	"log"
	"net/http"
	"net/http/httptest"
	"net/mail"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/akademyx/admissions/core"
	"github.com/akademyx/admissions/core/analytics"
	"github.com/akademyx/admissions/core/application"
	"github.com/akademyx/admissions/core/course"
	"github.com/akademyx/admissions/core/partner"
	"github.com/akademyx/admissions/core/payment"
	"github.com/akademyx/admissions/core/user"
	emailsvc "github.com/akademyx/admissions/services/email"
	logsvc "github.com/akademyx/admissions/services/logger"
	dummydb "github.com/akademyx/admissions/storage/database/dummy"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type httpErr struct {
	Error string `json:"error"`
}

type testEnv struct {
	server  *Server
	conf    *core.Config
	appRepo application.Repository
	pmtRepo payment.Repository
	ptnRepo partner.Repository
	crsRepo course.Repository
	usrRepo user.Repository
}

func setup(t *testing.T) *testEnv {
	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("setup() failed: %v", err)
	}

	conf := &core.Config{
		TestMode:         true,
		AppName:          "Akademyx",
		SecretKey:        "secret",
		FrontendBaseURL:  "http://localhost:3000",
		DefaultFromEmail: mail.Address{Name: "Akademyx", Address: "noreply@localhost"},
		Server: core.ServerConfig{
			JWTExpirationDelta:        1 * time.Hour,
			JWTRefreshExpirationDelta: 4 * time.Hour,
		},
		ApplicationFee:           50000,
		EnforceStatusTransitions: true,
	}

	logger := logsvc.NewRollbarLogger(log.New(ioutil.Discard, "", 0), conf)
	logger.Enable(false)

	mailSvc := emailsvc.NewConsoleServiceMock(conf)
	validate, translator := core.NewValidator()
	user.RegisterValidators(validate, translator)

	runner := dummydb.NewTxRunner()
	appRepo := dummydb.NewApplicationRepository(db)
	pmtRepo := dummydb.NewPaymentRepository(db)
	ptnRepo := dummydb.NewPartnerRepository(db)
	crsRepo := dummydb.NewCourseRepository(db)
	usrRepo := dummydb.NewUserRepository(db)

	server := NewServer(
		"",
		&Deps{
			Conf:           conf,
			Logger:         logger,
			ApplicationSvc: application.NewService(runner, appRepo, ptnRepo, mailSvc, conf, validate),
			PaymentSvc:     payment.NewService(runner, pmtRepo, appRepo, ptnRepo, mailSvc, validate),
			PartnerSvc:     partner.NewService(runner, ptnRepo, mailSvc, validate),
			CourseSvc:      course.NewService(crsRepo, validate),
			AnalyticsSvc:   analytics.NewService(appRepo, ptnRepo),
			UserSvc:        user.NewService(usrRepo),
			Validate:       validate,
			Translator:     translator,
		},
	)

	return &testEnv{
		server:  server,
		conf:    conf,
		appRepo: appRepo,
		pmtRepo: pmtRepo,
		ptnRepo: ptnRepo,
		crsRepo: crsRepo,
		usrRepo: usrRepo,
	}
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
	extra    interface{}
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func getToken(t *testing.T, usr user.User) string {
	claims := GetUserClaims(usr)
	token, err := GenerateToken(claims)
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func createUser(t *testing.T, repo user.Repository, name, email, pwd, role string, isActive bool) user.User {
	now := time.Now().UTC()
	usr := user.User{
		Name:      name,
		Email:     email,
		Role:      role,
		IsActive:  isActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("createUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("createUser() failed: %v", err)
	}
	return usr
}

func createAdmin(t *testing.T, repo user.Repository) user.User {
	return createUser(t, repo, "Admin", "admin@test.ng", "G00d#Pa55word", user.RoleAdmin, true)
}

func createApplication(t *testing.T, repo application.Repository, status, partnerID, code string) application.Application {
	now := time.Now().UTC()
	app := application.Application{
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
		Motivation:      "motivation",
		Experience:      "experience",
		Goals:           "goals",
		Status:          status,
		ReferralType:    application.ReferralDirect,
		Amount:          50000,
		PaymentStatus:   application.PaymentStatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if partnerID != "" {
		app.PartnerID = partnerID
		app.ReferralCode = code
		app.ReferralType = application.ReferralInstitution
	}
	app, err := repo.CreateApplication(context.Background(), app)
	if err != nil {
		t.Fatalf("createApplication() failed: %v", err)
	}
	return app
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

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func marchallList(t *testing.T, objs ...interface{}) []byte {
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if j1 == nil || j2 == nil {
		return false, nil
	}
	return assert.ElementsMatch(t, j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
