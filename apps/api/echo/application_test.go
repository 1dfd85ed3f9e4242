package echoapi

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akademyx/admissions/core/application"
)

func validNewApplicationBody(t *testing.T, referralCode string) []byte {
	return marchallObj(t, application.NewApplication{
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
		ReferralCode:    referralCode,
	})
}

func Test_applicationApi_create(t *testing.T) {
	env := setup(t)

	t.Run("valid submission", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/v1/applications", validNewApplicationBody(t, ""))
		env.server.ServeHTTP(rec, req)

		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var app application.Application
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &app))
		assert.NotEmpty(t, app.ID)
		assert.Equal(t, application.StatusPending, app.Status)
		assert.Equal(t, application.PaymentStatusPending, app.PaymentStatus)
		assert.Equal(t, env.conf.ApplicationFee, app.Amount)
	})

	t.Run("referred submission", func(t *testing.T) {
		ptn := createPartner(t, env.ptnRepo, "SUG-UNIKANO-01")

		req, rec := newRequest(http.MethodPost, "/v1/applications", validNewApplicationBody(t, ptn.ReferralCode))
		env.server.ServeHTTP(rec, req)

		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var app application.Application
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &app))
		assert.Equal(t, ptn.ID, app.PartnerID)
	})

	t.Run("unknown referral code", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/v1/applications", validNewApplicationBody(t, "NOSUCHCODE"))
		env.server.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		ok, err := jsonBytesEqual(t, rec.Body.Bytes(), marchallObj(t, map[string]string{"referral_code": "unknown referral code"}))
		require.NoError(t, err)
		assert.True(t, ok, rec.Body.String())
	})

	t.Run("invalid payload", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/v1/applications", marchallObj(t, map[string]string{"first_name": "Ada"}))
		env.server.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		var fldErrs map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fldErrs))
		assert.Contains(t, fldErrs, "email")
		assert.Contains(t, fldErrs, "nin_number")
	})
}

func Test_applicationApi_retrievePublic(t *testing.T) {
	env := setup(t)
	app := createApplication(t, env.appRepo, application.StatusApproved, "", "")

	req, rec := newRequest(http.MethodGet, "/v1/applications/"+app.ID+"/public")
	env.server.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), marchallObj(t, app.PublicInfo()))
	require.NoError(t, err)
	assert.True(t, ok, rec.Body.String())

	// the sensitive fields never leak on the public endpoint
	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))
	for _, field := range []string{"motivation", "experience", "goals", "nin_number"} {
		assert.NotContains(t, raw, field)
	}

	req, rec = newRequest(http.MethodGet, "/v1/applications/deadbeef/public")
	env.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func Test_applicationApi_adminEndpoints(t *testing.T) {
	env := setup(t)

	admin := createAdmin(t, env.usrRepo)
	staff := createUser(t, env.usrRepo, "Staff", "staff@test.ng", "G00d#Pa55word", "", true)
	adminToken := getToken(t, admin)
	staffToken := getToken(t, staff)

	pending := createApplication(t, env.appRepo, application.StatusPending, "", "")
	approved := createApplication(t, env.appRepo, application.StatusApproved, "", "")

	tests := []httpTest{
		{
			name: "query: auth required", method: http.MethodGet, path: "/v1/applications",
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken),
		},
		{
			name: "query: admin required", method: http.MethodGet, path: "/v1/applications", token: staffToken,
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "query: all", method: http.MethodGet, path: "/v1/applications", token: adminToken,
			wantCode: http.StatusOK, wantData: marchallList(t, pending, approved),
		},
		{
			name: "query: status filter", method: http.MethodGet, path: "/v1/applications?status=pending", token: adminToken,
			wantCode: http.StatusOK, wantData: marchallList(t, pending),
		},
		{
			name: "retrieve: auth required", method: http.MethodGet, path: "/v1/applications/" + pending.ID,
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken),
		},
		{
			name: "retrieve", method: http.MethodGet, path: "/v1/applications/" + pending.ID, token: adminToken,
			wantCode: http.StatusOK, wantData: marchallObj(t, pending),
		},
		{
			name: "retrieve: not found", method: http.MethodGet, path: "/v1/applications/deadbeef", token: adminToken,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"}),
		},
		{
			name: "update status: illegal transition", method: http.MethodPatch,
			path: "/v1/applications/" + approved.ID + "/status", token: adminToken,
			body:     marchallObj(t, StatusRequest{Status: application.StatusPending}),
			wantCode: http.StatusBadRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			env.server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("update status: approve", func(t *testing.T) {
		body := marchallObj(t, StatusRequest{Status: application.StatusApproved})
		req, rec := newAuthRequest(http.MethodPatch, "/v1/applications/"+pending.ID+"/status", adminToken, body)
		env.server.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var app application.Application
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &app))
		assert.Equal(t, application.StatusApproved, app.Status)
	})
}
