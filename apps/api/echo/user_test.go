package echoapi

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akademyx/admissions/core/user"
)

func Test_userApi_login(t *testing.T) {
	env := setup(t)

	createUser(t, env.usrRepo, "Staff", "staff@test.ng", "G00d#Pa55word", "", true)
	createUser(t, env.usrRepo, "Gone", "gone@test.ng", "G00d#Pa55word", "", false)

	loginBody := func(email, pwd string) []byte {
		return marchallObj(t, LoginRequest{Email: email, Password: pwd})
	}

	tests := []httpTest{
		{
			name: "unknown email", body: loginBody("nobody@test.ng", "G00d#Pa55word"),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "wrong password", body: loginBody("staff@test.ng", "nope"),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "deactivated account", body: loginBody("gone@test.ng", "G00d#Pa55word"),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
		{
			name: "invalid email format", body: loginBody("not-an-email", "G00d#Pa55word"),
			wantCode: http.StatusBadRequest,
		},
		{name: "success", body: loginBody("staff@test.ng", "G00d#Pa55word"), wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/v1/users/login", tt.body)
			env.server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)

			if tt.name == "success" {
				var resp LoginResponse
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
				assert.NotEmpty(t, resp.Token)
			}
		})
	}
}

func Test_userApi_register(t *testing.T) {
	env := setup(t)

	admin := createAdmin(t, env.usrRepo)
	adminToken := getToken(t, admin)

	t.Run("admin creates a user", func(t *testing.T) {
		body := marchallObj(t, user.NewUser{
			Name:            "New Staff",
			Email:           "new@test.ng",
			Password:        "G00d#Pa55word",
			PasswordConfirm: "G00d#Pa55word",
		})
		req, rec := newAuthRequest(http.MethodPost, "/v1/users/register", adminToken, body)
		env.server.ServeHTTP(rec, req)

		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var usr user.User
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &usr))
		assert.Equal(t, user.RoleUser, usr.Role)
		assert.True(t, usr.IsActive)
	})

	t.Run("duplicate email", func(t *testing.T) {
		body := marchallObj(t, user.NewUser{
			Name:            "New Staff",
			Email:           "new@test.ng",
			Password:        "G00d#Pa55word",
			PasswordConfirm: "G00d#Pa55word",
		})
		req, rec := newAuthRequest(http.MethodPost, "/v1/users/register", adminToken, body)
		env.server.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		var fldErrs map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fldErrs))
		assert.Contains(t, fldErrs, "email")
	})

	t.Run("weak password", func(t *testing.T) {
		body := marchallObj(t, user.NewUser{
			Name:            "Weak Staff",
			Email:           "weak@test.ng",
			Password:        "12345678",
			PasswordConfirm: "12345678",
		})
		req, rec := newAuthRequest(http.MethodPost, "/v1/users/register", adminToken, body)
		env.server.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		var fldErrs map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fldErrs))
		assert.Contains(t, fldErrs, "password")
	})

	t.Run("auth required", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/v1/users/register")
		env.server.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func Test_userApi_detail(t *testing.T) {
	env := setup(t)

	admin := createAdmin(t, env.usrRepo)
	staff := createUser(t, env.usrRepo, "Staff", "staff@test.ng", "G00d#Pa55word", "", true)
	other := createUser(t, env.usrRepo, "Other", "other@test.ng", "G00d#Pa55word", "", true)
	adminToken := getToken(t, admin)
	staffToken := getToken(t, staff)

	tests := []httpTest{
		{
			name: "query: admin only", method: http.MethodGet, path: "/v1/users", token: staffToken,
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "query", method: http.MethodGet, path: "/v1/users", token: adminToken,
			wantCode: http.StatusOK, wantData: marchallList(t, admin, staff, other),
		},
		{
			name: "retrieve self", method: http.MethodGet, path: "/v1/users/" + staff.ID, token: staffToken,
			wantCode: http.StatusOK, wantData: marchallObj(t, staff),
		},
		{
			name: "retrieve other: hidden", method: http.MethodGet, path: "/v1/users/" + other.ID, token: staffToken,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"}),
		},
		{
			name: "retrieve other: admin", method: http.MethodGet, path: "/v1/users/" + other.ID, token: adminToken,
			wantCode: http.StatusOK, wantData: marchallObj(t, other),
		},
		{
			name: "update: non-admin cannot self-promote", method: http.MethodPut, path: "/v1/users/" + staff.ID,
			token: staffToken, body: marchallObj(t, user.UpdateUser{Role: user.RoleAdmin}),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "destroy: admin only", method: http.MethodDelete, path: "/v1/users/" + other.ID, token: staffToken,
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "destroy self forbidden", method: http.MethodDelete, path: "/v1/users/" + admin.ID, token: adminToken,
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			env.server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("update self name", func(t *testing.T) {
		body := marchallObj(t, user.UpdateUser{Name: "Renamed Staff"})
		req, rec := newAuthRequest(http.MethodPut, "/v1/users/"+staff.ID, staffToken, body)
		env.server.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var updated user.User
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
		assert.Equal(t, "Renamed Staff", updated.Name)
	})

	t.Run("destroy other", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/v1/users/"+other.ID, adminToken)
		env.server.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})
}

func Test_userApi_tokenRefresh(t *testing.T) {
	env := setup(t)

	staff := createUser(t, env.usrRepo, "Staff", "staff@test.ng", "G00d#Pa55word", "", true)
	token := getToken(t, staff)

	req, rec := newAuthRequest(http.MethodPost, "/v1/users/token-refresh", token)
	env.server.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp LoginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Token)

	req, rec = newRequest(http.MethodPost, "/v1/users/token-refresh")
	env.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
