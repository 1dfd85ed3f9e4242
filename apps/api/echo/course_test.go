package echoapi

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akademyx/admissions/core/course"
)

func createCourse(t *testing.T, repo course.Repository, title string, isActive bool) course.Course {
	now := time.Now().UTC()
	crs, err := repo.CreateCourse(context.Background(), course.Course{
		Title:       title,
		Description: "A hands-on introduction to building and shipping web applications.",
		Duration:    "12 weeks",
		Price:       150000,
		Modules:     []string{"HTML & CSS", "JavaScript"},
		IsActive:    isActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		t.Fatalf("createCourse() failed: %v", err)
	}
	return crs
}

func Test_courseApi_query(t *testing.T) {
	env := setup(t)

	active := createCourse(t, env.crsRepo, "Frontend Development", true)
	createCourse(t, env.crsRepo, "Retired Course", false)

	req, rec := newRequest(http.MethodGet, "/v1/courses")
	env.server.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), marchallList(t, active))
	require.NoError(t, err)
	assert.True(t, ok, rec.Body.String())
}

func Test_courseApi_adminEndpoints(t *testing.T) {
	env := setup(t)

	admin := createAdmin(t, env.usrRepo)
	staff := createUser(t, env.usrRepo, "Staff", "staff@test.ng", "G00d#Pa55word", "", true)
	adminToken := getToken(t, admin)
	staffToken := getToken(t, staff)

	crs := createCourse(t, env.crsRepo, "Backend Development", true)

	body := marchallObj(t, course.NewCourse{
		Title:       "Data Analysis",
		Description: "Learn to collect, clean and interpret data with modern tooling.",
		Duration:    "8 weeks",
		Price:       120000,
		Modules:     []string{"Spreadsheets", "SQL", "Visualization"},
	})

	tests := []httpTest{
		{
			name: "create: auth required", method: http.MethodPost, path: "/v1/courses", body: body,
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken),
		},
		{
			name: "create: admin required", method: http.MethodPost, path: "/v1/courses", token: staffToken, body: body,
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "retrieve", method: http.MethodGet, path: "/v1/courses/" + crs.ID, token: adminToken,
			wantCode: http.StatusOK, wantData: marchallObj(t, crs),
		},
		{
			name: "retrieve: not found", method: http.MethodGet, path: "/v1/courses/deadbeef", token: adminToken,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			env.server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("create", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/courses", adminToken, body)
		env.server.ServeHTTP(rec, req)

		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var created course.Course
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
		assert.True(t, created.IsActive)
		assert.Equal(t, "Data Analysis", created.Title)
	})

	t.Run("invalid payload", func(t *testing.T) {
		invalid := marchallObj(t, course.NewCourse{Title: "X"})
		req, rec := newAuthRequest(http.MethodPost, "/v1/courses", adminToken, invalid)
		env.server.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		var fldErrs map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fldErrs))
		assert.Contains(t, fldErrs, "title")
		assert.Contains(t, fldErrs, "price")
	})

	t.Run("retire course", func(t *testing.T) {
		inactive := false
		statusBody := marchallObj(t, CourseStatusRequest{IsActive: &inactive})
		req, rec := newAuthRequest(http.MethodPatch, "/v1/courses/"+crs.ID+"/status", adminToken, statusBody)
		env.server.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var updated course.Course
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
		assert.False(t, updated.IsActive)

		// gone from the public catalog
		req, rec = newRequest(http.MethodGet, "/v1/courses")
		env.server.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		var listed []course.Course
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
		for _, c := range listed {
			assert.NotEqual(t, crs.ID, c.ID)
		}
	})
}
