package echoapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"github.com/akademyx/admissions/core"
)

func Test_Ordering_Bind(t *testing.T) {
	newCtx := func(query string) echo.Context {
		req := httptest.NewRequest(http.MethodGet, "/?"+query, nil)
		return echo.New().NewContext(req, httptest.NewRecorder())
	}

	tests := []struct {
		name     string
		query    string
		sortable []string
		want     []core.DBOrdering
	}{
		{name: "no param", query: "status=pending", sortable: []string{"created_at"}},
		{name: "empty param", query: "ordering=", sortable: []string{"created_at"}},
		{
			name: "ascending and descending", query: "ordering=created_at,-email",
			sortable: []string{"created_at", "email"},
			want: []core.DBOrdering{
				{Field: "created_at", Ascending: true},
				{Field: "email", Ascending: false},
			},
		},
		{
			name: "unknown fields dropped", query: "ordering=-created_at,password_hash,1%3BDROP%20TABLE%20app_user",
			sortable: []string{"created_at", "email"},
			want:     []core.DBOrdering{{Field: "created_at", Ascending: false}},
		},
		{name: "nothing sortable", query: "ordering=created_at"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ord := new(Ordering)
			ord.Bind(newCtx(tt.query), tt.sortable...)
			assert.Equal(t, tt.want, ord.Orderings)
		})
	}
}
