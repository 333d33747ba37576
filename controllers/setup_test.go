package controllers

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/agency-sales-api/models"
	"github.com/kendall-kelly/agency-sales-api/tests/testutil"
	"github.com/kendall-kelly/agency-sales-api/utils"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// fixture is two tenants plus a super admin on a fresh database
type fixture struct {
	db    *gorm.DB
	super *models.User
	a     *testutil.Tenant
	b     *testutil.Tenant
}

func setupFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	testutil.TestConfig()
	db := testutil.SetupTestDB(t)
	return &fixture{
		db:    db,
		super: testutil.CreateUser(t, db, "root", models.RoleSuperAdmin, nil),
		a:     testutil.CreateTenant(t, db, "alpha", "AAA"),
		b:     testutil.CreateTenant(t, db, "beta", "BBB"),
	}
}

// routerAs builds an engine whose requests all run as user
func routerAs(user *models.User, register func(r *gin.Engine)) *gin.Engine {
	r := gin.New()
	if user != nil {
		r.Use(testutil.MockIdentity(user))
	}
	register(r)
	return r
}

func doJSON(r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func doForm(r http.Handler, path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	return response
}

// flashesOf decodes the last flash cookie set by a response
func flashesOf(t *testing.T, w *httptest.ResponseRecorder) []utils.Flash {
	t.Helper()
	var flashes []utils.Flash
	resp := http.Response{Header: w.Header()}
	for _, cookie := range resp.Cookies() {
		if cookie.Name != utils.FlashCookieName || cookie.Value == "" {
			continue
		}
		raw, err := base64.URLEncoding.DecodeString(cookie.Value)
		require.NoError(t, err)
		flashes = nil
		require.NoError(t, json.Unmarshal(raw, &flashes))
	}
	return flashes
}

func flashMessages(t *testing.T, w *httptest.ResponseRecorder) []string {
	t.Helper()
	var messages []string
	for _, f := range flashesOf(t, w) {
		messages = append(messages, f.Message)
	}
	return messages
}

func countRows(t *testing.T, db *gorm.DB, model interface{}, query string, args ...interface{}) int64 {
	t.Helper()
	var n int64
	q := db.Model(model)
	if query != "" {
		q = q.Where(query, args...)
	}
	require.NoError(t, q.Count(&n).Error)
	return n
}

func doRequest(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}
