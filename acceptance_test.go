package main

import (
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/kendall-kelly/agency-sales-api/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestServerStartup verifies the full router can be built
func TestServerStartup(t *testing.T) {
	router, _ := newTestRouter(t)
	assert.NotNil(t, router, "Router should be initialized")
}

// TestAPIHealthEndpointAcceptance calls the health endpoint over a real HTTP connection
func TestAPIHealthEndpointAcceptance(t *testing.T) {
	router, _ := newTestRouter(t)
	server := httptest.NewServer(router)
	defer server.Close()

	resp, err := http.Get(server.URL + "/api/v1/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode, "Health endpoint should return 200 OK")

	var response struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&response), "Response should be valid JSON")
	assert.True(t, response.Success)
	assert.Equal(t, "Agency Sales API is running", response.Message)
}

// TestAPITokenAcceptance logs in for a token and reads the profile with it
func TestAPITokenAcceptance(t *testing.T) {
	router, db := newTestRouter(t)
	testutil.CreateTenant(t, db, "alpha", "AAA")
	server := httptest.NewServer(router)
	defer server.Close()

	resp, err := http.Post(server.URL+"/api/v1/auth/token", "application/json",
		strings.NewReader(`{"username":"alpha_admin","password":"`+testutil.Password+`"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var login struct {
		Data struct {
			Tokens struct {
				AccessToken string `json:"access_token"`
				TokenType   string `json:"token_type"`
			} `json:"tokens"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&login))
	assert.Equal(t, "Bearer", login.Data.Tokens.TokenType)

	req, _ := http.NewRequest(http.MethodGet, server.URL+"/api/v1/profile", nil)
	req.Header.Set("Authorization", "Bearer "+login.Data.Tokens.AccessToken)
	profileResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer profileResp.Body.Close()
	require.Equal(t, http.StatusOK, profileResp.StatusCode)

	var profile struct {
		Data struct {
			Username string `json:"username"`
			Role     string `json:"role"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(profileResp.Body).Decode(&profile))
	assert.Equal(t, "alpha_admin", profile.Data.Username)
	assert.Equal(t, "agency_admin", profile.Data.Role)
}

// TestBrowserSessionAcceptance logs in through the form and follows the
// redirect to the dashboard with the session cookie
func TestBrowserSessionAcceptance(t *testing.T) {
	router, db := newTestRouter(t)
	testutil.CreateTenant(t, db, "alpha", "AAA")
	server := httptest.NewServer(router)
	defer server.Close()

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	client := &http.Client{Jar: jar}

	resp, err := client.PostForm(server.URL+"/login", url.Values{
		"username": {"alpha_staff"},
		"password": {testutil.Password},
	})
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "/dashboard", resp.Request.URL.Path)

	var page struct {
		Success bool `json:"success"`
		Data    struct {
			Stats   map[string]interface{} `json:"stats"`
			Flashes []struct {
				Category string `json:"category"`
				Message  string `json:"message"`
			} `json:"flashes"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&page))
	assert.True(t, page.Success)
	assert.Contains(t, page.Data.Stats, "total_orders")
	require.Len(t, page.Data.Flashes, 1)
	assert.Equal(t, "Welcome back, alpha_staff!", page.Data.Flashes[0].Message)

	logout, err := client.PostForm(server.URL+"/logout", nil)
	require.NoError(t, err)
	defer logout.Body.Close()
	assert.Equal(t, "/login", logout.Request.URL.Path)

	after, err := client.Get(server.URL + "/dashboard")
	require.NoError(t, err)
	defer after.Body.Close()
	assert.Equal(t, "/login", after.Request.URL.Path, "Session should be closed after logout")
}
