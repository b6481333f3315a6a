package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/orgstack/orgdir/internal/apikey"
	"github.com/orgstack/orgdir/internal/config"
	"github.com/orgstack/orgdir/internal/metrics"
	"github.com/orgstack/orgdir/internal/service"
	"github.com/orgstack/orgdir/internal/store"
)

// Prometheus collectors register globally, so all tests share one set.
var testMetrics = metrics.New()

func newTestServer(t *testing.T) *Server {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.Storage.Backend = "memory"
	cfg.Auth.Backend = "memory"
	cfg.RateLimit.Enabled = false

	logger := zap.NewNop()
	directoryStore := store.NewMemoryStore(logger)
	keys := apikey.NewMemoryStore()
	registry := service.NewRegistry(directoryStore, logger, nil)

	srv := NewServer(cfg, registry, directoryStore, keys, testMetrics, logger)
	srv.SetupRoutes()
	return srv
}

func doJSON(t *testing.T, srv *Server, method, path, key string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	if key != "" {
		req.Header.Set("X-API-Key", key)
	}
	rec := httptest.NewRecorder()
	srv.GetRouter().ServeHTTP(rec, req)
	return rec
}

// registerOrg registers an organization and returns its API key.
func registerOrg(t *testing.T, srv *Server, name string) string {
	t.Helper()

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/organizations", "", map[string]string{"name": name})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		Organization struct {
			ID   int64  `json:"id"`
			Name string `json:"name"`
		} `json:"organization"`
		APIKey string `json:"api_key"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.APIKey)
	return resp.APIKey
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthRequired(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodGet, "/api/v1/organization", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, srv, http.MethodGet, "/api/v1/organization", "bogus-key", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestDirectoryLifecycle(t *testing.T) {
	srv := newTestServer(t)
	key := registerOrg(t, srv, "Acme")

	// Add a department.
	rec := doJSON(t, srv, http.MethodPost, "/api/v1/departments", key, map[string]interface{}{"name": "Engineering"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var dept struct {
		LocalID int64  `json:"local_id"`
		Name    string `json:"name"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dept))
	assert.Equal(t, int64(1), dept.LocalID)

	// Add an employee to it.
	rec = doJSON(t, srv, http.MethodPost, "/api/v1/departments/1/employees", key, map[string]interface{}{
		"name":      "John Doe",
		"hire_date": "2020-03-01",
		"position":  "developer",
		"salary":    1000,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var emp struct {
		LocalID  int64  `json:"local_id"`
		Name     string `json:"name"`
		Position string `json:"position"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &emp))
	assert.Equal(t, int64(1), emp.LocalID)
	assert.Equal(t, "developer", emp.Position)

	// The new employee is readable without a cache miss; either way the
	// response is identical.
	rec = doJSON(t, srv, http.MethodGet, "/api/v1/employees/1", key, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// Promote to department head.
	rec = doJSON(t, srv, http.MethodPut, "/api/v1/departments/1", key, map[string]interface{}{
		"name":          "Engineering",
		"head_local_id": 1,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// A head outside the department is rejected.
	rec = doJSON(t, srv, http.MethodPut, "/api/v1/departments/1", key, map[string]interface{}{
		"name":          "Engineering",
		"head_local_id": 42,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	// Structure rendering walks the whole tree.
	req := httptest.NewRequest(http.MethodGet, "/api/v1/organization/structure", nil)
	req.Header.Set("X-API-Key", key)
	recStruct := httptest.NewRecorder()
	srv.GetRouter().ServeHTTP(recStruct, req)
	require.Equal(t, http.StatusOK, recStruct.Code)
	assert.Contains(t, recStruct.Body.String(), "Acme")
	assert.Contains(t, recStruct.Body.String(), "Engineering")
	assert.Contains(t, recStruct.Body.String(), "John Doe")

	// Removing the head clears the reference and deletes the employee.
	rec = doJSON(t, srv, http.MethodDelete, "/api/v1/departments/1/employees/1", key, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, srv, http.MethodGet, "/api/v1/employees/1", key, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, srv, http.MethodGet, "/api/v1/departments/1", key, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var deptAfter struct {
		HeadLocalID int64 `json:"head_local_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &deptAfter))
	assert.Zero(t, deptAfter.HeadLocalID)
}

func TestGetUnknownEmployee(t *testing.T) {
	srv := newTestServer(t)
	key := registerOrg(t, srv, "Acme")

	rec := doJSON(t, srv, http.MethodGet, "/api/v1/employees/999", key, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestInvalidPathID(t *testing.T) {
	srv := newTestServer(t)
	key := registerOrg(t, srv, "Acme")

	rec := doJSON(t, srv, http.MethodGet, "/api/v1/employees/abc", key, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAddEmployeeValidation(t *testing.T) {
	srv := newTestServer(t)
	key := registerOrg(t, srv, "Acme")

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/departments", key, map[string]interface{}{"name": "Engineering"})
	require.Equal(t, http.StatusCreated, rec.Code)

	// Empty name is a validation failure.
	rec = doJSON(t, srv, http.MethodPost, "/api/v1/departments/1/employees", key, map[string]interface{}{"salary": 10})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	// Unknown department is not found.
	rec = doJSON(t, srv, http.MethodPost, "/api/v1/departments/77/employees", key, map[string]interface{}{"name": "x"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Malformed hire date is a bad request.
	rec = doJSON(t, srv, http.MethodPost, "/api/v1/departments/1/employees", key, map[string]interface{}{
		"name":      "x",
		"hire_date": "03/01/2020",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTenantIsolationAcrossKeys(t *testing.T) {
	srv := newTestServer(t)
	keyAcme := registerOrg(t, srv, "Acme")
	keyGlobex := registerOrg(t, srv, "Globex")

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/departments", keyAcme, map[string]interface{}{"name": "Engineering"})
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = doJSON(t, srv, http.MethodPost, "/api/v1/departments/1/employees", keyAcme, map[string]interface{}{"name": "John Doe"})
	require.Equal(t, http.StatusCreated, rec.Code)

	// Globex sees neither Acme's department nor its employee.
	rec = doJSON(t, srv, http.MethodGet, "/api/v1/departments/1", keyGlobex, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = doJSON(t, srv, http.MethodGet, "/api/v1/employees/1", keyGlobex, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, srv, http.MethodGet, "/api/v1/organization", keyGlobex, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var org struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &org))
	assert.Equal(t, "Globex", org.Name)
}

func TestRegisterOrganizationValidation(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/organizations", "", map[string]string{})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/organizations", bytes.NewBufferString("{not json"))
	rec2 := httptest.NewRecorder()
	srv.GetRouter().ServeHTTP(rec2, req)
	assert.Equal(t, http.StatusBadRequest, rec2.Code)
}

func TestSequentialOrganizationIDs(t *testing.T) {
	srv := newTestServer(t)

	for i := 1; i <= 3; i++ {
		rec := doJSON(t, srv, http.MethodPost, "/api/v1/organizations", "", map[string]string{"name": fmt.Sprintf("Org %d", i)})
		require.Equal(t, http.StatusCreated, rec.Code)

		var resp struct {
			Organization struct {
				ID int64 `json:"id"`
			} `json:"organization"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, int64(i), resp.Organization.ID)
	}
}
