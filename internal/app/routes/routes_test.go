package routes_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/eduadmin/internal/app/models/dto"
	"github.com/yigit/eduadmin/internal/app/repositories/memstore"
	"github.com/yigit/eduadmin/internal/bootstrap"
	"github.com/yigit/eduadmin/internal/config"
	"github.com/yigit/eduadmin/internal/pkg/logger"
)

type apiClient struct {
	t      *testing.T
	router *gin.Engine
	token  string
}

func newAPIClient(t *testing.T) *apiClient {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{}
	cfg.Database.Driver = config.DriverMemory
	cfg.JWT.Secret = "test-secret"
	cfg.JWT.Issuer = "eduadmin"
	cfg.JWT.AccessTokenExpiration = "1h"
	cfg.Admission.DefaultPrefix = "ADM"
	cfg.Admission.DefaultSectionCapacity = 30
	cfg.Admission.TerminalStatuses = []string{"Rejected"}

	deps := bootstrap.BuildDependencies(cfg, memstore.New(), logger.Nop())
	token, _, err := deps.JWTService.GenerateToken("tenant-1", "test")
	require.NoError(t, err)
	return &apiClient{t: t, router: bootstrap.SetupRouter(cfg, deps), token: token}
}

// do sends body as JSON and decodes the envelope's data into out when given
func (c *apiClient) do(method, path string, body interface{}, out interface{}) (int, dto.APIResponse) {
	c.t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(c.t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	rec := httptest.NewRecorder()
	c.router.ServeHTTP(rec, req)

	var resp dto.APIResponse
	if rec.Body.Len() > 0 && strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(c.t, json.Unmarshal(rec.Body.Bytes(), &resp))
		if out != nil && resp.Data != nil {
			raw, err := json.Marshal(resp.Data)
			require.NoError(c.t, err)
			require.NoError(c.t, json.Unmarshal(raw, out))
		}
	}
	return rec.Code, resp
}

func TestHealthAndMetricsArePublic(t *testing.T) {
	c := newAPIClient(t)
	c.token = ""

	status, _ := c.do(http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, status)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	c.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")

	status, resp := c.do(http.MethodGet, "/api/v1/onboarding", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, dto.ErrorCodeInvalidToken, resp.Error.Code)
}

func TestOnboardingFlow(t *testing.T) {
	c := newAPIClient(t)

	status, resp := c.do(http.MethodPut, "/api/v1/onboarding/collections/branches", `[{"name":"Main"}]`, nil)
	assert.Equal(t, http.StatusPreconditionFailed, status)
	assert.Equal(t, dto.ErrorCodePreconditionFailed, resp.Error.Code)

	status, _ = c.do(http.MethodPut, "/api/v1/onboarding/school", dto.SchoolRequest{Name: "Springfield Elementary"}, nil)
	require.Equal(t, http.StatusOK, status)

	var replaced dto.ReplaceResponse
	status, _ = c.do(http.MethodPut, "/api/v1/onboarding/collections/departments",
		`[{"name":"Grade 1","type":"CLASS"},{"name":"Office"}]`, &replaced)
	require.Equal(t, http.StatusOK, status)
	require.NotNil(t, replaced.Mirror)
	assert.Equal(t, 1, replaced.Mirror.Created)

	status, resp = c.do(http.MethodPut, "/api/v1/onboarding/collections/subjects",
		`[{"name":"Maths","class":"Grade 1"},{"name":"Art","class":"Grade 7"}]`, &replaced)
	assert.Equal(t, http.StatusMultiStatus, status)
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, dto.ErrorCodePartialReplacement, resp.Error.Code)
	require.Len(t, replaced.Failures, 1)
	assert.Equal(t, 1, replaced.Failures[0].Index)
	assert.Equal(t, dto.ErrorCodeUnresolvedRef, replaced.Failures[0].Code)

	status, _ = c.do(http.MethodPut, "/api/v1/onboarding/collections/widgets", `[]`, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	var data dto.OnboardingData
	status, _ = c.do(http.MethodGet, "/api/v1/onboarding", nil, &data)
	require.Equal(t, http.StatusOK, status)
	require.NotNil(t, data.School)
	assert.Len(t, data.Classes, 1)
	assert.Len(t, data.Subjects, 1)
}

func TestAdmissionFlow(t *testing.T) {
	c := newAPIClient(t)

	var app struct {
		ID                string `json:"id"`
		ApplicationNumber string `json:"applicationNumber"`
		Status            string `json:"status"`
	}
	status, _ := c.do(http.MethodPost, "/api/v1/admissions/applications",
		dto.ApplicationInput{FirstName: "Lisa", LastName: "Simpson", FatherName: "Homer"}, &app)
	require.Equal(t, http.StatusCreated, status)
	assert.Contains(t, app.ApplicationNumber, "ADM-001")
	assert.Equal(t, "Form Submitted", app.Status)

	status, resp := c.do(http.MethodPost, "/api/v1/admissions/applications", `{"lastName":"Nobody"}`, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, dto.ErrorCodeValidationFailed, resp.Error.Code)

	status, resp = c.do(http.MethodPost, "/api/v1/admissions/applications/"+app.ID+"/promote", nil, nil)
	assert.Equal(t, http.StatusPreconditionFailed, status)
	assert.Equal(t, dto.ErrorCodePreconditionFailed, resp.Error.Code)

	status, _ = c.do(http.MethodPut, "/api/v1/admissions/applications/"+app.ID+"/status", dto.UpdateStatusRequest{Status: "Admitted"}, nil)
	require.Equal(t, http.StatusOK, status)

	var student struct {
		AdmissionNumber string `json:"admissionNumber"`
	}
	status, _ = c.do(http.MethodPost, "/api/v1/admissions/applications/"+app.ID+"/promote", nil, &student)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "STU-001", student.AdmissionNumber)

	status, resp = c.do(http.MethodPost, "/api/v1/admissions/applications/"+app.ID+"/promote", nil, nil)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, dto.ErrorCodeConflict, resp.Error.Code)

	var page dto.PaginatedResponse
	status, _ = c.do(http.MethodGet, "/api/v1/admissions/applications?status=Admitted&page=1&size=10", nil, &page)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 1, page.Pagination.TotalItems)

	status, resp = c.do(http.MethodPut, "/api/v1/admissions/applications/bulk-status",
		dto.BulkStatusRequest{IDs: []string{app.ID, "not-a-uuid"}, Status: "Rejected"}, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, dto.ErrorCodeValidationFailed, resp.Error.Code)

	var bulk dto.BulkStatusResponse
	status, _ = c.do(http.MethodPut, "/api/v1/admissions/applications/bulk-status",
		dto.BulkStatusRequest{IDs: []string{app.ID}, Status: "Rejected"}, &bulk)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 1, bulk.Updated)

	status, _ = c.do(http.MethodGet, "/api/v1/admissions/applications/missing", nil, nil)
	assert.Equal(t, http.StatusNotFound, status)
}
