package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"listing_collector/internal/config"
	"listing_collector/internal/domain"
	"listing_collector/internal/metrics"
	"listing_collector/internal/storage/postgres"
	"listing_collector/internal/storage/sqlite"
)

type fakeStarter struct {
	params []domain.JobParams
	job    *domain.Job
	err    error
}

func (f *fakeStarter) StartJob(_ context.Context, params domain.JobParams) (*domain.Job, error) {
	f.params = append(f.params, params)
	return f.job, f.err
}

type fakeJobs struct {
	jobs  map[string]*domain.Job
	limit int
}

func (f *fakeJobs) Get(_ context.Context, id string) (*domain.Job, error) {
	job, ok := f.jobs[id]
	if !ok {
		return nil, sqlite.ErrJobNotFound
	}
	return job, nil
}

func (f *fakeJobs) List(_ context.Context, limit int) ([]domain.Job, error) {
	f.limit = limit
	out := make([]domain.Job, 0, len(f.jobs))
	for _, j := range f.jobs {
		out = append(out, *j)
	}
	return out, nil
}

type fakeLogs map[string]string

func (f fakeLogs) Read(_ context.Context, jobID string) (string, error) {
	return f[jobID], nil
}

type fakePlans struct {
	plans   map[string]domain.Plan
	saved   []domain.Plan
	runs    []domain.PlanRun
	listErr error
}

func (f *fakePlans) Get(_ context.Context, id string) (*domain.Plan, error) {
	p, ok := f.plans[id]
	if !ok {
		return nil, postgres.ErrPlanNotFound
	}
	return &p, nil
}

func (f *fakePlans) List(context.Context) ([]domain.Plan, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]domain.Plan, 0, len(f.plans))
	for _, p := range f.plans {
		out = append(out, p)
	}
	return out, nil
}

func (f *fakePlans) Save(_ context.Context, p domain.Plan) error {
	f.saved = append(f.saved, p)
	f.plans[p.ID] = p
	return nil
}

func (f *fakePlans) RecentRuns(_ context.Context, planID string, limit int) ([]domain.PlanRun, error) {
	if _, ok := f.plans[planID]; !ok {
		return nil, postgres.ErrPlanNotFound
	}
	if limit < len(f.runs) {
		return f.runs[:limit], nil
	}
	return f.runs, nil
}

type HandlerTestSuite struct {
	suite.Suite
	starter *fakeStarter
	jobs    *fakeJobs
	plans   *fakePlans
	handler *Handler
	router  *gin.Engine
	now     time.Time
}

func (s *HandlerTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	s.now = time.Date(2025, 3, 11, 9, 0, 0, 0, time.UTC)
	s.starter = &fakeStarter{job: &domain.Job{ID: "job-1", Status: domain.JobRunning}}
	s.jobs = &fakeJobs{jobs: map[string]*domain.Job{
		"job-1": {ID: "job-1", Status: domain.JobSuccess, SyncStatus: domain.SyncSuccess},
	}}
	s.plans = &fakePlans{plans: map[string]domain.Plan{
		"nightly": {
			ID: "nightly", Name: "Nightly", ScheduleType: domain.ScheduleDaily, Timezone: "Asia/Baku",
			RunHour: 2, CategoryStrategy: domain.StrategyAll, Headless: true, Enabled: true,
		},
	}}
	catalog := config.CatalogConfig{
		BaseURL:    "https://tap.az/elanlar",
		Categories: []domain.Category{{ID: "phones", Name: "Telefonlar"}, {ID: "cars", Name: "Avtomobillər"}},
	}

	s.handler = NewHandler(s.starter, s.jobs, fakeLogs{"job-1": "[2025-03-11T09:00:00Z] starting\n"}, s.plans, catalog, logger)
	s.handler.now = func() time.Time { return s.now }

	reg := prometheus.NewRegistry()
	metrics.New(reg).JobStarted("admin")
	s.router = NewRouter(s.handler, reg, map[string]HealthCheck{
		"jobs": func(context.Context) error { return nil },
	}, logger)
}

func TestHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(HandlerTestSuite))
}

func (s *HandlerTestSuite) do(method, path string, body any) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *HandlerTestSuite) decode(w *httptest.ResponseRecorder) map[string]any {
	var out map[string]any
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func validJobRequest() map[string]any {
	return map[string]any{
		"categoryUrls":  []string{"https://tap.az/elanlar/elektronika/telefonlar"},
		"pageLimit":     2,
		"listingLimit":  120,
		"delayMs":       1500,
		"detailDelayMs": 2200,
	}
}

func (s *HandlerTestSuite) TestCreateJob_Accepted() {
	w := s.do(http.MethodPost, "/api/v1/jobs", validJobRequest())

	s.Equal(http.StatusAccepted, w.Code)
	s.Require().Len(s.starter.params, 1)
	p := s.starter.params[0]
	s.Equal("admin", p.TriggeredBy)
	s.True(p.Headless)
	s.Equal(2, p.PageLimit)
	s.NotNil(p.Selections)
	s.Equal("job-1", s.decode(w)["job"].(map[string]any)["id"])
}

func (s *HandlerTestSuite) TestCreateJob_Validation() {
	tests := []struct {
		name  string
		patch func(map[string]any)
		want  string
	}{
		{"no urls", func(r map[string]any) { r["categoryUrls"] = []string{} }, "at least one url"},
		{"bad url", func(r map[string]any) { r["categoryUrls"] = []string{"tap.az/phones"} }, "invalid category url"},
		{"page limit", func(r map[string]any) { r["pageLimit"] = 11 }, "pageLimit"},
		{"listing limit", func(r map[string]any) { r["listingLimit"] = 9 }, "listingLimit"},
		{"delay", func(r map[string]any) { r["delayMs"] = 100 }, "delayMs"},
		{"detail delay", func(r map[string]any) { r["detailDelayMs"] = 20001 }, "detailDelayMs"},
		{"user agent", func(r map[string]any) { r["userAgent"] = "curl" }, "userAgent"},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			body := validJobRequest()
			tt.patch(body)

			w := s.do(http.MethodPost, "/api/v1/jobs", body)

			s.Equal(http.StatusBadRequest, w.Code)
			s.Contains(s.decode(w)["error"], tt.want)
		})
	}
	s.Empty(s.starter.params)
}

func (s *HandlerTestSuite) TestCreateJob_SpawnRejectedStillReturnsJob() {
	s.starter.job = &domain.Job{ID: "job-2", Status: domain.JobError, ErrorMessage: "restricted"}
	s.starter.err = errors.New("restricted")

	w := s.do(http.MethodPost, "/api/v1/jobs", validJobRequest())

	s.Equal(http.StatusAccepted, w.Code)
	s.Equal("error", s.decode(w)["job"].(map[string]any)["status"])
}

func (s *HandlerTestSuite) TestCreateJob_NotCreated() {
	s.starter.job = nil
	s.starter.err = errors.New("create job: disk full")

	w := s.do(http.MethodPost, "/api/v1/jobs", validJobRequest())

	s.Equal(http.StatusInternalServerError, w.Code)
	s.Equal("failed to start job", s.decode(w)["error"])
}

func (s *HandlerTestSuite) TestCreateJob_MalformedBody() {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs", bytes.NewBufferString("{"))
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *HandlerTestSuite) TestGetJob() {
	w := s.do(http.MethodGet, "/api/v1/jobs/job-1", nil)

	s.Equal(http.StatusOK, w.Code)
	body := s.decode(w)
	s.NotContains(body, "log")

	w = s.do(http.MethodGet, "/api/v1/jobs/job-1?includeLog=true", nil)
	s.Contains(s.decode(w)["log"], "starting")
}

func (s *HandlerTestSuite) TestGetJob_NotFound() {
	w := s.do(http.MethodGet, "/api/v1/jobs/nope", nil)

	s.Equal(http.StatusNotFound, w.Code)
	s.Equal("NOT_FOUND", s.decode(w)["code"])
}

func (s *HandlerTestSuite) TestListJobs() {
	w := s.do(http.MethodGet, "/api/v1/jobs?limit=5", nil)

	s.Equal(http.StatusOK, w.Code)
	s.Equal(5, s.jobs.limit)
	s.EqualValues(1, s.decode(w)["count"])

	w = s.do(http.MethodGet, "/api/v1/jobs?limit=0", nil)
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *HandlerTestSuite) TestListCategories_ResolvesURLs() {
	w := s.do(http.MethodGet, "/api/v1/categories", nil)

	s.Equal(http.StatusOK, w.Code)
	cats := s.decode(w)["categories"].([]any)
	s.Equal("https://tap.az/elanlar/phones", cats[0].(map[string]any)["url"])
}

func (s *HandlerTestSuite) TestUpdatePlan_NormalizesAndSaves() {
	body := map[string]any{
		"scheduleType":       "weekly",
		"daysOfWeek":         []int{3, 1, 3},
		"categoryStrategy":   "custom",
		"includeCategoryIds": []string{"phones", "cars", "phones"},
		"excludeCategoryIds": []string{"cars"},
		"updatedBy":          "admin",
	}

	w := s.do(http.MethodPut, "/api/v1/plans/nightly", body)

	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	s.Require().Len(s.plans.saved, 1)
	saved := s.plans.saved[0]
	s.Equal([]int{1, 3}, saved.DaysOfWeek)
	s.Equal([]string{"phones"}, saved.IncludeCategoryIDs)
	s.Equal("Asia/Baku", saved.Timezone)
	s.Equal("admin", saved.UpdatedBy)
	s.NotEmpty(saved.Summary)
	s.Require().NotNil(saved.NextRunAt)
	s.True(saved.NextRunAt.After(s.now))
	s.True(s.now.Equal(saved.UpdatedAt))
}

func (s *HandlerTestSuite) TestUpdatePlan_CreatesMissingPlan() {
	w := s.do(http.MethodPut, "/api/v1/plans/weekend", map[string]any{"runHour": 6})

	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	s.Equal(domain.ScheduleDaily, s.plans.plans["weekend"].ScheduleType)
	s.Equal(6, s.plans.plans["weekend"].RunHour)
}

func (s *HandlerTestSuite) TestUpdatePlan_Rejects() {
	tests := []struct {
		name string
		body map[string]any
	}{
		{"unknown category", map[string]any{"includeCategoryIds": []string{"boats"}}},
		{"bad timezone", map[string]any{"timezone": "Mars/Olympus"}},
		{"bad hour", map[string]any{"runHour": 24}},
		{"bad strategy", map[string]any{"categoryStrategy": "random"}},
		{"max pages", map[string]any{"maxPages": 50}},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			w := s.do(http.MethodPut, "/api/v1/plans/nightly", tt.body)
			s.Equal(http.StatusBadRequest, w.Code)
		})
	}
	s.Empty(s.plans.saved)
}

func (s *HandlerTestSuite) TestGetPlan() {
	w := s.do(http.MethodGet, "/api/v1/plans/nightly", nil)
	s.Equal(http.StatusOK, w.Code)
	s.Equal("Nightly", s.decode(w)["name"])

	w = s.do(http.MethodGet, "/api/v1/plans/missing", nil)
	s.Equal(http.StatusNotFound, w.Code)
}

func (s *HandlerTestSuite) TestListPlans_StoreError() {
	s.plans.listErr = errors.New("connection refused")

	w := s.do(http.MethodGet, "/api/v1/plans", nil)

	s.Equal(http.StatusInternalServerError, w.Code)
	s.Equal("failed to list plans", s.decode(w)["error"])
}

func (s *HandlerTestSuite) TestListPlanRuns() {
	s.plans.runs = []domain.PlanRun{{ID: 2, PlanID: "nightly", Status: "success"}, {ID: 1, PlanID: "nightly", Status: "error"}}

	w := s.do(http.MethodGet, "/api/v1/plans/nightly/runs?limit=1", nil)

	s.Equal(http.StatusOK, w.Code)
	s.EqualValues(1, s.decode(w)["count"])
}

func (s *HandlerTestSuite) TestHealthAndMetrics() {
	w := s.do(http.MethodGet, "/health", nil)
	s.Equal(http.StatusOK, w.Code)
	s.Equal("ok", s.decode(w)["status"])

	w = s.do(http.MethodGet, "/metrics", nil)
	s.Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), "listing_collector_jobs_started_total")
}

func TestHealth_Degraded(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/health", health(map[string]HealthCheck{
		"postgres": func(context.Context) error { return errors.New("dial tcp: connection refused") },
	}))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "connection refused")
}
