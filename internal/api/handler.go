package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"listing_collector/internal/apperror"
	"listing_collector/internal/config"
	"listing_collector/internal/domain"
	"listing_collector/internal/schedule"
	"listing_collector/internal/storage/postgres"
	"listing_collector/internal/storage/sqlite"
)

const (
	triggeredByAdmin = "admin"
	defaultRunsLimit = 20
)

type JobStarter interface {
	StartJob(ctx context.Context, params domain.JobParams) (*domain.Job, error)
}

type JobReader interface {
	Get(ctx context.Context, id string) (*domain.Job, error)
	List(ctx context.Context, limit int) ([]domain.Job, error)
}

type LogReader interface {
	Read(ctx context.Context, jobID string) (string, error)
}

type PlanStore interface {
	Get(ctx context.Context, id string) (*domain.Plan, error)
	List(ctx context.Context) ([]domain.Plan, error)
	Save(ctx context.Context, p domain.Plan) error
	RecentRuns(ctx context.Context, planID string, limit int) ([]domain.PlanRun, error)
}

type Handler struct {
	starter JobStarter
	jobs    JobReader
	logs    LogReader
	plans   PlanStore
	catalog config.CatalogConfig
	logger  *slog.Logger
	now     func() time.Time
}

func NewHandler(
	starter JobStarter,
	jobs JobReader,
	logs LogReader,
	plans PlanStore,
	catalog config.CatalogConfig,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		starter: starter,
		jobs:    jobs,
		logs:    logs,
		plans:   plans,
		catalog: catalog,
		logger:  logger,
		now:     time.Now,
	}
}

func (h *Handler) CreateJob(c *gin.Context) {
	var req CreateJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperror.New(apperror.BadRequest, "invalid request body: "+err.Error()))
		return
	}
	if appErr := req.Validate(); appErr != nil {
		writeError(c, appErr)
		return
	}

	job, err := h.starter.StartJob(c.Request.Context(), req.Params(triggeredByAdmin))
	if job == nil {
		h.logger.Error("failed to start job", "error", err)
		writeError(c, apperror.New(apperror.Internal, "failed to start job"))
		return
	}
	if err != nil {
		// the job is stored in error state and returned like any other
		h.logger.Warn("job failed to start", "job_id", job.ID, "error", err)
	}

	c.JSON(http.StatusAccepted, gin.H{"job": job})
}

func (h *Handler) ListJobs(c *gin.Context) {
	limit, appErr := queryLimit(c, sqlite.DefaultListLimit)
	if appErr != nil {
		writeError(c, appErr)
		return
	}

	jobs, err := h.jobs.List(c.Request.Context(), limit)
	if err != nil {
		h.logger.Error("failed to list jobs", "error", err)
		writeError(c, apperror.New(apperror.Internal, "failed to list jobs"))
		return
	}

	c.JSON(http.StatusOK, gin.H{"jobs": jobs, "count": len(jobs)})
}

func (h *Handler) GetJob(c *gin.Context) {
	id := c.Param("id")

	job, err := h.jobs.Get(c.Request.Context(), id)
	if errors.Is(err, sqlite.ErrJobNotFound) {
		writeError(c, apperror.New(apperror.NotFound, "job not found"))
		return
	}
	if err != nil {
		h.logger.Error("failed to get job", "job_id", id, "error", err)
		writeError(c, apperror.New(apperror.Internal, "failed to get job"))
		return
	}

	resp := gin.H{"job": job}
	if c.Query("includeLog") == "true" {
		text, err := h.logs.Read(c.Request.Context(), id)
		if err != nil {
			h.logger.Warn("failed to read job log", "job_id", id, "error", err)
		}
		resp["log"] = text
	}

	c.JSON(http.StatusOK, resp)
}

func (h *Handler) ListCategories(c *gin.Context) {
	cats := make([]domain.Category, 0, len(h.catalog.Categories))
	for _, cat := range h.catalog.Categories {
		cat.URL = h.catalog.CategoryURL(cat)
		cats = append(cats, cat)
	}
	c.JSON(http.StatusOK, gin.H{"categories": cats})
}

func (h *Handler) ListPlans(c *gin.Context) {
	plans, err := h.plans.List(c.Request.Context())
	if err != nil {
		h.logger.Error("failed to list plans", "error", err)
		writeError(c, apperror.New(apperror.Internal, "failed to list plans"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"plans": plans, "count": len(plans)})
}

func (h *Handler) GetPlan(c *gin.Context) {
	plan, err := h.plans.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.planError(c, err)
		return
	}
	c.JSON(http.StatusOK, plan)
}

// UpdatePlan creates or updates a plan, then recomputes its summary and next run.
func (h *Handler) UpdatePlan(c *gin.Context) {
	id := c.Param("id")

	var req UpdatePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperror.New(apperror.BadRequest, "invalid request body: "+err.Error()))
		return
	}
	if appErr := req.Validate(h.catalog); appErr != nil {
		writeError(c, appErr)
		return
	}

	ctx := c.Request.Context()
	current, err := h.plans.Get(ctx, id)
	switch {
	case errors.Is(err, postgres.ErrPlanNotFound):
		current = &domain.Plan{ID: id, Name: id, Timezone: "UTC", Headless: true, Enabled: true}
	case err != nil:
		h.planError(c, err)
		return
	}

	plan, err := schedule.Normalize(req.Apply(*current), h.now())
	if err != nil {
		writeError(c, apperror.New(apperror.BadRequest, err.Error()))
		return
	}

	if err := h.plans.Save(ctx, plan); err != nil {
		h.logger.Error("failed to save plan", "plan_id", id, "error", err)
		writeError(c, apperror.New(apperror.Internal, "failed to save plan"))
		return
	}

	h.logger.Info("plan saved", "plan_id", id, "summary", plan.Summary, "next_run_at", plan.NextRunAt)
	c.JSON(http.StatusOK, plan)
}

func (h *Handler) ListPlanRuns(c *gin.Context) {
	limit, appErr := queryLimit(c, defaultRunsLimit)
	if appErr != nil {
		writeError(c, appErr)
		return
	}

	runs, err := h.plans.RecentRuns(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		h.planError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs, "count": len(runs)})
}

func (h *Handler) planError(c *gin.Context, err error) {
	if errors.Is(err, postgres.ErrPlanNotFound) {
		writeError(c, apperror.New(apperror.NotFound, "plan not found"))
		return
	}
	h.logger.Error("plan store failed", "plan_id", c.Param("id"), "error", err)
	writeError(c, apperror.New(apperror.Internal, "plan store failed"))
}

func queryLimit(c *gin.Context, def int) (int, *apperror.AppError) {
	raw := c.Query("limit")
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > maxListLimit {
		return 0, apperror.New(apperror.BadRequest, "limit must be between 1 and "+strconv.Itoa(maxListLimit))
	}
	return n, nil
}

func writeError(c *gin.Context, err error) {
	ae := apperror.As(err)
	c.JSON(ae.HTTPStatus(), gin.H{"error": ae.Message(), "code": ae.Code()})
}
