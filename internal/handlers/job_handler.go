package handlers

import (
	"net/http"

	"github.com/anonto42/freelink/backend/internal/models"
	"github.com/anonto42/freelink/backend/internal/services"
	"github.com/labstack/echo/v4"
)

// JobHandler handles job and job request HTTP requests
type JobHandler struct {
	jobs *services.JobService
}

// NewJobHandler creates a new JobHandler
func NewJobHandler(jobs *services.JobService) *JobHandler {
	return &JobHandler{jobs: jobs}
}

// RegisterJobRoutes registers job routes
func (h *JobHandler) RegisterJobRoutes(g *echo.Group) {
	g.POST("/jobs", h.PostJob)
	g.GET("/jobs", h.ListOpenJobs)
	g.GET("/jobs/posted", h.ListPostedJobs)
	g.GET("/jobs/assigned", h.ListAssignedJobs)
	g.GET("/jobs/:id", h.GetJob)
	g.PATCH("/jobs/:id", h.EditJob)
	g.POST("/jobs/:id/requests", h.RequestJob)
	g.GET("/jobs/:id/requests", h.ListRequests)
	g.PUT("/jobs/:id/requests/:freelancerId", h.UpdateRequestStatus)
}

// PostJob creates a job owned by the caller
func (h *JobHandler) PostJob(c echo.Context) error {
	callerID, err := requireCaller(c)
	if err != nil {
		return err
	}
	var req models.CreateJobRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	job, err := h.jobs.PostJob(c.Request().Context(), callerID, req)
	if err != nil {
		return respondError(err)
	}
	return ok(c, http.StatusCreated, job)
}

// ListOpenJobs lists open jobs visible to the calling freelancer
func (h *JobHandler) ListOpenJobs(c echo.Context) error {
	callerID, err := requireCaller(c)
	if err != nil {
		return err
	}
	jobs, err := h.jobs.ListOpenJobs(c.Request().Context(), callerID)
	if err != nil {
		return respondError(err)
	}
	return ok(c, http.StatusOK, jobs)
}

func (h *JobHandler) ListPostedJobs(c echo.Context) error {
	callerID, err := requireCaller(c)
	if err != nil {
		return err
	}
	jobs, err := h.jobs.ListEmployerJobs(c.Request().Context(), callerID)
	if err != nil {
		return respondError(err)
	}
	return ok(c, http.StatusOK, jobs)
}

func (h *JobHandler) ListAssignedJobs(c echo.Context) error {
	callerID, err := requireCaller(c)
	if err != nil {
		return err
	}
	jobs, err := h.jobs.ListFreelancerJobs(c.Request().Context(), callerID)
	if err != nil {
		return respondError(err)
	}
	return ok(c, http.StatusOK, jobs)
}

func (h *JobHandler) GetJob(c echo.Context) error {
	callerID, err := requireCaller(c)
	if err != nil {
		return err
	}
	job, err := h.jobs.GetJob(c.Request().Context(), callerID, c.Param("id"))
	if err != nil {
		return respondError(err)
	}
	return ok(c, http.StatusOK, job)
}

// EditJob applies a partial update to an open job
func (h *JobHandler) EditJob(c echo.Context) error {
	callerID, err := requireCaller(c)
	if err != nil {
		return err
	}
	var req models.UpdateJobRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	job, err := h.jobs.EditJob(c.Request().Context(), callerID, c.Param("id"), req)
	if err != nil {
		return respondError(err)
	}
	return ok(c, http.StatusOK, job)
}

// RequestJob files the calling freelancer's request
func (h *JobHandler) RequestJob(c echo.Context) error {
	callerID, err := requireCaller(c)
	if err != nil {
		return err
	}
	job, err := h.jobs.RequestJob(c.Request().Context(), callerID, c.Param("id"))
	if err != nil {
		return respondError(err)
	}
	return ok(c, http.StatusCreated, job)
}

func (h *JobHandler) ListRequests(c echo.Context) error {
	callerID, err := requireCaller(c)
	if err != nil {
		return err
	}
	requests, err := h.jobs.ListRequests(c.Request().Context(), callerID, c.Param("id"))
	if err != nil {
		return respondError(err)
	}
	return ok(c, http.StatusOK, requests)
}

// UpdateRequestStatus accepts or declines a freelancer's request
func (h *JobHandler) UpdateRequestStatus(c echo.Context) error {
	callerID, err := requireCaller(c)
	if err != nil {
		return err
	}
	var req models.UpdateJobRequestStatus
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	jobID, freelancerID := c.Param("id"), c.Param("freelancerId")
	var job *models.Job
	if req.Status == string(models.RequestStatusAccepted) {
		job, err = h.jobs.AcceptRequest(ctx, callerID, jobID, freelancerID)
	} else {
		job, err = h.jobs.DeclineRequest(ctx, callerID, jobID, freelancerID)
	}
	if err != nil {
		return respondError(err)
	}
	return ok(c, http.StatusOK, job)
}
