package http

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/Mucrypt/e-com-app-admin-sub002/internal/jobs"
	"github.com/Mucrypt/e-com-app-admin-sub002/internal/model"
	"github.com/Mucrypt/e-com-app-admin-sub002/internal/orchestrator"
	"github.com/Mucrypt/e-com-app-admin-sub002/internal/store"
)

// scrapeSubmitHandler accepts a batch of product URLs and starts an async
// scraping job. The response carries the job id; progress is polled via
// the status endpoint.
func scrapeSubmitHandler(c *fiber.Ctx) error {
	var reqBody ScrapeSubmitRequest
	if err := c.BodyParser(&reqBody); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Success: false,
			Code:    "BAD_REQUEST_INVALID_JSON",
			Error:   "Bad request, malformed JSON",
		})
	}

	orch := c.Locals("orchestrator").(*orchestrator.Orchestrator)

	settings := model.JobSettings{}
	if reqBody.Settings != nil {
		settings = *reqBody.Settings
	}

	createdBy := ""
	if val := c.Locals("apiKey"); val != nil {
		if key, ok := val.(store.APIKey); ok {
			createdBy = key.Label
		}
	}

	job, err := orch.Submit(c.Context(), orchestrator.SubmitRequest{
		URLs:      reqBody.URLs,
		Platform:  reqBody.Platform,
		Settings:  settings,
		CreatedBy: createdBy,
	})
	if err != nil {
		if orchestrator.IsValidation(err) {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
				Success: false,
				Code:    "BAD_REQUEST",
				Error:   err.Error(),
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Success: false,
			Code:    "JOB_CREATE_FAILED",
			Error:   err.Error(),
		})
	}

	// The worker is already scheduled, so callers see "processing" even
	// though the record starts out pending.
	return c.Status(fiber.StatusAccepted).JSON(ScrapeSubmitResponse{
		Success:   true,
		JobID:     job.ID.String(),
		Status:    string(jobs.StatusProcessing),
		TotalURLs: job.TotalURLs,
		Message:   fmt.Sprintf("scraping job accepted with %d urls", job.TotalURLs),
	})
}

// jobStatusHandler returns the full job record including per-URL results.
func jobStatusHandler(c *fiber.Ctx) error {
	orch := c.Locals("orchestrator").(*orchestrator.Orchestrator)

	jobID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Success: false,
			Code:    "BAD_REQUEST",
			Error:   "invalid job id",
		})
	}

	job, err := orch.GetStatus(c.Context(), jobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{
				Success: false,
				Code:    "NOT_FOUND",
				Error:   "job not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Success: false,
			Code:    "JOB_LOOKUP_FAILED",
			Error:   err.Error(),
		})
	}

	return c.JSON(JobStatusResponse{Success: true, Job: &job})
}

// jobListHandler returns the most recent jobs, newest first.
func jobListHandler(c *fiber.Ctx) error {
	st := c.Locals("store").(*store.Store)

	limit := 50
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}

	list, err := st.ListRecentScrapeJobs(c.Context(), limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Success: false,
			Code:    "JOB_LIST_FAILED",
			Error:   err.Error(),
		})
	}

	return c.JSON(JobListResponse{Success: true, Jobs: list})
}

// jobDeleteHandler removes one job record. In-flight jobs must be stopped
// (completed or reconciled) before they can be removed.
func jobDeleteHandler(c *fiber.Ctx) error {
	st := c.Locals("store").(*store.Store)

	jobID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(DeleteResponse{
			Success: false,
			Code:    "BAD_REQUEST",
			Error:   "invalid job id",
		})
	}

	status, err := st.GetScrapeJobStatus(c.Context(), jobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.Status(fiber.StatusNotFound).JSON(DeleteResponse{
				Success: false,
				Code:    "NOT_FOUND",
				Error:   "job not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(DeleteResponse{
			Success: false,
			Code:    "JOB_LOOKUP_FAILED",
			Error:   err.Error(),
		})
	}
	if !jobs.Status(status).Terminal() {
		return c.Status(fiber.StatusConflict).JSON(DeleteResponse{
			Success: false,
			Code:    "JOB_NOT_TERMINAL",
			Error:   "job is still pending or processing",
		})
	}

	deleted, err := st.DeleteScrapeJobByID(c.Context(), jobID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(DeleteResponse{
			Success: false,
			Code:    "JOB_DELETE_FAILED",
			Error:   err.Error(),
		})
	}
	if !deleted {
		return c.Status(fiber.StatusNotFound).JSON(DeleteResponse{
			Success: false,
			Code:    "NOT_FOUND",
			Error:   "job not found",
		})
	}

	return c.JSON(DeleteResponse{Success: true})
}
