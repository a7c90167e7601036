package http

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/Mucrypt/e-com-app-admin-sub002/internal/jobs"
	"github.com/Mucrypt/e-com-app-admin-sub002/internal/metrics"
	"github.com/Mucrypt/e-com-app-admin-sub002/internal/store"
)

// jobManagementHandler runs recovery actions over the job table. Every
// management request starts with an opportunistic stale sweep so callers
// see a reconciled view even between background runner ticks.
func jobManagementHandler(c *fiber.Ctx) error {
	var reqBody JobManagementRequest
	if err := c.BodyParser(&reqBody); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Success: false,
			Code:    "BAD_REQUEST_INVALID_JSON",
			Error:   "Bad request, malformed JSON",
		})
	}

	reconciler := c.Locals("reconciler").(*jobs.Reconciler)

	// The opportunistic sweep runs before any action so the action below
	// works over a settled job table.
	swept, sweepErr := reconciler.Sweep(c.Context())

	switch reqBody.Action {
	case "fix_stuck_jobs":
		if sweepErr != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
				Success: false,
				Code:    "RECONCILE_FAILED",
				Error:   sweepErr.Error(),
			})
		}
		return c.JSON(JobManagementResponse{
			Success:  true,
			Message:  fmt.Sprintf("failed %d stuck jobs past the staleness threshold", len(swept)),
			Affected: idStrings(swept),
		})

	case "force_fix_all_stuck_jobs":
		forced, err := reconciler.ForceSweep(c.Context())
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
				Success: false,
				Code:    "RECONCILE_FAILED",
				Error:   err.Error(),
			})
		}
		fixed := append(swept, forced...)
		return c.JSON(JobManagementResponse{
			Success:  true,
			Message:  fmt.Sprintf("failed all %d processing jobs", len(fixed)),
			Affected: idStrings(fixed),
		})

	case "complete_job":
		// A sweep failure must not block the explicit close-out.
		if sweepErr != nil {
			if lg, ok := c.Locals("logger").(*slog.Logger); ok {
				lg.Warn("stale sweep before complete_job failed", "error", sweepErr)
			}
		}
		return completeJobAction(c, reqBody.JobID)

	default:
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Success: false,
			Code:    "BAD_REQUEST",
			Error:   "unknown action; expected fix_stuck_jobs, force_fix_all_stuck_jobs or complete_job",
		})
	}
}

// completeJobAction force-transitions one processing job to completed.
// Operators use it to close out a job whose results are good enough even
// though its worker died.
func completeJobAction(c *fiber.Ctx, rawID string) error {
	st := c.Locals("store").(*store.Store)

	jobID, err := uuid.Parse(rawID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Success: false,
			Code:    "BAD_REQUEST",
			Error:   "complete_job requires a valid job_id",
		})
	}

	job, err := st.GetScrapeJob(c.Context(), jobID)
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
	if code, msg, conflict := completeConflict(job.Status); conflict {
		return c.Status(fiber.StatusConflict).JSON(ErrorResponse{
			Success: false,
			Code:    code,
			Error:   msg,
		})
	}

	// Closing out a job also settles its progress counters.
	if err := st.UpdateScrapeJobProgress(c.Context(), jobID, job.TotalURLs,
		job.SuccessfulScrapes, job.FailedScrapes, job.Results); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Success: false,
			Code:    "JOB_UPDATE_FAILED",
			Error:   err.Error(),
		})
	}

	now := time.Now().UTC()
	if err := st.UpdateScrapeJobStatus(c.Context(), jobID, string(jobs.StatusCompleted), nil, &now); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Success: false,
			Code:    "JOB_UPDATE_FAILED",
			Error:   err.Error(),
		})
	}
	metrics.RecordJobFinished(string(jobs.StatusCompleted))

	return c.JSON(JobManagementResponse{
		Success:  true,
		Message:  "job marked completed",
		Affected: []string{jobID.String()},
	})
}

// completeConflict rejects close-outs of jobs that are not mid-flight.
// Terminal jobs are already settled; a pending job has no worker whose
// death would justify the override.
func completeConflict(status string) (code, msg string, conflict bool) {
	switch {
	case jobs.Status(status).Terminal():
		return "JOB_ALREADY_TERMINAL", fmt.Sprintf("job is already %s", status), true
	case status != string(jobs.StatusProcessing):
		return "JOB_NOT_PROCESSING", fmt.Sprintf("job is %s; only processing jobs can be force-completed", status), true
	}
	return "", "", false
}

func idStrings(ids []uuid.UUID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.String())
	}
	return out
}
