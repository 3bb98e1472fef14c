// Placegate - Places Discovery Gateway and Sync Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/placegate

package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/placegate/internal/jobs"
	"github.com/tomtom215/placegate/internal/logging"
	"github.com/tomtom215/placegate/internal/validation"
)

// SyncRequest is the optional body of POST /admin/sync-places.
type SyncRequest struct {
	MaxResults *int `json:"maxResults" validate:"omitempty,min=10,max=1000"`
}

// SyncAccepted is the 202 body of POST /admin/sync-places.
type SyncAccepted struct {
	Message     string      `json:"message"`
	JobID       string      `json:"jobId"`
	OptionsUsed SyncOptions `json:"optionsUsed"`
}

// SyncOptions echoes the options a job was queued with.
type SyncOptions struct {
	MaxResults int `json:"maxResults"`
}

// SyncPlaces queues a hybrid sync job and answers 202.
//
// @Summary Queue a places sync
// @Tags Admin
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param Idempotency-Key header string false "Idempotency key"
// @Param request body api.SyncRequest false "Sync options"
// @Success 202 {object} api.SyncAccepted
// @Failure 400 {object} models.Problem
// @Failure 500 {object} models.Problem
// @Router /admin/sync-places [post]
func (h *Handler) SyncPlaces(w http.ResponseWriter, r *http.Request) {
	var req SyncRequest
	if err := decodeJSON(r, &req, true); err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error(), nil)
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		respondValidation(w, r, verr)
		return
	}

	maxResults := h.defaultSync
	if req.MaxResults != nil {
		maxResults = *req.MaxResults
	}

	log := logging.Ctx(r.Context())
	log.Info().Int("max_results", maxResults).Msg("Received request to queue HYBRID sync-places job")

	jobID, err := h.deps.Enqueuer.EnqueueSync(r.Context(), maxResults)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "Failed to queue the sync process.", err)
		return
	}
	log.Info().Str("job_id", jobID).Msg("Job added to syncQueue")

	respondJSON(w, http.StatusAccepted, SyncAccepted{
		Message:     "Sync process has been successfully queued. It will run in the background.",
		JobID:       jobID,
		OptionsUsed: SyncOptions{MaxResults: maxResults},
	})
}

// SyncStatus returns the status record of a queued job.
//
// @Summary Sync job status
// @Tags Admin
// @Produce json
// @Security ApiKeyAuth
// @Param jobId path string true "Job id"
// @Success 200 {object} jobs.JobStatus
// @Failure 404 {object} models.Problem
// @Router /admin/sync-places/{jobId} [get]
func (h *Handler) SyncStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobId")
	st, err := h.deps.Jobs.Get(r.Context(), jobID)
	if errors.Is(err, jobs.ErrJobNotFound) {
		respondError(w, r, http.StatusNotFound, "job not found", nil)
		return
	}
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "failed to load job status", err)
		return
	}
	respondJSON(w, http.StatusOK, st)
}
