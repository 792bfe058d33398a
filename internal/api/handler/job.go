package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/edvin/webhook-scheduler/internal/api/request"
	"github.com/edvin/webhook-scheduler/internal/api/response"
	"github.com/edvin/webhook-scheduler/internal/core"
	"github.com/edvin/webhook-scheduler/internal/model"
	"github.com/edvin/webhook-scheduler/internal/platform"
)

type Job struct {
	svc *core.JobService
}

func NewJob(services *core.Services) *Job {
	return &Job{svc: services.Job}
}

// Create godoc
//
//	@Summary		Register a job
//	@Description	Registers a webhook to fire once at an absolute time or repeatedly on an interval.
//	@Tags			Jobs
//	@Param			body body request.CreateJob true "Job definition"
//	@Success		201 {object} model.Job
//	@Failure		400 {object} response.ErrorResponse
//	@Failure		500 {object} response.ErrorResponse
//	@Router			/jobs [post]
func (h *Job) Create(w http.ResponseWriter, r *http.Request) {
	var req request.CreateJob
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if req.Target.Method == http.MethodGet && req.Target.HasBody() {
		response.WriteError(w, http.StatusBadRequest, "body cannot be set when method is GET")
		return
	}

	sched, err := model.NewSchedule(model.JobType(req.Type), req.Interval, req.When)
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	now := time.Now()
	var nextRunAt time.Time
	switch s := sched.(type) {
	case model.OnceSchedule:
		nextRunAt = s.When
	case model.EverySchedule:
		nextRunAt = s.Interval.Next(now)
	}

	target := model.Target{
		URL:     req.Target.URL,
		Method:  req.Target.Method,
		Headers: req.Target.Headers,
	}
	if req.Target.HasBody() {
		target.Body = req.Target.Body
	}

	job := &model.Job{
		ID:        platform.NewID(),
		Schedule:  sched,
		Target:    target,
		NextRunAt: nextRunAt,
		CreatedAt: now,
	}

	if err := h.svc.Create(r.Context(), job); err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Location", r.URL.Path+"/"+job.ID)
	response.WriteJSON(w, http.StatusCreated, job)
}

// List godoc
//
//	@Summary		List jobs
//	@Description	Returns jobs in insertion order with next/prev page links.
//	@Tags			Jobs
//	@Param			page query int false "1-based page" default(1)
//	@Param			pageSize query int false "Page size" default(10)
//	@Success		200 {object} response.PagedResults{results=[]model.Job}
//	@Failure		400 {object} response.ErrorResponse
//	@Failure		500 {object} response.ErrorResponse
//	@Router			/jobs [get]
func (h *Job) List(w http.ResponseWriter, r *http.Request) {
	pg, err := request.ParsePagination(r)
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	jobs, err := h.svc.List(r.Context(), pg.Page, pg.PageSize)
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if jobs == nil {
		jobs = []model.Job{}
	}

	response.WritePaged(w, r, jobs, len(jobs), pg.Page, pg.PageSize)
}

// Get godoc
//
//	@Summary		Get a job
//	@Tags			Jobs
//	@Param			id path string true "Job ID"
//	@Success		200 {object} model.Job
//	@Failure		404 {object} response.ErrorResponse
//	@Router			/jobs/{id} [get]
func (h *Job) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	job, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, core.ErrJobNotFound) {
			response.WriteError(w, http.StatusNotFound, err.Error())
			return
		}
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	response.WriteJSON(w, http.StatusOK, job)
}

// Delete godoc
//
//	@Summary		Cancel a job
//	@Description	Removes the schedule entry. Idempotent: unknown and malformed ids also return 204. A dispatch already in flight is not aborted.
//	@Tags			Jobs
//	@Param			id path string true "Job ID"
//	@Success		204
//	@Failure		500 {object} response.ErrorResponse
//	@Router			/jobs/{id} [delete]
func (h *Job) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.svc.DeleteByID(r.Context(), id); err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
