package handler

import (
	"errors"
	"net/http"

	"github.com/edvin/webhook-scheduler/internal/api/request"
	"github.com/edvin/webhook-scheduler/internal/api/response"
	"github.com/edvin/webhook-scheduler/internal/core"
	"github.com/edvin/webhook-scheduler/internal/model"
)

type JobExecution struct {
	svc *core.JobExecutionService
}

func NewJobExecution(services *core.Services) *JobExecution {
	return &JobExecution{svc: services.JobExecution}
}

// List godoc
//
//	@Summary		List job executions
//	@Description	Returns the audit trail of dispatch attempts, most recent first, optionally filtered by job.
//	@Tags			Job Executions
//	@Param			page query int false "1-based page" default(1)
//	@Param			pageSize query int false "Page size" default(10)
//	@Param			jobId query string false "Filter by job ID"
//	@Success		200 {object} response.PagedResults{results=[]model.JobExecution}
//	@Failure		400 {object} response.ErrorResponse
//	@Failure		500 {object} response.ErrorResponse
//	@Router			/jobs-executions [get]
func (h *JobExecution) List(w http.ResponseWriter, r *http.Request) {
	pg, err := request.ParsePagination(r)
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	jobID := r.URL.Query().Get("jobId")

	execs, err := h.svc.List(r.Context(), pg.Page, pg.PageSize, jobID)
	if err != nil {
		if errors.Is(err, core.ErrInvalidJobID) {
			response.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if execs == nil {
		execs = []model.JobExecution{}
	}

	response.WritePaged(w, r, execs, len(execs), pg.Page, pg.PageSize)
}
