package scheduler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/letterbox/letterbox/internal/rest"
	log "github.com/sirupsen/logrus"
)

type RunDTO struct {
	RunId      string    `json:"runId"`
	Started    time.Time `json:"started"`
	DurationMs int64     `json:"durationMs"`
	Error      string    `json:"error,omitempty"`
}

type JobDTO struct {
	Name    string     `json:"name"`
	Spec    string     `json:"spec"`
	Next    *time.Time `json:"next,omitempty"`
	Prev    *time.Time `json:"prev,omitempty"`
	LastRun *RunDTO    `json:"lastRun,omitempty"`
}

type Handler struct {
	registry *Registry
}

func NewHandler(registry *Registry) *Handler {
	return &Handler{registry: registry}
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func entryToDTO(e Entry) JobDTO {
	dto := JobDTO{
		Name: e.Name,
		Spec: e.Spec,
		Next: optionalTime(e.Next),
		Prev: optionalTime(e.Prev),
	}
	if e.LastRun != nil {
		dto.LastRun = &RunDTO{
			RunId:      e.LastRun.RunId,
			Started:    e.LastRun.Started,
			DurationMs: e.LastRun.Duration.Milliseconds(),
			Error:      e.LastRun.Error,
		}
	}
	return dto
}

// ListJobs godoc
// @Summary List scheduled jobs
// @Tags Jobs
// @Produce json
// @Success 200 {array} JobDTO
// @Router /api/jobs [get]
func (h *Handler) ListJobs(w http.ResponseWriter, r *http.Request) {
	entries := h.registry.Entries()
	dtos := make([]JobDTO, 0, len(entries))
	for _, e := range entries {
		dtos = append(dtos, entryToDTO(e))
	}
	rest.WriteJSON(w, http.StatusOK, dtos)
}

// RunJob godoc
// @Summary Run a job immediately and wait for it to finish
// @Tags Jobs
// @Param name path string true "job name"
// @Success 204
// @Failure 404 {object} rest.ErrorResponse
// @Failure 500 {object} rest.ErrorResponse
// @Router /api/jobs/{name}/run [post]
func (h *Handler) RunJob(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	err := h.registry.RunNow(r.Context(), name)
	if err != nil {
		if errors.Is(err, ErrJobNotFound) {
			rest.WriteError(w, http.StatusNotFound, "Job not found", name)
			return
		}
		log.Errorf("manual run of job %s failed: %v", name, err)
		rest.WriteInternalError(w)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
