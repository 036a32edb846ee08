package routes

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/hlog"

	"github.com/briangreenhill/tripparse/internal/apierr"
	"github.com/briangreenhill/tripparse/internal/db"
	"github.com/briangreenhill/tripparse/travel"
)

// JobView is the JSON form of a parse job.
type JobView struct {
	ID        string          `json:"id"`
	Kind      string          `json:"kind"`
	URL       string          `json:"url"`
	Status    string          `json:"status"`
	Result    json.RawMessage `json:"result,omitempty"`
	Error     string          `json:"error,omitempty"`
	Message   string          `json:"message,omitempty"`
	CreatedAt *time.Time      `json:"created_at,omitempty"`
	UpdatedAt *time.Time      `json:"updated_at,omitempty"`
}

func newJobView(j db.ParseJob) JobView {
	v := JobView{
		ID:     j.ID.String(),
		Kind:   j.Kind,
		URL:    j.URL,
		Status: j.Status,
		Result: json.RawMessage(j.Result),
	}
	if j.ErrorCode.Valid {
		v.Error = j.ErrorCode.String
	}
	if j.ErrorMessage.Valid {
		v.Message = j.ErrorMessage.String
	}
	if j.CreatedAt.Valid {
		t := j.CreatedAt.Time
		v.CreatedAt = &t
	}
	if j.UpdatedAt.Valid {
		t := j.UpdatedAt.Time
		v.UpdatedAt = &t
	}
	return v
}

func (s *Server) handleSubmitJob(kind travel.DataType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		link, ok := s.decodeLink(w, r)
		if !ok {
			return
		}

		job, err := s.jobs.Submit(r.Context(), kind, link)
		if err != nil {
			status, code := apierr.Classify(err)
			if code == apierr.CodeInternal {
				status, code = http.StatusServiceUnavailable, apierr.CodeUnavailable
			}
			hlog.FromRequest(r).Error().Err(err).Str("code", code).Msg("submit job failed")
			s.writeError(w, r, status, code, err.Error())
			return
		}

		w.Header().Set("Location", "/jobs/"+job.ID.String())
		s.writeJSON(w, r, http.StatusAccepted, newJobView(job))
	}
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, http.StatusNotFound, "HTTP_404", "Not Found")
		return
	}

	job, err := s.jobs.Get(r.Context(), id)
	if err != nil {
		if isNotFound(err) {
			s.writeError(w, r, http.StatusNotFound, apierr.CodeNotFound, "job "+id.String()+" not found")
			return
		}
		hlog.FromRequest(r).Error().Err(err).Str("job_id", id.String()).Msg("get job failed")
		s.writeError(w, r, http.StatusInternalServerError, apierr.CodeInternal, "could not load job")
		return
	}
	s.writeJSON(w, r, http.StatusOK, newJobView(job))
}
