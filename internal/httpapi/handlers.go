package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/aman-news/searchcore/internal/apperrors"
	"github.com/aman-news/searchcore/internal/query"
)

// errorEnvelope is the error body: {"detail":[{msg,loc?,input?}]}.
type errorEnvelope struct {
	Detail []apperrors.FieldError `json:"detail"`
}

func (s *Server) handleSearchArticles(w http.ResponseWriter, r *http.Request) {
	q, err := parseArticleQuery(r)
	if err != nil {
		s.writeParseError(w, err)
		return
	}
	if err := query.ValidateArticleQuery(q, s.schema); err != nil {
		s.writeError(w, err)
		return
	}

	results, err := s.svc.SearchArticles(r.Context(), q)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, results)
}

func (s *Server) handleSearchTopics(w http.ResponseWriter, r *http.Request) {
	q, err := parseTopicQuery(r)
	if err != nil {
		s.writeParseError(w, err)
		return
	}
	if err := query.ValidateTopicQuery(q, s.schema); err != nil {
		s.writeError(w, err)
		return
	}

	results, err := s.svc.SearchTopics(r.Context(), q)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, results)
}

func (s *Server) handleSearchTopicBatches(w http.ResponseWriter, r *http.Request) {
	q, err := parseTopicBatchQuery(r)
	if err != nil {
		s.writeParseError(w, err)
		return
	}
	if err := query.ValidateTopicBatchQuery(q, s.schema); err != nil {
		s.writeError(w, err)
		return
	}

	results, err := s.svc.SearchTopicBatches(r.Context(), q)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, results)
}

func (s *Server) handleSearchCategories(w http.ResponseWriter, r *http.Request) {
	q, err := parseCategoryQuery(r)
	if err != nil {
		s.writeParseError(w, err)
		return
	}
	if err := query.ValidateCategoryQuery(q, s.schema); err != nil {
		s.writeError(w, err)
		return
	}

	results, err := s.svc.SearchCategories(r.Context(), q)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, results)
}

// writeParseError renders an unparseable query parameter as a 422, the same
// envelope a failed validation produces.
func (s *Server) writeParseError(w http.ResponseWriter, err error) {
	s.writeJSON(w, http.StatusUnprocessableEntity, errorEnvelope{
		Detail: []apperrors.FieldError{{Msg: err.Error()}},
	})
}

// writeError maps the error taxonomy onto HTTP statuses: validation is
// 422, transient store trouble is 503, everything else (contract
// violations included) is 500. Internal messages are not leaked on 5xx.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var se *apperrors.SearchError
	if errors.As(err, &se) {
		switch se.Category {
		case apperrors.CategoryValidation:
			fields := se.Fields
			if len(fields) == 0 {
				fields = []apperrors.FieldError{{Msg: se.Message}}
			}
			s.writeJSON(w, http.StatusUnprocessableEntity, errorEnvelope{Detail: fields})
			return
		case apperrors.CategoryStore:
			if se.Retryable {
				s.log.Error("store temporarily unavailable", "error", err)
				s.writeJSON(w, http.StatusServiceUnavailable, errorEnvelope{
					Detail: []apperrors.FieldError{{Msg: "search backend temporarily unavailable"}},
				})
				return
			}
		}
	}

	s.log.Error("request failed", "error", err)
	s.writeJSON(w, http.StatusInternalServerError, errorEnvelope{
		Detail: []apperrors.FieldError{{Msg: "internal server error"}},
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.log.Error("encoding response failed", "error", err)
	}
}

func contextWithTimeout(d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = 10 * time.Second
	}
	return context.WithTimeout(context.Background(), d)
}
