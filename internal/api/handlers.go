package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/quorumsec/remedia/pkg/domain"
	"github.com/quorumsec/remedia/pkg/policy"
)

type createIncidentRequest struct {
	IdentityRef string `json:"identity_ref"`
	Assumption  string `json:"assumption"`
	Source      string `json:"source"`
}

type recordApprovalRequest struct {
	ActionID string `json:"action_id"`
	Approver string `json:"approver"`
	Decision string `json:"decision"`
}

func (s *Server) handleCreateIncident(w http.ResponseWriter, r *http.Request) {
	var req createIncidentRequest
	form := isFormPost(r)
	if form {
		if err := r.ParseForm(); err != nil {
			writeError(w, domain.Validation("malformed form body"))
			return
		}
		req.IdentityRef = r.PostFormValue("identity_ref")
		req.Assumption = r.PostFormValue("assumption")
		req.Source = r.PostFormValue("source")
	} else if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	incident, err := s.incidents.Create(r.Context(), req.IdentityRef, req.Assumption, domain.IncidentSource(req.Source))
	if err != nil {
		writeError(w, err)
		return
	}
	s.metrics.RecordIncidentCreated(string(incident.Source))

	if form {
		http.Redirect(w, r, "/platform/incidents", http.StatusSeeOther)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"incident_id": incident.IncidentID})
}

func (s *Server) handleListIncidents(w http.ResponseWriter, r *http.Request) {
	incidents, err := s.incidents.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, incidents)
}

func (s *Server) handleGetIncident(w http.ResponseWriter, r *http.Request) {
	incident, err := s.incidents.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, incident)
}

func (s *Server) handleListApprovals(w http.ResponseWriter, r *http.Request) {
	entries, err := s.approvals.List(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleRecordApproval(w http.ResponseWriter, r *http.Request) {
	var req recordApprovalRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	incidentID := r.PathValue("id")

	var entry domain.ApprovalEntry
	var err error
	switch req.Decision {
	case string(domain.ApprovalApproved):
		entry, err = s.approvals.RecordApproval(r.Context(), incidentID, req.ActionID, req.Approver)
	case string(domain.ApprovalRejected):
		entry, err = s.approvals.RecordRejection(r.Context(), incidentID, req.ActionID, req.Approver)
	default:
		err = domain.Validation("decision must be one of: approved | rejected")
	}
	if err != nil {
		writeError(w, err)
		return
	}
	s.metrics.RecordApproval(string(entry.Status))
	writeJSON(w, http.StatusCreated, entry)
}

func (s *Server) handleListExecutions(w http.ResponseWriter, r *http.Request) {
	records, err := s.executions.List(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

// handleBlastRadius resolves the incident's identity in the access graph
// and returns the normalized blast-radius report.
func (s *Server) handleBlastRadius(w http.ResponseWriter, r *http.Request) {
	if s.graph == nil {
		writeJSON(w, http.StatusServiceUnavailable, domain.ErrorResponse{
			Code:    "graph_unconfigured",
			Message: "no access-graph service configured",
		})
		return
	}

	incident, err := s.incidents.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}

	report, err := s.graph.BuildIdentityReport(r.Context(), incident.IdentityRef, r.URL.Query().Get("critical_target"))
	if err != nil {
		writeJSON(w, http.StatusBadGateway, domain.ErrorResponse{
			Code:    "graph_error",
			Message: err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	identityRef := r.URL.Query().Get("identity_ref")

	recommendations, err := policy.Decide(identityRef, []any{}, []any{})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"recommendations": recommendations})
}

func (s *Server) handleRunPass(w http.ResponseWriter, r *http.Request) {
	results, err := s.runner.RunPass(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func isFormPost(r *http.Request) bool {
	contentType := strings.ToLower(r.Header.Get("Content-Type"))
	return strings.HasPrefix(contentType, "application/x-www-form-urlencoded") ||
		strings.HasPrefix(contentType, "multipart/form-data")
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return domain.Validation("body must be a JSON object")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(payload)
}

// writeError maps the domain error taxonomy onto HTTP statuses: validation
// to 400, not-found to 404, corruption and everything else to 500.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	code := "internal_error"

	switch {
	case errors.Is(err, domain.ErrInvalidSource), errors.Is(err, domain.ErrInvalidInput):
		status = http.StatusBadRequest
		code = "bad_request"
	case errors.Is(err, domain.ErrIncidentNotFound):
		status = http.StatusNotFound
		code = "incident_not_found"
	case errors.Is(err, domain.ErrCorruptStore):
		code = "corrupt_store"
	}

	var domainErr *domain.DomainError
	if errors.As(err, &domainErr) && domainErr.Code != "" {
		code = domainErr.Code
	}

	writeJSON(w, status, domain.ErrorResponse{Code: code, Message: err.Error()})
}
