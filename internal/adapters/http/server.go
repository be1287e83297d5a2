package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"safelink/internal/domain"
	"safelink/internal/ports"
	scanner "safelink/internal/services/scanner"
	scanrunner "safelink/internal/workers/scanrunner"
)

// Server exposes the scan pipeline over HTTP. The persistence fields may be
// nil, in which case scans run stateless and only the blocking path is
// available.
type Server struct {
	scanner   ports.Scanner
	insights  ports.InsightGenerator
	domains   ports.DomainRepository
	scans     ports.ScanRepository
	jobs      ports.JobRepository
	processor scanrunner.ScanProcessor
}

func New(sc ports.Scanner, ins ports.InsightGenerator, domains ports.DomainRepository, scans ports.ScanRepository, jobs ports.JobRepository, processor scanrunner.ScanProcessor) *Server {
	return &Server{scanner: sc, insights: ins, domains: domains, scans: scans, jobs: jobs, processor: processor}
}

func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/healthz", s.getHealthz)
	r.Post("/scans", s.postScans)
	r.Get("/scans/{id}", s.getScan)
	r.Get("/users/{userID}/scans", s.listUserScans)
	return r
}

type scanRequest struct {
	URL    string `json:"url"`
	UserID string `json:"user_id,omitempty"`
}

type scanDetail struct {
	ScanID   string             `json:"scan_id,omitempty"`
	Result   *domain.ScanResult `json:"result,omitempty"`
	Insights []domain.Insight   `json:"insights,omitempty"`
}

func (s *Server) getHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) postScans(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == "" {
		writeError(w, http.StatusBadRequest, "body must include a url")
		return
	}

	ctx := r.Context()
	if r.URL.Query().Get("timeout") != "" {
		if d, err := time.ParseDuration(r.URL.Query().Get("timeout")); err == nil && d > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, d)
			defer cancel()
		}
	}

	// Stateless mode: run the pipeline in-request and return the result.
	if s.scans == nil {
		res, err := s.scanner.Scan(ctx, req.URL)
		if err != nil {
			writeScanError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, scanDetail{Result: &res, Insights: s.insights.Generate(res)})
		return
	}

	normalized, u, err := scanner.Normalize(req.URL)
	if err != nil {
		writeScanError(w, err)
		return
	}
	domainID, err := s.domains.GetOrCreate(ctx, scanner.RegistrableDomain(u.Hostname()))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	scanID, err := s.scans.Create(ctx, domainID, req.UserID, normalized)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if r.URL.Query().Get("async") == "1" {
		writeJSON(w, http.StatusAccepted, map[string]string{"scan_id": scanID, "status": "queued"})
		return
	}

	// Blocking path shares the same processor as the background workers.
	res, err := scanrunner.ProcessInline(ctx, s.jobs, s.processor, scanID)
	if err != nil {
		writeScanError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, scanDetail{ScanID: scanID, Result: &res, Insights: s.insights.Generate(res)})
}

func (s *Server) getScan(w http.ResponseWriter, r *http.Request) {
	if s.scans == nil {
		writeError(w, http.StatusNotImplemented, "scan persistence is not configured")
		return
	}
	rec, err := s.scans.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			writeError(w, http.StatusNotFound, "scan not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) listUserScans(w http.ResponseWriter, r *http.Request) {
	if s.scans == nil {
		writeError(w, http.StatusNotImplemented, "scan persistence is not configured")
		return
	}
	recs, err := s.scans.ListByUser(r.Context(), chi.URLParam(r, "userID"), 0)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"scans": recs})
}

func writeScanError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidURL):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		writeError(w, http.StatusGatewayTimeout, "scan did not finish in time")
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
