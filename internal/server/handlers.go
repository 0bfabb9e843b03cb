package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/armish/crl.help/internal/export"
	"github.com/armish/crl.help/internal/models"
	"github.com/armish/crl.help/internal/storage"
	"github.com/armish/crl.help/pkg/utils"
)

// handleHealth reports service status. A degraded check still answers 200
// with status "unhealthy" so probes can read the body.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health, err := s.checkHealth(r.Context())
	if err != nil {
		s.logger.Error("health check failed", zap.Error(err))
		s.respondJSON(w, http.StatusOK, &models.HealthStatus{
			Status:   "unhealthy",
			Database: "error",
		})
		return
	}
	s.respondJSON(w, http.StatusOK, health)
}

func (s *Server) checkHealth(ctx context.Context) (*models.HealthStatus, error) {
	health := &models.HealthStatus{Status: "healthy", Database: "connected"}
	var err error
	if health.TotalCRLs, err = s.storage.CountCRLs(ctx); err != nil {
		return nil, err
	}
	if health.TotalSummaries, err = s.storage.CountSummaries(ctx); err != nil {
		return nil, err
	}
	if health.TotalEmbeddings, err = s.storage.CountEmbeddings(ctx); err != nil {
		return nil, err
	}
	if run, err := s.storage.LastCompletedRun(ctx); err == nil {
		health.LastDataUpdate = run.DatasetUpdated
	}
	return health, nil
}

func (s *Server) handleListCRLs(w http.ResponseWriter, r *http.Request) {
	filter, err := listFilterFromQuery(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	crls, total, err := s.storage.ListCRLs(r.Context(), filter)
	if err != nil {
		s.logger.Error("list crls failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "failed to retrieve CRLs")
		return
	}
	if crls == nil {
		crls = []*models.CRL{}
	}
	s.respondJSON(w, http.StatusOK, &models.CRLList{
		Total:   total,
		Limit:   filter.Limit,
		Offset:  filter.Offset,
		HasMore: filter.Offset+filter.Limit < total,
		Items:   crls,
	})
}

func (s *Server) handleGetCRL(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	crl, err := s.storage.GetCRL(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "CRL not found: "+id)
			return
		}
		s.logger.Error("get crl failed", zap.String("id", id), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "failed to retrieve CRL")
		return
	}
	// Detail stays light; the /text route serves the full letter body.
	crl.LetterText = ""

	detail := &models.CRLDetail{CRL: crl}
	summary, err := s.storage.GetSummary(r.Context(), id)
	if err == nil {
		detail.Summary = summary
	} else if !errors.Is(err, storage.ErrNotFound) {
		s.logger.Error("get summary failed", zap.String("id", id), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "failed to retrieve CRL")
		return
	}
	s.respondJSON(w, http.StatusOK, detail)
}

func (s *Server) handleGetCRLText(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	crl, err := s.storage.GetCRL(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "CRL not found: "+id)
			return
		}
		s.logger.Error("get crl text failed", zap.String("id", id), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "failed to retrieve CRL text")
		return
	}
	s.respondJSON(w, http.StatusOK, crl)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := &models.SearchQuery{Query: q.Get("q")}
	var err error
	if query.Limit, err = intParam(q, "limit"); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if query.Offset, err = intParam(q, "offset"); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if query.ContextChars, err = intParam(q, "context_chars"); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := query.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.logger.Debug("search request", zap.String("query", query.Query), zap.Int("limit", query.Limit))
	response, err := s.searcher.Search(r.Context(), query)
	if err != nil {
		s.logger.Error("search failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "search failed")
		return
	}
	s.respondJSON(w, http.StatusOK, response)
}

func (s *Server) handleStatsOverview(w http.ResponseWriter, r *http.Request) {
	overview, err := s.storage.StatsOverview(r.Context())
	if err != nil {
		s.logger.Error("stats overview failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "failed to retrieve statistics")
		return
	}
	s.collector.SetStoredItems("crls", overview.TotalCRLs)
	s.collector.SetStoredItems("summaries", overview.TotalSummaries)
	s.collector.SetStoredItems("embeddings", overview.TotalEmbeddings)
	s.respondJSON(w, http.StatusOK, overview)
}

func (s *Server) handleCompanyStats(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r.URL.Query(), "limit")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	companies, err := s.storage.CompanyStats(r.Context(), limit)
	if err != nil {
		s.logger.Error("company stats failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "failed to retrieve company statistics")
		return
	}
	total, err := s.storage.CountCompanies(r.Context())
	if err != nil {
		s.logger.Error("count companies failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "failed to retrieve company statistics")
		return
	}
	if companies == nil {
		companies = []*models.CompanyStats{}
	}
	s.respondJSON(w, http.StatusOK, &models.CompanyList{
		Companies:      companies,
		TotalCompanies: total,
	})
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	s.handleExport(w, r, "csv")
}

func (s *Server) handleExportExcel(w http.ResponseWriter, r *http.Request) {
	s.handleExport(w, r, "xlsx")
}

// handleExport renders the filtered corpus as a downloadable file. The file
// is built in memory first so a render failure can still answer 500.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request, format string) {
	filter, err := listFilterFromQuery(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	includeSummary := r.URL.Query().Get("include_summary") == "true"

	crls, err := s.storage.AllCRLs(r.Context(), filter, s.config.Export.MaxRows)
	if err != nil {
		s.logger.Error("export query failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "export failed")
		return
	}
	if len(crls) == 0 {
		s.respondError(w, http.StatusNotFound, "no CRLs found matching the specified criteria")
		return
	}

	var summaries map[string]*models.Summary
	if includeSummary {
		ids := make([]string, len(crls))
		for i, crl := range crls {
			ids[i] = crl.ID
		}
		if summaries, err = s.storage.GetSummariesByIDs(r.Context(), ids); err != nil {
			s.logger.Error("export summaries failed", zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, "export failed")
			return
		}
	}

	var buf bytes.Buffer
	var contentType string
	switch format {
	case "csv":
		contentType = "text/csv"
		err = export.WriteCSV(&buf, crls, summaries, includeSummary)
	default:
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
		err = export.WriteExcel(&buf, crls, summaries, includeSummary)
	}
	if err != nil {
		s.logger.Error("export render failed", zap.String("format", format), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "export failed")
		return
	}

	s.logger.Info("export generated",
		zap.String("format", format),
		zap.Int("rows", len(crls)),
		zap.Int("bytes", buf.Len()))
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", "attachment; filename="+export.Filename(format))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	if s.rag == nil {
		s.respondError(w, http.StatusServiceUnavailable, "AI features are not configured")
		return
	}
	var req models.QARequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.logger.Debug("qa request", zap.String("question", utils.Truncate(req.Question, 100)), zap.Int("top_k", req.TopK))
	response, err := s.rag.Ask(r.Context(), req.Question, req.TopK)
	if err != nil {
		s.logger.Error("question answering failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "failed to process question")
		return
	}
	s.respondJSON(w, http.StatusOK, response)
}

func (s *Server) handleQAHistory(w http.ResponseWriter, r *http.Request) {
	if s.rag == nil {
		s.respondError(w, http.StatusServiceUnavailable, "AI features are not configured")
		return
	}
	limit, err := intParam(r.URL.Query(), "limit")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	records, err := s.rag.History(r.Context(), limit)
	if err != nil {
		s.logger.Error("qa history failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "failed to retrieve Q&A history")
		return
	}
	if records == nil {
		records = []*models.QARecord{}
	}
	s.respondJSON(w, http.StatusOK, &models.QAHistory{Items: records, Total: len(records)})
}

// listFilterFromQuery builds a validated ListFilter from URL query params.
func listFilterFromQuery(r *http.Request) (*models.ListFilter, error) {
	q := r.URL.Query()
	filter := &models.ListFilter{
		ApprovalStatus:      q.Get("approval_status"),
		LetterType:          q.Get("letter_type"),
		ApplicationType:     q.Get("application_type"),
		TherapeuticCategory: q.Get("therapeutic_category"),
		DeficiencyReason:    q.Get("deficiency_reason"),
		CompanyName:         q.Get("company_name"),
		SearchText:          q.Get("search_text"),
		SortBy:              q.Get("sort_by"),
		SortOrder:           q.Get("sort_order"),
	}
	var err error
	if filter.LetterYear, err = intParam(q, "letter_year"); err != nil {
		return nil, err
	}
	if filter.Limit, err = intParam(q, "limit"); err != nil {
		return nil, err
	}
	if filter.Offset, err = intParam(q, "offset"); err != nil {
		return nil, err
	}
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	return filter, nil
}

// intParam parses an optional integer query parameter, zero when absent.
func intParam(q url.Values, name string) (int, error) {
	raw := q.Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", name, raw)
	}
	return n, nil
}
