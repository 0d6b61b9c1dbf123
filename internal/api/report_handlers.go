package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/placelens/placelens/internal/report"
)

type submitReportRequest struct {
	StoreName string `json:"store_name"`
}

// reportView is the wire shape of a report row.
type reportView struct {
	ID                int64            `json:"report_id"`
	StoreID           int64            `json:"store_id"`
	Status            string           `json:"status"`
	TotalReviewCount  int              `json:"total_review_count"`
	AverageReviewRate float64          `json:"average_review_rate"`
	PopularKeywords   map[string]int   `json:"popular_keywords,omitempty"`
	AnalyticsResult   *report.Analysis `json:"analytics_result,omitempty"`
	CreatedAt         time.Time        `json:"created_at"`
}

func toReportView(rp report.Report) reportView {
	return reportView{
		ID:                rp.ID,
		StoreID:           rp.StoreID,
		Status:            string(rp.Status),
		TotalReviewCount:  rp.TotalReviewCount,
		AverageReviewRate: rp.AverageReviewRate,
		PopularKeywords:   rp.PopularKeywords,
		AnalyticsResult:   rp.AnalyticsResult,
		CreatedAt:         rp.CreatedAt,
	}
}

// submitReport accepts a job, responds immediately with the report id, and
// runs the pipeline on a detached goroutine. The job context deliberately
// survives the request: clients poll or follow the bus, they do not hold
// the connection open.
func (s *Server) submitReport(w http.ResponseWriter, r *http.Request) {
	var req submitReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.StoreName == "" {
		writeError(w, http.StatusBadRequest, "store_name is required")
		return
	}
	memberID := s.members.FromRequest(r)

	reportID, err := s.orch.CreateJob(r.Context(), memberID, req.StoreName)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create report")
		s.logger.Error("create report job", zap.Error(err))
		return
	}

	jobCtx := context.WithoutCancel(r.Context())
	s.jobs.Add(1)
	go func() {
		defer s.jobs.Done()
		if _, err := s.orch.RunJob(jobCtx, memberID, reportID, req.StoreName); err != nil {
			// Already finalized and logged by the orchestrator.
			return
		}
	}()

	writeData(w, http.StatusAccepted, map[string]int64{"report_id": reportID})
}

func (s *Server) getReport(w http.ResponseWriter, r *http.Request) {
	reportID, err := strconv.ParseInt(chi.URLParam(r, "report_id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid report id")
		return
	}
	rp, err := s.repo.GetReport(r.Context(), reportID)
	if errors.Is(err, report.ErrNotFound) {
		writeError(w, http.StatusNotFound, "report not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to fetch report")
		s.logger.Error("get report", zap.Int64("report_id", reportID), zap.Error(err))
		return
	}
	writeData(w, http.StatusOK, toReportView(rp))
}

// listReports returns the requesting member's reports, newest first. An
// anonymous request gets an empty list, not an error.
func (s *Server) listReports(w http.ResponseWriter, r *http.Request) {
	memberID := s.members.FromRequest(r)
	reports, err := s.repo.ListByMember(r.Context(), memberID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list reports")
		s.logger.Error("list reports", zap.Int64("member_id", memberID), zap.Error(err))
		return
	}
	views := make([]reportView, 0, len(reports))
	for _, rp := range reports {
		views = append(views, toReportView(rp))
	}
	writeData(w, http.StatusOK, views)
}
