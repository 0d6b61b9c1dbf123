// Package memory provides an in-process report repository for tests and
// local runs.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/placelens/placelens/internal/report"
)

// ReportStore keeps stores and reports in maps. It enforces the same
// monotonic status transitions as the Postgres implementation.
type ReportStore struct {
	mu           sync.Mutex
	clock        report.Clock
	stores       map[int64]*report.Store
	storesByName map[string]int64
	reports      map[int64]*report.Report
	nextStoreID  int64
	nextReportID int64
}

// New creates an empty store using the provided clock.
func New(clock report.Clock) *ReportStore {
	return &ReportStore{
		clock:        clock,
		stores:       map[int64]*report.Store{},
		storesByName: map[string]int64{},
		reports:      map[int64]*report.Report{},
	}
}

// CreateStoreIfAbsent returns the store with the given name, creating it on
// first reference.
func (s *ReportStore) CreateStoreIfAbsent(_ context.Context, name string) (report.Store, error) {
	if name == "" {
		return report.Store{}, fmt.Errorf("store name is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.storesByName[name]; ok {
		return *s.stores[id], nil
	}
	s.nextStoreID++
	now := s.clock.Now()
	st := &report.Store{
		ID:        s.nextStoreID,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.stores[st.ID] = st
	s.storesByName[name] = st.ID
	return *st, nil
}

// CreateReport inserts a report in PROGRESS.
func (s *ReportStore) CreateReport(_ context.Context, memberID, storeID int64) (report.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.stores[storeID]; !ok {
		return report.Report{}, fmt.Errorf("create report: %w", report.ErrStoreNotFound)
	}
	s.nextReportID++
	rp := &report.Report{
		ID:        s.nextReportID,
		MemberID:  memberID,
		StoreID:   storeID,
		Status:    report.StatusProgress,
		CreatedAt: s.clock.Now(),
	}
	s.reports[rp.ID] = rp
	return *rp, nil
}

// AttachPlaceID sets the resolved place id on the report's store.
func (s *ReportStore) AttachPlaceID(_ context.Context, reportID int64, placeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rp, ok := s.reports[reportID]
	if !ok {
		return fmt.Errorf("attach place id for report %d: %w", reportID, report.ErrNotFound)
	}
	st := s.stores[rp.StoreID]
	st.PlaceID = placeID
	st.UpdatedAt = s.clock.Now()
	return nil
}

// CompleteReport writes the summary fields and the COMPLETED status.
func (s *ReportStore) CompleteReport(
	_ context.Context,
	reportID int64,
	placeID string,
	analysis report.Analysis,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rp, ok := s.reports[reportID]
	if !ok || rp.Status != report.StatusProgress {
		return fmt.Errorf("complete report %d not in progress: %w", reportID, report.ErrNotFound)
	}
	st := s.stores[rp.StoreID]
	st.PlaceID = placeID
	st.UpdatedAt = s.clock.Now()

	rp.TotalReviewCount = analysis.TotalReviews
	rp.AverageReviewRate = analysis.AverageRating
	rp.PopularKeywords = analysis.Keywords
	result := analysis
	rp.AnalyticsResult = &result
	rp.Status = report.StatusCompleted
	return nil
}

// UpdateStatus moves an in-progress report to status.
func (s *ReportStore) UpdateStatus(_ context.Context, reportID int64, status report.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rp, ok := s.reports[reportID]
	if !ok || rp.Status != report.StatusProgress {
		return fmt.Errorf("update status of report %d: %w", reportID, report.ErrNotFound)
	}
	rp.Status = status
	return nil
}

// GetReport returns report.ErrNotFound when the id is unknown.
func (s *ReportStore) GetReport(_ context.Context, reportID int64) (report.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rp, ok := s.reports[reportID]
	if !ok {
		return report.Report{}, report.ErrNotFound
	}
	return *rp, nil
}

// ListByMember returns the member's reports, newest first; anonymous
// reports are excluded.
func (s *ReportStore) ListByMember(_ context.Context, memberID int64) ([]report.Report, error) {
	if memberID == report.AnonymousMember {
		return []report.Report{}, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	reports := []report.Report{}
	for _, rp := range s.reports {
		if rp.MemberID == memberID {
			reports = append(reports, *rp)
		}
	}
	sort.Slice(reports, func(i, j int) bool { return reports[i].ID > reports[j].ID })
	return reports, nil
}

// GetStore exposes store rows for assertions in tests.
func (s *ReportStore) GetStore(_ context.Context, storeID int64) (report.Store, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.stores[storeID]
	if !ok {
		return report.Store{}, report.ErrStoreNotFound
	}
	return *st, nil
}
