package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/placelens/placelens/internal/report"
)

func TestCreateStoreIfAbsentReturnsExistingRow(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewReportStoreWithDB(mock)
	require.NoError(t, err)

	now := time.Unix(1700000000, 0).UTC()
	mock.ExpectQuery("INSERT INTO store").
		WithArgs("스타벅스 정자동점").
		WillReturnRows(pgxmock.
			NewRows([]string{"store_id", "place_id", "name", "created_at", "updated_at"}).
			AddRow(int64(3), "1997987484", "스타벅스 정자동점", now, now))

	st, err := store.CreateStoreIfAbsent(context.Background(), "스타벅스 정자동점")
	require.NoError(t, err)
	require.Equal(t, int64(3), st.ID)
	require.Equal(t, "1997987484", st.PlaceID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateReportStartsInProgress(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewReportStoreWithDB(mock)
	require.NoError(t, err)

	now := time.Unix(1700000000, 0).UTC()
	mock.ExpectQuery("INSERT INTO report").
		WithArgs(int64(7), int64(3), report.StatusProgress).
		WillReturnRows(pgxmock.NewRows([]string{"report_id", "created_at"}).AddRow(int64(42), now))

	rp, err := store.CreateReport(context.Background(), 7, 3)
	require.NoError(t, err)
	require.Equal(t, int64(42), rp.ID)
	require.Equal(t, report.StatusProgress, rp.Status)
	require.Zero(t, rp.TotalReviewCount)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCompleteReportSingleTransaction(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewReportStoreWithDB(mock)
	require.NoError(t, err)

	analysis := report.Analysis{TotalReviews: 12, AverageRating: 4.5, Keywords: map[string]int{}}

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE store").
		WithArgs(int64(42), "1997987484").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("UPDATE report").
		WithArgs(
			int64(42),
			12,
			4.5,
			[]byte(`{}`),
			[]byte(`{"total_reviews":12,"average_rating":4.5,"keywords":{}}`),
			report.StatusCompleted,
			report.StatusProgress,
		).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	err = store.CompleteReport(context.Background(), 42, "1997987484", analysis)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCompleteReportRejectsTerminalRow(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewReportStoreWithDB(mock)
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE store").
		WithArgs(int64(42), "1997987484").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("UPDATE report").
		WithArgs(
			int64(42),
			0,
			float64(0),
			[]byte(`{}`),
			[]byte(`{"total_reviews":0,"average_rating":0,"keywords":{}}`),
			report.StatusCompleted,
			report.StatusProgress,
		).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectRollback()

	err = store.CompleteReport(context.Background(), 42, "1997987484", report.Analysis{Keywords: map[string]int{}})
	require.ErrorIs(t, err, report.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStatusOnlyTouchesInProgressRows(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewReportStoreWithDB(mock)
	require.NoError(t, err)

	mock.ExpectExec("UPDATE report SET status").
		WithArgs(int64(42), report.StatusFailed, report.StatusProgress).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, store.UpdateStatus(context.Background(), 42, report.StatusFailed))

	mock.ExpectExec("UPDATE report SET status").
		WithArgs(int64(42), report.StatusFailed, report.StatusProgress).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err = store.UpdateStatus(context.Background(), 42, report.StatusFailed)
	require.ErrorIs(t, err, report.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetReportNotFound(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewReportStoreWithDB(mock)
	require.NoError(t, err)

	mock.ExpectQuery("SELECT").
		WithArgs(int64(999)).
		WillReturnRows(pgxmock.NewRows([]string{"report_id"}))

	_, err = store.GetReport(context.Background(), 999)
	require.ErrorIs(t, err, report.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListByMemberSkipsAnonymous(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewReportStoreWithDB(mock)
	require.NoError(t, err)

	// No query expectation registered: anonymous must short-circuit.
	reports, err := store.ListByMember(context.Background(), report.AnonymousMember)
	require.NoError(t, err)
	require.Empty(t, reports)
	require.NoError(t, mock.ExpectationsWereMet())
}
