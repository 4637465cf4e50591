package repository_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okian/chatrank/internal/adapters/repository"
	"github.com/okian/chatrank/internal/domain/model"
	"github.com/okian/chatrank/internal/domain/period"
	"github.com/okian/chatrank/pkg/metrics"
)

func newSQLite(t *testing.T, opts ...repository.Option) *repository.SQLiteStore {
	t.Helper()
	s, err := repository.NewSQLiteStore(filepath.Join(t.TempDir(), "chatrank.db"), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteStore_RecordAndFetch(t *testing.T) {
	ctx := context.Background()
	s := newSQLite(t)

	events := []model.Event{
		sale("s1", "red", "alice", day(2024, 3, 1), 100, 0.1),
		sale("s2", "blue", "bob", day(2024, 3, 31), 200, 0.25),
		sale("s3", "red", "alice", day(2024, 2, 29), 999, 0.1),
		hours("h1", "red", "alice", day(2024, 3, 10), 8, 12.5),
		bonus("b1", "red", "alice", day(2024, 3, 1), 50),
		bonus("b2", "blue", "bob", day(2024, 3, 2), 75),
	}
	for _, e := range events {
		require.NoError(t, s.Record(ctx, e))
	}

	march, err := period.ForMonth(time.March, 2024)
	require.NoError(t, err)

	sales, err := s.FetchSales(ctx, march, "")
	require.NoError(t, err)
	require.Len(t, sales, 2)
	assert.Equal(t, "s1", sales[0].EventID)
	assert.Equal(t, day(2024, 3, 1), sales[0].Date)
	assert.Equal(t, model.Worker{ID: "id-alice", Name: "alice"}, sales[0].Worker)
	assert.InDelta(t, 0.25, sales[1].CommissionRate, 1e-12)

	hrs, err := s.FetchHours(ctx, march, "red")
	require.NoError(t, err)
	require.Len(t, hrs, 1)
	assert.InDelta(t, 12.5, hrs[0].HourlyRate, 1e-12)

	bon, err := s.FetchBonuses(ctx, march.Start, "")
	require.NoError(t, err)
	require.Len(t, bon, 1)
	assert.Equal(t, "b1", bon[0].EventID)

	blue, err := s.FetchSales(ctx, march, "blue")
	require.NoError(t, err)
	require.Len(t, blue, 1)
	assert.Equal(t, "bob", blue[0].Worker.Name)

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(events), n)
}

func TestSQLiteStore_Idempotent(t *testing.T) {
	ctx := context.Background()
	s := newSQLite(t)

	require.NoError(t, s.Record(ctx, sale("dup", "", "alice", day(2024, 3, 1), 10, 1)))
	require.NoError(t, s.Record(ctx, sale("dup", "", "alice", day(2024, 3, 1), 5000, 1)))

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	march, _ := period.ForMonth(time.March, 2024)
	sales, err := s.FetchSales(ctx, march, "")
	require.NoError(t, err)
	require.Len(t, sales, 1)
	assert.InDelta(t, 10.0, sales[0].Gross, 1e-12)
}

func TestSQLiteStore_LocalDatesKeepTheirDay(t *testing.T) {
	ctx := context.Background()
	s := newSQLite(t)

	tz := time.FixedZone("UTC+9", 9*3600)
	// 2024-03-01 01:00 in UTC+9 is still Feb 29 in UTC; the local day is kept.
	require.NoError(t, s.Record(ctx, sale("tz", "", "alice", time.Date(2024, 3, 1, 1, 0, 0, 0, tz), 1, 1)))

	march, _ := period.ForMonth(time.March, 2024)
	sales, err := s.FetchSales(ctx, march, "")
	require.NoError(t, err)
	require.Len(t, sales, 1)
	assert.Equal(t, day(2024, 3, 1), sales[0].Date)
}

func TestSQLiteStore_Errors(t *testing.T) {
	ctx := context.Background()
	s := newSQLite(t)

	err := s.Record(ctx, model.Event{EventID: "bad", Kind: model.KindHours, Worker: model.Worker{Name: "a"}, Date: day(2024, 3, 1), Amount: -1})
	assert.True(t, errors.Is(err, repository.ErrInvalidEvent))

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	march, _ := period.ForMonth(time.March, 2024)
	_, err = s.FetchSales(cctx, march, "")
	assert.Error(t, err)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	_, err = s.FetchHours(ctx, march, "")
	assert.True(t, errors.Is(err, repository.ErrClosed))
}

func TestSQLiteStore_Reopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "reopen.db")

	s, err := repository.NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Record(ctx, bonus("b1", "", "alice", day(2024, 1, 6), 20)))
	require.NoError(t, s.Close())

	reopened, err := repository.Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	n, err := reopened.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSQLiteStore_PoolMetrics(t *testing.T) {
	m := metrics.NewManager(metrics.WithRegistry(prometheus.NewRegistry()))
	newSQLite(t, repository.WithMetrics(m), repository.WithMaxOpenConns(2))

	families, err := m.Registry().Gather()
	require.NoError(t, err)

	var found bool
	for _, f := range families {
		if f.GetName() == "go_sql_max_open_connections" {
			found = true
			assert.Equal(t, 2.0, f.GetMetric()[0].GetGauge().GetValue())
		}
	}
	assert.True(t, found, "db stats collector should be registered")
}

func TestSQLiteStore_URIPath(t *testing.T) {
	ctx := context.Background()
	path := "file:" + filepath.Join(t.TempDir(), "uri.db") + "?cache=shared"

	s, err := repository.NewSQLiteStore(path)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Record(ctx, sale("s1", "", "alice", day(2024, 3, 1), 10, 0.5)))
	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
