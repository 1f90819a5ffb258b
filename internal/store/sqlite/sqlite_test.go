package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/uabbasi/good-measure-giving/internal/metrics"
	"github.com/uabbasi/good-measure-giving/internal/store"
)

// newTestStore opens a fresh database in a temp directory with the schema
// applied. The store closes itself when the test finishes.
func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(s.Close)

	require.NoError(t, s.EnsureSchema(context.Background()))
	return s
}

func TestOpenCreatesDatabase(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "giving.db")

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Ping(context.Background()))
	_, err = os.Stat(path)
	require.NoError(t, err)
}

func TestEnsureSchemaIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.EnsureSchema(context.Background()))
	require.NoError(t, s.EnsureSchema(context.Background()))
}

func TestDriverErrorsAreCounted(t *testing.T) {
	s := newTestStore(t)
	s.Close()

	before := testutil.ToFloat64(metrics.StoreErrors.WithLabelValues("get user"))

	_, err := s.GetUser(context.Background(), uuid.New())
	require.Error(t, err)
	require.NotErrorIs(t, err, store.ErrNotFound)

	after := testutil.ToFloat64(metrics.StoreErrors.WithLabelValues("get user"))
	require.Equal(t, before+1, after)
}
