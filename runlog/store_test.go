package runlog

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"

	"github.com/quantfold/countfit/dataset"
	"github.com/quantfold/countfit/errs"
	"github.com/quantfold/countfit/poisson"
	"github.com/quantfold/countfit/simulate"
)

func testSetup(t *testing.T) *Store {
	t.Helper()

	store, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return store
}

func testFit(t *testing.T, seed uint64) (*poisson.Results, *dataset.Dataset) {
	t.Helper()

	ds, err := simulate.Poisson(simulate.Config{
		NObs: 120,
		Beta: []float64{0.4, 0.6, -0.4},
		Seed: seed,
	})
	require.NoError(t, err)

	names := []string{"const", "x1", "x2"}
	y, x, err := ds.Design("y", names)
	require.NoError(t, err)
	m, err := poisson.NewModel(y, x, names)
	require.NoError(t, err)
	res, err := m.Fit()
	require.NoError(t, err)

	return res, ds
}

func TestNewEntry(t *testing.T) {
	res, ds := testFit(t, 301)

	e := NewEntry(res, ds, "baseline fit")

	require.Equal(t, fmt.Sprintf("%016x", ds.Fingerprint()), e.DatasetHash)
	require.Equal(t, res.NumObs(), e.NObs)
	require.Equal(t, res.NumParams(), e.NParams)
	require.Equal(t, res.LogLike(), e.LogLike)
	require.Equal(t, res.AIC(), e.AIC)
	require.Equal(t, res.BIC(), e.BIC)
	require.True(t, e.Converged)
	require.Equal(t, "baseline fit", e.Note)

	for i, name := range res.Model().Names() {
		require.Equal(t, res.Params()[i], e.Params[name])
	}

	// No dataset, no fingerprint.
	bare := NewEntry(res, nil, "")
	require.Empty(t, bare.DatasetHash)
}

func TestRecordFillsIdentity(t *testing.T) {
	store := testSetup(t)
	res, ds := testFit(t, 302)

	e := NewEntry(res, ds, "")
	require.Empty(t, e.ID)
	require.True(t, e.CreatedAt.IsZero())

	before := time.Now().UTC()
	require.NoError(t, store.Record(context.Background(), e))

	_, err := uuid.Parse(e.ID)
	require.NoError(t, err)
	require.False(t, e.CreatedAt.IsZero())
	require.False(t, e.CreatedAt.Before(before))
}

func TestGetRoundTrip(t *testing.T) {
	store := testSetup(t)
	ctx := context.Background()
	res, ds := testFit(t, 303)

	e := NewEntry(res, ds, "walkthrough §3")
	require.NoError(t, store.Record(ctx, e))

	got, err := store.Get(ctx, e.ID)
	require.NoError(t, err)

	require.Equal(t, e.ID, got.ID)
	require.True(t, got.CreatedAt.Equal(e.CreatedAt))
	require.Equal(t, e.DatasetHash, got.DatasetHash)
	require.Equal(t, e.NObs, got.NObs)
	require.Equal(t, e.NParams, got.NParams)
	require.Equal(t, e.Params, got.Params)
	require.Equal(t, e.LogLike, got.LogLike)
	require.Equal(t, e.AIC, got.AIC)
	require.Equal(t, e.BIC, got.BIC)
	require.Equal(t, e.Converged, got.Converged)
	require.Equal(t, e.Note, got.Note)
}

func TestGetNotFound(t *testing.T) {
	store := testSetup(t)

	_, err := store.Get(context.Background(), uuid.NewString())
	require.ErrorIs(t, err, errs.ErrRunNotFound)
}

func TestListNewestFirst(t *testing.T) {
	store := testSetup(t)
	ctx := context.Background()
	res, ds := testFit(t, 304)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	var ids []string
	for i := 0; i < 3; i++ {
		e := NewEntry(res, ds, fmt.Sprintf("run %d", i))
		e.CreatedAt = base.Add(time.Duration(i) * time.Hour)
		require.NoError(t, store.Record(ctx, e))
		ids = append(ids, e.ID)
	}

	all, err := store.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, ids[2], all[0].ID)
	require.Equal(t, ids[1], all[1].ID)
	require.Equal(t, ids[0], all[2].ID)

	top, err := store.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, top, 2)
	require.Equal(t, ids[2], top[0].ID)
	require.Equal(t, ids[1], top[1].ID)
}

func TestExportYAML(t *testing.T) {
	store := testSetup(t)
	ctx := context.Background()
	res, ds := testFit(t, 305)

	e := NewEntry(res, ds, "for export")
	require.NoError(t, store.Record(ctx, e))

	var buf bytes.Buffer
	require.NoError(t, store.ExportYAML(ctx, &buf))

	text := buf.String()
	require.Contains(t, text, "runs:")
	require.Contains(t, text, e.ID)
	require.Contains(t, text, e.DatasetHash)
	require.Contains(t, text, "for export")

	var decoded struct {
		Runs []Entry `yaml:"runs"`
	}
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded.Runs, 1)
	require.Equal(t, e.ID, decoded.Runs[0].ID)
	require.Equal(t, e.Params, decoded.Runs[0].Params)
}
