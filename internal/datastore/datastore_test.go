package datastore

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/snapquote/internal/conf"
	"github.com/tphakala/snapquote/internal/errors"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	settings := &conf.Settings{}
	settings.History.Enabled = true
	settings.History.Type = "sqlite"
	settings.History.SQLite.Path = filepath.Join(t.TempDir(), "nested", "history.db")

	store, ok := New(settings, nil).(*SQLiteStore)
	require.True(t, ok)
	require.NoError(t, store.Open())
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSaveAndRecent(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i, kind := range []string{KindAudio, KindDetect, KindDetect, KindAudio} {
		run := NewRun(kind, "input.bin", "model.tflite")
		run.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		run.Passes = i
		require.NoError(t, store.Save(run))
	}

	all, err := store.Recent("", 0)
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, 3, all[0].Passes, "newest first")

	detects, err := store.Recent(KindDetect, 10)
	require.NoError(t, err)
	require.Len(t, detects, 2)
	for _, r := range detects {
		assert.Equal(t, KindDetect, r.Kind)
	}

	limited, err := store.Recent("", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestSaveRoundTripsFields(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)

	run := NewRun(KindDetect, "car.jpg", "best.tflite")
	run.ConfidenceUsed = 0.05
	run.SetLabels([]string{"bumper", "door"})
	run.Result = `{"parts":["bumper","door"]}`
	run.DurationMs = 42
	run.QuoteTotal = 14175
	run.Currency = "INR"
	require.NoError(t, store.Save(run))

	got, err := store.Recent(KindDetect, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, run.ID, got[0].ID)
	assert.Equal(t, []string{"bumper", "door"}, got[0].LabelList())
	assert.InDelta(t, 0.05, got[0].ConfidenceUsed, 1e-12)
	assert.Equal(t, run.Result, got[0].Result)
	assert.Equal(t, int64(14175), got[0].QuoteTotal)
	assert.Equal(t, "INR", got[0].Currency)
	assert.False(t, got[0].CreatedAt.IsZero())

	err = store.Save(run)
	assert.True(t, errors.IsCategory(err, errors.CategoryDatabase), "duplicate id")
}

func TestStoreSelection(t *testing.T) {
	t.Parallel()

	settings := &conf.Settings{}
	assert.Nil(t, New(settings, nil))

	settings.History.Enabled = true
	settings.History.Type = "mysql"
	_, ok := New(settings, nil).(*MySQLStore)
	assert.True(t, ok)

	err := New(settings, nil).Open()
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))

	settings.History.Type = "sqlite"
	err = New(settings, nil).Open()
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
}

func TestUnopenedStore(t *testing.T) {
	t.Parallel()

	var ds DataStore
	assert.Error(t, ds.Save(NewRun(KindAudio, "a.wav", "m")))
	_, err := ds.Recent("", 5)
	assert.Error(t, err)
	assert.NoError(t, ds.Close())
}

func TestMySQLDSN(t *testing.T) {
	t.Parallel()

	dsn := mysqlDSN(conf.MySQLSettings{Host: "db", Username: "u", Password: "p", Database: "runs"})
	assert.Equal(t, "u:p@tcp(db:3306)/runs?charset=utf8mb4&parseTime=True&loc=Local", dsn)
}

func TestLabelList(t *testing.T) {
	t.Parallel()

	r := NewRun(KindAudio, "a.wav", "m")
	assert.Nil(t, r.LabelList())
	assert.Len(t, r.ID, 36)
	r.SetLabels([]string{"Normal"})
	assert.Equal(t, []string{"Normal"}, r.LabelList())
}
