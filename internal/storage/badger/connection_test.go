package badger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/reportrelay/internal/common"
	"github.com/ternarybob/reportrelay/internal/models"
)

func TestOpen_CreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "runs")

	db, err := Open(common.BadgerConfig{Path: path}, arbor.NewLogger())
	require.NoError(t, err)
	defer db.Close()

	assert.Equal(t, path, db.Path())
	assert.True(t, isBadgerDir(path))
}

func TestOpen_InMemory(t *testing.T) {
	db, err := Open(common.BadgerConfig{Path: "ignored", InMemory: true, ResetOnStartup: true}, arbor.NewLogger())
	require.NoError(t, err)
	defer db.Close()

	assert.Equal(t, "", db.Path())
	require.NoError(t, db.Store().Insert("run-1", &models.RunRecord{ID: "run-1"}))
}

func TestOpen_ResetDeletesExistingHistory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs")
	cfg := common.BadgerConfig{Path: path}

	db, err := Open(cfg, arbor.NewLogger())
	require.NoError(t, err)
	require.NoError(t, db.Store().Insert("run-1", &models.RunRecord{ID: "run-1"}))
	require.NoError(t, db.Close())

	cfg.ResetOnStartup = true
	db, err = Open(cfg, arbor.NewLogger())
	require.NoError(t, err)
	defer db.Close()

	var runs []models.RunRecord
	require.NoError(t, db.Store().Find(&runs, nil))
	assert.Empty(t, runs)
}

func TestOpen_ResetRefusesForeignDirectory(t *testing.T) {
	path := t.TempDir()
	keep := filepath.Join(path, "notes.txt")
	require.NoError(t, os.WriteFile(keep, []byte("keep me"), 0644))

	_, err := Open(common.BadgerConfig{Path: path, ResetOnStartup: true}, arbor.NewLogger())

	require.ErrorIs(t, err, ErrUnsafeReset)
	assert.FileExists(t, keep)
}
