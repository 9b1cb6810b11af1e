package database

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"amenityhub/internal/config"
	"amenityhub/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackupService(t *testing.T) {
	tempDir := t.TempDir()
	dbPath := filepath.Join(tempDir, "source.db")
	storagePath := filepath.Join(tempDir, "backups")

	logger := zerolog.Nop()
	db, err := NewDB(dbPath, &logger)
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	require.NoError(t, db.UpsertResource(ctx, &models.Resource{ID: "gym", Name: "Gym", Active: true}))

	cfg := config.BackupConfig{
		Enabled:       true,
		StoragePath:   storagePath,
		RetentionDays: 1,
	}
	s := NewBackupService(db, dbPath, cfg, &logger)

	t.Run("PerformBackup", func(t *testing.T) {
		path, err := s.PerformBackup(ctx)
		require.NoError(t, err)
		assert.FileExists(t, path)

		snapshot, err := NewDB(path, &logger)
		require.NoError(t, err)
		defer snapshot.Close()
		res, err := snapshot.GetResource(ctx, "gym")
		require.NoError(t, err)
		assert.Equal(t, "Gym", res.Name)
	})

	t.Run("CleanupOldBackups", func(t *testing.T) {
		oldFile := filepath.Join(storagePath, backupPrefix+"old.db")
		require.NoError(t, os.WriteFile(oldFile, []byte("old"), 0o644))
		foreign := filepath.Join(storagePath, "notes.txt")
		require.NoError(t, os.WriteFile(foreign, []byte("keep"), 0o644))

		oldTime := time.Now().AddDate(0, 0, -2)
		require.NoError(t, os.Chtimes(oldFile, oldTime, oldTime))
		require.NoError(t, os.Chtimes(foreign, oldTime, oldTime))

		assert.Equal(t, 1, s.CleanupOldBackups())
		assert.NoFileExists(t, oldFile)
		assert.FileExists(t, foreign)
	})
}

func TestBackupService_Disabled(t *testing.T) {
	logger := zerolog.Nop()
	s := NewBackupService(nil, "any", config.BackupConfig{Enabled: false}, &logger)

	done := make(chan struct{})
	go func() {
		s.Start(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("disabled backup service should return immediately")
	}
}

func TestBackupService_Interval(t *testing.T) {
	logger := zerolog.Nop()
	s := NewBackupService(nil, "", config.BackupConfig{Schedule: "6h"}, &logger)
	assert.Equal(t, 6*time.Hour, s.interval())

	s.config.Schedule = "weekly"
	assert.Equal(t, 24*time.Hour, s.interval())
}
