package database

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"shareit/internal/config"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackupService(t *testing.T) {
	tempDir := t.TempDir()
	storagePath := filepath.Join(tempDir, "backups")

	logger := zerolog.Nop()
	db, err := NewDB(filepath.Join(tempDir, "source.db"), &logger)
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	createUser(t, db, "Backup", "backup@example.com")

	cfg := config.BackupConfig{
		Enabled:       true,
		StoragePath:   storagePath,
		RetentionDays: 1,
	}
	s := NewBackupService(db, cfg, &logger)

	t.Run("PerformBackup", func(t *testing.T) {
		path, err := s.PerformBackup(ctx)
		require.NoError(t, err)
		assert.FileExists(t, path)

		snapshot, err := sql.Open("sqlite3", path)
		require.NoError(t, err)
		defer snapshot.Close()

		var count int
		require.NoError(t, snapshot.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&count))
		assert.Equal(t, 1, count)
	})

	t.Run("CleanupOldBackups", func(t *testing.T) {
		oldFile := filepath.Join(storagePath, backupPrefix+"old.db")
		require.NoError(t, os.WriteFile(oldFile, []byte("old"), 0o644))
		unrelated := filepath.Join(storagePath, "notes.txt")
		require.NoError(t, os.WriteFile(unrelated, []byte("keep"), 0o644))

		oldTime := time.Now().AddDate(0, 0, -2)
		require.NoError(t, os.Chtimes(oldFile, oldTime, oldTime))
		require.NoError(t, os.Chtimes(unrelated, oldTime, oldTime))

		assert.Equal(t, 1, s.CleanupOldBackups())

		assert.NoFileExists(t, oldFile)
		assert.FileExists(t, unrelated)
	})
}

func TestBackupService_Disabled(_ *testing.T) {
	logger := zerolog.Nop()
	s := NewBackupService(nil, config.BackupConfig{Enabled: false}, &logger)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s.Start(ctx)
}

func TestBackupService_StopsOnCancel(t *testing.T) {
	logger := zerolog.Nop()
	db, err := NewDB(filepath.Join(t.TempDir(), "source.db"), &logger)
	require.NoError(t, err)
	defer db.Close()

	storage := filepath.Join(t.TempDir(), "backups")
	s := NewBackupService(db, config.BackupConfig{Enabled: true, Schedule: "1h", StoragePath: storage}, &logger)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		files, _ := os.ReadDir(storage)
		return len(files) == 1
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("backup service did not stop")
	}
}
