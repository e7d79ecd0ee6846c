package audit

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFileLogger(t *testing.T) (*FileLogger, string) {
	t.Helper()
	logPath := filepath.Join(t.TempDir(), "audit.log")

	logger, err := NewFileLogger(&Config{
		Enabled:  true,
		Identity: "test-identity",
		Type:     FileAuditType,
		Options:  map[string]interface{}{"file_path": logPath},
	})
	require.NoError(t, err)
	t.Cleanup(func() { logger.Close() })
	return logger, logPath
}

func TestFileLoggerRequiresPath(t *testing.T) {
	_, err := NewFileLogger(&Config{Enabled: true, Type: FileAuditType})
	assert.Error(t, err)
}

func TestFileLoggerLogAndQuery(t *testing.T) {
	logger, _ := newTestFileLogger(t)

	require.NoError(t, logger.Log("INITIALIZE_COMPLETED", true, map[string]interface{}{
		"request_id": "r_123",
	}))
	require.NoError(t, logger.Log("SAVE_STATE_COMPLETED", false, map[string]interface{}{
		"error": "store unreachable",
	}))

	result, err := logger.Query(QueryOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, result.TotalCount)

	assert.Equal(t, "SAVE_STATE_COMPLETED", result.Events[0].Action, "newest first")
	assert.Equal(t, "r_123", result.Events[1].RequestID)
	assert.Equal(t, "test-identity", result.Events[0].Identity)
}

func TestFileLoggerQueryFilters(t *testing.T) {
	logger, _ := newTestFileLogger(t)

	require.NoError(t, logger.Log("A", true, nil))
	require.NoError(t, logger.Log("B", false, nil))
	require.NoError(t, logger.Log("A", false, nil))

	byAction, err := logger.Query(QueryOptions{Action: "A"})
	require.NoError(t, err)
	assert.Equal(t, 2, byAction.Filtered)

	failed := false
	byOutcome, err := logger.Query(QueryOptions{Success: &failed})
	require.NoError(t, err)
	assert.Equal(t, 2, byOutcome.Filtered)

	limited, err := logger.Query(QueryOptions{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited.Events, 1)
	assert.True(t, limited.HasMore)

	future := time.Now().Add(time.Hour)
	none, err := logger.Query(QueryOptions{Since: &future})
	require.NoError(t, err)
	assert.Zero(t, none.Filtered)
}

func TestFileLoggerRotation(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "audit.log")

	logger, err := NewFileLogger(&Config{
		Enabled:  true,
		Identity: "rotating",
		Type:     FileAuditType,
		Options: map[string]interface{}{
			"file_path":   logPath,
			"max_backups": 2,
		},
	})
	require.NoError(t, err)
	defer logger.Close()

	// Force the size threshold to zero so every write rotates.
	logger.fileOpts.MaxSize = 0

	for i := 0; i < 5; i++ {
		require.NoError(t, logger.Log("ROTATE_ME", true, nil))
	}

	backups, err := filepath.Glob(logPath + ".*")
	require.NoError(t, err)
	assert.LessOrEqual(t, len(backups), 2, "old backups pruned")

	// Events spread across rotated files are still queryable.
	result, err := logger.Query(QueryOptions{Action: "ROTATE_ME"})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, result.Filtered, 2)
}

func TestFileLoggerQueryAfterReopen(t *testing.T) {
	logger, logPath := newTestFileLogger(t)
	require.NoError(t, logger.Log("PERSISTED", true, nil))
	require.NoError(t, logger.Close())

	reopened, err := NewFileLogger(&Config{
		Enabled:  true,
		Identity: "test-identity",
		Type:     FileAuditType,
		Options:  map[string]interface{}{"file_path": logPath},
	})
	require.NoError(t, err)
	defer reopened.Close()

	result, err := reopened.Query(QueryOptions{Action: "PERSISTED"})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Filtered)
}

func TestNewLoggerFactory(t *testing.T) {
	disabled, err := NewLogger(&Config{Enabled: false})
	require.NoError(t, err)
	assert.IsType(t, &NoOpLogger{}, disabled)

	nilConfig, err := NewLogger(nil)
	require.NoError(t, err)
	assert.IsType(t, &NoOpLogger{}, nilConfig)

	_, err = NewLogger(&Config{Enabled: true, Type: "bogus"})
	assert.Error(t, err)

	logPath := filepath.Join(t.TempDir(), "audit.log")
	file, err := NewLogger(&Config{
		Enabled: true,
		Type:    FileAuditType,
		Options: map[string]interface{}{"file_path": logPath},
	})
	require.NoError(t, err)
	assert.IsType(t, &FileLogger{}, file)
	require.NoError(t, file.Close())

	_, err = os.Stat(logPath)
	assert.NoError(t, err)
}
