package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileMonitorTriggersOnWatchedFile(t *testing.T) {
	dir := t.TempDir()
	monitor, err := NewFileMonitor(dir, 50*time.Millisecond, "train.csv", "test.csv")
	require.NoError(t, err)
	defer monitor.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	calls := make(chan string, 4)
	done := make(chan error, 1)
	go func() {
		done <- monitor.Watch(ctx, func(name string) { calls <- name })
	}()

	// 不关注的文件不触发
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644))
	target := filepath.Join(dir, "train.csv")
	require.NoError(t, os.WriteFile(target, []byte("PassengerId\n1\n"), 0644))

	select {
	case name := <-calls:
		assert.Equal(t, target, name)
	case <-time.After(5 * time.Second):
		t.Fatal("handler was not called")
	}
	assert.Equal(t, target, monitor.LastFile())

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}

func TestNewFileMonitorMissingDir(t *testing.T) {
	_, err := NewFileMonitor(filepath.Join(t.TempDir(), "absent"), time.Second)
	assert.Error(t, err)
}
