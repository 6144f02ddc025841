package received

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yudhap/lanflow/internal/metrics"
)

func TestRegistry(t *testing.T) {
	t.Run("add and list", func(t *testing.T) {
		r := NewRegistry()
		r.Add(File{Name: "a.txt", Path: "/tmp/a", Size: 10, ReceivedAt: time.Now()})
		r.Add(File{Name: "b.txt", Path: "/tmp/b", Size: 20, ReceivedAt: time.Now()})

		files := r.List()
		require.Len(t, files, 2)
		assert.Equal(t, "a.txt", files[0].Name)
		assert.Equal(t, "b.txt", files[1].Name)
	})

	t.Run("list returns a copy", func(t *testing.T) {
		r := NewRegistry()
		r.Add(File{Name: "a.txt", Path: "/tmp/a"})

		files := r.List()
		files[0].Name = "mutated"

		assert.Equal(t, "a.txt", r.List()[0].Name)
	})

	t.Run("remove by path", func(t *testing.T) {
		r := NewRegistry()
		r.Add(File{Name: "a.txt", Path: "/tmp/a"})

		assert.True(t, r.Remove("/tmp/a"))
		assert.False(t, r.Remove("/tmp/a"))
		assert.Equal(t, 0, r.Count())
	})

	t.Run("remove older than", func(t *testing.T) {
		r := NewRegistry()
		old := time.Now().Add(-2 * time.Hour)
		r.Add(File{Name: "old.txt", Path: "/tmp/old", ReceivedAt: old})
		r.Add(File{Name: "new.txt", Path: "/tmp/new", ReceivedAt: time.Now()})

		dropped := r.RemoveOlderThan(time.Now().Add(-time.Hour))
		require.Len(t, dropped, 1)
		assert.Equal(t, "old.txt", dropped[0].Name)
		assert.Equal(t, 1, r.Count())
	})
}

func TestCleanupWatcherPrunesRemovedFiles(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "1700000000000-a.txt")
	require.NoError(t, os.WriteFile(path, []byte("data"), 0644))

	registry := NewRegistry()
	registry.Add(File{Name: "a.txt", Path: path, Size: 4, ReceivedAt: time.Now()})

	c := NewCleanup(registry, tmpDir, "@hourly", 0, zerolog.Nop(), metrics.NewMetrics())
	require.NoError(t, c.Start())
	defer c.Stop()

	require.NoError(t, os.Remove(path))

	assert.Eventually(t, func() bool {
		return registry.Count() == 0
	}, 2*time.Second, 20*time.Millisecond)
}

func TestCleanupPruneAged(t *testing.T) {
	tmpDir := t.TempDir()
	oldPath := filepath.Join(tmpDir, "old.txt")
	newPath := filepath.Join(tmpDir, "new.txt")
	require.NoError(t, os.WriteFile(oldPath, []byte("old"), 0644))
	require.NoError(t, os.WriteFile(newPath, []byte("new"), 0644))

	registry := NewRegistry()
	registry.Add(File{Name: "old.txt", Path: oldPath, ReceivedAt: time.Now().Add(-48 * time.Hour)})
	registry.Add(File{Name: "new.txt", Path: newPath, ReceivedAt: time.Now()})

	c := NewCleanup(registry, tmpDir, "@hourly", 24*time.Hour, zerolog.Nop(), metrics.NewMetrics())
	c.pruneAged()

	assert.Equal(t, 1, registry.Count())
	_, err := os.Stat(oldPath)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(newPath)
	assert.NoError(t, err)
}

func TestCleanupPruneAgedDisabled(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "old.txt")
	require.NoError(t, os.WriteFile(path, []byte("old"), 0644))

	registry := NewRegistry()
	registry.Add(File{Name: "old.txt", Path: path, ReceivedAt: time.Now().Add(-8760 * time.Hour)})

	// Max age 0 keeps files forever, however old
	c := NewCleanup(registry, tmpDir, "@hourly", 0, zerolog.Nop(), metrics.NewMetrics())
	c.pruneAged()

	assert.Equal(t, 1, registry.Count())
	_, err := os.Stat(path)
	assert.NoError(t, err)
}

func TestCleanupInvalidSchedule(t *testing.T) {
	tmpDir := t.TempDir()
	c := NewCleanup(NewRegistry(), tmpDir, "not a schedule", 0, zerolog.Nop(), metrics.NewMetrics())

	err := c.Start()
	assert.Error(t, err)
}

func TestCleanupStartStop(t *testing.T) {
	tmpDir := t.TempDir()
	c := NewCleanup(NewRegistry(), tmpDir, "@hourly", 0, zerolog.Nop(), metrics.NewMetrics())

	require.NoError(t, c.Start())
	assert.Error(t, c.Start(), "double start should fail")
	require.NoError(t, c.Stop())
	assert.Error(t, c.Stop(), "double stop should fail")
}
