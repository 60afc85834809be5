package sync

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkWindowsTileExactly(t *testing.T) {
	now := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)

	windows := chunkWindows(now, 95, 30, 0)
	require.Len(t, windows, 4)

	// Newest chunk ends at the window end, oldest starts at now-95d.
	assert.Equal(t, now, windows[0].end)
	assert.Equal(t, now.AddDate(0, 0, -95), windows[len(windows)-1].start)

	// Contiguous: no gaps, no overlaps.
	for i := 1; i < len(windows); i++ {
		assert.Equal(t, windows[i].end, windows[i-1].start)
	}

	// No chunk exceeds 30 days and only the oldest may be shorter.
	for i, w := range windows {
		days := int(w.end.Sub(w.start).Hours() / 24)
		assert.LessOrEqual(t, days, 30)
		if i < len(windows)-1 {
			assert.Equal(t, 30, days)
		}
	}
}

func TestChunkWindowsSmallWindowIsSingleChunk(t *testing.T) {
	now := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)

	windows := chunkWindows(now, 7, 30, 2*time.Minute)
	require.Len(t, windows, 1)
	assert.Equal(t, now.Add(-2*time.Minute), windows[0].end)
	assert.Equal(t, now.Add(-2*time.Minute).AddDate(0, 0, -7), windows[0].start)
}

func TestChunkWindowsExactMultiple(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	windows := chunkWindows(now, 60, 30, 0)
	require.Len(t, windows, 2)
	for _, w := range windows {
		assert.Equal(t, 30, int(w.end.Sub(w.start).Hours()/24))
	}
}
