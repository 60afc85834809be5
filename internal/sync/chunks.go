package sync

import "time"

// window is one bounded retrieval sub-range, end exclusive.
type window struct {
	start time.Time
	end   time.Time
}

// chunkWindows tiles [now-margin-daysBack*24h, now-margin) into consecutive
// chunks of at most chunkDays, walked from the newest range backward. The
// chunks are contiguous: each chunk's start is the next chunk's end.
func chunkWindows(now time.Time, daysBack, chunkDays int, margin time.Duration) []window {
	end := now.Add(-margin)
	start := end.AddDate(0, 0, -daysBack)

	var out []window
	for cursor := end; cursor.After(start); {
		chunkStart := cursor.AddDate(0, 0, -chunkDays)
		if chunkStart.Before(start) {
			chunkStart = start
		}
		out = append(out, window{start: chunkStart, end: cursor})
		cursor = chunkStart
	}
	return out
}
