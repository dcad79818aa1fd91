package services

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// videoStamp extracts the millisecond timestamp from a "video-<ms>.<ext>" name.
func videoStamp(name string) (int64, bool) {
	rest, ok := strings.CutPrefix(name, "video-")
	if !ok {
		return 0, false
	}
	stamp, _, ok := strings.Cut(rest, ".")
	if !ok {
		return 0, false
	}
	ms, err := strconv.ParseInt(stamp, 10, 64)
	if err != nil {
		return 0, false
	}
	return ms, true
}

// PruneVideos deletes video files in dir written before keep. Files uploaded
// after keep and files not named by the upload scheme are left alone. An
// empty keep removes nothing.
func PruneVideos(dir, keep string) ([]string, error) {
	keepStamp, ok := videoStamp(keep)
	if !ok {
		return nil, nil
	}

	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read uploads dir: %w", err)
	}

	var removed []string
	for _, e := range entries {
		if e.IsDir() || e.Name() == keep {
			continue
		}
		stamp, ok := videoStamp(e.Name())
		if !ok || stamp >= keepStamp {
			continue
		}
		if err := os.Remove(filepath.Join(dir, e.Name())); err != nil && !os.IsNotExist(err) {
			return removed, fmt.Errorf("remove %s: %w", e.Name(), err)
		}
		removed = append(removed, e.Name())
	}
	return removed, nil
}
