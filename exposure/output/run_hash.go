package output

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/crytic/exposed/logging"
	"github.com/crytic/exposed/logging/colors"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// ComputeRunHash computes a SHA-256 hash over the content hashes of the provided files, keyed by their path relative
// to the output root. Paths are visited in sorted order, so the hash does not depend on map iteration order.
func ComputeRunHash(contentHashes map[string]string) string {
	hasher := sha256.New()
	paths := maps.Keys(contentHashes)
	slices.Sort(paths)
	for _, path := range paths {
		hasher.Write([]byte(path))
		hasher.Write([]byte{0})
		hasher.Write([]byte(contentHashes[path]))
		hasher.Write([]byte{0})
	}
	return hex.EncodeToString(hasher.Sum(nil))
}

// notifyRunStatus logs whether the current run produced the same set of generated files as the previous one.
func notifyRunStatus(logger *logging.Logger, current RunRecord, previous *RunRecord) {
	if previous == nil || previous.Hash != current.Hash {
		logger.Info(
			colors.Bold, "output: ", colors.Reset,
			"generated a ", colors.GreenBold, "new", colors.Reset, " set of exposed contracts",
		)
		return
	}
	logger.Info(
		colors.Bold, "output: ", colors.Reset,
		"generated the ", colors.YellowBold, "same", colors.Reset,
		" exposed contracts as previously (last run: ", formatDuration(current.Timestamp.Sub(previous.Timestamp)), " ago)",
	)
}

// formatDuration formats a duration into a human-readable string.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%d seconds", int(d.Seconds()))
	}
	if d < time.Hour {
		minutes := int(d.Minutes())
		if minutes == 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", minutes)
	}
	if d < 24*time.Hour {
		hours := int(d.Hours())
		if hours == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", hours)
	}
	days := int(d.Hours() / 24)
	if days == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", days)
}
