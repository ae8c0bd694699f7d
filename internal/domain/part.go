package domain

import "time"

// Part is one physical audio segment of the export. Index is 1-based and
// insertion order equals playback order.
type Part struct {
	Path     string        `json:"path"`
	Index    int           `json:"index"`
	Duration time.Duration `json:"duration"`
}

// PartChapter is a chapter entry clipped and translated into part-relative
// time. Derived by the reconciler, consumed by the tag embedder, never
// persisted. A logical chapter spanning a part boundary yields one entry
// per part, all carrying the original title.
type PartChapter struct {
	Title     string        `json:"title"`
	Start     time.Duration `json:"start"`
	End       time.Duration `json:"end"`
	PartIndex int           `json:"part_index"`
}

// TotalPartDuration sums the probed durations of all parts.
func TotalPartDuration(parts []Part) time.Duration {
	var total time.Duration
	for _, p := range parts {
		total += p.Duration
	}
	return total
}
