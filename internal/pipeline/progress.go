package pipeline

import "sync"

// Phase represents the current baking phase.
type Phase string

// Phase constants define the stages of a baking run.
const (
	// PhaseLoading represents metadata document loading.
	PhaseLoading Phase = "loading"
	// PhaseScanning represents part discovery and duration probing.
	PhaseScanning Phase = "scanning"
	// PhaseReconciling represents the timeline reconciliation phase.
	PhaseReconciling Phase = "reconciling"
	// PhaseExporting represents sidecar file generation.
	PhaseExporting Phase = "exporting"
	// PhaseTagging represents tag embedding into part files.
	PhaseTagging Phase = "tagging"
	// PhaseComplete represents the completion phase.
	PhaseComplete Phase = "complete"
)

// Progress is a snapshot of run progress.
type Progress struct {
	Phase       Phase
	CurrentItem string
	Current     int
	Total       int
}

// ProgressTracker tracks and reports baking progress.
type ProgressTracker struct {
	callback func(Progress)
	progress Progress
	mu       sync.RWMutex
}

// NewProgressTracker creates a new progress tracker. callback may be nil.
func NewProgressTracker(callback func(Progress)) *ProgressTracker {
	return &ProgressTracker{
		callback: callback,
		progress: Progress{
			Phase: PhaseLoading,
		},
	}
}

// SetPhase updates the current phase and resets the counters.
func (p *ProgressTracker) SetPhase(phase Phase) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.progress.Phase = phase
	p.progress.Current = 0
	p.progress.Total = 0
	p.progress.CurrentItem = ""
	p.notify()
}

// SetTotal sets the total items for the current phase.
func (p *ProgressTracker) SetTotal(total int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.progress.Total = total
	p.notify()
}

// Increment increments the current progress.
func (p *ProgressTracker) Increment(currentItem string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.progress.Current++
	p.progress.CurrentItem = currentItem
	p.notify()
}

// Get returns current progress.
func (p *ProgressTracker) Get() Progress {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.progress
}

func (p *ProgressTracker) notify() {
	if p.callback != nil {
		p.callback(p.progress)
	}
}
