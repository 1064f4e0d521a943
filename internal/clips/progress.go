package clips

import "sync"

// Outcome is the single terminal record a job run emits.
type Outcome struct {
	Status  string   `json:"status"`
	Message string   `json:"message,omitempty"`
	URLs    []string `json:"urls,omitempty"`
}

// ProgressLog is the append/drain channel between one running job and the
// polling client. The orchestrator goroutine appends plain lines and exactly
// one terminal outcome; the request path drains. Neither side blocks the
// other, and a drained entry is never delivered twice.
type ProgressLog struct {
	mu      sync.Mutex
	lines   []string
	outcome *Outcome
}

func NewProgressLog() *ProgressLog {
	return &ProgressLog{}
}

// Append enqueues one human-readable progress line. Appends after the
// terminal outcome are discarded; the outcome is always the last entry.
func (l *ProgressLog) Append(line string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.outcome != nil {
		return
	}
	l.lines = append(l.lines, line)
}

// Finish enqueues the terminal outcome. Only the first call has any effect.
func (l *ProgressLog) Finish(o Outcome) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.outcome != nil {
		return
	}
	l.outcome = &o
}

// Finished reports whether a terminal outcome is enqueued and still
// undelivered.
func (l *ProgressLog) Finished() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.outcome != nil
}

// Drain removes and returns all pending entries. When a terminal outcome is
// pending it is returned and the log is left empty; a subsequent Drain
// reports nothing. Lines returned alongside an outcome are the entries that
// preceded it.
func (l *ProgressLog) Drain() ([]string, *Outcome) {
	l.mu.Lock()
	defer l.mu.Unlock()

	lines := l.lines
	outcome := l.outcome
	l.lines = nil
	l.outcome = nil
	return lines, outcome
}
