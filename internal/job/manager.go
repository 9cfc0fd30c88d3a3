// ============================================================================
// Netspatch Job Manager - Dispatch Bookkeeping
// ============================================================================
//
// Package: internal/job
// File: manager.go
// Purpose: Tracks what work remains, what is delegated, and what came back
//
// Job Lifecycle:
//   Undispatched (on the stack)
//      ↓ Pop()
//   Pending (issued to a worker)
//      ↓ Complete()          ↓ Abandon()
//   Done                  Abandoned (re-dispatched by the next Pop)
//
// Invariants (hold between any two operations):
//   1. The stack remainder, pending, and abandoned are pairwise disjoint
//   2. IsFinished() iff the stack is empty and both sets are empty
//   3. A job enters pending only via Pop and leaves only via Complete/Abandon
//
// Concurrency:
//   The manager does no locking of its own. It is always owned by a single
//   server and accessed under that server's exclusive lock; snapshot queries
//   return copies so callers never retain a reference into live state.
//
// ============================================================================

package job

import "time"

// Manager combines the enumeration cursor with bookkeeping of issued cells.
type Manager struct {
	stack     *Stack
	pending   map[string]pendingEntry // keyed by job URI
	abandoned map[string]Job          // keyed by job URI
}

type pendingEntry struct {
	job      Job
	issuedAt time.Time
}

// NewManager creates a manager over the given span vector.
//
// Returns:
//   - ErrDimensionMismatch when the span vector is empty
//   - ErrZeroSizedDimension when any span is not positive
func NewManager(spans []int) (*Manager, error) {
	stack, err := NewStack(spans)
	if err != nil {
		return nil, err
	}
	return &Manager{
		stack:     stack,
		pending:   make(map[string]pendingEntry),
		abandoned: make(map[string]Job),
	}, nil
}

// Order returns the dimensionality of the managed space.
func (m *Manager) Order() int {
	return m.stack.Order()
}

// Spans returns the span vector shared by every job.
func (m *Manager) Spans() []int {
	return m.stack.Spans()
}

// Pop issues the next job, preferring abandoned cells over stack advances so
// re-dispatched work drains before the iteration continues. The returned job
// is recorded as pending with the current wall-clock timestamp.
//
// The second return value is false when nothing is left to issue.
func (m *Manager) Pop() (Job, bool) {
	for uri, j := range m.abandoned {
		delete(m.abandoned, uri)
		m.setPending(j)
		return j, true
	}
	if !m.stack.IsEmpty() {
		j, ok := m.stack.Next()
		if !ok {
			return Job{}, false
		}
		m.setPending(j)
		return j, true
	}
	return Job{}, false
}

// Complete removes the job named by uri from whichever of pending or
// abandoned holds it and returns it.
//
// Returns:
//   - ErrUnexpectedString / ErrDimensionMismatch / ErrOutOfBounds when the
//     URI is malformed or refers outside the index space
//   - ErrJobNotFound when the job is not outstanding
func (m *Manager) Complete(uri string) (Job, error) {
	j, err := m.FromURI(uri)
	if err != nil {
		return Job{}, err
	}
	key := j.URI()
	if entry, ok := m.pending[key]; ok {
		delete(m.pending, key)
		return entry.job, nil
	}
	if found, ok := m.abandoned[key]; ok {
		delete(m.abandoned, key)
		return found, nil
	}
	return Job{}, ErrJobNotFound
}

// Abandon returns a pending job to the pool for re-dispatch. The job must be
// pending and not already abandoned; a violation is a structural bug in the
// caller and aborts the process.
func (m *Manager) Abandon(j Job) {
	key := j.URI()
	if _, ok := m.pending[key]; !ok {
		panic("abandoning a job that is not pending")
	}
	if _, ok := m.abandoned[key]; ok {
		panic("abandoning a job twice")
	}
	delete(m.pending, key)
	m.abandoned[key] = j
}

// FromURI parses a job URI against the managed span vector.
func (m *Manager) FromURI(uri string) (Job, error) {
	return ParseURI(uri, m.stack.Spans())
}

// JobsPending snapshots the issued-but-unfinished jobs and their issue times.
func (m *Manager) JobsPending() map[string]time.Time {
	result := make(map[string]time.Time, len(m.pending))
	for uri, entry := range m.pending {
		result[uri] = entry.issuedAt
	}
	return result
}

// JobsAbandoned snapshots the jobs waiting for re-dispatch.
func (m *Manager) JobsAbandoned() []Job {
	result := make([]Job, 0, len(m.abandoned))
	for _, j := range m.abandoned {
		result = append(result, j)
	}
	return result
}

// IsFinished reports whether every cell has been issued and completed:
// nothing undispatched, nothing pending, nothing abandoned.
func (m *Manager) IsFinished() bool {
	return m.stack.IsEmpty() && len(m.pending) == 0 && len(m.abandoned) == 0
}

func (m *Manager) setPending(j Job) {
	key := j.URI()
	if _, ok := m.pending[key]; ok {
		panic("issuing a job that is already pending")
	}
	m.pending[key] = pendingEntry{job: j, issuedAt: time.Now()}
}
