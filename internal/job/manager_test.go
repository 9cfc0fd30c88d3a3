package job

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T, spans []int) *Manager {
	t.Helper()
	m, err := NewManager(spans)
	require.NoError(t, err)
	return m
}

func TestNewManager(t *testing.T) {
	m := newTestManager(t, []int{2, 3, 4})
	assert.Equal(t, 3, m.Order())
	assert.Equal(t, []int{2, 3, 4}, m.Spans())
	assert.Empty(t, m.JobsPending())
	assert.Empty(t, m.JobsAbandoned())
	assert.False(t, m.IsFinished())
}

func TestNewManagerRejectsBadSpans(t *testing.T) {
	_, err := NewManager(nil)
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	_, err = NewManager([]int{1, 0})
	assert.ErrorIs(t, err, ErrZeroSizedDimension)
}

func TestPopAndComplete(t *testing.T) {
	m := newTestManager(t, []int{2, 3, 4})

	issued, ok := m.Pop()
	require.True(t, ok)
	assert.Len(t, m.JobsPending(), 1)
	assert.Empty(t, m.JobsAbandoned())

	echo, err := m.Complete(issued.URI())
	require.NoError(t, err)
	assert.True(t, echo.Equal(issued))
	assert.Empty(t, m.JobsPending())
	assert.Empty(t, m.JobsAbandoned())
}

func TestCompleteFromAbandoned(t *testing.T) {
	m := newTestManager(t, []int{2, 3, 4})

	issued, ok := m.Pop()
	require.True(t, ok)
	m.Abandon(issued)
	assert.Empty(t, m.JobsPending())
	assert.Len(t, m.JobsAbandoned(), 1)

	echo, err := m.Complete(issued.URI())
	require.NoError(t, err)
	assert.True(t, echo.Equal(issued))
	assert.Empty(t, m.JobsPending())
	assert.Empty(t, m.JobsAbandoned())
}

func TestCompleteErrors(t *testing.T) {
	m := newTestManager(t, []int{2, 2, 2})

	tests := []struct {
		name    string
		uri     string
		wantErr error
	}{
		{name: "empty uri", uri: "", wantErr: ErrUnexpectedString},
		{name: "non-numeric", uri: "0/one/0", wantErr: ErrUnexpectedString},
		{name: "wrong order", uri: "0/0", wantErr: ErrDimensionMismatch},
		{name: "out of bounds", uri: "9/9/9", wantErr: ErrOutOfBounds},
		{name: "not outstanding", uri: "0/0/0", wantErr: ErrJobNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.Complete(tt.uri)
			assert.ErrorIs(t, err, tt.wantErr)
			// Manager state is untouched by a rejected completion
			assert.Empty(t, m.JobsPending())
			assert.Empty(t, m.JobsAbandoned())
		})
	}
}

// An abandoned cell is re-dispatched before the iteration continues.
func TestAbandonPriority(t *testing.T) {
	m := newTestManager(t, []int{2, 2})

	first, ok := m.Pop()
	require.True(t, ok)
	assert.Equal(t, "0/0", first.URI())

	m.Abandon(first)

	again, ok := m.Pop()
	require.True(t, ok)
	assert.Equal(t, "0/0", again.URI())

	next, ok := m.Pop()
	require.True(t, ok)
	assert.Equal(t, "0/1", next.URI())
}

func TestAbandonPreconditions(t *testing.T) {
	m := newTestManager(t, []int{2, 2})

	issued, ok := m.Pop()
	require.True(t, ok)
	m.Abandon(issued)

	// Abandoning a job that is not pending is a structural bug
	assert.Panics(t, func() { m.Abandon(issued) })
}

func TestPendingTimestamps(t *testing.T) {
	m := newTestManager(t, []int{2})

	before := time.Now()
	issued, ok := m.Pop()
	require.True(t, ok)
	after := time.Now()

	pending := m.JobsPending()
	issuedAt, exists := pending[issued.URI()]
	require.True(t, exists)
	assert.False(t, issuedAt.Before(before))
	assert.False(t, issuedAt.After(after))
}

// Drain iff everything issued was completed and the stack is exhausted.
func TestIsFinished(t *testing.T) {
	m := newTestManager(t, []int{2, 2})

	uris := make([]string, 0, 4)
	for {
		issued, ok := m.Pop()
		if !ok {
			break
		}
		uris = append(uris, issued.URI())
	}
	assert.Equal(t, []string{"0/0", "0/1", "1/0", "1/1"}, uris)
	assert.False(t, m.IsFinished(), "pending jobs outstanding")

	for _, uri := range uris[:3] {
		_, err := m.Complete(uri)
		require.NoError(t, err)
	}
	assert.False(t, m.IsFinished(), "one job still pending")

	_, err := m.Complete(uris[3])
	require.NoError(t, err)
	assert.True(t, m.IsFinished())

	_, ok := m.Pop()
	assert.False(t, ok)
}

// Every cell is issued at most once more than the abandons it received, and
// the three sets stay disjoint throughout.
func TestIssuanceAccounting(t *testing.T) {
	m := newTestManager(t, []int{3, 3})

	issueCount := make(map[string]int)
	abandonCount := make(map[string]int)

	for round := 0; round < 2; round++ {
		var held []Job
		for {
			issued, ok := m.Pop()
			if !ok {
				break
			}
			issueCount[issued.URI()]++
			held = append(held, issued)
		}
		if round == 0 {
			// Return every other job for re-dispatch, complete the rest
			for i, j := range held {
				if i%2 == 0 {
					m.Abandon(j)
					abandonCount[j.URI()]++
				} else {
					_, err := m.Complete(j.URI())
					require.NoError(t, err)
				}
			}
		} else {
			for _, j := range held {
				_, err := m.Complete(j.URI())
				require.NoError(t, err)
			}
		}
	}

	require.True(t, m.IsFinished())
	assert.Len(t, issueCount, 9)
	for uri, count := range issueCount {
		assert.Equal(t, 1+abandonCount[uri], count, "cell %s", uri)
	}
}
