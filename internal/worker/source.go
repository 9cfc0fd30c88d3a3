package worker

import (
	"github.com/gregjesl/netspatch/internal/client"
	"github.com/gregjesl/netspatch/internal/job"
)

// JobSource is the abstraction a worker polls for work. Decoupling the loop
// from the concrete client keeps the loop testable without a live server.
// *client.Client satisfies this interface.
type JobSource interface {
	// Query asks for the next job; on JobLoaded the job is held on the
	// source until Respond is called.
	Query() client.QueryResult

	// Job returns the currently loaded job, nil when none is held.
	Job() *job.Job

	// Respond reports the result payload for the loaded job.
	Respond(result string) error
}
