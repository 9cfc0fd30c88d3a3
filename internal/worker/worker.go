// ============================================================================
// Netspatch Worker - Polling Execution Loop
// ============================================================================
//
// Package: internal/worker
// File: worker.go
// Purpose: Drives a job source until the dispatcher reports a full drain
//
// How it works:
//   The worker repeats the following until stopped:
//   1. Query the source for the next job
//   2. Hand the job to the handler, which computes the result payload
//   3. Respond with the payload
//   4. Sleep the poll interval to give other workers a chance
//
//   A 204 from the dispatcher means every cell has been handed out; the
//   worker exits cleanly. Transport errors after the client's retries are
//   exhausted terminate the loop with an error.
//
// ============================================================================

package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/gregjesl/netspatch/internal/client"
	"github.com/gregjesl/netspatch/internal/job"
)

// Handler computes the result payload for one job. The dispatch service is
// agnostic to what the computation means; the handler owns the semantics of
// the index.
type Handler func(j job.Job) (string, error)

// Worker polls a job source and feeds each delivered job to a handler.
type Worker struct {
	id       string
	source   JobSource
	handler  Handler
	interval time.Duration
	log      zerolog.Logger
}

// New creates a worker with a one-second poll interval.
func New(id string, source JobSource, handler Handler) *Worker {
	return &Worker{
		id:       id,
		source:   source,
		handler:  handler,
		interval: time.Second,
		log:      zerolog.Nop(),
	}
}

// WithInterval sets the sleep between polls.
func (w *Worker) WithInterval(interval time.Duration) *Worker {
	w.interval = interval
	return w
}

// WithLogger sets the worker logger.
func (w *Worker) WithLogger(log zerolog.Logger) *Worker {
	w.log = log
	return w
}

// Run polls until the dispatcher drains, the context is cancelled, or an
// error occurs. A drain is a clean exit.
func (w *Worker) Run(ctx context.Context) error {
	for {
		switch w.source.Query() {
		case client.JobLoaded:
			loaded := w.source.Job()
			w.log.Info().Str("component", "worker").Str("id", w.id).
				Str("job", loaded.URI()).Msg("job loaded")

			result, err := w.handler(*loaded)
			if err != nil {
				return fmt.Errorf("handler failed on job %s: %w", loaded.URI(), err)
			}
			if err := w.source.Respond(result); err != nil {
				return fmt.Errorf("could not report job %s: %w", loaded.URI(), err)
			}
		case client.NoJobsLeft:
			w.log.Info().Str("component", "worker").Str("id", w.id).
				Msg("no jobs left, shutting down")
			return nil
		case client.QueryError:
			return errors.New("transport error while polling for work")
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(w.interval):
		}
	}
}
