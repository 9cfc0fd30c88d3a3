// ============================================================================
// Netspatch Client - Worker-Side Dispatch Protocol
// ============================================================================
//
// Package: internal/client
// File: client.go
// Purpose: Connects to a dispatch server, takes jobs, and reports results
//
// Protocol:
//   GET  /       take the next job (200 job body, 204 drained)
//   POST /<uri>  report a completion, body is the opaque result payload
//
// Connection policy:
//   Each request opens a fresh connection with a configurable connect
//   timeout (default 10s). Retries are additional rounds after the first;
//   every round traverses all resolved socket addresses.
//
// ============================================================================

package client

import (
	"bufio"
	"errors"
	"net"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/gregjesl/netspatch/internal/job"
	"github.com/gregjesl/netspatch/internal/wire"
)

// DefaultTimeout is the conservative default connect timeout.
const DefaultTimeout = 10 * time.Second

// QueryResult classifies the outcome of asking the server for work.
type QueryResult int

const (
	JobLoaded  QueryResult = iota // A job was delivered and is loaded
	NoJobsLeft                    // The server reported a full drain
	QueryError                    // Transport failure or unexpected response
)

// Success reports whether the query delivered a job.
func (r QueryResult) Success() bool {
	return r == JobLoaded
}

// Client is a worker-side connection factory plus the currently loaded job.
type Client struct {
	host    string
	port    int
	current *job.Job
	timeout time.Duration
	retries int
	log     zerolog.Logger
}

// New creates a client for the given dispatch endpoint with the default
// connect timeout and no retries.
func New(host string, port int) *Client {
	return &Client{
		host:    host,
		port:    port,
		timeout: DefaultTimeout,
		retries: 0,
		log:     zerolog.Nop(),
	}
}

// WithTimeout sets the per-connection connect timeout.
func (c *Client) WithTimeout(timeout time.Duration) *Client {
	c.timeout = timeout
	return c
}

// WithRetries sets the number of additional connect rounds after the first.
func (c *Client) WithRetries(retries int) *Client {
	c.retries = retries
	return c
}

// WithLogger sets the client logger.
func (c *Client) WithLogger(log zerolog.Logger) *Client {
	c.log = log
	return c
}

// Job returns the currently loaded job, nil when none is held.
func (c *Client) Job() *job.Job {
	return c.current
}

// connect resolves the host and tries every resolved address once per
// round, for retries+1 rounds, returning the first stream that opens.
func (c *Client) connect() (net.Conn, error) {
	addrs, err := net.LookupHost(c.host)
	if err != nil {
		return nil, err
	}
	if len(addrs) == 0 {
		return nil, errors.New("no socket addresses found")
	}

	var lastErr error
	for round := 0; round <= c.retries; round++ {
		for _, addr := range addrs {
			conn, err := net.DialTimeout("tcp", net.JoinHostPort(addr, strconv.Itoa(c.port)), c.timeout)
			if err == nil {
				return conn, nil
			}
			lastErr = err
		}
	}
	c.log.Warn().Str("component", "client").Int("addresses", len(addrs)).
		Msg("all connection attempts failed")
	return nil, lastErr
}

// Send issues one request over a fresh connection and reads the response.
func (c *Client) Send(request *wire.Request) (*wire.Response, error) {
	conn, err := c.connect()
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	if _, err := conn.Write([]byte(request.Encode())); err != nil {
		return nil, err
	}
	return wire.ReadResponse(bufio.NewReader(conn))
}

// Query asks the server for the next job. On JobLoaded the job is held on
// the client until Respond is called.
func (c *Client) Query() QueryResult {
	c.current = nil

	response, err := c.Send(wire.NewRequest(wire.MethodGet, ""))
	if err != nil {
		c.log.Error().Str("component", "client").Err(err).Msg("query failed")
		return QueryError
	}

	switch response.Status {
	case wire.StatusOK:
		loaded, err := job.ParseBody(response.Content)
		if err != nil {
			c.log.Error().Str("component", "client").Err(err).Msg("malformed job body")
			return QueryError
		}
		c.current = &loaded
		return JobLoaded
	case wire.StatusNoContent:
		return NoJobsLeft
	default:
		c.log.Error().Str("component", "client").Int("status", response.Status.Code()).
			Msg("unexpected response code")
		return QueryError
	}
}

// Respond reports the result payload for the loaded job and releases it.
// Calling Respond with no job loaded is a programming error and aborts.
func (c *Client) Respond(result string) error {
	if c.current == nil {
		panic("attempted to respond when no job is loaded")
	}

	request := wire.NewRequest(wire.MethodPost, c.current.URI())
	request.Body = result
	response, err := c.Send(request)
	if err != nil {
		return err
	}
	if response.Status != wire.StatusOK {
		return job.ErrJobNotFound
	}
	c.current = nil
	return nil
}
