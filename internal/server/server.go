package server

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/gregjesl/netspatch/internal/client"
	"github.com/gregjesl/netspatch/internal/job"
	"github.com/gregjesl/netspatch/internal/metrics"
	"github.com/gregjesl/netspatch/internal/wire"
)

// watchdogInterval is the cadence at which the drain watchdog polls the
// job manager.
const watchdogInterval = time.Second

// Server binds a TCP listener and services one request per connection
// against a shared job manager. Connections are handled sequentially; the
// manager is only ever touched under the server's exclusive lock and the
// lock is never held across network I/O.
type Server struct {
	host string
	port int

	listener net.Listener
	manager  *job.Manager
	mu       sync.Mutex // guards manager

	shutdownMu sync.Mutex
	shutdown   bool

	done chan struct{} // closed when the accept loop exits

	fuse      time.Duration
	sink      io.Writer
	log       zerolog.Logger
	collector *metrics.Collector
}

// Option configures optional server collaborators.
type Option func(*Server)

// WithSink sets the writer that receives one line per accepted completion
// report. Defaults to standard output.
func WithSink(w io.Writer) Option {
	return func(s *Server) { s.sink = w }
}

// WithLogger sets the server logger.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Server) { s.log = log }
}

// WithCollector attaches a metrics collector.
func WithCollector(c *metrics.Collector) Option {
	return func(s *Server) { s.collector = c }
}

// Start binds host:port, launches the accept loop and the drain watchdog,
// and returns once the listener is accepting. A bind failure is returned
// immediately as the OS error.
//
// The fuse is the quiescence period between the watchdog observing a full
// drain and the server stopping itself; it may be zero.
func Start(host string, port int, manager *job.Manager, fuse time.Duration, opts ...Option) (*Server, error) {
	listener, err := net.Listen("tcp", fmt.Sprintf("%s:%d", host, port))
	if err != nil {
		return nil, err
	}

	s := &Server{
		host:     host,
		port:     listener.Addr().(*net.TCPAddr).Port,
		listener: listener,
		manager:  manager,
		done:     make(chan struct{}),
		fuse:     fuse,
		sink:     os.Stdout,
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	// Rendezvous with the accept loop so callers can connect as soon as
	// Start returns.
	ready := make(chan struct{})
	go s.acceptLoop(ready)
	<-ready

	go s.watchdog()

	s.log.Info().Str("component", "server").
		Str("host", s.host).Int("port", s.port).
		Ints("spans", manager.Spans()).Dur("fuse", fuse).
		Msg("dispatch server started")
	return s, nil
}

// Port returns the bound port. Useful when the server was started on port 0.
func (s *Server) Port() int {
	return s.port
}

// Addr returns the bound address in host:port form.
func (s *Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.host, s.port)
}

// Stop signals the accept loop to exit, unblocks it with a self-poke
// connection, and waits for it to terminate. Safe to call more than once.
func (s *Server) Stop() {
	s.shutdownMu.Lock()
	s.shutdown = true
	s.shutdownMu.Unlock()

	// One final connection to our own listener unblocks the accept call.
	// GET /server is answered 404 like any other non-empty path; the side
	// effect is the flag check after the connection is handled.
	pokeHost := s.host
	if pokeHost == "" || pokeHost == "0.0.0.0" || pokeHost == "::" {
		pokeHost = "127.0.0.1"
	}
	poke := client.New(pokeHost, s.port).WithTimeout(watchdogInterval)
	if _, err := poke.Send(wire.NewRequest(wire.MethodGet, "server")); err != nil {
		s.log.Debug().Str("component", "server").Err(err).Msg("shutdown poke failed")
	}

	<-s.done
}

// IsRunning reports whether the accept loop is still alive.
func (s *Server) IsRunning() bool {
	select {
	case <-s.done:
		return false
	default:
		return true
	}
}

// Wait blocks until the accept loop has terminated.
func (s *Server) Wait() {
	<-s.done
}

// IsFinished reports whether every cell has been issued and completed.
func (s *Server) IsFinished() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.manager.IsFinished()
}

func (s *Server) stopping() bool {
	s.shutdownMu.Lock()
	defer s.shutdownMu.Unlock()
	return s.shutdown
}

func (s *Server) acceptLoop(ready chan<- struct{}) {
	defer close(s.done)
	defer s.listener.Close()
	close(ready)
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if s.stopping() {
				return
			}
			s.log.Warn().Str("component", "server").Err(err).Msg("accept failed")
			continue
		}
		s.handle(conn)
		if s.stopping() {
			return
		}
	}
}

// handle services exactly one request on conn and closes it. Parse and
// manager errors become response codes; nothing propagates.
func (s *Server) handle(conn net.Conn) {
	defer conn.Close()
	start := time.Now()

	request, err := wire.ReadRequest(bufio.NewReader(conn))
	if err != nil {
		status := wire.StatusBadRequest
		if perr, ok := err.(*wire.ProtocolError); ok {
			status = perr.Status
		}
		s.respond(conn, wire.NewResponse(status), start)
		return
	}

	var response *wire.Response
	switch request.Method {
	case wire.MethodGet:
		response = s.handleGet(request)
	case wire.MethodPost:
		response = s.handlePost(request)
	default:
		response = wire.NewResponse(wire.StatusMethodNotAllowed)
	}
	s.respond(conn, response, start)
}

// handleGet hands out the next job. Only the bare path dispatches; any
// other path, including the reserved shutdown poke /server, is answered 404.
func (s *Server) handleGet(request *wire.Request) *wire.Response {
	if request.URI != "" {
		return wire.NewResponse(wire.StatusNotFound)
	}

	s.mu.Lock()
	next, ok := s.manager.Pop()
	pending := len(s.manager.JobsPending())
	abandoned := len(s.manager.JobsAbandoned())
	s.mu.Unlock()

	if !ok {
		return wire.NewResponse(wire.StatusNoContent)
	}

	if s.collector != nil {
		s.collector.RecordDispatch()
		s.collector.UpdateQueueStats(pending, abandoned)
	}
	s.log.Debug().Str("component", "server").Str("job", next.URI()).Msg("job dispatched")

	response := wire.NewResponse(wire.StatusOK)
	response.Content = next.String()
	return response
}

// handlePost accepts a completion report for the job named by the request
// path. The request body is emitted to the sink as a one-line record.
func (s *Server) handlePost(request *wire.Request) *wire.Response {
	s.mu.Lock()
	completed, err := s.manager.Complete(request.URI)
	pending := len(s.manager.JobsPending())
	abandoned := len(s.manager.JobsAbandoned())
	s.mu.Unlock()

	if err != nil {
		s.log.Debug().Str("component", "server").Str("uri", request.URI).Err(err).
			Msg("completion rejected")
		return wire.NewResponse(wire.StatusNotFound)
	}

	fmt.Fprintln(s.sink, request.Body)

	if s.collector != nil {
		s.collector.RecordCompleted()
		s.collector.UpdateQueueStats(pending, abandoned)
	}
	s.log.Debug().Str("component", "server").Str("job", completed.URI()).Msg("job completed")
	return wire.NewResponse(wire.StatusOK)
}

func (s *Server) respond(conn net.Conn, response *wire.Response, start time.Time) {
	if _, err := conn.Write([]byte(response.Encode())); err != nil {
		s.log.Warn().Str("component", "server").Err(err).Msg("write failed")
	}
	if s.collector != nil {
		s.collector.RecordRequest(response.Status.Code(), time.Since(start).Seconds())
	}
}

// watchdog polls the manager at a fixed cadence. Once every cell has drained
// it waits out the fuse, giving late completions and human inspection a
// window, and then stops the server.
func (s *Server) watchdog() {
	ticker := time.NewTicker(watchdogInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
		}
		if !s.IsFinished() {
			continue
		}
		s.log.Info().Str("component", "server").Dur("fuse", s.fuse).
			Msg("all jobs drained, fuse lit")
		if s.fuse > 0 {
			select {
			case <-s.done:
				return
			case <-time.After(s.fuse):
			}
		}
		s.Stop()
		s.log.Info().Str("component", "server").Msg("dispatch server stopped")
		return
	}
}
