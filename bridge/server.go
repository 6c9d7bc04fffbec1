package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"time"

	"github.com/nemurigi/houdini-mcp/config"
	"github.com/nemurigi/houdini-mcp/logger"
	"github.com/nemurigi/houdini-mcp/scene"
)

// pollDeadline is the accept/read deadline used within a single tick. It is
// short enough that a tick with nothing to do returns almost immediately.
const pollDeadline = time.Millisecond

// Server is the command server embedded in the host application. It owns a
// listening socket and at most one client connection, and makes progress only
// when Tick is called — the host's UI timer (or Run's ticker) drives it, so
// every handler executes on the host's single scripting thread.
type Server struct {
	addr     string
	interval time.Duration
	session  *Session
	handlers *handlerSet

	listener *net.TCPListener
	client   net.Conn
	buf      []byte
	log      *slog.Logger
}

// NewServer creates a command server for the given scene and session. Call
// Start to bind the socket, then drive it with Tick or Run.
func NewServer(cfg *config.Config, sc scene.Scene, sess *Session) *Server {
	return &Server{
		addr:     cfg.Addr(),
		interval: cfg.PollInterval.Duration,
		session:  sess,
		handlers: &handlerSet{
			scene:   sc,
			session: sess,
			log:     logger.WithComponent("handlers"),
		},
		log: logger.WithSession(sess.ID).With("component", "server"),
	}
}

// Start binds the listening socket. The server accepts nothing until Tick
// runs.
func (s *Server) Start() error {
	tcpAddr, err := net.ResolveTCPAddr("tcp", s.addr)
	if err != nil {
		return err
	}
	listener, err := net.ListenTCP("tcp", tcpAddr)
	if err != nil {
		return err
	}
	s.listener = listener
	s.log.Info("command server listening", "addr", listener.Addr().String())
	return nil
}

// Addr returns the bound listen address, useful when the configured port
// was 0. Empty before Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop closes the listener and any connected client and drops buffered bytes.
func (s *Server) Stop() {
	if s.listener != nil {
		s.listener.Close()
		s.listener = nil
	}
	s.dropClient()
	s.log.Info("command server stopped")
}

// Tick performs one unit of server work without blocking: accept a pending
// connection if there is no client, then read whatever bytes are available,
// and dispatch if the buffer now holds a complete command. Commands execute
// synchronously on the calling goroutine.
func (s *Server) Tick() {
	if s.listener == nil {
		return
	}

	if s.client == nil {
		s.listener.SetDeadline(time.Now().Add(pollDeadline))
		conn, err := s.listener.Accept()
		switch {
		case err == nil:
			s.client = conn
			s.buf = nil
			s.log.Info("client connected", "remote", conn.RemoteAddr().String())
		case isTimeout(err):
			// No connection waiting
		case errors.Is(err, net.ErrClosed):
			return
		default:
			s.log.Error("error accepting connection", "error", err)
		}
	}

	if s.client == nil {
		return
	}

	chunk := make([]byte, recvChunkSize)
	s.client.SetReadDeadline(time.Now().Add(pollDeadline))
	n, err := s.client.Read(chunk)
	if n > 0 {
		s.buf = append(s.buf, chunk[:n]...)
		s.dispatchBuffered()
	}
	switch {
	case err == nil || isTimeout(err):
		// Nothing more to read this tick
	case errors.Is(err, io.EOF):
		s.log.Info("client disconnected")
		s.dropClient()
	default:
		s.log.Error("error receiving data", "error", err)
		s.dropClient()
	}
}

// dispatchBuffered attempts to parse the accumulated buffer as one complete
// command. Completeness is judged on the raw document: bytes that are not yet
// valid JSON are (presumed) a partial frame and stay buffered. A complete
// document always consumes the whole buffer and produces a response — a
// document that is not a command envelope gets an error envelope rather than
// poisoning the buffer for every later command.
func (s *Server) dispatchBuffered() {
	var cmd Command
	err := json.Unmarshal(s.buf, &cmd)
	if err != nil && !json.Valid(s.buf) {
		return
	}
	s.buf = nil

	var resp Response
	if err != nil {
		s.log.Error("malformed command envelope", "error", err)
		resp = Error("Invalid command: " + err.Error())
	} else {
		resp = s.Execute(cmd)
	}
	data, err := json.Marshal(resp)
	if err != nil {
		data, _ = json.Marshal(Error(err.Error()))
	}

	s.client.SetWriteDeadline(time.Now().Add(time.Second))
	if _, err := s.client.Write(data); err != nil {
		s.log.Error("error sending response", "error", err)
		s.dropClient()
	}
}

// Execute dispatches a single command and returns its response envelope. The
// asset-library commands join the table only while the session toggle is on,
// so flipping the toggle changes dispatch without a restart. An unrecognized
// type yields a success envelope carrying an explanatory string rather than
// an error envelope.
func (s *Server) Execute(cmd Command) Response {
	handlers := s.handlers.baseHandlers()
	if s.session.AssetLibraryEnabled() {
		for name, h := range s.handlers.assetHandlers() {
			handlers[name] = h
		}
	}

	handler, ok := handlers[cmd.Type]
	if !ok {
		return Success("Unknown command type: " + cmd.Type)
	}

	s.log.Debug("executing handler", "type", cmd.Type)
	result, err := handler(cmd.Params)
	if err != nil {
		s.log.Error("handler failed", "type", cmd.Type, "error", err)
		return Error(err.Error())
	}
	s.log.Debug("handler complete", "type", cmd.Type)
	return Success(result)
}

// Run drives the server with its configured poll interval until ctx is
// cancelled, then stops it. Hosts with their own UI timer call Tick directly
// instead.
func (s *Server) Run(ctx context.Context) error {
	if err := s.Start(); err != nil {
		return err
	}
	defer s.Stop()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.Tick()
		}
	}
}

func (s *Server) dropClient() {
	if s.client != nil {
		s.client.Close()
		s.client = nil
	}
	s.buf = nil
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
