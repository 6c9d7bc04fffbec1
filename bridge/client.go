package bridge

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/nemurigi/houdini-mcp/config"
	"github.com/nemurigi/houdini-mcp/logger"
)

// recvChunkSize bounds each socket read on both sides of the relay.
const recvChunkSize = 8192

// Connection is the front end's persistent link to the command server. It
// dials lazily on first use and tears the socket down on any send/receive
// failure so the next call reconnects from scratch. One request is in flight
// at a time.
type Connection struct {
	addr        string
	readTimeout time.Duration

	mu   sync.Mutex
	conn net.Conn
	log  *slog.Logger
}

// NewConnection creates a Connection targeting the configured back end. No
// dialing happens until Connect or SendCommand.
func NewConnection(cfg *config.Config) *Connection {
	return &Connection{
		addr:        cfg.Addr(),
		readTimeout: cfg.ReadTimeout.Duration,
		log:         logger.WithComponent("relay"),
	}
}

// Connect dials the back end if not already connected. It is idempotent and
// reports success as a bool: a failed dial leaves the Connection disconnected
// and returns false rather than an error, so callers can retry on the next
// command.
func (c *Connection) Connect() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connectLocked()
}

func (c *Connection) connectLocked() bool {
	if c.conn != nil {
		return true
	}
	conn, err := net.Dial("tcp", c.addr)
	if err != nil {
		c.log.Error("failed to connect to Houdini", "addr", c.addr, "error", err)
		return false
	}
	c.conn = conn
	c.log.Info("connected to Houdini", "addr", c.addr)
	return true
}

// Disconnect closes the socket if open. Close errors are logged and
// swallowed; the handle is always cleared.
func (c *Connection) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disconnectLocked()
}

func (c *Connection) disconnectLocked() {
	if c.conn == nil {
		return
	}
	if err := c.conn.Close(); err != nil {
		c.log.Warn("error disconnecting from Houdini", "error", err)
	}
	c.conn = nil
}

// SendCommand serializes a command envelope, writes it, and blocks until a
// complete JSON response parses or the read times out. Any failure
// invalidates the socket so the next call redials; there is no retry within
// a single call.
func (c *Connection) SendCommand(cmdType string, params map[string]any) (map[string]any, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connectLocked() {
		return nil, fmt.Errorf("could not connect to Houdini at %s", c.addr)
	}

	if params == nil {
		params = map[string]any{}
	}
	rawParams, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("marshal params: %w", err)
	}
	data, err := json.Marshal(Command{Type: cmdType, Params: rawParams})
	if err != nil {
		return nil, fmt.Errorf("marshal command: %w", err)
	}

	resp, err := c.exchangeLocked(data)
	if err != nil {
		c.log.Error("error sending command", "type", cmdType, "error", err)
		// Invalidate the socket so the next call reconnects
		c.disconnectLocked()
		return nil, err
	}

	c.log.Debug("command round trip complete", "type", cmdType)
	return resp, nil
}

// exchangeLocked writes one request and reads chunks until the accumulated
// buffer parses as a complete JSON document. The wire format has no length
// prefix, so "does the whole buffer parse" is the framing rule; it holds
// because exactly one response is outstanding per request.
func (c *Connection) exchangeLocked(request []byte) (map[string]any, error) {
	c.conn.SetWriteDeadline(time.Now().Add(c.readTimeout))
	if _, err := c.conn.Write(request); err != nil {
		return nil, fmt.Errorf("write command: %w", err)
	}

	var buf []byte
	chunk := make([]byte, recvChunkSize)
	for {
		c.conn.SetReadDeadline(time.Now().Add(c.readTimeout))
		n, err := c.conn.Read(chunk)
		if n > 0 {
			buf = append(buf, chunk[:n]...)
			var resp map[string]any
			if jsonErr := json.Unmarshal(buf, &resp); jsonErr == nil {
				return resp, nil
			}
			// Not a complete JSON document yet; keep reading
		}
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				return nil, fmt.Errorf("timed out waiting for Houdini response")
			}
			return nil, fmt.Errorf("incomplete response from Houdini: %w", err)
		}
	}
}
