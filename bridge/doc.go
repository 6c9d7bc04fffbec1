// Package bridge implements the command relay between the stdio-facing MCP
// front end and the command server embedded in the host application.
//
// # Overview
//
// Commands travel as JSON envelopes over a single loopback TCP connection:
//
//	MCP front end (cmd/houdinimcp)
//	    ↓ tool call
//	Connection.SendCommand()
//	    ↓ TCP 127.0.0.1:9876, bare JSON (no length prefix)
//	Server.Tick() — polled from the host's UI timer
//	    ↓ full-buffer parse → dispatch table → handler
//	scene.Scene (host API, single-threaded)
//	    ↓ result or error
//	Response envelope written back on the same socket
//
// # Framing
//
// The wire format has no length prefix or delimiter. Both sides accumulate
// bytes and attempt to parse the entire buffer as one JSON document after
// every read; the first successful parse is the frame. This works because
// exactly one request is outstanding at a time and every payload is a whole
// JSON document. The cost is that malformed input is indistinguishable from
// a partial frame: bytes that never become valid JSON are buffered until the
// connection drops. A complete document that is not a command envelope is a
// different case — the server consumes it and answers with an error envelope.
//
// # Scheduling
//
// The server never blocks. Accept and read use immediate deadlines, and a
// miss is simply deferred to the next tick. Handlers run synchronously on
// the tick thread because the host's scene API must only be touched from its
// UI thread; a long handler stalls both the host UI and the server for its
// full duration, by the same constraint.
//
// # Error envelopes
//
// A recognized command whose handler fails produces
// {"status":"error","message":...}. An unrecognized command type produces a
// success envelope whose result is the string "Unknown command type: <type>".
// The two shapes are deliberately distinguishable only by their payload, not
// by a status code; the front end renders both as readable strings.
package bridge
