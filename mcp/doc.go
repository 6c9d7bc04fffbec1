// Package mcp implements the stdio-facing Model Context Protocol server for
// the Houdini bridge.
//
// The server speaks JSON-RPC 2.0 over newline-delimited stdio and exposes one
// tool per back-end command. Tool calls are forwarded over the bridge's TCP
// relay to the command server running inside Houdini; every outcome — results,
// back-end error envelopes, and transport failures alike — is rendered as
// readable text content, never as a JSON-RPC error, so the assistant always
// has something to show the user.
package mcp
