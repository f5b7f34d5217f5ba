// Package server provides the WebSocket command server runtime for the MCP
// bridge.
//
// The runtime consists of:
//
//   - Dispatcher: resolves a decoded request against the command registry,
//     invokes the handler, and converts the result or fault into a response
//     envelope. Handler faults, including panics, are contained here.
//   - Session: one per accepted connection. Runs a single read loop that
//     feeds each inbound message through decode → dispatch → encode → send,
//     strictly sequentially, until the peer disconnects or the server shuts
//     down.
//   - SessionManager: the live-session set, safe under concurrent insert
//     and removal, with aggregate counters for introspection.
//   - Server: binds the HTTP listener, upgrades connections, spawns
//     sessions, and owns graceful shutdown.
//
// # Fault containment
//
// All faults stop at the session boundary. A malformed message or failed
// handler yields exactly one error envelope on the same connection; only
// transport errors end a session, and no session's failure is visible to
// another. The sole process-fatal condition is failure to bind the listen
// address.
//
// # Thread safety
//
//   - Session.mu serializes connection writes
//   - SessionManager uses an RWMutex around the session map
//   - The command registry is read-only during operation and safe for
//     concurrent lookups
package server
