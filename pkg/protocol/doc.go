// Package protocol implements the JSON wire envelopes for the MCP bridge.
//
// Every exchange is one request envelope in and one response envelope out,
// carried as a single WebSocket text message per envelope. The transport
// provides message boundaries, so no additional framing is used.
//
// # Request
//
//	{ "id": <string|null>, "command": "<string>", "params": { ... } }
//
// `id` is an opaque correlation token echoed back verbatim. `command` is
// required and non-empty. `params` defaults to an empty object; its values
// are arbitrary JSON and are never interpreted by the codec.
//
// # Response
//
//	{ "id": <string|null>, "status": "success"|"error",
//	  "timestamp": "<RFC 3339 UTC>",
//	  "data": { ... } | "error": "<string>" }
//
// Exactly one of `data`/`error` is present, determined by `status`. The
// codec is pure: it performs no I/O and holds no state.
//
// Numbers in `params` are decoded with json.Number so that large integers
// survive a decode/encode round trip without being coerced through float64.
package protocol
