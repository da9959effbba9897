// Package server exposes import runs over HTTP.
//
// POST /api/v1/imports?kind=csv|text|image|pdf takes the document as the
// request body and the caller's identity in the X-Owner-ID header. The
// response is a text/event-stream of progress events ending with exactly one
// success or error event. GET /api/v1/health reports liveness.
package server
