// Package bridge exposes the pipeline over a local HTTP API.
//
// Workflow endpoints accept JSON requests and answer with a pipeline.Outcome.
// GET /api/events upgrades to a websocket and pushes events from the bus as
// they are published. The server binds to loopback by default and can require
// a bearer token.
package bridge
