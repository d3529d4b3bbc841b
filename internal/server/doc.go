// Package server exposes one delivery node over HTTP: websocket presence
// ingress, presence lookups, the group fan-out endpoint, and the usual
// health and metrics surfaces.
package server
