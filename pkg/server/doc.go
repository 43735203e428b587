// Package server exposes the policy-gate operations API over HTTP.
//
// The server is a thin wrapper: every route dispatches to the gate registry
// and maps structured gate errors to HTTP status codes. No governance logic
// lives here.
package server
