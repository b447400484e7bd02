// Package webhook exposes the inbound episode listener.
//
// POST /episodes accepts the episode event JSON and runs it through the
// pipeline synchronously, answering with the run outcome. GET /healthz reports
// liveness. The listener carries no authentication; bind it to a trusted
// interface.
package webhook
