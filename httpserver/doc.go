/*
Package httpserver exposes the trials orchestrator over HTTP.

The API backs the browser view of the registry. Reads return snapshots of
the orchestrator state; workflow endpoints run the workflow to completion
and report its outcome both in the response and on the status banner.

# Endpoints

	GET    /api/session              connected account, contract, FHE readiness
	GET    /api/status               banner and workflow flags
	GET    /api/stats                registry statistics
	GET    /api/trials?search=term   loaded trials, optionally filtered
	POST   /api/trials/refresh       reload the registry
	GET    /api/trials/{id}          select a trial and return it
	DELETE /api/selection            clear the selection
	GET    /api/form                 creation form
	PUT    /api/form                 update form fields
	POST   /api/form/open            open the form
	POST   /api/form/close           close the form
	POST   /api/form/submit          create a trial from the form
	POST   /api/trials               create a trial from a JSON body
	POST   /api/trials/{id}/verify   decrypt and verify a trial's age
	POST   /api/probe                check contract availability

Creation and verification answer 503 until the FHE client is initialized.
Workflows keep running when the client disconnects.

# Errors

Failures are returned as {"error": "...", "banner": {...}} with a status
derived from the error kind: 400 invalid input, 403 rejected signature,
409 workflow already running, 412 wallet not connected, 502 registry or
relayer failure, 503 FHE not initialized.

# Operations

	GET /livez     liveness
	GET /readyz    readiness, false while draining
	GET /drain     stop reporting ready
	GET /undrain   report ready again

pprof is mounted under /debug when enabled, and Prometheus metrics are
served on a separate listener.
*/
package httpserver
