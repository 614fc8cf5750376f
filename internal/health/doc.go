// Package health reports liveness of the API's dependencies and of the
// worker process.
//
// The worker is judged by its heartbeat marker. When the marker is missing or
// too old the Reporter asks a Restarter to restart the worker out of band;
// this mitigates a hung worker and is not a retry of any job.
package health
