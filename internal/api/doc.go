// Package api handles incoming HTTP requests for the moodboard API. Handlers
// never wait on background work: enrichment and clustering are enqueued and
// acknowledged with 202 Accepted.
package api
