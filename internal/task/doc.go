// Package task runs the asynchronous enrichment pipeline. It defines the Job
// model and its retry policies, the Broker contract with an in-memory
// implementation, the enqueue client used by the API layer, the bounded
// worker Pool, the crash-restarting Supervisor, the cron Scheduler for
// periodic jobs, and the job handlers themselves.
//
// The Enqueuer is the producer side. EnqueueClustering backs the board
// clustering endpoint; EnqueueEmbedding and EnqueueImageProcessing are for the
// item-creation path, which enqueues one job per new text or image item.
//
// Delivery is at-least-once: a job is acknowledged only after its handler
// settles, so every handler must be idempotent.
package task
