// Package redis implements the job broker, the lock service and the worker
// heartbeat marker on Redis.
//
// The broker keeps three structures under a common key prefix: a ready list
// fed with LPUSH, a per-consumer processing list filled atomically by
// BRPOPLPUSH, and a delayed sorted set scored by due time in Unix
// milliseconds. A delivery stays in the processing list until it is
// acknowledged or rescheduled, so a worker that dies mid-job leaves it there
// for Recover to hand back.
package redis
