// Package generation defines the AI collaborators used by the enrichment
// jobs: text embedding, image analysis and cluster naming. Implementations
// live in internal/platform/gemini; tests substitute fakes.
//
// Every collaborator reports failures through the sentinel errors in this
// package so callers can tell a rate-limited call (ErrTransientFailure),
// which is worth retrying, from a permanent one (ErrInvalidResponse,
// ErrContentBlocked, ErrGenerationFailed), which is not.
package generation
