// Package gemini implements the generation collaborators (Embedder,
// ImageAnalyzer and ClusterNamer) on top of Google's Gemini API.
//
// This package is an infrastructure adapter: it translates between the
// enrichment jobs and the external service without exposing genai types to
// the rest of the application.
//
// Error handling:
//   - Rate limiting (HTTP 429 / RESOURCE_EXHAUSTED) and server-side
//     unavailability map to generation.ErrTransientFailure so callers can retry.
//   - Safety blocks map to generation.ErrContentBlocked.
//   - Empty or unparseable responses map to generation.ErrInvalidResponse.
//   - Any other API error maps to generation.ErrGenerationFailed.
//
// Requests are paced by a client-side token bucket shared by all callers of
// a Client, so one worker process stays within its share of the API quota.
package gemini
