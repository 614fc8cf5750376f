// Package mocks provides shared test doubles for the enrichment pipeline.
//
// MemoryDB is an in-memory stand-in for the Postgres stores with snapshot
// rollback, so handler tests can check transactional behavior. The generation
// mocks follow one pattern: an optional Fn field overrides behavior, default
// response fields are returned otherwise, and every call is recorded.
//
//	embedder := &mocks.MockEmbedder{
//	    EmbedTextFn: func(ctx context.Context, text string) ([]float32, error) {
//	        return []float32{1, 0}, nil
//	    },
//	}
package mocks
