// Package memo provides argument-keyed memoization for network-calling
// functions: call coalescing plus a TTL cache behind one wrapper.
//
// Every read-side entry point of the Meridian SDKs (pool listings, oracle
// feeds, reward tables, aggregator quotes) fans out to the same handful of
// backend endpoints. memo ensures that concurrent callers requesting the same
// logical value share a single in-flight call, and that callers arriving
// within the configured freshness window are served from memory without any
// call at all.
//
// Wrap a fetcher once, at construction time, and call the wrapper everywhere:
//
//	pools := memo.Wrap0(fetchPools, memo.WithTTL(30*time.Second))
//
//	// Concurrent callers share one fetch; later callers hit the cache.
//	ps, err := pools(ctx)
//
//	// Force a refresh; the fresh result still lands in the cache.
//	ps, err = pools(ctx, memo.Bypass())
//
// Each wrapper owns its own private key space, so independent wrapped
// functions never interfere even when their argument shapes collide.
// Errors are never cached: a failed call leaves the cache untouched and the
// next call attempts a fresh fetch.
package memo
