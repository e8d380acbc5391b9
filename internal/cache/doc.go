// Package cache memoizes expensive, non-idempotent external calls (LLM
// responses, parsed job descriptions, compiled PDFs, skill extractions) in a
// file-backed, namespaced key/value store.
//
// Keys are SHA-256 digests of canonicalized key material (see ComputeKey), so
// semantically identical inputs always land on the same entry. Entries expire
// lazily: a read that finds an entry older than its namespace TTL deletes it
// and reports a miss. There is no background sweeper; ClearExpired exists for
// scheduled maintenance.
//
// The cache is an optimization. Every failure (unreadable entry, full disk,
// bad permissions) degrades to a miss or a no-op and is only logged.
package cache
