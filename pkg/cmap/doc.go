// Package cmap provides a generic sharded concurrent map.
//
// The engine keeps one guard mutex and one phase marker per save slot,
// and the diagnostics server keeps one rate limiter per client. These
// are small maps hit from many goroutines at once; splitting the key
// space across independently locked shards keeps unrelated keys from
// contending on a single mutex.
//
// Usage:
//
//	guards := cmap.New[int, *sync.Mutex]()
//	mu, _ := guards.GetOrSet(slot, &sync.Mutex{})
//
// All operations are safe for concurrent use.
package cmap
