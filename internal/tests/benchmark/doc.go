// Package benchmark measures the hot paths of the save engine: codec
// encode/decode across option combinations, full engine save/load,
// file store writes, backup rotation, and journal appends. Every
// benchmark runs at 4KB, 64KB and 1MB section payloads so the cost of
// compression and encryption can be read per size class.
//
// Run everything:
//
//	go test -bench=. -benchmem ./internal/tests/benchmark/...
//
// A stable comparison needs repeated runs through benchstat:
//
//	go test -bench=. -benchmem -count=5 ./internal/tests/benchmark/... | tee new.txt
//	benchstat old.txt new.txt
package benchmark
