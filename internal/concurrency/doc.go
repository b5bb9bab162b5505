// File: internal/concurrency/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// High-performance concurrency primitives backing the I/O manager's
// polled-thread runtime: lock-free SPSC queues, a batching event loop,
// a work-stealing task executor, and read-only NUMA topology queries used
// to pick default CPU/node targets. Actual thread pinning lives in the
// affinity package; this package only decides what to pin to.
//
// Cross-platform via build-tag-partitioned files (numa_linux.go / numa_stub.go).
package concurrency
