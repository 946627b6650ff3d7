// Package metrics implements the in-process metrics layer: a thread-safe
// registry of counters and bucketed histograms, request instrumentation, and
// a pull-based text exposition endpoint compatible with the Prometheus text
// format version 0.0.4.
//
// The registry is an explicitly constructed object, injected into the
// middleware and the exposition handler; there is no package-level global
// state, which keeps multiple independent registries usable in tests.
//
// Recording never performs I/O. The only blocking on the observation path is
// the brief mutual exclusion needed to keep one counter value, or one
// histogram's (buckets, sum, count) triple, internally consistent. History,
// scrape scheduling, aggregation and alerting belong to the external
// collector pulling the endpoint.
package metrics
