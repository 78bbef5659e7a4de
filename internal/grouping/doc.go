// Package grouping is the clustering engine: it partitions ungrouped pages
// into buckets, drives the pairwise match oracle under cost controls, orders
// each resulting cluster, materializes groups idempotently and attaches
// explicit continuation pages, repeating passes until no further progress.
//
// The engine never fails a run for quality problems. Oracle errors degrade to
// "no match", budget expiry keeps partial progress, rename failures roll back
// display names, and the caller always receives a summary.
package grouping
