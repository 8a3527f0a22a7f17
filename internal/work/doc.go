// Package work runs background jobs one at a time.
//
// Work types form a small dependency graph. When a work type completes, every
// type that depends on it is queued for the same subject, so a replay is
// followed by a ranking refresh and the ranking refresh by a cache refresh:
//
//	replay:incremental -> ranking:refresh -> cache:refresh
//
// A work type never starts while one of its dependencies is queued or running.
// Work is queued by the cron scheduler, by the HTTP API, or by interval
// staleness for types that declare an Interval.
package work
