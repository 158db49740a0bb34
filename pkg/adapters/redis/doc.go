// Package redis backs migrations with Redis: hash-backed lookup tables, live key and hash
// lookups, a keyed source over scanned keys, a document sink and a migration lock.
package redis
