// Package http serves a directory of migration files over HTTP, for running migrations
// from schedulers and deployment hooks instead of a shell.
//
//	GET  /healthz
//	GET  /migrations
//	POST /migrations/{name}/validate
//	POST /migrations/{name}/run
//	GET  /metrics
package http
