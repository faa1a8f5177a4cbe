// Package app composes the housing intelligence services into a running
// application.
//
// Layout:
//
//	internal/app/
//	├── application.go   # wiring and lifecycle
//	├── domain/          # data models (housing, expense, metro, advisor)
//	├── storage/         # store interfaces plus memory, postgres and supabase
//	├── services/        # calc, fred, ingest, seed, zillow, dashboard, advisor
//	├── cache/           # dashboard read cache (memory or redis)
//	├── httpapi/         # REST handlers and middleware
//	├── metrics/         # prometheus collectors
//	├── runtime/         # config-driven bootstrap and HTTP server
//	└── system/          # lifecycle manager
//
// Business rules live in services; this package only wires them to stores,
// the cache, the FRED client and the scheduler. Nil stores fall back to the
// in-memory implementation so tests and demos run without a database.
package app
