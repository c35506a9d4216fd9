// Package sql provides a bun-based PostgreSQL storage implementation
// of the pdoflow dispatch protocol.
//
// # Overview
//
// The SQL backend provides:
//
//   - durable persistence of postings, job records and profiles
//   - atomic claiming of waiting job records via SELECT ... FOR UPDATE
//     SKIP LOCKED, never an application-level mutex
//   - posting status recomputation as its owned job records reach a
//     terminal status
//   - upsert of shared Function rows across profiled executions
//
// This package targets PostgreSQL specifically (via
// github.com/uptrace/bun/dialect/pgdialect and github.com/jackc/pgx/v5):
// SKIP LOCKED and the partial indexes InitDB creates are not portable
// to every bun-supported dialect.
//
// # Schema
//
// InitDB creates the postings, job_records, job_profiles, functions,
// function_stats and function_call_maps tables, plus:
//
//   - a partial index on job_records(priority DESC, created_on ASC)
//     WHERE status = waiting, serving Claim's ordering
//   - an index on job_records(posting_id, status), serving posting
//     status recomputation and the Observer API
//   - a unique index on functions(file, name, lineno), serving the
//     profile store's upsert
//
// InitDB is idempotent and runs inside a single transaction; it never
// drops or alters existing objects.
//
// # Database Lifecycle
//
// This package does not manage connection pooling or migrations. The
// caller is responsible for constructing a *bun.DB (see the config
// package for a convenience opener) and calling InitDB before use.
package sql
