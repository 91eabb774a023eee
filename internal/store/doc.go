// Package store provides the SQLite-backed journal of interpreter runs.
//
// The journal is append-only:
//   - Runs: one row per interpreter run, keyed by run token
//   - Transitions: every statement and process lifecycle step of a run
//
// # Patterns
//
// Logical time:
//   - All ordering uses seq INTEGER (the engine's logical clock), NEVER
//     timestamps
//   - Queries include ORDER BY seq ASC so results are identical across reads
//
// Idempotent writes:
//   - PRIMARY KEY(run, seq) with ON CONFLICT DO NOTHING
//   - Re-journaling the same run is a no-op
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Transitions must reference a known run
package store
