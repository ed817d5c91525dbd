// Package store provides SQLite-backed storage for the game.
//
// Two tables live in one database file:
//   - kv: the local persisted state (game state, per-player history and the
//     leaderboard cache), stored as opaque serialized records
//   - leaderboard_entries: the remote leaderboard served by the reference
//     server, with a fixed expiry per row
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON
//
// Memory implements the same KV capability without a database and is used
// by tests and by the CLI when no database path is configured.
package store
