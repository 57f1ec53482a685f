// Package database provides connection management, configuration loading,
// migrations, foreign key handling, query hooks, error classification and
// health checks built on top of Bun.
package database
