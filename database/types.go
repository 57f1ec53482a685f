/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/creasty/defaults"
	"github.com/uptrace/bun"
)

// AbstractDatabaseManager defines the operations for managing a database
// connection, creating the registered schema, and reporting health.
type AbstractDatabaseManager interface {
	Connect(ctx context.Context) error
	Disconnect() error
	Reconnect(ctx context.Context) error
	Ping(ctx context.Context) error
	HealthCheck(ctx context.Context) *HealthStatus
	GetDB() *bun.DB
	GetSQLDB() *sql.DB
	RunMigrations(ctx context.Context) error
	GetStats() *DBStats
	SetLogger(logger Logger)
}

// HealthStatus holds the result of a health check against the database.
type HealthStatus struct {
	Healthy       bool          `json:"healthy"`
	Connected     bool          `json:"connected"`
	ResponseTime  time.Duration `json:"response_time"`
	ActiveConns   int           `json:"active_conns"`
	IdleConns     int           `json:"idle_conns"`
	MaxOpenConns  int           `json:"max_open_conns"`
	LastError     string        `json:"last_error,omitempty"`
	LastCheckTime time.Time     `json:"last_check_time"`
}

// DBStats mirrors database/sql stats returned by the manager.
type DBStats struct {
	MaxOpenConns      int           `json:"max_open_conns"`
	OpenConns         int           `json:"open_conns"`
	InUse             int           `json:"in_use"`
	Idle              int           `json:"idle"`
	WaitCount         int64         `json:"wait_count"`
	WaitDuration      time.Duration `json:"wait_duration"`
	MaxIdleClosed     int64         `json:"max_idle_closed"`
	MaxIdleTimeClosed int64         `json:"max_idle_time_closed"`
	MaxLifetimeClosed int64         `json:"max_lifetime_closed"`
}

// ConnectionConfig describes how to connect to a database and tune its pool.
type ConnectionConfig struct {
	// Type is one of mysql, postgres (lib/pq), pgx (jackc/pgx) or sqlite.
	Type     string `json:"type" yaml:"type" validate:"required,oneof=mysql postgres postgresql pgx sqlite sqlite3"`
	Host     string `json:"host" yaml:"host"`
	Port     int    `json:"port" yaml:"port" validate:"omitempty,min=1,max=65535"`
	Username string `json:"username" yaml:"username"`
	Password string `json:"password" yaml:"password"`
	DBName   string `json:"dbname" yaml:"dbname" validate:"required"`
	SSLMode  string `json:"sslmode" yaml:"sslmode" default:"disable" validate:"omitempty,oneof=disable allow prefer require verify-ca verify-full"`
	// InMemory opens sqlite as a named shared-cache memory database.
	InMemory bool `json:"in_memory" yaml:"in_memory"`
	// EnforceForeignKeys turns on PRAGMA foreign_keys for sqlite.
	EnforceForeignKeys bool `json:"enforce_foreign_keys" yaml:"enforce_foreign_keys"`

	MaxIdleConns    int           `json:"max_idle_conns" yaml:"max_idle_conns" default:"10" validate:"min=0"`
	MaxOpenConns    int           `json:"max_open_conns" yaml:"max_open_conns" default:"100" validate:"min=0"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime" yaml:"conn_max_lifetime" default:"1h"`
	ConnMaxIdleTime time.Duration `json:"conn_max_idle_time" yaml:"conn_max_idle_time" default:"30m"`
	ConnectTimeout  time.Duration `json:"connect_timeout" yaml:"connect_timeout" default:"10s"`
	ReadTimeout     time.Duration `json:"read_timeout" yaml:"read_timeout" default:"30s"`
	WriteTimeout    time.Duration `json:"write_timeout" yaml:"write_timeout" default:"30s"`

	EnableReconnect     bool          `json:"enable_reconnect" yaml:"enable_reconnect"`
	ReconnectInterval   time.Duration `json:"reconnect_interval" yaml:"reconnect_interval" default:"5s"`
	MaxReconnectTries   int           `json:"max_reconnect_tries" yaml:"max_reconnect_tries" default:"3"`
	HealthCheckInterval time.Duration `json:"health_check_interval" yaml:"health_check_interval"`

	EnableQueryLog bool          `json:"enable_query_log" yaml:"enable_query_log"`
	EnableTracing  bool          `json:"enable_tracing" yaml:"enable_tracing"`
	SlowQueryTime  time.Duration `json:"slow_query_time" yaml:"slow_query_time" default:"2s"`
	Charset        string        `json:"charset" yaml:"charset" default:"utf8mb4"`
}

// DataMigrateConfig controls schema creation and migrations on startup.
type DataMigrateConfig struct {
	EnableMigrateOnStartup bool   `json:"enable_migrate_on_startup" yaml:"enable_migrate_on_startup"`
	EnableForeignKey       bool   `json:"enable_foreign_key" yaml:"enable_foreign_key"`
	ForeignKeyFile         string `json:"foreign_key_file" yaml:"foreign_key_file"`
}

// Config aggregates connection and migration settings.
type Config struct {
	ConnectionConfig  ConnectionConfig  `json:"connection_config" yaml:"connection"`
	DataMigrateConfig DataMigrateConfig `json:"data_migrate_config" yaml:"migrate"`
}

// DefaultConnectionConfig returns a connection config populated from the
// `default` struct tags, with reconnects and a five minute health check on.
func DefaultConnectionConfig() *ConnectionConfig {
	cfg := &ConnectionConfig{}
	_ = defaults.Set(cfg)
	cfg.EnableReconnect = true
	cfg.HealthCheckInterval = 5 * time.Minute
	return cfg
}

func (c *ConnectionConfig) isSQLite() bool {
	return c.Type == "sqlite" || c.Type == "sqlite3"
}
