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
	"fmt"
	"os"
	"time"

	"github.com/samber/lo"
	"github.com/spf13/cast"
	"github.com/uptrace/bun"
)

var supportedTypes = []string{"mysql", "postgres", "postgresql", "pgx", "sqlite", "sqlite3"}

// BaseDatabaseFactory creates and manages a configured database manager and
// provides helpers for initialization, health checks, and statistics.
type BaseDatabaseFactory struct {
	manager AbstractDatabaseManager
	logger  Logger
}

// NewDatabaseFactory returns a new database factory using the global logger.
func NewDatabaseFactory() *BaseDatabaseFactory {
	return &BaseDatabaseFactory{
		logger: GetLogger(),
	}
}

// CreateFromConfig constructs a database manager from the given connection
// configuration, applying environment overrides and setting the factory logger.
func (f *BaseDatabaseFactory) CreateFromConfig(cfg *ConnectionConfig) (AbstractDatabaseManager, error) {
	return f.create(cfg, nil)
}

// CreateFromFullConfig is CreateFromConfig that also carries the migration
// settings used by RunMigrations.
func (f *BaseDatabaseFactory) CreateFromFullConfig(cfg *Config) (AbstractDatabaseManager, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database configuration cannot be empty")
	}
	return f.create(&cfg.ConnectionConfig, &cfg.DataMigrateConfig)
}

func (f *BaseDatabaseFactory) create(cfg *ConnectionConfig, migrateCfg *DataMigrateConfig) (AbstractDatabaseManager, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database configuration cannot be empty")
	}
	if !lo.Contains(supportedTypes, cfg.Type) {
		return nil, fmt.Errorf("unsupported database type: %s, supported types: %v", cfg.Type, supportedTypes)
	}

	f.overrideFromEnv(cfg)

	manager := newDatabaseManager(cfg, migrateCfg)
	manager.SetLogger(f.logger)

	f.manager = manager
	return manager, nil
}

// overrideFromEnv overrides configuration values from DB_* environment variables.
// Values that cannot be parsed are ignored.
func (f *BaseDatabaseFactory) overrideFromEnv(cfg *ConnectionConfig) {
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setInt := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			if n, err := cast.ToIntE(v); err == nil {
				*dst = n
			}
		}
	}
	setBool := func(key string, dst *bool) {
		if v := os.Getenv(key); v != "" {
			if b, err := cast.ToBoolE(v); err == nil {
				*dst = b
			}
		}
	}
	setSeconds := func(key string, dst *time.Duration) {
		if v := os.Getenv(key); v != "" {
			if n, err := cast.ToIntE(v); err == nil {
				*dst = time.Duration(n) * time.Second
			}
		}
	}

	setString("DB_HOST", &cfg.Host)
	setInt("DB_PORT", &cfg.Port)
	setString("DB_USERNAME", &cfg.Username)
	setString("DB_PASSWORD", &cfg.Password)
	setString("DB_NAME", &cfg.DBName)
	setString("DB_SSLMODE", &cfg.SSLMode)

	setInt("DB_MAX_IDLE_CONNS", &cfg.MaxIdleConns)
	setInt("DB_MAX_OPEN_CONNS", &cfg.MaxOpenConns)
	setSeconds("DB_CONN_MAX_LIFETIME", &cfg.ConnMaxLifetime)

	setBool("DB_ENABLE_RECONNECT", &cfg.EnableReconnect)
	setSeconds("DB_RECONNECT_INTERVAL", &cfg.ReconnectInterval)

	setBool("DB_ENABLE_QUERY_LOG", &cfg.EnableQueryLog)
	setBool("DB_ENABLE_TRACING", &cfg.EnableTracing)
}

// InitializeDatabase connects to the database and optionally runs migrations.
func (f *BaseDatabaseFactory) InitializeDatabase(ctx context.Context, runMigrations bool) error {
	if f.manager == nil {
		return fmt.Errorf("database manager not created")
	}

	if err := f.manager.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	if runMigrations {
		if err := f.manager.RunMigrations(ctx); err != nil {
			return fmt.Errorf("failed to run database migrations: %w", err)
		}
	}
	f.logger.Info("Database initialization completed")
	return nil
}

// GetManager returns the underlying database manager.
func (f *BaseDatabaseFactory) GetManager() AbstractDatabaseManager {
	return f.manager
}

// GetDB returns the Bun database instance, or nil if not initialized.
func (f *BaseDatabaseFactory) GetDB() *bun.DB {
	if f.manager == nil {
		return nil
	}
	return f.manager.GetDB()
}

// SetLogger sets the logger on the factory and the underlying manager.
func (f *BaseDatabaseFactory) SetLogger(logger Logger) {
	f.logger = logger
	if f.manager != nil {
		f.manager.SetLogger(logger)
	}
}

// Close closes the database connection managed by the factory.
func (f *BaseDatabaseFactory) Close() error {
	if f.manager == nil {
		return nil
	}
	return f.manager.Disconnect()
}

// GetHealthStatus returns the current database health status from the manager.
func (f *BaseDatabaseFactory) GetHealthStatus(ctx context.Context) *HealthStatus {
	if f.manager == nil {
		return &HealthStatus{
			LastError:     "Database manager not initialized",
			LastCheckTime: time.Now(),
		}
	}
	return f.manager.HealthCheck(ctx)
}

// GetStats returns database connection statistics from the manager.
func (f *BaseDatabaseFactory) GetStats() *DBStats {
	if f.manager == nil {
		return &DBStats{}
	}
	return f.manager.GetStats()
}
