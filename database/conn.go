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
	"sync"

	"github.com/uptrace/bun"
)

// global holds the process-wide factory installed by InitDB. The handle it
// exposes is stable across reconnects, see defaultDatabaseManager.Reconnect.
var global struct {
	mu      sync.RWMutex
	factory *BaseDatabaseFactory
}

func globalFactory() *BaseDatabaseFactory {
	global.mu.RLock()
	defer global.mu.RUnlock()
	return global.factory
}

// GetDB returns the global Bun database, or nil before InitDB.
func GetDB() *bun.DB {
	if f := globalFactory(); f != nil {
		return f.GetDB()
	}
	return nil
}

// GetDatabaseManager returns the global database manager.
func GetDatabaseManager() AbstractDatabaseManager {
	if f := globalFactory(); f != nil {
		return f.GetManager()
	}
	return nil
}

// GetDatabaseFactory returns the global database factory.
func GetDatabaseFactory() *BaseDatabaseFactory {
	return globalFactory()
}

// InitDB initializes the global database using the provided configuration.
func InitDB(cfg *Config) (*bun.DB, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database configuration cannot be empty")
	}
	return InitDatabaseWithOptions(cfg, cfg.DataMigrateConfig.EnableMigrateOnStartup)
}

// InitDatabaseWithOptions connects, optionally creates the registered models
// and runs migrations, then installs the result as the global database. A
// previously installed database is closed.
func InitDatabaseWithOptions(cfg *Config, runMigrations bool) (*bun.DB, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database configuration cannot be empty")
	}
	factory := NewDatabaseFactory()
	manager, err := factory.CreateFromFullConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create database manager: %w", err)
	}
	if err := factory.InitializeDatabase(context.Background(), runMigrations); err != nil {
		_ = factory.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	db := manager.GetDB()
	db.RegisterModel(RegisteredModelInstances()...)

	global.mu.Lock()
	previous := global.factory
	global.factory = factory
	global.mu.Unlock()
	if previous != nil {
		_ = previous.Close()
	}
	return db, nil
}

// CloseDB closes and uninstalls the global database.
func CloseDB() error {
	global.mu.Lock()
	f := global.factory
	global.factory = nil
	global.mu.Unlock()
	if f == nil {
		return nil
	}
	return f.Close()
}

// GetHealthStatus checks the global database.
func GetHealthStatus(ctx context.Context) *HealthStatus {
	if f := globalFactory(); f != nil {
		return f.GetHealthStatus(ctx)
	}
	return &HealthStatus{LastError: "Database not initialized"}
}

// GetDatabaseStats returns pool statistics of the global database.
func GetDatabaseStats() *DBStats {
	if f := globalFactory(); f != nil {
		return f.GetStats()
	}
	return &DBStats{}
}

// RunMigrations executes database migrations against the global database.
func RunMigrations(ctx context.Context) error {
	manager := GetDatabaseManager()
	if manager == nil {
		return fmt.Errorf("database not initialized")
	}
	return manager.RunMigrations(ctx)
}
