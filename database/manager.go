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
	"fmt"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/mysqldialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/uptrace/bun/extra/bundebug"
	"github.com/uptrace/bun/extra/bunotel"
)

type defaultDatabaseManager struct {
	config          *ConnectionConfig
	migrateConfig   *DataMigrateConfig
	db              *bun.DB
	sqlDB           *sql.DB
	logger          Logger
	mu              sync.RWMutex
	connected       bool
	lastError       error
	healthStatus    *HealthStatus
	reconnectTries  int
	stopHealthCheck chan struct{}
	healthCheckOnce sync.Once
	stopOnce        sync.Once
}

// NewDatabaseManager returns an AbstractDatabaseManager backed by Bun.
// If config is nil, a default configuration is used.
func NewDatabaseManager(config *ConnectionConfig) AbstractDatabaseManager {
	return newDatabaseManager(config, nil)
}

func newDatabaseManager(config *ConnectionConfig, migrateConfig *DataMigrateConfig) *defaultDatabaseManager {
	if config == nil {
		config = DefaultConnectionConfig()
	}
	if migrateConfig == nil {
		migrateConfig = &DataMigrateConfig{}
	}
	return &defaultDatabaseManager{
		config:          config,
		migrateConfig:   migrateConfig,
		logger:          GetLogger(),
		healthStatus:    &HealthStatus{},
		stopHealthCheck: make(chan struct{}),
	}
}

// Connect opens the handle returned by GetDB. It is a no-op while a handle
// exists; use Reconnect to restore a broken connection.
func (dm *defaultDatabaseManager) Connect(ctx context.Context) error {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	if dm.db != nil {
		return nil
	}

	var err error
	dm.sqlDB, dm.db, err = dm.createConnection()
	if err != nil {
		dm.lastError = err
		return fmt.Errorf("failed to create database connection: %w", err)
	}

	dm.configureConnectionPool()

	ctxTimeout, cancel := context.WithTimeout(ctx, dm.config.ConnectTimeout)
	defer cancel()

	if err := dm.db.PingContext(ctxTimeout); err != nil {
		dm.lastError = err
		_ = dm.db.Close()
		dm.db, dm.sqlDB = nil, nil
		return fmt.Errorf("database connection test failed: %w", err)
	}

	if err := dm.enableForeignKeys(ctxTimeout, dm.db); err != nil {
		dm.lastError = err
		return err
	}

	dm.connected = true
	dm.lastError = nil
	dm.reconnectTries = 0

	if dm.config.HealthCheckInterval > 0 && !dm.config.InMemory {
		dm.startHealthCheck()
	}

	if dm.logger != nil {
		dm.logger.Info("Database connected successfully", "type", dm.config.Type, "host", dm.config.Host, "dbname", dm.config.DBName)
	}
	return nil
}

func (dm *defaultDatabaseManager) createConnection() (*sql.DB, *bun.DB, error) {
	if dm.config.ConnectTimeout <= 0 {
		dm.config.ConnectTimeout = 30 * time.Second
	}

	var sqlDB *sql.DB
	var db *bun.DB
	var err error
	switch dm.config.Type {
	case "mysql":
		sqlDB, db, err = dm.createMySQLConnection()
	case "postgres", "postgresql":
		sqlDB, db, err = dm.createPostgreSQLConnection("postgres")
	case "pgx":
		sqlDB, db, err = dm.createPostgreSQLConnection("pgx")
	case "sqlite", "sqlite3":
		sqlDB, db, err = dm.createSQLiteConnection()
	default:
		return nil, nil, fmt.Errorf("unsupported database type: %s", dm.config.Type)
	}
	if err != nil {
		return nil, nil, err
	}

	if dm.config.EnableQueryLog {
		db.AddQueryHook(bundebug.NewQueryHook(
			bundebug.WithVerbose(true),
			bundebug.FromEnv("BUNDEBUG"),
		))
	}
	if dm.config.SlowQueryTime > 0 {
		db.AddQueryHook(&slowQueryHook{slowTime: dm.config.SlowQueryTime, logger: dm.logger})
	}
	db.AddQueryHook(&errorQueryHook{logger: dm.logger})
	if dm.config.EnableTracing {
		db.AddQueryHook(bunotel.NewQueryHook(bunotel.WithDBName(dm.config.DBName)))
	}

	return sqlDB, db, nil
}

// createMySQLConnection sets clientFoundRows so that an UPDATE which leaves a
// row unchanged still counts it as affected.
func (dm *defaultDatabaseManager) createMySQLConnection() (*sql.DB, *bun.DB, error) {
	charset := dm.config.Charset
	if charset == "" {
		charset = "utf8mb4"
	}
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=True&loc=Local&clientFoundRows=true&timeout=%s&readTimeout=%s&writeTimeout=%s",
		dm.config.Username,
		dm.config.Password,
		dm.config.Host,
		dm.config.Port,
		dm.config.DBName,
		charset,
		dm.config.ConnectTimeout,
		dm.config.ReadTimeout,
		dm.config.WriteTimeout,
	)

	sqlDB, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, nil, err
	}
	return sqlDB, bun.NewDB(sqlDB, mysqldialect.New()), nil
}

func (dm *defaultDatabaseManager) createPostgreSQLConnection(driverName string) (*sql.DB, *bun.DB, error) {
	sslMode := dm.config.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s&connect_timeout=%d",
		dm.config.Username,
		dm.config.Password,
		dm.config.Host,
		dm.config.Port,
		dm.config.DBName,
		sslMode,
		int(dm.config.ConnectTimeout.Seconds()),
	)

	sqlDB, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, nil, err
	}
	return sqlDB, bun.NewDB(sqlDB, pgdialect.New()), nil
}

func (dm *defaultDatabaseManager) createSQLiteConnection() (*sql.DB, *bun.DB, error) {
	dsn := fmt.Sprintf("%s.db", dm.config.DBName)
	if dm.config.InMemory {
		dsn = fmt.Sprintf("file:%s?mode=memory&cache=shared", dm.config.DBName)
	}

	sqlDB, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, nil, err
	}
	return sqlDB, bun.NewDB(sqlDB, sqlitedialect.New()), nil
}

// configureConnectionPool applies the pool settings. A sqlite database that
// lives in memory or relies on the per-connection foreign_keys pragma is
// pinned to a single connection that never expires.
func (dm *defaultDatabaseManager) configureConnectionPool() {
	if dm.sqlDB == nil {
		return
	}

	if dm.config.isSQLite() && (dm.config.InMemory || dm.config.EnforceForeignKeys) {
		dm.sqlDB.SetMaxOpenConns(1)
		dm.sqlDB.SetMaxIdleConns(1)
		dm.sqlDB.SetConnMaxLifetime(0)
		dm.sqlDB.SetConnMaxIdleTime(0)
		return
	}

	dm.sqlDB.SetMaxIdleConns(dm.config.MaxIdleConns)
	dm.sqlDB.SetMaxOpenConns(dm.config.MaxOpenConns)
	dm.sqlDB.SetConnMaxLifetime(dm.config.ConnMaxLifetime)
	dm.sqlDB.SetConnMaxIdleTime(dm.config.ConnMaxIdleTime)
}

// Disconnect stops the health check loop and closes the connection.
func (dm *defaultDatabaseManager) Disconnect() error {
	dm.stopOnce.Do(func() { close(dm.stopHealthCheck) })
	return dm.disconnect()
}

func (dm *defaultDatabaseManager) disconnect() error {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	if dm.db == nil {
		return nil
	}

	err := dm.db.Close()
	dm.db = nil
	dm.sqlDB = nil
	dm.connected = false

	if dm.logger != nil {
		if err != nil {
			dm.logger.Error("Failed to close database connection", "error", err)
		} else {
			dm.logger.Info("Database connection closed")
		}
	}
	return err
}

// Reconnect restores connectivity without replacing the *bun.DB handed out
// by GetDB, which repositories and services keep for their lifetime.
// database/sql dials new connections on demand; for network databases the
// idle ones are dropped first so no stale connection is reused. A manager
// that holds no handle connects from scratch.
func (dm *defaultDatabaseManager) Reconnect(ctx context.Context) error {
	if dm.GetDB() == nil {
		return dm.Connect(ctx)
	}

	dm.mu.Lock()
	defer dm.mu.Unlock()
	if dm.db == nil {
		return fmt.Errorf("database disconnected during reconnect")
	}

	if dm.logger != nil {
		dm.logger.Info("Attempting to reconnect to the database", "type", dm.config.Type)
	}
	if !dm.config.isSQLite() {
		dm.sqlDB.SetMaxIdleConns(0)
		dm.sqlDB.SetMaxIdleConns(dm.config.MaxIdleConns)
	}

	ctxTimeout, cancel := context.WithTimeout(ctx, dm.config.ConnectTimeout)
	defer cancel()

	err := dm.db.PingContext(ctxTimeout)
	if err == nil {
		err = dm.enableForeignKeys(ctxTimeout, dm.db)
	}
	dm.connected = err == nil
	dm.lastError = err
	if err != nil {
		return fmt.Errorf("database reconnect failed: %w", err)
	}
	return nil
}

// enableForeignKeys turns on sqlite foreign key enforcement. The pragma is
// per connection, the pool is pinned to one connection for that reason.
func (dm *defaultDatabaseManager) enableForeignKeys(ctx context.Context, db *bun.DB) error {
	if !dm.config.isSQLite() || !dm.config.EnforceForeignKeys {
		return nil
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		return fmt.Errorf("failed to enable sqlite foreign keys: %w", err)
	}
	return nil
}

func (dm *defaultDatabaseManager) Ping(ctx context.Context) error {
	dm.mu.RLock()
	db := dm.db
	dm.mu.RUnlock()

	if db == nil {
		return fmt.Errorf("database not connected")
	}
	return db.PingContext(ctx)
}

func (dm *defaultDatabaseManager) GetDB() *bun.DB {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	return dm.db
}

func (dm *defaultDatabaseManager) GetSQLDB() *sql.DB {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	return dm.sqlDB
}

// HealthCheck pings the database and records the outcome with the current
// pool usage.
func (dm *defaultDatabaseManager) HealthCheck(ctx context.Context) *HealthStatus {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	status := &HealthStatus{LastCheckTime: time.Now()}
	if dm.db == nil {
		status.LastError = "Database not initialized"
		dm.healthStatus = status
		return status
	}

	ctxTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	err := dm.db.PingContext(ctxTimeout)

	status.ResponseTime = time.Since(status.LastCheckTime)
	status.Healthy = err == nil
	status.Connected = err == nil
	if err != nil {
		status.LastError = err.Error()
	}
	stats := dm.sqlDB.Stats()
	status.ActiveConns, status.IdleConns, status.MaxOpenConns = stats.InUse, stats.Idle, stats.MaxOpenConnections

	dm.connected = status.Connected
	dm.lastError = err
	dm.healthStatus = status
	return status
}

func (dm *defaultDatabaseManager) startHealthCheck() {
	dm.healthCheckOnce.Do(func() {
		go dm.healthCheckLoop()
	})
}

func (dm *defaultDatabaseManager) healthCheckLoop() {
	ticker := time.NewTicker(dm.config.HealthCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-dm.stopHealthCheck:
			return
		case <-ticker.C:
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		healthy := dm.HealthCheck(ctx).Healthy
		cancel()
		if healthy {
			dm.setReconnectTries(0)
			continue
		}
		if dm.config.EnableReconnect && !dm.tryReconnect() {
			return
		}
	}
}

// tryReconnect waits ReconnectInterval and attempts one reconnect. It reports
// false once MaxReconnectTries is exhausted or the manager is stopped.
func (dm *defaultDatabaseManager) tryReconnect() bool {
	tries := dm.setReconnectTries(-1)
	if tries > dm.config.MaxReconnectTries {
		if dm.logger != nil {
			dm.logger.Error("Max reconnect attempts reached, stopping health check", "tries", dm.config.MaxReconnectTries)
		}
		return false
	}

	select {
	case <-time.After(dm.config.ReconnectInterval):
	case <-dm.stopHealthCheck:
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), dm.config.ConnectTimeout)
	defer cancel()
	if err := dm.Reconnect(ctx); err != nil {
		if dm.logger != nil {
			dm.logger.Error("Reconnect failed", "error", err, "try", tries)
		}
		return true
	}
	dm.setReconnectTries(0)
	if dm.logger != nil {
		dm.logger.Info("Reconnect succeeded", "try", tries)
	}
	return true
}

// setReconnectTries stores n, or increments the counter when n is negative,
// and returns the new value.
func (dm *defaultDatabaseManager) setReconnectTries(n int) int {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	if n < 0 {
		n = dm.reconnectTries + 1
	}
	dm.reconnectTries = n
	return n
}

// GetStats returns a snapshot of the connection pool statistics.
func (dm *defaultDatabaseManager) GetStats() *DBStats {
	sqlDB := dm.GetSQLDB()
	if sqlDB == nil {
		return &DBStats{}
	}

	s := sqlDB.Stats()
	return &DBStats{
		MaxOpenConns:      s.MaxOpenConnections,
		OpenConns:         s.OpenConnections,
		InUse:             s.InUse,
		Idle:              s.Idle,
		WaitCount:         s.WaitCount,
		WaitDuration:      s.WaitDuration,
		MaxIdleClosed:     s.MaxIdleClosed,
		MaxIdleTimeClosed: s.MaxIdleTimeClosed,
		MaxLifetimeClosed: s.MaxLifetimeClosed,
	}
}

// RunMigrations creates the registered models and applies pending migrations.
func (dm *defaultDatabaseManager) RunMigrations(ctx context.Context) error {
	db := dm.GetDB()
	if db == nil {
		return fmt.Errorf("database not initialized")
	}

	mm := NewMigrationManager(db, dm.logger)
	if dm.migrateConfig.EnableForeignKey {
		fkm, err := NewConfigurableForeignKeyManager(dm.logger, dm.migrateConfig.ForeignKeyFile)
		if err != nil {
			return err
		}
		mm.SetForeignKeyManager(fkm.ForeignKeyManager)
	}
	return mm.RunMigrations(ctx)
}

func (dm *defaultDatabaseManager) SetLogger(logger Logger) {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	dm.logger = logger
}
