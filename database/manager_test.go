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
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) *defaultDatabaseManager {
	t.Helper()
	dm := newDatabaseManager(&ConnectionConfig{
		Type:               "sqlite",
		DBName:             "manager_" + uuid.NewString(),
		InMemory:           true,
		EnforceForeignKeys: true,
		ReconnectInterval:  time.Millisecond,
		MaxReconnectTries:  2,
	}, nil)
	require.NoError(t, dm.Connect(context.Background()))
	t.Cleanup(func() { _ = dm.Disconnect() })
	return dm
}

func TestDatabaseManager_HealthCheckAndStats(t *testing.T) {
	dm := newTestManager(t)

	status := dm.HealthCheck(context.Background())
	assert.True(t, status.Healthy)
	assert.True(t, status.Connected)
	assert.Empty(t, status.LastError)
	assert.Equal(t, 1, status.MaxOpenConns)

	stats := dm.GetStats()
	assert.Equal(t, 1, stats.MaxOpenConns)
	assert.Equal(t, 1, stats.OpenConns)
}

func TestDatabaseManager_ReconnectKeepsHandle(t *testing.T) {
	dm := newTestManager(t)
	ctx := context.Background()
	db := dm.GetDB()
	mm := NewMigrationManager(db, nil)
	registry := NewModelRegistry()
	registry.Register(NewModelAdapter((*testUser)(nil), 1))
	mm.SetRegistry(registry)
	require.NoError(t, mm.EnsureCreated(ctx))

	require.NoError(t, dm.Reconnect(ctx))

	assert.Same(t, db, dm.GetDB())
	_, err := db.NewInsert().Model(&testUser{Name: "after reconnect"}).Exec(ctx)
	require.NoError(t, err)
	count, err := db.NewSelect().Model((*testUser)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	var fk int
	require.NoError(t, db.QueryRowContext(ctx, "PRAGMA foreign_keys").Scan(&fk))
	assert.Equal(t, 1, fk)
}

func TestDatabaseManager_ConnectIsNoOpWhileConnected(t *testing.T) {
	dm := newTestManager(t)
	db := dm.GetDB()

	require.NoError(t, dm.Connect(context.Background()))

	assert.Same(t, db, dm.GetDB())
}

func TestDatabaseManager_ReconnectAfterDisconnect(t *testing.T) {
	dm := newTestManager(t)
	ctx := context.Background()
	require.NoError(t, dm.Disconnect())

	status := dm.HealthCheck(ctx)
	assert.False(t, status.Healthy)
	assert.Equal(t, "Database not initialized", status.LastError)
	assert.Equal(t, &DBStats{}, dm.GetStats())

	require.NoError(t, dm.Reconnect(ctx))
	require.NotNil(t, dm.GetDB())
	assert.True(t, dm.HealthCheck(ctx).Healthy)
}

func TestDatabaseManager_TryReconnectStopsAfterMaxTries(t *testing.T) {
	dm := newTestManager(t)

	assert.True(t, dm.tryReconnect())
	assert.Zero(t, dm.reconnectTries)

	dm.setReconnectTries(dm.config.MaxReconnectTries)
	assert.False(t, dm.tryReconnect())
}
