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

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGlobalDatabaseLifecycle(t *testing.T) {
	ctx := context.Background()
	require.Nil(t, GetDB())
	assert.Equal(t, "Database not initialized", GetHealthStatus(ctx).LastError)

	db, err := InitDB(&Config{ConnectionConfig: ConnectionConfig{
		Type:     "sqlite",
		DBName:   "conn_" + uuid.NewString(),
		InMemory: true,
	}})
	require.NoError(t, err)
	t.Cleanup(func() { _ = CloseDB() })

	assert.Same(t, db, GetDB())
	assert.True(t, GetHealthStatus(ctx).Healthy)
	assert.Equal(t, 1, GetDatabaseStats().MaxOpenConns)

	require.NoError(t, GetDatabaseManager().Reconnect(ctx))
	assert.Same(t, db, GetDB())

	require.NoError(t, CloseDB())
	assert.Nil(t, GetDB())
	assert.Nil(t, GetDatabaseManager())
	assert.Equal(t, &DBStats{}, GetDatabaseStats())
}
