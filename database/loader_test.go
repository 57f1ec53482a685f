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
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfig_AppliesDefaults(t *testing.T) {
	cfg, err := ParseConfig([]byte(`
connection:
  type: postgres
  host: localhost
  port: 5432
  dbname: app
migrate:
  enable_migrate_on_startup: true
`))

	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.ConnectionConfig.Type)
	assert.Equal(t, 5432, cfg.ConnectionConfig.Port)
	assert.Equal(t, "disable", cfg.ConnectionConfig.SSLMode)
	assert.Equal(t, 10, cfg.ConnectionConfig.MaxIdleConns)
	assert.Equal(t, 100, cfg.ConnectionConfig.MaxOpenConns)
	assert.Equal(t, time.Hour, cfg.ConnectionConfig.ConnMaxLifetime)
	assert.Equal(t, 2*time.Second, cfg.ConnectionConfig.SlowQueryTime)
	assert.Equal(t, "utf8mb4", cfg.ConnectionConfig.Charset)
	assert.True(t, cfg.DataMigrateConfig.EnableMigrateOnStartup)
}

func TestParseConfig_KeepsExplicitValues(t *testing.T) {
	cfg, err := ParseConfig([]byte(`
connection:
  type: sqlite
  dbname: cache
  in_memory: true
  max_open_conns: 4
  slow_query_time: 500ms
`))

	require.NoError(t, err)
	assert.True(t, cfg.ConnectionConfig.InMemory)
	assert.Equal(t, 4, cfg.ConnectionConfig.MaxOpenConns)
	assert.Equal(t, 500*time.Millisecond, cfg.ConnectionConfig.SlowQueryTime)
}

func TestParseConfig_ExpandsEnvironment(t *testing.T) {
	t.Setenv("TIDBITS_TEST_DB_PASSWORD", "s3cret")
	t.Setenv("TIDBITS_TEST_DB_NAME", "orders")

	cfg, err := ParseConfig([]byte(`
connection:
  type: mysql
  password: ${TIDBITS_TEST_DB_PASSWORD}
  dbname: ${TIDBITS_TEST_DB_NAME}
`))

	require.NoError(t, err)
	assert.Equal(t, "s3cret", cfg.ConnectionConfig.Password)
	assert.Equal(t, "orders", cfg.ConnectionConfig.DBName)
}

func TestParseConfig_RejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		message string
	}{
		{"missing type", "connection:\n  dbname: app\n", "ConnectionConfig.Type: required"},
		{"unknown type", "connection:\n  type: oracle\n  dbname: app\n", "ConnectionConfig.Type: oneof"},
		{"missing dbname", "connection:\n  type: sqlite\n", "ConnectionConfig.DBName: required"},
		{"bad port", "connection:\n  type: mysql\n  dbname: app\n  port: 70000\n", "ConnectionConfig.Port: max=65535"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConfig([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestParseConfig_RejectsMalformedYAML(t *testing.T) {
	_, err := ParseConfig([]byte("connection: [unterminated"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config")
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "database.yaml")
	require.NoError(t, os.WriteFile(path, []byte("connection:\n  type: sqlite\n  dbname: app\n"), 0o600))

	cfg, err := LoadConfig(path)

	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.ConnectionConfig.Type)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestValidateConfig_Nil(t *testing.T) {
	require.Error(t, ValidateConfig(nil))
}

func TestDefaultConnectionConfig(t *testing.T) {
	cfg := DefaultConnectionConfig()

	assert.True(t, cfg.EnableReconnect)
	assert.Equal(t, 5*time.Minute, cfg.HealthCheckInterval)
	assert.Equal(t, 10*time.Second, cfg.ConnectTimeout)
}
