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
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"github.com/uptrace/bun"
)

var bunSqlSilentMode atomic.Bool

// EnableBunSqlSilent mutes the package query hooks, e.g. while migrating.
func EnableBunSqlSilent(b bool) {
	bunSqlSilentMode.Store(b)
}

// slowQueryHook warns about successful queries slower than slowTime.
type slowQueryHook struct {
	slowTime time.Duration
	logger   Logger
}

var _ bun.QueryHook = (*slowQueryHook)(nil)

func (h *slowQueryHook) BeforeQuery(ctx context.Context, _ *bun.QueryEvent) context.Context {
	return ctx
}

func (h *slowQueryHook) AfterQuery(_ context.Context, event *bun.QueryEvent) {
	if bunSqlSilentMode.Load() || event.Err != nil || h.logger == nil {
		return
	}

	duration := time.Since(event.StartTime)
	if duration > h.slowTime {
		h.logger.Warn("Database slow query detected",
			"operation", event.Operation(),
			"duration", duration.Round(time.Microsecond),
			"slow_threshold", h.slowTime,
			"query", formatQuery(event.Query),
		)
	}
}

// errorQueryHook logs failed queries with their classified SQL error.
// sql.ErrNoRows and sql.ErrTxDone are not failures.
type errorQueryHook struct {
	logger Logger
}

var _ bun.QueryHook = (*errorQueryHook)(nil)

func (h *errorQueryHook) BeforeQuery(ctx context.Context, _ *bun.QueryEvent) context.Context {
	return ctx
}

func (h *errorQueryHook) AfterQuery(_ context.Context, event *bun.QueryEvent) {
	if bunSqlSilentMode.Load() || h.logger == nil || event.Err == nil {
		return
	}
	if errors.Is(event.Err, sql.ErrNoRows) || errors.Is(event.Err, sql.ErrTxDone) {
		return
	}

	_, kind := IsSqlError(event.Err)
	h.logger.Warn("Database query failed",
		"operation", event.Operation(),
		"sql_error", kind.String(),
		"error", event.Err.Error(),
		"query", formatQuery(event.Query),
	)
}

func formatQuery(query string) string {
	return strings.ReplaceAll(query, "\"", "")
}
