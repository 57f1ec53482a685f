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

package tidbits_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/tidbits"
	"github.com/tomoncle/tidbits/database"
	"github.com/tomoncle/tidbits/repository"
	"github.com/tomoncle/tidbits/types"
	"github.com/uptrace/bun"
)

type Note struct {
	bun.BaseModel `bun:"table:notes"`

	ID     int64  `bun:"id,pk,autoincrement"`
	Title  string `bun:"title,notnull"`
	Body   string `bun:"body"`
	Pinned bool   `bun:"pinned,notnull"`
}

func init() {
	database.RegisteredModel(database.NewModelAdapter((*Note)(nil), 1))
}

func initGlobalDB(t *testing.T) {
	t.Helper()
	_, err := database.InitDB(&database.Config{
		ConnectionConfig: database.ConnectionConfig{
			Type:     "sqlite",
			DBName:   "service_" + uuid.NewString(),
			InMemory: true,
		},
		DataMigrateConfig: database.DataMigrateConfig{
			EnableMigrateOnStartup: true,
		},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.CloseDB() })
}

func TestService_CRUD(t *testing.T) {
	initGlobalDB(t)
	svc := tidbits.NewService[Note]()
	ctx := context.Background()

	note, err := svc.Add(ctx, &Note{Title: "first", Body: "hello"})
	require.NoError(t, err)
	require.NotZero(t, note.ID)
	_, err = svc.Add(ctx, &Note{Title: "second", Body: "world"})
	require.NoError(t, err)

	got, err := svc.Get(ctx, types.NewQueryFilter("title = ?", "first"))
	require.NoError(t, err)
	assert.Equal(t, note, got)

	all, err := svc.All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	exists, err := svc.Exists(ctx, types.NewQueryFilter("title = ?", "second"))
	require.NoError(t, err)
	assert.True(t, exists)

	changed := *note
	changed.Title = "renamed"
	changed.Body = "ignored"
	affected, err := svc.UpdateFields(ctx, &changed, func(n *Note) any { return &n.Title })
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	got, err = svc.Get(ctx, types.NewQueryFilter("id = ?", note.ID))
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Title)
	assert.Equal(t, "hello", got.Body)

	changed.Pinned = true
	_, err = svc.UpdateColumns(ctx, &changed, "Pinned")
	require.NoError(t, err)

	pinned, err := svc.List(ctx, types.NewQueryFilter("pinned = ?", true))
	require.NoError(t, err)
	require.Len(t, pinned, 1)
	assert.Equal(t, note.ID, pinned[0].ID)

	page, err := svc.Page(ctx, types.NewPageRequest(1, 1))
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
	assert.Len(t, page.Items, 1)

	removed, err := svc.Remove(ctx, types.NewQueryFilter("id = ?", note.ID))
	require.NoError(t, err)
	require.NotNil(t, removed)
	count, err := svc.Count(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	_, err = svc.Update(ctx, removed)
	require.Error(t, err)
	assert.True(t, repository.IsNotFound(err))
}

func TestService_WithTx(t *testing.T) {
	initGlobalDB(t)
	svc := tidbits.NewService[Note]()
	ctx := context.Background()

	err := database.GetDB().RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := svc.WithTx(tx).Add(ctx, &Note{Title: "in tx"})
		return err
	})
	require.NoError(t, err)

	exists, err := svc.Exists(ctx, types.NewQueryFilter("title = ?", "in tx"))
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestNewServiceWithDB(t *testing.T) {
	initGlobalDB(t)
	svc := tidbits.NewServiceWithDB[Note](database.GetDB())

	assert.Same(t, database.GetDB(), svc.Repository().DB())
	count, err := svc.Count(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestService_SurvivesReconnect(t *testing.T) {
	initGlobalDB(t)
	svc := tidbits.NewService[Note]()
	ctx := context.Background()
	_, err := svc.Add(ctx, &Note{Title: "before"})
	require.NoError(t, err)

	require.NoError(t, database.GetDatabaseManager().Reconnect(ctx))

	_, err = svc.Add(ctx, &Note{Title: "after"})
	require.NoError(t, err)
	count, err := svc.Count(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}
