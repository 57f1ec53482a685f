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

package repository_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/tidbits/database"
	"github.com/uptrace/bun"
)

type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID        int64  `bun:"id,pk,autoincrement"`
	Name      string `bun:"name,notnull"`
	Property1 int    `bun:"property1,notnull"`
	Property2 int    `bun:"property2,notnull"`
	Property3 int    `bun:"property3,notnull"`
	Property4 int    `bun:"property4,notnull"`
}

func (u *User) clone() *User {
	c := *u
	return &c
}

type Order struct {
	bun.BaseModel `bun:"table:orders,alias:o"`

	ID     int64  `bun:"id,pk,autoincrement"`
	UserID int64  `bun:"user_id,notnull"`
	Item   string `bun:"item"`
}

type ProjectedUser struct {
	UserID int64  `bun:"user_id"`
	Name   string `bun:"user_name"`
}

func seedUsers() []*User {
	return []*User{
		{ID: 1, Name: "John", Property1: 1, Property2: 1, Property3: 1, Property4: 1},
		{ID: 2, Name: "Jane", Property1: 1, Property2: 1, Property3: 1, Property4: 1},
		{ID: 3, Name: "Tim", Property1: 1, Property2: 1, Property3: 1, Property4: 1},
		{ID: 4, Name: "Tom", Property1: 1, Property2: 1, Property3: 1, Property4: 1},
		{ID: 5, Name: "Sheila", Property1: 1, Property2: 1, Property3: 1, Property4: 1},
	}
}

// newTestDB opens a private in-memory sqlite database with foreign keys
// enforced and the users/orders tables created.
func newTestDB(t *testing.T) *bun.DB {
	t.Helper()
	ctx := context.Background()

	factory := database.NewDatabaseFactory()
	_, err := factory.CreateFromConfig(&database.ConnectionConfig{
		Type:               "sqlite",
		DBName:             "repo_" + uuid.NewString(),
		InMemory:           true,
		EnforceForeignKeys: true,
	})
	require.NoError(t, err)
	require.NoError(t, factory.InitializeDatabase(ctx, false))
	t.Cleanup(func() { _ = factory.Close() })

	db := factory.GetDB()
	registry := database.NewModelRegistry()
	registry.Register(database.NewModelAdapter((*User)(nil), 1))
	registry.Register(database.NewModelAdapter((*Order)(nil), 2))

	mm := database.NewMigrationManager(db, nil)
	mm.SetRegistry(registry)
	mm.SetForeignKeyManager(database.NewForeignKeyManager(nil, database.ForeignKeyConstraint{
		Table:           "orders",
		Column:          "user_id",
		ReferenceTable:  "users",
		ReferenceColumn: "id",
	}))
	require.NoError(t, mm.EnsureCreated(ctx))
	return db
}

// newSeededDB is newTestDB with the five seed users inserted.
func newSeededDB(t *testing.T) (*bun.DB, []*User) {
	t.Helper()
	db := newTestDB(t)
	users := seedUsers()
	_, err := db.NewInsert().Model(&users).Exec(context.Background())
	require.NoError(t, err)
	return db, seedUsers()
}
