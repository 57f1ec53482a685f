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
	"time"

	"github.com/code19m/errx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/tidbits/repository"
	"github.com/tomoncle/tidbits/types"
	"github.com/uptrace/bun"
)

var userIDProjection = types.NewProjection("id AS user_id", "name AS user_name")

func TestListAllNoTracking_ReturnsAllEntities(t *testing.T) {
	db, users := newSeededDB(t)
	repo := repository.NewReadOnlyRepository[User](db)

	result, err := repository.Collect(repo.ListAllNoTracking(context.Background()))

	require.NoError(t, err)
	assert.ElementsMatch(t, users, result)
}

func TestListAllNoTracking_EmptyTable(t *testing.T) {
	repo := repository.NewReadOnlyRepository[User](newTestDB(t))

	result, err := repository.Collect(repo.ListAllNoTracking(context.Background()))

	require.NoError(t, err)
	assert.Empty(t, result)
}

func TestListAllProjected_ReturnsProjectedRows(t *testing.T) {
	db, users := newSeededDB(t)
	repo := repository.NewReadOnlyRepository[User](db)

	result, err := repository.Collect(
		repository.ListAllProjected[User, ProjectedUser](context.Background(), repo, userIDProjection),
	)

	require.NoError(t, err)
	expected := make([]*ProjectedUser, 0, len(users))
	for _, u := range users {
		expected = append(expected, &ProjectedUser{UserID: u.ID, Name: u.Name})
	}
	assert.ElementsMatch(t, expected, result)
}

func TestListNoTracking_ReturnsOnlyMatches(t *testing.T) {
	db, users := newSeededDB(t)
	repo := repository.NewReadOnlyRepository[User](db)

	result, err := repository.Collect(
		repo.ListNoTracking(context.Background(), types.NewQueryFilter("name LIKE ?", "T%")),
	)

	require.NoError(t, err)
	assert.ElementsMatch(t, []*User{users[2], users[3]}, result)
}

func TestListProjected_ReturnsProjectedMatches(t *testing.T) {
	db, _ := newSeededDB(t)
	repo := repository.NewReadOnlyRepository[User](db)

	result, err := repository.Collect(repository.ListProjected[User, ProjectedUser](
		context.Background(), repo, types.NewQueryFilter("id > ?", 3), userIDProjection,
	))

	require.NoError(t, err)
	assert.ElementsMatch(t, []*ProjectedUser{
		{UserID: 4, Name: "Tom"},
		{UserID: 5, Name: "Sheila"},
	}, result)
}

func TestListProjected_RejectsEmptyProjection(t *testing.T) {
	db, _ := newSeededDB(t)
	repo := repository.NewReadOnlyRepository[User](db)

	result, err := repository.Collect(repository.ListProjected[User, ProjectedUser](
		context.Background(), repo, nil, types.NewProjection(),
	))

	require.Error(t, err)
	assert.Nil(t, result)
	assert.True(t, errx.IsCodeIn(err, repository.CodeNoFieldsSelected))
}

func TestListNoTracking_ReleasesCursorWhenConsumerStops(t *testing.T) {
	db, _ := newSeededDB(t)
	repo := repository.NewReadOnlyRepository[User](db)
	ctx := context.Background()

	seen := 0
	for user, err := range repo.ListAllNoTracking(ctx) {
		require.NoError(t, err)
		require.NotNil(t, user)
		seen++
		break
	}
	assert.Equal(t, 1, seen)

	// the pool holds a single connection, so this blocks if the cursor leaked
	count, err := repo.Count(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 5, count)
}

func TestGetNoTracking_ReturnsSingleMatch(t *testing.T) {
	db, users := newSeededDB(t)
	repo := repository.NewReadOnlyRepository[User](db)

	result, err := repo.GetNoTracking(context.Background(), types.NewQueryFilter("id = ?", users[1].ID))

	require.NoError(t, err)
	assert.Equal(t, users[1], result)
}

func TestGetNoTracking_ReturnsNil_whenNoMatchFound(t *testing.T) {
	db, _ := newSeededDB(t)
	repo := repository.NewReadOnlyRepository[User](db)

	result, err := repo.GetNoTracking(context.Background(), types.NewQueryFilter("id = ?", 10))

	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestGetNoTracking_Fails_whenMoreMatchesFound(t *testing.T) {
	db, _ := newSeededDB(t)
	repo := repository.NewReadOnlyRepository[User](db)

	result, err := repo.GetNoTracking(context.Background(), types.NewQueryFilter("property1 = ?", 1))

	require.Error(t, err)
	assert.Nil(t, result)
	assert.True(t, errx.IsCodeIn(err, repository.CodeMultipleRows))
}

func TestGetProjected_ReturnsProjectedMatch(t *testing.T) {
	db, _ := newSeededDB(t)
	repo := repository.NewReadOnlyRepository[User](db)

	result, err := repository.GetProjected[User, ProjectedUser](
		context.Background(), repo, types.NewQueryFilter("name = ?", "Jane"), userIDProjection,
	)

	require.NoError(t, err)
	assert.Equal(t, &ProjectedUser{UserID: 2, Name: "Jane"}, result)
}

func TestGetProjected_ReturnsNil_whenNoMatchFound(t *testing.T) {
	db, _ := newSeededDB(t)
	repo := repository.NewReadOnlyRepository[User](db)

	result, err := repository.GetProjected[User, ProjectedUser](
		context.Background(), repo, types.NewQueryFilter("name = ?", "Nobody"), userIDProjection,
	)

	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestGetProjected_Fails_whenMoreMatchesFound(t *testing.T) {
	db, _ := newSeededDB(t)
	repo := repository.NewReadOnlyRepository[User](db)

	result, err := repository.GetProjected[User, ProjectedUser](
		context.Background(), repo, types.NewQueryFilter("id < ?", 3), userIDProjection,
	)

	require.Error(t, err)
	assert.Nil(t, result)
	assert.True(t, errx.IsCodeIn(err, repository.CodeMultipleRows))
}

func TestExists(t *testing.T) {
	db, _ := newSeededDB(t)
	repo := repository.NewReadOnlyRepository[User](db)
	ctx := context.Background()

	tests := []struct {
		name   string
		filter *types.QueryFilter
		want   bool
	}{
		{"match", types.NewQueryFilter("name = ?", "Sheila"), true},
		{"no match", types.NewQueryFilter("name = ?", "Nobody"), false},
		{"nil filter", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exists, err := repo.Exists(ctx, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, exists)
		})
	}
}

func TestExists_EmptyTable(t *testing.T) {
	repo := repository.NewReadOnlyRepository[User](newTestDB(t))

	exists, err := repo.Exists(context.Background(), nil)

	require.NoError(t, err)
	assert.False(t, exists)
}

func TestCount(t *testing.T) {
	db, _ := newSeededDB(t)
	repo := repository.NewReadOnlyRepository[User](db)

	count, err := repo.Count(context.Background(), types.NewQueryFilter("id >= ?", 2))

	require.NoError(t, err)
	assert.Equal(t, 4, count)
}

func TestPageNoTracking(t *testing.T) {
	db, users := newSeededDB(t)
	repo := repository.NewReadOnlyRepository[User](db)

	page, err := repo.PageNoTracking(context.Background(), types.NewPageRequest(2, 2, types.WithOrders("id ASC")))

	require.NoError(t, err)
	assert.Equal(t, 5, page.Total)
	assert.Equal(t, 2, page.Page)
	assert.Equal(t, 2, page.PageSize)
	assert.Equal(t, []*User{users[2], users[3]}, page.Items)
	assert.Equal(t, 3, page.TotalPages())
}

func TestPageNoTracking_NoMatches(t *testing.T) {
	db, _ := newSeededDB(t)
	repo := repository.NewReadOnlyRepository[User](db)

	page, err := repo.PageNoTracking(context.Background(),
		types.NewPageRequest(1, 10, types.WithFilter(types.NewQueryFilter("id > ?", 100))))

	require.NoError(t, err)
	assert.Zero(t, page.Total)
	assert.Empty(t, page.Items)
}

func TestTableName(t *testing.T) {
	db := newTestDB(t)

	name, err := repository.TableName[User](db)
	require.NoError(t, err)
	assert.Equal(t, "users", name)

	name, err = repository.TableName[*Order](db)
	require.NoError(t, err)
	assert.Equal(t, "orders", name)

	_, err = repository.TableName[int](db)
	require.Error(t, err)
	assert.True(t, errx.IsCodeIn(err, repository.CodeNotAnEntity))
}

type AuditEntry struct {
	bun.BaseModel `bun:"table:audit.entries"`

	ID int64 `bun:"id,pk"`
}

func TestTableName_SchemaQualified(t *testing.T) {
	db := newTestDB(t)

	name, err := repository.TableName[AuditEntry](db)

	require.NoError(t, err)
	assert.Equal(t, "audit.entries", name)
}

func TestListAllNoTracking_StopsWhenContextCancelled(t *testing.T) {
	db, _ := newSeededDB(t)
	repo := repository.NewReadOnlyRepository[User](db)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var seen int
	var streamErr error
	for user, err := range repo.ListAllNoTracking(ctx) {
		if err != nil {
			streamErr = err
			break
		}
		require.NotNil(t, user)
		seen++
		cancel()
	}

	assert.Equal(t, 1, seen)
	require.Error(t, streamErr)
}

func TestListAllNoTracking_NestedQueryWaitsForPinnedConnection(t *testing.T) {
	db, _ := newSeededDB(t)
	repo := repository.NewReadOnlyRepository[User](db)
	ctx := context.Background()

	for _, err := range repo.ListAllNoTracking(ctx) {
		require.NoError(t, err)
		nestedCtx, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
		_, nestedErr := repo.Exists(nestedCtx, nil)
		cancel()
		assert.Error(t, nestedErr)
		break
	}

	exists, err := repo.Exists(ctx, nil)
	require.NoError(t, err)
	assert.True(t, exists)
}
