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

package repository

import (
	"context"
	"iter"

	"github.com/tomoncle/tidbits/types"
	"github.com/uptrace/bun"
)

// FieldSelector addresses one field of T by returning a pointer to it,
// e.g. func(u *User) any { return &u.Name }.
type FieldSelector[T any] func(*T) any

// ReadOnlyRepository reads entities of type T without keeping any reference
// to the returned values. A nil filter matches every row.
type ReadOnlyRepository[T any] interface {
	// GetNoTracking returns the single entity matching filter, or nil when
	// nothing matches. More than one match is an error.
	GetNoTracking(ctx context.Context, filter *types.QueryFilter) (*T, error)

	// ListAllNoTracking streams every entity of the table.
	//
	// The stream holds a pooled connection until the range loop ends or
	// breaks. On a pool limited to one connection, such as in-memory sqlite,
	// any other query issued from inside the loop waits for that connection
	// and blocks until its own context is done. Collect the stream first when
	// the loop body needs the database. Cancelling ctx ends the stream with
	// the context error.
	ListAllNoTracking(ctx context.Context) iter.Seq2[*T, error]

	// ListNoTracking streams the entities matching filter. It holds a
	// connection while ranging, see ListAllNoTracking.
	ListNoTracking(ctx context.Context, filter *types.QueryFilter) iter.Seq2[*T, error]

	// Exists reports whether any entity matches filter.
	Exists(ctx context.Context, filter *types.QueryFilter) (bool, error)

	// Count returns the number of entities matching filter.
	Count(ctx context.Context, filter *types.QueryFilter) (int, error)

	// PageNoTracking returns one page of the entities matching the request filter.
	PageNoTracking(ctx context.Context, page *types.PageRequest) (*types.Pagination[T], error)

	// DB returns the underlying database.
	DB() *bun.DB

	// IDB returns the handle queries run on, the database or a transaction.
	IDB() bun.IDB

	// NewSelect returns a select query bound to T's table.
	NewSelect() *bun.SelectQuery
}

// CrudRepository extends ReadOnlyRepository with detached writes.
type CrudRepository[T any] interface {
	ReadOnlyRepository[T]

	// AddNoTracking inserts entity and returns it with generated values filled in.
	AddNoTracking(ctx context.Context, entity *T) (*T, error)

	// Remove deletes the single entity matching filter and returns it, or
	// returns nil when nothing matches.
	Remove(ctx context.Context, filter *types.QueryFilter) (*T, error)

	// UpdateNoTracking writes every column of entity by primary key.
	UpdateNoTracking(ctx context.Context, entity *T) (int64, error)

	// UpdateNoTrackingColumns writes only the named fields, given as Go field
	// names or column names.
	UpdateNoTrackingColumns(ctx context.Context, entity *T, names ...string) (int64, error)

	// UpdateNoTrackingFields writes only the fields addressed by selectors.
	UpdateNoTrackingFields(ctx context.Context, entity *T, selectors ...FieldSelector[T]) (int64, error)

	// WithTx returns a repository running its queries in tx.
	WithTx(tx bun.Tx) CrudRepository[T]
}
