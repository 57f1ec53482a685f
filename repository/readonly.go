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

type readOnlyRepositoryImpl[T any] struct {
	db  *bun.DB
	idb bun.IDB
}

// NewReadOnlyRepository returns a read-only repository backed by the provided Bun DB.
func NewReadOnlyRepository[T any](db *bun.DB) ReadOnlyRepository[T] {
	return newReadOnlyRepositoryImpl[T](db, db)
}

func newReadOnlyRepositoryImpl[T any](db *bun.DB, idb bun.IDB) *readOnlyRepositoryImpl[T] {
	return &readOnlyRepositoryImpl[T]{db: db, idb: idb}
}

func (r *readOnlyRepositoryImpl[T]) DB() *bun.DB { return r.db }

func (r *readOnlyRepositoryImpl[T]) IDB() bun.IDB { return r.idb }

func (r *readOnlyRepositoryImpl[T]) NewSelect() *bun.SelectQuery {
	return r.idb.NewSelect().Model((*T)(nil))
}

func (r *readOnlyRepositoryImpl[T]) GetNoTracking(ctx context.Context, filter *types.QueryFilter) (*T, error) {
	var entities []T
	query := applyFilter(r.idb.NewSelect().Model(&entities), filter).Limit(2)
	if err := query.Scan(ctx); err != nil {
		return nil, wrapQueryError(err, query)
	}
	return single(entities, r.tableName())
}

func (r *readOnlyRepositoryImpl[T]) tableName() string {
	name, _ := TableName[T](r.db)
	return name
}

func (r *readOnlyRepositoryImpl[T]) ListAllNoTracking(ctx context.Context) iter.Seq2[*T, error] {
	return scanSeq[T](ctx, r.db, r.NewSelect())
}

func (r *readOnlyRepositoryImpl[T]) ListNoTracking(ctx context.Context, filter *types.QueryFilter) iter.Seq2[*T, error] {
	return scanSeq[T](ctx, r.db, applyFilter(r.NewSelect(), filter))
}

func (r *readOnlyRepositoryImpl[T]) Exists(ctx context.Context, filter *types.QueryFilter) (bool, error) {
	query := applyFilter(r.NewSelect(), filter)
	exists, err := query.Exists(ctx)
	if err != nil {
		return false, wrapQueryError(err, query)
	}
	return exists, nil
}

func (r *readOnlyRepositoryImpl[T]) Count(ctx context.Context, filter *types.QueryFilter) (int, error) {
	query := applyFilter(r.NewSelect(), filter)
	count, err := query.Count(ctx)
	if err != nil {
		return 0, wrapQueryError(err, query)
	}
	return count, nil
}

func (r *readOnlyRepositoryImpl[T]) PageNoTracking(ctx context.Context, pageRequest *types.PageRequest) (*types.Pagination[T], error) {
	req := pageRequest.Normalized()
	pagination := &types.Pagination[T]{Page: req.Page, PageSize: req.PageSize, Items: make([]*T, 0)}

	var entities []*T
	query := applyFilter(r.idb.NewSelect().Model(&entities), req.Filter)
	total, err := query.Count(ctx)
	if err != nil {
		return nil, wrapQueryError(err, query)
	}
	if total == 0 {
		return pagination, nil
	}
	err = query.
		Offset(req.Offset()).
		Limit(req.PageSize).
		Order(req.Orders...).
		Scan(ctx)
	if err != nil {
		return nil, wrapQueryError(err, query)
	}
	pagination.Total = total
	pagination.Items = entities
	return pagination, nil
}

func applyFilter(query *bun.SelectQuery, filter *types.QueryFilter) *bun.SelectQuery {
	if filter.IsEmpty() {
		return query
	}
	return query.Where(filter.Schema, filter.Args...)
}

// single returns the only element of items, nil when empty.
func single[E any](items []E, table string) (*E, error) {
	switch len(items) {
	case 0:
		return nil, nil
	case 1:
		return &items[0], nil
	default:
		return nil, errMultipleRows(table)
	}
}

// scanSeq streams the rows of query, scanning each into a new E. The cursor
// holds a connection until iteration ends or the consumer stops.
// scanSeq streams query results. The rows keep their connection until the
// loop ends; cancelling ctx stops the stream with the context error.
func scanSeq[E any](ctx context.Context, db *bun.DB, query *bun.SelectQuery) iter.Seq2[*E, error] {
	return func(yield func(*E, error) bool) {
		rows, err := query.Rows(ctx)
		if err != nil {
			yield(nil, wrapQueryError(err, query))
			return
		}
		defer rows.Close()

		for {
			if err := ctx.Err(); err != nil {
				yield(nil, wrapQueryError(err, query))
				return
			}
			if !rows.Next() {
				break
			}
			item := new(E)
			if err := db.ScanRow(ctx, rows, item); err != nil {
				yield(nil, wrapQueryError(err, query))
				return
			}
			if !yield(item, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(nil, wrapQueryError(err, query))
		}
	}
}

// Collect drains seq into a slice, stopping at the first error.
func Collect[E any](seq iter.Seq2[*E, error]) ([]*E, error) {
	items := make([]*E, 0)
	for item, err := range seq {
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}
