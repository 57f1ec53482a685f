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

	"github.com/tomoncle/tidbits/types"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/feature"
)

type crudRepositoryImpl[T any] struct {
	*readOnlyRepositoryImpl[T]
}

// NewRepository returns a generic no-tracking repository backed by the provided Bun DB.
func NewRepository[T any](db *bun.DB) CrudRepository[T] {
	return &crudRepositoryImpl[T]{newReadOnlyRepositoryImpl[T](db, db)}
}

func (r *crudRepositoryImpl[T]) WithTx(tx bun.Tx) CrudRepository[T] {
	return &crudRepositoryImpl[T]{newReadOnlyRepositoryImpl[T](r.db, tx)}
}

func (r *crudRepositoryImpl[T]) AddNoTracking(ctx context.Context, entity *T) (*T, error) {
	query := r.idb.NewInsert().Model(entity)
	if r.db.HasFeature(feature.InsertReturning) {
		query = query.Returning("*")
	}
	if _, err := query.Exec(ctx); err != nil {
		return nil, wrapWriteError(err, query)
	}
	return entity, nil
}

func (r *crudRepositoryImpl[T]) Remove(ctx context.Context, filter *types.QueryFilter) (*T, error) {
	entity, err := r.GetNoTracking(ctx, filter)
	if err != nil || entity == nil {
		return nil, err
	}
	query := r.idb.NewDelete().Model(entity).WherePK()
	if _, err := query.Exec(ctx); err != nil {
		return nil, wrapWriteError(err, query)
	}
	return entity, nil
}

func (r *crudRepositoryImpl[T]) UpdateNoTracking(ctx context.Context, entity *T) (int64, error) {
	return r.update(ctx, r.idb.NewUpdate().Model(entity).WherePK())
}

func (r *crudRepositoryImpl[T]) UpdateNoTrackingColumns(ctx context.Context, entity *T, names ...string) (int64, error) {
	table, err := tableOf[T](r.db)
	if err != nil {
		return 0, err
	}
	columns, err := resolveColumns(table, names)
	if err != nil {
		return 0, err
	}
	return r.update(ctx, r.idb.NewUpdate().Model(entity).Column(columns...).WherePK())
}

func (r *crudRepositoryImpl[T]) UpdateNoTrackingFields(ctx context.Context, entity *T, selectors ...FieldSelector[T]) (int64, error) {
	table, err := tableOf[T](r.db)
	if err != nil {
		return 0, err
	}
	columns, err := resolveSelectors(table, selectors)
	if err != nil {
		return 0, err
	}
	return r.update(ctx, r.idb.NewUpdate().Model(entity).Column(columns...).WherePK())
}

// update runs query and reports a missing row as CodeNotFound.
func (r *crudRepositoryImpl[T]) update(ctx context.Context, query *bun.UpdateQuery) (int64, error) {
	res, err := query.Exec(ctx)
	if err != nil {
		return 0, wrapWriteError(err, query)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, wrapQueryError(err, query)
	}
	if affected == 0 {
		return 0, errNotFound(r.tableName())
	}
	return affected, nil
}
