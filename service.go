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

package tidbits

import (
	"context"
	"sync"

	"github.com/tomoncle/tidbits/database"
	"github.com/tomoncle/tidbits/repository"
	"github.com/tomoncle/tidbits/types"
	"github.com/uptrace/bun"
)

type Service[T any] interface {
	// Get returns the single entity matching filter, or nil.
	Get(ctx context.Context, filter *types.QueryFilter) (*T, error)

	// Exists reports whether any entity matches filter.
	Exists(ctx context.Context, filter *types.QueryFilter) (bool, error)

	// Count returns the number of entities matching filter.
	Count(ctx context.Context, filter *types.QueryFilter) (int, error)

	// All returns all entities.
	All(ctx context.Context) ([]*T, error)

	// List returns entities that match the provided filter.
	List(ctx context.Context, filter *types.QueryFilter) ([]*T, error)

	// Page returns a paginated list of entities.
	Page(ctx context.Context, page *types.PageRequest) (*types.Pagination[T], error)

	// Add inserts a new entity and returns it with generated values.
	Add(ctx context.Context, model *T) (*T, error)

	// Update writes every column of an existing entity.
	Update(ctx context.Context, model *T) (int64, error)

	// UpdateColumns writes the named fields of an existing entity.
	UpdateColumns(ctx context.Context, model *T, names ...string) (int64, error)

	// UpdateFields writes the selected fields of an existing entity.
	UpdateFields(ctx context.Context, model *T, selectors ...repository.FieldSelector[T]) (int64, error)

	// Remove deletes the single entity matching filter and returns it.
	Remove(ctx context.Context, filter *types.QueryFilter) (*T, error)

	// WithTx returns a service running its queries in tx.
	WithTx(tx bun.Tx) Service[T]

	// Repository exposes the underlying repository.
	Repository() repository.CrudRepository[T]
}

type baseServiceImpl[T any] struct {
	repo repository.CrudRepository[T]
	once sync.Once
}

// NewService returns a default Service implementation using the generic
// repository backed by the global database connection.
func NewService[T any]() Service[T] {
	return &baseServiceImpl[T]{}
}

// NewServiceWithDB returns a Service bound to db instead of the global database.
func NewServiceWithDB[T any](db *bun.DB) Service[T] {
	return NewServiceWithRepository(repository.NewRepository[T](db))
}

// NewServiceWithRepository returns a Service forwarding to repo.
func NewServiceWithRepository[T any](repo repository.CrudRepository[T]) Service[T] {
	s := &baseServiceImpl[T]{repo: repo}
	s.once.Do(func() {})
	return s
}

func (s *baseServiceImpl[T]) baseRepo() repository.CrudRepository[T] {
	s.once.Do(func() { s.repo = repository.NewRepository[T](database.GetDB()) })
	return s.repo
}

func (s *baseServiceImpl[T]) Repository() repository.CrudRepository[T] {
	return s.baseRepo()
}

func (s *baseServiceImpl[T]) WithTx(tx bun.Tx) Service[T] {
	return NewServiceWithRepository(s.baseRepo().WithTx(tx))
}

func (s *baseServiceImpl[T]) Get(ctx context.Context, filter *types.QueryFilter) (*T, error) {
	return s.baseRepo().GetNoTracking(ctx, filter)
}

func (s *baseServiceImpl[T]) Exists(ctx context.Context, filter *types.QueryFilter) (bool, error) {
	return s.baseRepo().Exists(ctx, filter)
}

func (s *baseServiceImpl[T]) Count(ctx context.Context, filter *types.QueryFilter) (int, error) {
	return s.baseRepo().Count(ctx, filter)
}

func (s *baseServiceImpl[T]) All(ctx context.Context) ([]*T, error) {
	return repository.Collect(s.baseRepo().ListAllNoTracking(ctx))
}

func (s *baseServiceImpl[T]) List(ctx context.Context, filter *types.QueryFilter) ([]*T, error) {
	return repository.Collect(s.baseRepo().ListNoTracking(ctx, filter))
}

func (s *baseServiceImpl[T]) Page(ctx context.Context, page *types.PageRequest) (*types.Pagination[T], error) {
	return s.baseRepo().PageNoTracking(ctx, page)
}

func (s *baseServiceImpl[T]) Add(ctx context.Context, model *T) (*T, error) {
	return s.baseRepo().AddNoTracking(ctx, model)
}

func (s *baseServiceImpl[T]) Update(ctx context.Context, model *T) (int64, error) {
	return s.baseRepo().UpdateNoTracking(ctx, model)
}

func (s *baseServiceImpl[T]) UpdateColumns(ctx context.Context, model *T, names ...string) (int64, error) {
	return s.baseRepo().UpdateNoTrackingColumns(ctx, model, names...)
}

func (s *baseServiceImpl[T]) UpdateFields(ctx context.Context, model *T, selectors ...repository.FieldSelector[T]) (int64, error) {
	return s.baseRepo().UpdateNoTrackingFields(ctx, model, selectors...)
}

func (s *baseServiceImpl[T]) Remove(ctx context.Context, filter *types.QueryFilter) (*T, error) {
	return s.baseRepo().Remove(ctx, filter)
}
