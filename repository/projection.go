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

	"github.com/code19m/errx"
	"github.com/tomoncle/tidbits/types"
	"github.com/uptrace/bun"
)

// GetProjected returns the single row of T matching filter, projected into R.
// It returns nil when nothing matches and an error on more than one match.
func GetProjected[T, R any](ctx context.Context, repo ReadOnlyRepository[T], filter *types.QueryFilter, projection *types.Projection) (*R, error) {
	query, err := projectedSelect(repo, filter, projection)
	if err != nil {
		return nil, err
	}
	var results []R
	query = query.Limit(2)
	if err := query.Scan(ctx, &results); err != nil {
		return nil, wrapQueryError(err, query)
	}
	name, _ := TableName[T](repo.DB())
	return single(results, name)
}

// ListAllProjected streams every row of T projected into R.
func ListAllProjected[T, R any](ctx context.Context, repo ReadOnlyRepository[T], projection *types.Projection) iter.Seq2[*R, error] {
	return ListProjected[T, R](ctx, repo, nil, projection)
}

// ListProjected streams the rows of T matching filter projected into R.
func ListProjected[T, R any](ctx context.Context, repo ReadOnlyRepository[T], filter *types.QueryFilter, projection *types.Projection) iter.Seq2[*R, error] {
	query, err := projectedSelect(repo, filter, projection)
	if err != nil {
		return func(yield func(*R, error) bool) { yield(nil, err) }
	}
	return scanSeq[R](ctx, repo.DB(), query)
}

func projectedSelect[T any](repo ReadOnlyRepository[T], filter *types.QueryFilter, projection *types.Projection) (*bun.SelectQuery, error) {
	if projection.IsEmpty() {
		name, _ := TableName[T](repo.DB())
		return nil, errx.New("projection has no columns",
			errx.WithCode(CodeNoFieldsSelected),
			errx.WithType(errx.T_Validation),
			errx.WithDetails(errx.D{"table": name}),
		)
	}
	query := repo.NewSelect()
	for _, column := range projection.Columns {
		query = query.ColumnExpr(column)
	}
	return applyFilter(query, filter), nil
}
