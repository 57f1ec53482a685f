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

package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPageRequest_Normalized(t *testing.T) {
	tests := []struct {
		name       string
		req        *PageRequest
		wantPage   int
		wantSize   int
		wantOffset int
	}{
		{"nil", nil, 1, 10, 0},
		{"zero values", NewPageRequest(0, 0), 1, 10, 0},
		{"explicit", NewPageRequest(3, 25), 3, 25, 50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.req.Normalized()

			assert.Equal(t, tt.wantPage, got.Page)
			assert.Equal(t, tt.wantSize, got.PageSize)
			assert.Equal(t, tt.wantOffset, got.Offset())
		})
	}
}

func TestPageRequest_NormalizedDoesNotMutate(t *testing.T) {
	req := NewPageRequest(0, 0, WithOrders("id DESC"), WithFilter(NewQueryFilter("id > ?", 1)))

	got := req.Normalized()

	assert.Zero(t, req.Page)
	assert.Equal(t, []string{"id DESC"}, got.Orders)
	assert.Equal(t, "id > ?", got.Filter.Schema)
}

func TestPagination_TotalPages(t *testing.T) {
	assert.Equal(t, 3, (&Pagination[int]{PageSize: 2, Total: 5}).TotalPages())
	assert.Equal(t, 0, (&Pagination[int]{PageSize: 10}).TotalPages())
	assert.Equal(t, 0, (&Pagination[int]{Total: 3}).TotalPages())
}

func TestQueryFilterAndProjection_IsEmpty(t *testing.T) {
	var filter *QueryFilter
	assert.True(t, filter.IsEmpty())
	assert.True(t, NewQueryFilter("").IsEmpty())
	assert.False(t, NewQueryFilter("id = ?", 1).IsEmpty())

	var projection *Projection
	assert.True(t, projection.IsEmpty())
	assert.False(t, NewProjection("id").IsEmpty())
}
