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

// QueryFilter describes a WHERE clause schema and its argument values.
type QueryFilter struct {
	Schema string
	Args   []interface{}
}

// NewQueryFilter creates a new query filter with schema and args.
func NewQueryFilter(schema string, args ...interface{}) *QueryFilter {
	return &QueryFilter{schema, args}
}

// IsEmpty reports whether the filter matches every row.
func (f *QueryFilter) IsEmpty() bool {
	return f == nil || f.Schema == ""
}

const (
	defaultPage     = 1
	defaultPageSize = 10
)

// PageRequest selects one page of rows. Values below 1 fall back to page 1
// and a page size of 10.
type PageRequest struct {
	Page     int
	PageSize int
	Filter   *QueryFilter
	Orders   []string // "id ASC", "name DESC"
}

// PageOption customizes a PageRequest.
type PageOption func(*PageRequest)

// WithFilter restricts the page to rows matching filter.
func WithFilter(filter *QueryFilter) PageOption {
	return func(p *PageRequest) { p.Filter = filter }
}

// WithOrders sets the ORDER BY expressions.
func WithOrders(orders ...string) PageOption {
	return func(p *PageRequest) { p.Orders = orders }
}

func NewPageRequest(page, pageSize int, opts ...PageOption) *PageRequest {
	p := &PageRequest{Page: page, PageSize: pageSize}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Normalized returns a copy with defaults applied. A nil request yields the
// first default page.
func (p *PageRequest) Normalized() PageRequest {
	if p == nil {
		return PageRequest{Page: defaultPage, PageSize: defaultPageSize}
	}
	n := *p
	if n.Page < 1 {
		n.Page = defaultPage
	}
	if n.PageSize < 1 {
		n.PageSize = defaultPageSize
	}
	return n
}

// Offset is the number of rows skipped before the page.
func (p PageRequest) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// Pagination is one page of results with the total number of matching rows.
type Pagination[T any] struct {
	Page     int
	PageSize int
	Total    int
	Items    []*T
}

// TotalPages is the number of pages needed for Total rows.
func (p *Pagination[T]) TotalPages() int {
	if p.PageSize < 1 {
		return 0
	}
	return (p.Total + p.PageSize - 1) / p.PageSize
}
