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

// Projection lists the column expressions selected from an entity table,
// e.g. "id AS user_id". Result columns are matched to the target struct by
// their bun column names.
type Projection struct {
	Columns []string
}

// NewProjection creates a projection over the given column expressions.
func NewProjection(columns ...string) *Projection {
	return &Projection{Columns: columns}
}

func (p *Projection) IsEmpty() bool {
	return p == nil || len(p.Columns) == 0
}
