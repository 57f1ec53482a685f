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
	"fmt"
	"reflect"
	"strings"

	"github.com/code19m/errx"
	"github.com/samber/lo"
	"github.com/uptrace/bun/schema"
)

func errUnknownField(table *schema.Table, field string) error {
	return errx.New("field is not a column of the entity",
		errx.WithCode(CodeUnknownField),
		errx.WithType(errx.T_Validation),
		errx.WithDetails(errx.D{"table": table.Name, "field": field}),
	)
}

func errNoFieldsSelected(table *schema.Table) error {
	return errx.New("no fields selected for update",
		errx.WithCode(CodeNoFieldsSelected),
		errx.WithType(errx.T_Validation),
		errx.WithDetails(errx.D{"table": table.Name}),
	)
}

// resolveColumns maps Go field names or column names to column names.
func resolveColumns(table *schema.Table, names []string) ([]string, error) {
	fields := make([]*schema.Field, 0, len(names))
	for _, name := range names {
		field, ok := lo.Find(table.Fields, func(f *schema.Field) bool {
			return f.GoName == name || strings.EqualFold(f.Name, name)
		})
		if !ok {
			return nil, errUnknownField(table, name)
		}
		fields = append(fields, field)
	}
	return updatableColumns(table, fields)
}

// resolveSelectors runs every selector against a zero value of T and matches
// the returned pointer to a table field by address and type. A struct and its
// first field share an address, so the type decides between them.
func resolveSelectors[T any](table *schema.Table, selectors []FieldSelector[T]) ([]string, error) {
	sample := new(T)
	root := reflect.ValueOf(sample).Elem()

	fields := make([]*schema.Field, 0, len(selectors))
	for i, selector := range selectors {
		if selector == nil {
			return nil, errUnknownField(table, fmt.Sprintf("selector #%d (nil)", i))
		}
		ptr := reflect.ValueOf(selector(sample))
		if ptr.Kind() != reflect.Pointer || ptr.IsNil() {
			return nil, errUnknownField(table, selectorLabel(i, ptr))
		}

		field, ok := lo.Find(table.Fields, func(f *schema.Field) bool {
			v, err := root.FieldByIndexErr(f.Index)
			if err != nil || !v.CanAddr() {
				return false
			}
			return v.Addr().Pointer() == ptr.Pointer() && v.Type() == ptr.Type().Elem()
		})
		if !ok {
			return nil, errUnknownField(table, selectorLabel(i, ptr))
		}
		fields = append(fields, field)
	}
	return updatableColumns(table, fields)
}

// updatableColumns drops primary key columns, which identify the row and are
// never written, and duplicates.
func updatableColumns(table *schema.Table, fields []*schema.Field) ([]string, error) {
	columns := lo.Uniq(lo.FilterMap(fields, func(f *schema.Field, _ int) (string, bool) {
		return f.Name, !f.IsPK
	}))
	if len(columns) == 0 {
		return nil, errNoFieldsSelected(table)
	}
	return columns, nil
}

func selectorLabel(i int, v reflect.Value) string {
	if !v.IsValid() {
		return fmt.Sprintf("selector #%d (nil)", i)
	}
	return fmt.Sprintf("selector #%d (%s)", i, v.Type())
}
