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
	"reflect"

	"github.com/code19m/errx"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/schema"
)

// TableName returns the table T is mapped to. A schema declared in the model
// tag, as in `bun:"table:audit.entries"`, is part of the name.
func TableName[T any](db *bun.DB) (string, error) {
	table, err := tableOf[T](db)
	if err != nil {
		return "", err
	}
	return table.Name, nil
}

func tableOf[T any](db *bun.DB) (*schema.Table, error) {
	typ := reflect.TypeFor[T]()
	for typ.Kind() == reflect.Pointer {
		typ = typ.Elem()
	}
	if typ.Kind() != reflect.Struct {
		return nil, errx.New("type is not an entity",
			errx.WithCode(CodeNotAnEntity),
			errx.WithType(errx.T_Validation),
			errx.WithDetails(errx.D{"type": typ.String()}),
		)
	}
	return db.Table(typ), nil
}
