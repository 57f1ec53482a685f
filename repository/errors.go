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

	"github.com/code19m/errx"
	"github.com/tomoncle/tidbits/database"
)

const (
	CodeNotFound         = "NOT_FOUND"
	CodeForeignKey       = "FOREIGN_KEY_VIOLATION"
	CodeMultipleRows     = "MULTIPLE_ROWS_FOUND"
	CodeUnknownField     = "UNKNOWN_FIELD"
	CodeNoFieldsSelected = "NO_FIELDS_SELECTED"
	CodeNotAnEntity      = "NOT_AN_ENTITY"
)

const msgEntityNotFound = "Entity not found in database"

// IsNotFound reports whether err signals an update whose target row is missing.
func IsNotFound(err error) bool {
	return errx.IsCodeIn(err, CodeNotFound)
}

// IsForeignKeyViolation reports whether err signals a write rejected by a
// foreign key constraint.
func IsForeignKeyViolation(err error) bool {
	return errx.IsCodeIn(err, CodeForeignKey)
}

func wrapQueryError(err error, query fmt.Stringer) error {
	return errx.Wrap(err, errx.WithDetails(database.QueryErrorDetails(err, query)))
}

// wrapWriteError maps referential integrity failures to CodeForeignKey.
func wrapWriteError(err error, query fmt.Stringer) error {
	details := database.QueryErrorDetails(err, query)
	if database.IsForeignKeyViolation(err) {
		return errx.Wrap(err,
			errx.WithCode(CodeForeignKey),
			errx.WithType(errx.T_Conflict),
			errx.WithDetails(details),
		)
	}
	return errx.Wrap(err, errx.WithDetails(details))
}

func errNotFound(table string) error {
	return errx.New(msgEntityNotFound,
		errx.WithCode(CodeNotFound),
		errx.WithType(errx.T_NotFound),
		errx.WithDetails(errx.D{"table": table}),
	)
}

func errMultipleRows(table string) error {
	return errx.New("more than one row matches the filter",
		errx.WithCode(CodeMultipleRows),
		errx.WithType(errx.T_Conflict),
		errx.WithDetails(errx.D{"table": table}),
	)
}
