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

package database

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/code19m/errx"
	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

type SQLError int

const (
	UnknownErr SQLError = iota
	NoRowsErr
	NoIndexErr
	NoColumnErr
	ExistIndexErr
	ExistColumnErr
	NoTableErr
	ExistTableErr
	DuplicateKeyErr
	NotNullViolationErr
	ForeignKeyViolationErr
	CheckConstraintViolationErr
	DataTruncatedErr
	InvalidTypeCastErr
)

var sqlErrorNames = map[SQLError]string{
	UnknownErr:                  "unknown",
	NoRowsErr:                   "no_rows",
	NoIndexErr:                  "no_index",
	NoColumnErr:                 "no_column",
	ExistIndexErr:               "index_exists",
	ExistColumnErr:              "column_exists",
	NoTableErr:                  "no_table",
	ExistTableErr:               "table_exists",
	DuplicateKeyErr:             "duplicate_key",
	NotNullViolationErr:         "not_null_violation",
	ForeignKeyViolationErr:      "foreign_key_violation",
	CheckConstraintViolationErr: "check_violation",
	DataTruncatedErr:            "data_truncated",
	InvalidTypeCastErr:          "invalid_type_cast",
}

func (e SQLError) String() string {
	if name, ok := sqlErrorNames[e]; ok {
		return name
	}
	return sqlErrorNames[UnknownErr]
}

// IsSqlError classifies a driver error. Typed driver errors are inspected
// first (mysql, lib/pq, pgx, modernc sqlite); anything else falls back to
// matching the lower-cased message.
func IsSqlError(err error) (is bool, sqlErr SQLError) {
	if err == nil {
		return false, UnknownErr
	}
	if errors.Is(err, sql.ErrNoRows) {
		return true, NoRowsErr
	}

	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		switch mysqlErr.Number {
		case 1091:
			return true, NoIndexErr
		case 1054:
			return true, NoColumnErr
		case 1061:
			return true, ExistIndexErr
		case 1060:
			return true, ExistColumnErr
		case 1146:
			return true, NoTableErr
		case 1050:
			return true, ExistTableErr
		case 1062:
			return true, DuplicateKeyErr
		case 1048:
			return true, NotNullViolationErr
		case 1216, 1217, 1451, 1452:
			return true, ForeignKeyViolationErr
		case 3819:
			return true, CheckConstraintViolationErr
		case 1265, 1406:
			return true, DataTruncatedErr
		default:
			return true, UnknownErr
		}
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return true, classifySQLState(string(pqErr.Code))
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return true, classifySQLState(pgErr.Code)
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
			return true, ForeignKeyViolationErr
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true, DuplicateKeyErr
		case sqlite3.SQLITE_CONSTRAINT_NOTNULL:
			return true, NotNullViolationErr
		case sqlite3.SQLITE_CONSTRAINT_CHECK:
			return true, CheckConstraintViolationErr
		}
	}

	return classifyMessage(err.Error())
}

func classifySQLState(code string) SQLError {
	switch code {
	case "42703":
		return NoColumnErr
	case "42704":
		return NoIndexErr
	case "42P01":
		return NoTableErr
	case "42P07":
		return ExistTableErr
	case "42701":
		return ExistColumnErr
	case "23505":
		return DuplicateKeyErr
	case "23502":
		return NotNullViolationErr
	case "23503":
		return ForeignKeyViolationErr
	case "23514":
		return CheckConstraintViolationErr
	case "22001":
		return DataTruncatedErr
	case "42804":
		return InvalidTypeCastErr
	default:
		return UnknownErr
	}
}

func classifyMessage(msg string) (bool, SQLError) {
	s := strings.ToLower(msg)
	switch {
	case strings.Contains(s, "sqlstate 42703") ||
		strings.Contains(s, "undefined column") ||
		strings.Contains(s, "no such column"):
		return true, NoColumnErr
	case strings.Contains(s, "sqlstate 42704") ||
		strings.Contains(s, "no such index") ||
		(strings.Contains(s, "does not exist") && strings.Contains(s, "index")):
		return true, NoIndexErr
	case strings.Contains(s, "sqlstate 42p01") ||
		strings.Contains(s, "undefined table") ||
		strings.Contains(s, "no such table"):
		return true, NoTableErr
	case strings.Contains(s, "already exists") && strings.Contains(s, "index"):
		return true, ExistIndexErr
	case strings.Contains(s, "already exists") &&
		(strings.Contains(s, "table") || strings.Contains(s, "relation")):
		return true, ExistTableErr
	case strings.Contains(s, "duplicate key value") ||
		strings.Contains(s, "unique constraint failed") ||
		strings.Contains(s, "sqlstate 23505"):
		return true, DuplicateKeyErr
	case strings.Contains(s, "not-null constraint") ||
		strings.Contains(s, "sqlstate 23502") ||
		strings.Contains(s, "not null constraint failed"):
		return true, NotNullViolationErr
	case strings.Contains(s, "foreign key violation") ||
		strings.Contains(s, "foreign key constraint failed") ||
		strings.Contains(s, "violates foreign key constraint") ||
		strings.Contains(s, "sqlstate 23503"):
		return true, ForeignKeyViolationErr
	case strings.Contains(s, "check constraint") ||
		strings.Contains(s, "sqlstate 23514"):
		return true, CheckConstraintViolationErr
	case strings.Contains(s, "string data right truncation") ||
		strings.Contains(s, "sqlstate 22001") ||
		strings.Contains(s, "data truncated"):
		return true, DataTruncatedErr
	case strings.Contains(s, "datatype mismatch") ||
		strings.Contains(s, "sqlstate 42804"):
		return true, InvalidTypeCastErr
	}
	return false, UnknownErr
}

// IsForeignKeyViolation reports whether err is a referential-integrity failure.
func IsForeignKeyViolation(err error) bool {
	ok, kind := IsSqlError(err)
	return ok && kind == ForeignKeyViolationErr
}

// QueryErrorDetails collects the query text and driver specific fields of err.
func QueryErrorDetails(err error, query fmt.Stringer) errx.D {
	details := make(errx.D)
	if q := safeQueryString(query); q != "" {
		details["query"] = strings.ReplaceAll(q, `"`, ``)
	}
	if ok, kind := IsSqlError(err); ok {
		details["sql.error"] = kind.String()
	}

	var pgErr *pgconn.PgError
	var pqErr *pq.Error
	var mysqlErr *mysql.MySQLError
	switch {
	case errors.As(err, &pgErr):
		details["pg.code"] = pgErr.Code
		details["pg.message"] = pgErr.Message
		details["pg.detail"] = pgErr.Detail
		details["pg.table"] = pgErr.TableName
		details["pg.constraint"] = pgErr.ConstraintName
	case errors.As(err, &pqErr):
		details["pg.code"] = string(pqErr.Code)
		details["pg.message"] = pqErr.Message
		details["pg.detail"] = pqErr.Detail
		details["pg.table"] = pqErr.Table
		details["pg.constraint"] = pqErr.Constraint
	case errors.As(err, &mysqlErr):
		details["mysql.number"] = mysqlErr.Number
		details["mysql.message"] = mysqlErr.Message
	}
	return details
}

// safeQueryString renders query, recovering from builders that panic in String().
func safeQueryString(query fmt.Stringer) (s string) {
	defer func() {
		if recover() != nil {
			s = ""
		}
	}()
	if query == nil {
		return ""
	}
	return query.String()
}
