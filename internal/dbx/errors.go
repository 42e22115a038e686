package dbx

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/buildbio/internal/common"
	"github.com/jackc/pgx/v5/pgconn"
)

// Postgres SQLSTATE codes we translate.
const (
	pgUniqueViolation     = "23505"
	pgCheckViolation      = "23514"
	pgNotNullViolation    = "23502"
	pgForeignKeyViolation = "23503"
	pgInvalidText         = "22P02"
	pgStringTooLong       = "22001"
	pgInsufficientPriv    = "42501"
)

// TranslateError maps driver errors onto the common sentinels:
// no rows and row-level security rejections become common.ErrorNotFound,
// unique violations common.ErrorAlreadyExists, constraint and input
// violations common.ErrorValidation. Everything else is wrapped as a
// db error.
func TranslateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return common.ErrorNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return fmt.Errorf("%w: %s", common.ErrorAlreadyExists, pgErr.ConstraintName)
		case pgCheckViolation, pgNotNullViolation, pgForeignKeyViolation, pgInvalidText, pgStringTooLong:
			return fmt.Errorf("%w: %s", common.ErrorValidation, pgErr.ConstraintName)
		case pgInsufficientPriv:
			return common.ErrorNotFound
		}
	}

	return fmt.Errorf("db error: %w", err)
}

// RequireAffected returns common.ErrorNotFound when res touched no rows.
// Under row-level security an UPDATE or DELETE of someone else's row
// silently matches nothing, so this is how a denial shows up.
func RequireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return TranslateError(err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
