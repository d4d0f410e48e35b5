package sqlerr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/deppfellow/stockroom/internal/database"
	"github.com/deppfellow/stockroom/internal/errs"
	"github.com/deppfellow/stockroom/internal/lib/password"
	"github.com/deppfellow/stockroom/internal/repository"
	"github.com/deppfellow/stockroom/internal/session"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func asHTTPError(t *testing.T, err error) *errs.HTTPError {
	t.Helper()
	var httpErr *errs.HTTPError
	require.ErrorAs(t, err, &httpErr)
	return httpErr
}

func TestHandleError(t *testing.T) {
	t.Run("Should map core sentinels to statuses", func(t *testing.T) {
		cases := []struct {
			err    error
			status int
		}{
			{fmt.Errorf("register: %w", repository.ErrDuplicateCredential), http.StatusBadRequest},
			{repository.ErrDuplicateCategory, http.StatusBadRequest},
			{repository.ErrCategoryInUse, http.StatusConflict},
			{password.ErrTooLong, http.StatusBadRequest},
			{repository.ErrAuthenticationFailure, http.StatusUnauthorized},
			{session.ErrNoActiveSession, http.StatusUnauthorized},
			{fmt.Errorf("find user: %w", database.ErrNotFound), http.StatusNotFound},
			{fmt.Errorf("%w: waited 2s", database.ErrPoolExhausted), http.StatusServiceUnavailable},
			{database.ErrPoolClosed, http.StatusServiceUnavailable},
		}

		for _, tc := range cases {
			httpErr := asHTTPError(t, HandleError(tc.err))
			assert.Equal(t, tc.status, httpErr.Status, tc.err.Error())
		}
	})

	t.Run("Should humanize a unique violation on a lower-case index", func(t *testing.T) {
		pgErr := &pgconn.PgError{
			Code:           "23505",
			TableName:      "categories",
			ConstraintName: "categories_name_lower_key",
			Message:        `duplicate key value violates unique constraint "categories_name_lower_key"`,
		}
		err := fmt.Errorf("%w: %w", database.ErrTransactionFailure, pgErr)

		httpErr := asHTTPError(t, HandleError(err))
		assert.Equal(t, http.StatusBadRequest, httpErr.Status)
		assert.Equal(t, "CATEGORY_ALREADY_EXISTS", httpErr.Code)
		assert.Equal(t, "A Category with this Name already exists", httpErr.Message)
	})

	t.Run("Should tell a blocked delete apart from a missing reference", func(t *testing.T) {
		blocked := &pgconn.PgError{
			Code:      "23503",
			TableName: "products",
			Message:   `update or delete on table "categories" violates foreign key constraint "products_category_id_fkey" on table "products"`,
			Detail:    `Key (id)=(4) is still referenced from table "products".`,
		}
		httpErr := asHTTPError(t, HandleError(blocked))
		assert.Equal(t, http.StatusConflict, httpErr.Status)
		assert.Equal(t, "RECORD_IN_USE", httpErr.Code)
		assert.NotContains(t, httpErr.Message, "does not exist")

		missing := &pgconn.PgError{
			Code:      "23503",
			TableName: "products",
			Detail:    `Key (category_id)=(99) is not present in table "categories".`,
		}
		httpErr = asHTTPError(t, HandleError(missing))
		assert.Equal(t, http.StatusBadRequest, httpErr.Status)
		assert.Equal(t, "PRODUCT_NOT_FOUND", httpErr.Code)
	})

	t.Run("Should report the missing column of a not-null violation", func(t *testing.T) {
		err := &pgconn.PgError{Code: "23502", TableName: "products", ColumnName: "name"}

		httpErr := asHTTPError(t, HandleError(err))
		require.Len(t, httpErr.Errors, 1)
		assert.Equal(t, "name", httpErr.Errors[0].Field)
		assert.Equal(t, "PRODUCT_REQUIRED", httpErr.Code)
	})

	t.Run("Should never leak driver text in a generic failure", func(t *testing.T) {
		err := fmt.Errorf("%w: %w", database.ErrTransactionFailure,
			&pgconn.PgError{Code: "XX000", Message: "could not read block 7 in file base/16384"})

		httpErr := asHTTPError(t, HandleError(err))
		assert.Equal(t, http.StatusInternalServerError, httpErr.Status)
		assert.NotContains(t, httpErr.Message, "block")
	})

	t.Run("Should pass through errors that already have a client shape", func(t *testing.T) {
		original := errs.NewForbiddenError("nope", true)
		assert.Same(t, original, HandleError(original))
	})

	t.Run("Should treat unknown errors as internal", func(t *testing.T) {
		httpErr := asHTTPError(t, HandleError(errors.New("boom")))
		assert.Equal(t, http.StatusInternalServerError, httpErr.Status)
	})
}

func TestMapCode(t *testing.T) {
	assert.Equal(t, UniqueViolation, MapCode("23505"))
	assert.Equal(t, ConnectionException, MapCode("08006"))
	assert.Equal(t, Other, MapCode("XX000"))
	assert.Equal(t, SeverityFatal, MapSeverity("fatal"))
	assert.Equal(t, SeverityError, MapSeverity(""))
	assert.Equal(t, UniqueViolation, ErrCode(fmt.Errorf("wrapped: %w", &pgconn.PgError{Code: "23505"})))
}

func TestExtractColumnForUniqueViolation(t *testing.T) {
	assert.Equal(t, "email", extractColumnForUniqueViolation("unique_users_email"))
	assert.Equal(t, "email", extractColumnForUniqueViolation("users_email_key"))
	assert.Equal(t, "username", extractColumnForUniqueViolation("users_username_lower_key"))
	assert.Equal(t, "", extractColumnForUniqueViolation(""))
}
