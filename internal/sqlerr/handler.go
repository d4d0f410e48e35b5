package sqlerr

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/deppfellow/stockroom/internal/database"
	"github.com/deppfellow/stockroom/internal/errs"
	"github.com/deppfellow/stockroom/internal/lib/password"
	"github.com/deppfellow/stockroom/internal/repository"
	"github.com/deppfellow/stockroom/internal/session"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ErrCode reports the classification of err, looking for either a converted
// *Error or a raw *pgconn.PgError in the chain.
func ErrCode(err error) Code {
	var sqlErr *Error
	if errors.As(err, &sqlErr) {
		return sqlErr.Code
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return MapCode(pgErr.Code)
	}
	return Other
}

// ConvertPgError classifies a raw PostgreSQL error.
func ConvertPgError(src *pgconn.PgError) *Error {
	return &Error{
		Code:           MapCode(src.Code),
		Severity:       MapSeverity(src.Severity),
		DatabaseCode:   src.Code,
		Message:        src.Message,
		Detail:         src.Detail,
		SchemaName:     src.SchemaName,
		TableName:      src.TableName,
		ColumnName:     src.ColumnName,
		DataTypeName:   src.DataTypeName,
		ConstraintName: src.ConstraintName,
		driverErr:      src,
	}
}

// isStillReferenced tells a delete blocked by dependent rows apart from an
// insert or update pointing at a missing row. Both share SQLSTATE 23503.
func isStillReferenced(sqlErr *Error) bool {
	return strings.Contains(sqlErr.Detail, "is still referenced")
}

// generateErrorCode builds a machine code of the form <ENTITY>_<ACTION>,
// e.g. users + UniqueViolation => USER_ALREADY_EXISTS.
func generateErrorCode(tableName string, errType Code) string {
	if tableName == "" {
		tableName = "RECORD"
	}

	domain := strings.ToUpper(singular(tableName))

	action := "ERROR"
	switch errType {
	case ForeignKeyViolation:
		action = "NOT_FOUND"
	case UniqueViolation:
		action = "ALREADY_EXISTS"
	case NotNullViolation:
		action = "REQUIRED"
	case CheckViolation, InvalidTextValue, NumericOutOfRange:
		action = "INVALID"
	}

	return fmt.Sprintf("%s_%s", domain, action)
}

func singular(name string) string {
	switch {
	case strings.HasSuffix(name, "ies") && len(name) > 3:
		return name[:len(name)-3] + "y"
	case strings.HasSuffix(name, "s") && len(name) > 1:
		return name[:len(name)-1]
	default:
		return name
	}
}

func formatUserFriendlyMessage(sqlErr *Error) string {
	entityName := getEntityName(sqlErr.TableName, sqlErr.ColumnName)

	switch sqlErr.Code {
	case ForeignKeyViolation:
		if isStillReferenced(sqlErr) {
			return "This record is still in use and cannot be removed"
		}
		return fmt.Sprintf("The referenced %s does not exist", entityName)

	case UniqueViolation:
		return fmt.Sprintf("A %s with this identifier already exists", entityName)

	case NotNullViolation:
		fieldName := humanizeText(sqlErr.ColumnName)
		if fieldName == "" {
			fieldName = "field"
		}
		return fmt.Sprintf("The %s is required", fieldName)

	case CheckViolation, NumericOutOfRange:
		fieldName := humanizeText(sqlErr.ColumnName)
		if fieldName != "" {
			return fmt.Sprintf("The %s value does not meet required conditions", fieldName)
		}
		return "One or more values do not meet required conditions"

	case InvalidTextValue:
		return "One or more values have an invalid format"

	default:
		return "An error occurred while processing your request"
	}
}

// getEntityName prefers the base of an *_id column (foreign keys), then the
// singular table name.
func getEntityName(tableName, columnName string) string {
	if columnName != "" && strings.HasSuffix(strings.ToLower(columnName), "_id") {
		entity := strings.TrimSuffix(strings.ToLower(columnName), "_id")
		return humanizeText(entity)
	}

	if tableName != "" {
		return humanizeText(singular(tableName))
	}

	return "record"
}

func humanizeText(text string) string {
	if text == "" {
		return ""
	}
	return cases.Title(language.English).String(strings.ReplaceAll(text, "_", " "))
}

var constraintColumn = regexp.MustCompile(`^[^_]+_([^_]+)(?:_lower)?_(?:key|ukey)$`)

// extractColumnForUniqueViolation infers the column from a unique constraint
// name. Supported conventions:
//
//	unique_users_email        -> email
//	users_email_key           -> email
//	users_username_lower_key  -> username
func extractColumnForUniqueViolation(constraintName string) string {
	if constraintName == "" {
		return ""
	}

	if strings.HasPrefix(constraintName, "unique_") {
		parts := strings.Split(constraintName, "_")
		if len(parts) >= 3 {
			return parts[len(parts)-1]
		}
	}

	if matches := constraintColumn.FindStringSubmatch(constraintName); len(matches) > 1 {
		return matches[1]
	}

	return ""
}

// HandleError converts an error from the data-access core into an
// *errs.HTTPError. Errors that already have a client shape pass through.
//
//	duplicate credential/category -> 400
//	authentication failure        -> 401
//	no active session             -> 401 (the HTTP layer adds the login redirect)
//	not found                     -> 404
//	pool exhausted                -> 503
//	constraint violations         -> 400 with a humanized message
//	anything else                 -> generic 500
func HandleError(err error) error {
	var httpErr *errs.HTTPError
	if errors.As(err, &httpErr) {
		return err
	}

	switch {
	case errors.Is(err, repository.ErrDuplicateCredential):
		code := "USER_ALREADY_EXISTS"
		return errs.NewBadRequestError("That username is already taken", true, &code,
			[]errs.FieldError{{Field: "username", Error: "is already taken"}}, nil)

	case errors.Is(err, repository.ErrDuplicateCategory):
		code := "CATEGORY_ALREADY_EXISTS"
		return errs.NewBadRequestError("A category with this name already exists", true, &code,
			[]errs.FieldError{{Field: "name", Error: "already exists"}}, nil)

	case errors.Is(err, repository.ErrCategoryInUse):
		return errs.NewConflictError("This category still has products and cannot be deleted", "CATEGORY_IN_USE")

	case errors.Is(err, password.ErrTooLong):
		code := "PASSWORD_TOO_LONG"
		return errs.NewBadRequestError("The password is too long", true, &code,
			[]errs.FieldError{{Field: "password", Error: "must be at most 72 bytes"}}, nil)

	case errors.Is(err, repository.ErrAuthenticationFailure):
		return errs.NewUnauthorizedError("Invalid username or password", true)

	case errors.Is(err, session.ErrNoActiveSession):
		return errs.NewUnauthorizedError("Please sign in to continue.", true)

	case errors.Is(err, database.ErrNotFound):
		return errs.NewNotFoundError("Resource not found", true, nil)

	case errors.Is(err, database.ErrPoolExhausted):
		return errs.NewServiceUnavailableError("The service is busy, please retry shortly")

	case errors.Is(err, database.ErrPoolClosed), errors.Is(err, database.ErrConnectFailure):
		return errs.NewServiceUnavailableError("The database is unavailable")
	}

	var pgerr *pgconn.PgError
	if errors.As(err, &pgerr) {
		sqlErr := ConvertPgError(pgerr)

		errorCode := generateErrorCode(sqlErr.TableName, sqlErr.Code)
		userMessage := formatUserFriendlyMessage(sqlErr)

		switch sqlErr.Code {
		case ForeignKeyViolation:
			if isStillReferenced(sqlErr) {
				return errs.NewConflictError(userMessage, "RECORD_IN_USE")
			}
			return errs.NewBadRequestError(userMessage, false, &errorCode, nil, nil)

		case UniqueViolation:
			if column := extractColumnForUniqueViolation(sqlErr.ConstraintName); column != "" {
				userMessage = strings.ReplaceAll(userMessage, "identifier", humanizeText(column))
			}
			return errs.NewBadRequestError(userMessage, true, &errorCode, nil, nil)

		case NotNullViolation:
			fieldErrors := []errs.FieldError{{
				Field: strings.ToLower(sqlErr.ColumnName),
				Error: "is required",
			}}
			return errs.NewBadRequestError(userMessage, true, &errorCode, fieldErrors, nil)

		case CheckViolation, InvalidTextValue, NumericOutOfRange:
			return errs.NewBadRequestError(userMessage, true, &errorCode, nil, nil)

		case TooManyConnections, ConnectionException:
			return errs.NewServiceUnavailableError("The database is unavailable")
		}
	}

	return errs.NewInternalServerError()
}
