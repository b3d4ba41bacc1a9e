package auth

import (
	"fmt"
	"sort"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
)

const (
	TextCodeMissingToken         = "MISSING_TOKEN"
	TextCodeInvalidToken         = "INVALID_TOKEN"
	TextCodeTokenExpired         = "TOKEN_EXPIRED"
	TextCodeTokenRevoked         = "TOKEN_REVOKED"
	TextCodeTokenPurposeMismatch = "TOKEN_PURPOSE_MISMATCH"
	TextCodeAccountInactive      = "ACCOUNT_INACTIVE"
	TextCodeAccountUnverified    = "ACCOUNT_UNVERIFIED"
	TextCodeInvalidCredentials   = "INVALID_CREDENTIALS"
	TextCodeForbidden            = "INSUFFICIENT_PERMISSIONS"
	TextCodePasswordPolicy       = "PASSWORD_POLICY_VIOLATION"
	TextCodeDuplicateAccount     = "DUPLICATE_ACCOUNT"
	TextCodeNotFound             = "RESOURCE_NOT_FOUND"
	TextCodeValidation           = "VALIDATION_FAILED"
	TextCodeUnauthorized         = "UNAUTHORIZED"
	TextCodeInternal             = "INTERNAL_ERROR"
)

// Severity is a coarse log level hint derived from an error category.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// ErrPrincipalNotFound is returned by stores when no principal matches.
var ErrPrincipalNotFound = goerrors.New("principal not found", goerrors.CategoryNotFound).
	WithTextCode(TextCodeNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrSessionNotFound is returned when a refresh token is not a live session.
var ErrSessionNotFound = goerrors.New("session not found", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidToken).
	WithCode(goerrors.CodeUnauthorized)

// ErrNoEmptyString is returned when hashing an empty password
var ErrNoEmptyString = goerrors.New("password must not be empty", goerrors.CategoryValidation).
	WithTextCode(TextCodePasswordPolicy).
	WithCode(goerrors.CodeBadRequest)

// ErrMismatchedHashAndPassword is returned by the hasher on a wrong password
var ErrMismatchedHashAndPassword = goerrors.New("the credentials provided are invalid", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidCredentials).
	WithCode(goerrors.CodeUnauthorized)

// The constructors below return a fresh error on every call so callers may
// attach metadata without touching shared values.

func NewMissingTokenError() *goerrors.Error {
	return authError("authentication token is required", TextCodeMissingToken)
}

func NewInvalidTokenError(reason string) *goerrors.Error {
	return authError("authentication token is invalid", TextCodeInvalidToken).
		WithMetadata(map[string]any{"reason": reason})
}

func NewExpiredTokenError() *goerrors.Error {
	return authError("authentication token has expired", TextCodeTokenExpired)
}

func NewRevokedTokenError() *goerrors.Error {
	return authError("authentication token has been revoked", TextCodeTokenRevoked)
}

func NewPurposeMismatchError(expected, actual Purpose) *goerrors.Error {
	return authError("token cannot be used for this operation", TextCodeTokenPurposeMismatch).
		WithMetadata(map[string]any{
			"expected_purpose": string(expected),
			"actual_purpose":   string(actual),
		})
}

func NewUnauthorizedError(message string) *goerrors.Error {
	if message == "" {
		message = "authentication required"
	}
	return authError(message, TextCodeUnauthorized)
}

func NewAccountInactiveError() *goerrors.Error {
	return authError("account is inactive", TextCodeAccountInactive)
}

func NewAccountUnverifiedError() *goerrors.Error {
	return authError("email address has not been verified", TextCodeAccountUnverified)
}

// NewInvalidCredentialsError is used for both unknown accounts and wrong
// passwords so responses cannot be used to enumerate accounts.
func NewInvalidCredentialsError() *goerrors.Error {
	return authError("invalid email or password", TextCodeInvalidCredentials)
}

func NewForbiddenError(required []Role, actual Role) *goerrors.Error {
	names := make([]string, len(required))
	for i, r := range required {
		names[i] = string(r)
	}
	return goerrors.New(
		fmt.Sprintf("insufficient permissions: requires role %s, has %s", strings.Join(names, " or "), actual),
		goerrors.CategoryAuthz,
	).
		WithTextCode(TextCodeForbidden).
		WithCode(goerrors.CodeForbidden).
		WithMetadata(map[string]any{
			"required_roles": names,
			"actual_role":    string(actual),
		})
}

func NewOwnershipError() *goerrors.Error {
	return goerrors.New("insufficient permissions: resource belongs to another account", goerrors.CategoryAuthz).
		WithTextCode(TextCodeForbidden).
		WithCode(goerrors.CodeForbidden)
}

func NewPasswordPolicyError(violations []string) *goerrors.Error {
	return goerrors.New("password does not satisfy the password policy", goerrors.CategoryValidation).
		WithTextCode(TextCodePasswordPolicy).
		WithCode(goerrors.CodeBadRequest).
		WithMetadata(map[string]any{"violations": violations})
}

func NewDuplicateAccountError() *goerrors.Error {
	return goerrors.New("an account with this email already exists", goerrors.CategoryConflict).
		WithTextCode(TextCodeDuplicateAccount).
		WithCode(goerrors.CodeConflict)
}

func NewNotFoundError(resource string) *goerrors.Error {
	return goerrors.New(resource+" not found", goerrors.CategoryNotFound).
		WithTextCode(TextCodeNotFound).
		WithCode(goerrors.CodeNotFound)
}

// NewValidationError converts ozzo field errors into a validation error with
// one FieldError per failing field.
func NewValidationError(message string, err error) *goerrors.Error {
	var fields []goerrors.FieldError

	var fieldErrs validation.Errors
	if goerrors.As(err, &fieldErrs) {
		names := make([]string, 0, len(fieldErrs))
		for name := range fieldErrs {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			if fieldErrs[name] == nil {
				continue
			}
			fields = append(fields, goerrors.FieldError{
				Field:   name,
				Message: fieldErrs[name].Error(),
			})
		}
	} else if err != nil {
		fields = append(fields, goerrors.FieldError{Field: "request", Message: err.Error()})
	}

	return goerrors.NewValidation(message, fields...).
		WithTextCode(TextCodeValidation).
		WithCode(goerrors.CodeBadRequest)
}

func authError(message, textCode string) *goerrors.Error {
	return goerrors.New(message, goerrors.CategoryAuth).
		WithTextCode(textCode).
		WithCode(goerrors.CodeUnauthorized)
}

// HasTextCode reports whether err is a rich error carrying textCode.
func HasTextCode(err error, textCode string) bool {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return false
	}
	return richErr.TextCode == textCode
}

// IsNotFound reports whether err is a not found error from a store.
func IsNotFound(err error) bool {
	return HasTextCode(err, TextCodeNotFound)
}

// SeverityOf maps an error to a log severity. Client mistakes are info,
// access problems are warnings and everything else is an error.
func SeverityOf(err error) Severity {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return SeverityError
	}
	switch richErr.Category {
	case goerrors.CategoryValidation, goerrors.CategoryBadInput, goerrors.CategoryNotFound, goerrors.CategoryConflict:
		return SeverityInfo
	case goerrors.CategoryAuth, goerrors.CategoryAuthz:
		return SeverityWarning
	default:
		return SeverityError
	}
}

// asRichError wraps unknown errors as internal so the boundary always has a
// category and status code to render.
func asRichError(err error) *goerrors.Error {
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr
	}
	return goerrors.Wrap(err, goerrors.CategoryInternal, "an unexpected error occurred").
		WithTextCode(TextCodeInternal).
		WithCode(goerrors.CodeInternal)
}
