package auth

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
)

// ErrorResponse is the JSON body rendered for failed requests
type ErrorResponse struct {
	Success    bool              `json:"success"`
	StatusCode int               `json:"statusCode"`
	Message    string            `json:"message"`
	Code       string            `json:"code,omitempty"`
	Category   string            `json:"category"`
	Fields     map[string]string `json:"fields,omitempty"`
	Details    map[string]any    `json:"details,omitempty"`
}

// NewErrorHandler returns a fiber.ErrorHandler that renders rich errors as
// ErrorResponse. Details are only included when debug is set.
func NewErrorHandler(logger Logger, debug bool) fiber.ErrorHandler {
	logger = normalizeLogger(logger)

	return func(c *fiber.Ctx, err error) error {
		richErr := fromFiberError(err)

		status := richErr.Code
		if status < http.StatusBadRequest || status > 599 {
			status = statusFor(richErr.Category)
		}

		args := []any{
			"error", richErr.Message,
			"text_code", richErr.TextCode,
			"category", richErr.Category,
			"method", c.Method(),
			"path", c.Path(),
		}

		switch SeverityOf(richErr) {
		case SeverityInfo:
			logger.Info("request failed", args...)
		case SeverityWarning:
			logger.Warn("request rejected", args...)
		default:
			args = append(args, "details", print.MaybePrettyJSON(richErr.Metadata))
			if richErr.Source != nil {
				args = append(args, "source", richErr.Source.Error())
			}
			logger.Error("request error", args...)
		}

		res := ErrorResponse{
			Success:    false,
			StatusCode: status,
			Message:    richErr.Message,
			Code:       richErr.TextCode,
			Category:   string(richErr.Category),
		}

		if len(richErr.ValidationErrors) > 0 {
			res.Fields = richErr.ValidationMap()
		}

		if debug && len(richErr.Metadata) > 0 {
			res.Details = richErr.Metadata
		}

		return c.Status(status).JSON(res)
	}
}

func fromFiberError(err error) *goerrors.Error {
	var fe *fiber.Error
	if goerrors.As(err, &fe) {
		category := goerrors.CategoryBadInput
		switch {
		case fe.Code == http.StatusNotFound:
			category = goerrors.CategoryNotFound
		case fe.Code >= http.StatusInternalServerError:
			category = goerrors.CategoryInternal
		}
		return goerrors.New(fe.Message, category).WithCode(fe.Code)
	}
	return asRichError(err)
}

func statusFor(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryValidation, goerrors.CategoryBadInput:
		return http.StatusBadRequest
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryConflict:
		return http.StatusConflict
	case goerrors.CategoryExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
