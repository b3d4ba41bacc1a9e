package jwtware

import (
	"context"
	"errors"
	"strings"

	"github.com/goliatone/go-router"
)

var (
	defaultTokenLookup = "header:" + router.HeaderAuthorization
	// ErrTokenMissing is returned by extractors when their source is empty
	ErrTokenMissing = errors.New("missing or malformed bearer token")
)

// AuthenticateFunc resolves a raw token into the value stored in the request
// locals. token is empty when no extractor found one. Returning a nil value
// and a nil error lets the request through anonymously.
type AuthenticateFunc func(ctx context.Context, token string) (any, error)

// ValidationListener is invoked after every authentication attempt with the
// resolved value or the error. Use it to emit events or bookkeeping.
type ValidationListener func(ctx router.Context, value any, err error)

type Config struct {
	Filter         func(router.Context) bool
	SuccessHandler router.HandlerFunc
	ErrorHandler   router.ErrorHandler
	ContextKey     string
	TokenLookup    string
	AuthScheme     string

	// Authenticate is required
	Authenticate AuthenticateFunc

	// ContextEnricher is an optional function to propagate the resolved value
	// to the standard Go context of the request.
	ContextEnricher func(ctx context.Context, value any) context.Context

	ValidationListeners []ValidationListener
}

// New creates a middleware that extracts a token and authenticates it
func New(config ...Config) router.MiddlewareFunc {
	cfg := GetDefaultConfig(config...)
	extractors := cfg.getExtractors()

	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			if cfg.Filter != nil && cfg.Filter(ctx) {
				return next(ctx)
			}

			token := ExtractRawToken(ctx, extractors)

			value, err := cfg.Authenticate(ctx.Context(), token)
			cfg.runValidationListeners(ctx, value, err)
			if err != nil {
				return cfg.ErrorHandler(ctx, err)
			}

			if value != nil {
				ctx.Locals(cfg.ContextKey, value)
				if cfg.ContextEnricher != nil {
					ctx.SetContext(cfg.ContextEnricher(ctx.Context(), value))
				}
			}

			if cfg.SuccessHandler != nil {
				return cfg.SuccessHandler(ctx)
			}
			return next(ctx)
		}
	}
}

// ExtractRawToken returns the first token any extractor finds, or ""
func ExtractRawToken(ctx router.Context, extractors []Extractor) string {
	for _, extractor := range extractors {
		raw, err := extractor(ctx)
		if raw != "" && err == nil {
			return raw
		}
	}
	return ""
}

func GetDefaultConfig(config ...Config) (cfg Config) {
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = func(c router.Context, err error) error {
			return c.Status(router.StatusUnauthorized).SendString("Invalid or expired token")
		}
	}

	if cfg.Authenticate == nil {
		panic("AUTH: JWT middleware configuration: Authenticate is required.")
	}

	if cfg.ContextKey == "" {
		cfg.ContextKey = "user"
	}

	if cfg.TokenLookup == "" {
		cfg.TokenLookup = defaultTokenLookup
	}

	if cfg.AuthScheme == "" {
		cfg.AuthScheme = "Bearer"
	}

	return cfg
}

func (cfg *Config) getExtractors() []Extractor {
	return GetExtractors(cfg.TokenLookup, cfg.AuthScheme)
}

func (cfg *Config) runValidationListeners(ctx router.Context, value any, err error) {
	for _, listener := range cfg.ValidationListeners {
		if listener == nil {
			continue
		}
		listener(ctx, value, err)
	}
}

// GetExtractors parses a lookup such as
// "header:Authorization,cookie:jwt,query:auth_token,param:token".
func GetExtractors(tokenLookup string, authSchemes ...string) []Extractor {
	extractors := make([]Extractor, 0)

	authScheme := "Bearer"
	if len(authSchemes) > 0 && strings.TrimSpace(authSchemes[0]) != "" {
		authScheme = strings.TrimSpace(authSchemes[0])
	}

	for _, rootPart := range strings.Split(tokenLookup, ",") {
		parts := strings.SplitN(strings.TrimSpace(rootPart), ":", 2)
		if len(parts) != 2 {
			continue
		}

		source, name := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
		switch source {
		case "header":
			extractors = append(extractors, FromHeader(name, authScheme))
		case "query":
			extractors = append(extractors, FromQuery(name))
		case "param":
			extractors = append(extractors, FromParam(name))
		case "cookie":
			extractors = append(extractors, FromCookie(name))
		}
	}

	return extractors
}

type Extractor func(c router.Context) (string, error)

// FromHeader extracts "<scheme> <token>" from the named header.
func FromHeader(header string, authScheme string) Extractor {
	return func(c router.Context) (string, error) {
		token := ParseScheme(c.Header(header), authScheme)
		if token == "" {
			return "", ErrTokenMissing
		}
		return token, nil
	}
}

// ParseScheme returns the credentials of a "<scheme> <token>" value when
// the scheme matches case-insensitively, and "" otherwise.
func ParseScheme(value, authScheme string) string {
	value = strings.TrimSpace(value)
	l := len(authScheme)
	if len(value) > l+1 && strings.EqualFold(value[:l], authScheme) && value[l] == ' ' {
		return strings.TrimSpace(value[l:])
	}
	return ""
}

// FromQuery extracts the token from the query string.
func FromQuery(param string) Extractor {
	return func(c router.Context) (string, error) {
		token := c.Query(param, "")
		if token == "" {
			return "", ErrTokenMissing
		}
		return token, nil
	}
}

// FromParam extracts the token from a route param.
func FromParam(param string) Extractor {
	return func(c router.Context) (string, error) {
		token := c.Param(param)
		if token == "" {
			return "", ErrTokenMissing
		}
		return token, nil
	}
}

// FromCookie extracts the token from the named cookie.
func FromCookie(name string) Extractor {
	return func(c router.Context) (string, error) {
		token := c.Cookies(name)
		if token == "" {
			return "", ErrTokenMissing
		}
		return token, nil
	}
}
