package jwtware_test

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-authsession/middleware/jwtware"
)

type ctxKey struct{}

func newApp(t *testing.T, cfg jwtware.Config) *fiber.App {
	t.Helper()

	var app *fiber.App
	srv := router.NewFiberAdapter(func(*fiber.App) *fiber.App {
		app = fiber.New()
		return app
	})

	handler := func(c router.Context) error {
		v, _ := c.Locals("user").(string)
		fromCtx, _ := c.Context().Value(ctxKey{}).(string)
		return c.SendString(v + "|" + fromCtx)
	}

	mw := jwtware.New(cfg)
	srv.Router().Get("/p", handler, mw)
	srv.Router().Get("/p/:token", handler, mw)
	return app
}

func body(t *testing.T, app *fiber.App, target string, headers map[string]string) (int, string) {
	t.Helper()

	req := httptest.NewRequest(fiber.MethodGet, target, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	res, err := app.Test(req)
	require.NoError(t, err)
	b, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return res.StatusCode, string(b)
}

func echoAuth(ctx context.Context, token string) (any, error) {
	switch token {
	case "":
		return nil, nil
	case "bad":
		return nil, errors.New("bad token")
	default:
		return "user:" + token, nil
	}
}

func TestJWTWare_HeaderExtraction(t *testing.T) {
	app := newApp(t, jwtware.Config{
		Authenticate: echoAuth,
		ContextEnricher: func(ctx context.Context, value any) context.Context {
			return context.WithValue(ctx, ctxKey{}, value)
		},
	})

	status, out := body(t, app, "/p", map[string]string{"Authorization": "Bearer abc"})
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "user:abc|user:abc", out)

	status, out = body(t, app, "/p", map[string]string{"Authorization": "bearer abc"})
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "user:abc|user:abc", out, "scheme is case insensitive")

	status, out = body(t, app, "/p", map[string]string{"Authorization": "Basic abc"})
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "|", out, "other schemes are treated as absent")

	status, out = body(t, app, "/p", map[string]string{"Authorization": "Bearer bad"})
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, "Invalid or expired token", out)
}

func TestJWTWare_SuccessHandler(t *testing.T) {
	app := newApp(t, jwtware.Config{
		Authenticate: echoAuth,
		SuccessHandler: func(c router.Context) error {
			return c.Status(fiber.StatusAccepted).SendString("handled")
		},
	})

	status, out := body(t, app, "/p", map[string]string{"Authorization": "Bearer abc"})
	assert.Equal(t, fiber.StatusAccepted, status)
	assert.Equal(t, "handled", out)
}

func TestJWTWare_LookupSources(t *testing.T) {
	app := newApp(t, jwtware.Config{
		Authenticate: echoAuth,
		TokenLookup:  "header:X-Token,cookie:access_token,query:token,param:token",
		AuthScheme:   "Token",
	})

	_, out := body(t, app, "/p", map[string]string{"X-Token": "Token fromheader"})
	assert.Equal(t, "user:fromheader|", out)

	_, out = body(t, app, "/p", map[string]string{"Cookie": "access_token=fromcookie"})
	assert.Equal(t, "user:fromcookie|", out)

	_, out = body(t, app, "/p?token=fromquery", nil)
	assert.Equal(t, "user:fromquery|", out)

	_, out = body(t, app, "/p/fromparam", nil)
	assert.Equal(t, "user:fromparam|", out)
}

func TestJWTWare_ListenersAndFilter(t *testing.T) {
	var seen []string
	app := newApp(t, jwtware.Config{
		Authenticate: echoAuth,
		Filter: func(c router.Context) bool {
			return c.Query("skip", "") == "1"
		},
		ErrorHandler: func(c router.Context, err error) error {
			return c.Status(fiber.StatusTeapot).SendString(err.Error())
		},
		ValidationListeners: []jwtware.ValidationListener{
			func(c router.Context, value any, err error) {
				if err != nil {
					seen = append(seen, "err")
					return
				}
				if value != nil {
					seen = append(seen, value.(string))
				}
			},
			nil,
		},
	})

	status, _ := body(t, app, "/p?skip=1", map[string]string{"Authorization": "Bearer bad"})
	assert.Equal(t, fiber.StatusOK, status)

	status, out := body(t, app, "/p", map[string]string{"Authorization": "Bearer bad"})
	assert.Equal(t, fiber.StatusTeapot, status)
	assert.Equal(t, "bad token", out)

	body(t, app, "/p", map[string]string{"Authorization": "Bearer ok"})

	assert.Equal(t, []string{"err", "user:ok"}, seen)
}

func TestGetExtractors(t *testing.T) {
	assert.Len(t, jwtware.GetExtractors("header:Authorization,cookie:jwt,bogus,query:t"), 3)
	assert.Empty(t, jwtware.GetExtractors(""))
}

func TestParseScheme(t *testing.T) {
	assert.Equal(t, "tok", jwtware.ParseScheme("Bearer tok", "Bearer"))
	assert.Equal(t, "tok", jwtware.ParseScheme("  BEARER   tok ", "Bearer"))
	assert.Equal(t, "", jwtware.ParseScheme("Bearertok", "Bearer"))
	assert.Equal(t, "", jwtware.ParseScheme("Bearer", "Bearer"))
	assert.Equal(t, "", jwtware.ParseScheme("Basic tok", "Bearer"))
}

func TestNewPanicsWithoutAuthenticate(t *testing.T) {
	assert.Panics(t, func() {
		jwtware.New(jwtware.Config{})
	})
}
