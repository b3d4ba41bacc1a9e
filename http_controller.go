package auth

import (
	"fmt"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

// RegisterAuthRoutes mounts the auth endpoints on app under the configured
// prefix and returns the controller serving them.
func RegisterAuthRoutes[T any](app router.Router[T], opts ...AuthControllerOption) *AuthController {
	controller := NewAuthController(opts...)
	routes := controller.Routes
	protect := controller.Middleware.Protect()

	group := app.Group(routes.Prefix)

	group.Post(routes.Register, controller.Register).SetName("auth.register")
	group.Post(routes.Login, controller.Login).SetName("auth.login")
	group.Post(routes.Refresh, controller.Refresh).SetName("auth.refresh")
	group.Post(routes.Logout, controller.Logout, protect).SetName("auth.logout")
	group.Post(routes.LogoutAll, controller.LogoutAll, protect).SetName("auth.logout-all")
	group.Post(routes.ChangePassword, controller.ChangePassword, protect).SetName("auth.change-password")
	group.Post(routes.ForgotPassword, controller.ForgotPassword).SetName("auth.forgot-password")
	group.Post(routes.ResetPassword, controller.ResetPassword).SetName("auth.reset-password")
	group.Post(routes.VerifyEmail, controller.VerifyEmail).SetName("auth.verify-email")
	group.Post(routes.ResendVerification, controller.ResendVerification, protect).SetName("auth.resend-verification")
	group.Get(routes.Me, controller.Me, protect).SetName("auth.me")
	group.Get(routes.Sessions, controller.Sessions, protect).SetName("auth.sessions")

	return controller
}

type AuthControllerRoutes struct {
	Prefix             string
	Register           string
	Login              string
	Refresh            string
	Logout             string
	LogoutAll          string
	ChangePassword     string
	ForgotPassword     string
	ResetPassword      string
	VerifyEmail        string
	ResendVerification string
	Me                 string
	Sessions           string
}

type AuthController struct {
	Debug      bool
	Logger     Logger
	Service    *AuthService
	Middleware *Middleware
	Routes     *AuthControllerRoutes
	Cookie     RefreshCookie
}

type AuthControllerOption func(*AuthController) *AuthController

func WithControllerService(service *AuthService) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Service = service
		return c
	}
}

func WithControllerMiddleware(mw *Middleware) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Middleware = mw
		return c
	}
}

func WithControllerLogger(logger Logger) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Logger = normalizeLogger(logger)
		return c
	}
}

func WithControllerCookie(cookie RefreshCookie) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Cookie = cookie
		return c
	}
}

func WithControllerDebug(debug bool) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Debug = debug
		return c
	}
}

func WithControllerPrefix(prefix string) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Routes.Prefix = prefix
		return c
	}
}

func NewAuthController(opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger: defLogger{},
		Cookie: NewRefreshCookie(DefaultConfig()),
		Routes: &AuthControllerRoutes{
			Prefix:             "/auth",
			Register:           "/register",
			Login:              "/login",
			Refresh:            "/refresh",
			Logout:             "/logout",
			LogoutAll:          "/logout-all",
			ChangePassword:     "/change-password",
			ForgotPassword:     "/forgot-password",
			ResetPassword:      "/reset-password",
			VerifyEmail:        "/verify-email",
			ResendVerification: "/resend-verification",
			Me:                 "/me",
			Sessions:           "/sessions",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Service == nil {
		panic("Missing AuthService in auth controller...")
	}

	if c.Middleware == nil {
		panic("Missing Middleware in auth controller...")
	}

	return c
}

// registerPayload is the public registration body. It has no role field,
// self registered accounts always get the default role.
type registerPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (p registerPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Email, validation.Required, is.Email),
		validation.Field(&p.Password, validation.Required),
	)
}

func (a *AuthController) Register(ctx router.Context) error {
	payload := new(registerPayload)
	if err := a.bind(ctx, payload); err != nil {
		return err
	}

	res, err := a.Service.Register(ctx.Context(), RegisterInput{
		Email:    payload.Email,
		Password: payload.Password,
	})
	if err != nil {
		return err
	}

	a.Cookie.Set(ctx, res.Tokens.RefreshToken, res.Tokens.RefreshExpiresAt, false)

	return ctx.JSON(http.StatusCreated, Envelope{
		Success: true,
		Message: "Registration successful. Please verify your email address.",
		Data:    res,
	})
}

func (a *AuthController) Login(ctx router.Context) error {
	payload := new(LoginInput)
	if err := a.bind(ctx, payload); err != nil {
		return err
	}

	if a.Debug {
		fmt.Println("======= AUTH LOGIN ======")
		fmt.Println(print.MaybePrettyJSON(map[string]any{
			"email":      payload.Email,
			"rememberMe": payload.RememberMe,
		}))
		fmt.Println("=========================")
	}

	res, err := a.Service.Login(ctx.Context(), *payload)
	if err != nil {
		return err
	}

	a.Cookie.Set(ctx, res.Tokens.RefreshToken, res.Tokens.RefreshExpiresAt, res.RememberMe)

	return ctx.JSON(http.StatusOK, Envelope{Success: true, Message: "Login successful", Data: res})
}

type refreshPayload struct {
	RefreshToken string `json:"refreshToken"`
}

func (a *AuthController) Refresh(ctx router.Context) error {
	token := a.refreshToken(ctx)

	res, err := a.Service.Refresh(ctx.Context(), token)
	if err != nil {
		a.Cookie.Clear(ctx)
		return err
	}

	a.Cookie.Set(ctx, res.Tokens.RefreshToken, res.Tokens.RefreshExpiresAt, res.RememberMe)

	return ctx.JSON(http.StatusOK, Envelope{Success: true, Data: res.Tokens})
}

func (a *AuthController) Logout(ctx router.Context) error {
	actx, err := a.authContext(ctx)
	if err != nil {
		return err
	}

	err = a.Service.Logout(ctx.Context(), LogoutInput{
		PrincipalID:  actx.PrincipalID(),
		RefreshToken: a.refreshToken(ctx),
		AccessClaims: actx.Claims,
	})
	if err != nil {
		return err
	}

	a.Cookie.Clear(ctx)
	return ctx.JSON(http.StatusOK, Envelope{Success: true, Message: "Logged out successfully"})
}

func (a *AuthController) LogoutAll(ctx router.Context) error {
	actx, err := a.authContext(ctx)
	if err != nil {
		return err
	}

	if err := a.Service.LogoutAll(ctx.Context(), actx.PrincipalID(), actx.Claims); err != nil {
		return err
	}

	a.Cookie.Clear(ctx)
	return ctx.JSON(http.StatusOK, Envelope{Success: true, Message: "Logged out from all devices"})
}

func (a *AuthController) ChangePassword(ctx router.Context) error {
	actx, err := a.authContext(ctx)
	if err != nil {
		return err
	}

	payload := new(ChangePasswordInput)
	if err := a.bind(ctx, payload); err != nil {
		return err
	}
	payload.PrincipalID = actx.PrincipalID()
	payload.AccessClaims = actx.Claims

	strength, err := a.Service.ChangePassword(ctx.Context(), *payload)
	if err != nil {
		return err
	}

	a.Cookie.Clear(ctx)
	return ctx.JSON(http.StatusOK, Envelope{
		Success: true,
		Message: "Password changed successfully. Please log in again.",
		Data:    map[string]any{"passwordStrength": strength},
	})
}

type forgotPasswordPayload struct {
	Email string `json:"email"`
}

func (a *AuthController) ForgotPassword(ctx router.Context) error {
	payload := new(forgotPasswordPayload)
	if err := a.bind(ctx, payload); err != nil {
		return err
	}

	message, err := a.Service.ForgotPassword(ctx.Context(), payload.Email)
	if err != nil {
		return err
	}

	return ctx.JSON(http.StatusOK, Envelope{Success: true, Message: message})
}

func (a *AuthController) ResetPassword(ctx router.Context) error {
	payload := new(ResetPasswordInput)
	if err := a.bind(ctx, payload); err != nil {
		return err
	}

	strength, err := a.Service.ResetPassword(ctx.Context(), *payload)
	if err != nil {
		return err
	}

	return ctx.JSON(http.StatusOK, Envelope{
		Success: true,
		Message: "Password has been reset. Please log in with your new password.",
		Data:    map[string]any{"passwordStrength": strength},
	})
}

type verifyEmailPayload struct {
	Token string `json:"token"`
}

func (p verifyEmailPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Token, validation.Required),
	)
}

func (a *AuthController) VerifyEmail(ctx router.Context) error {
	payload := new(verifyEmailPayload)
	if err := a.bind(ctx, payload); err != nil {
		return err
	}

	principal, changed, err := a.Service.VerifyEmail(ctx.Context(), payload.Token)
	if err != nil {
		return err
	}

	message := "Email verified successfully"
	if !changed {
		message = "Email already verified"
	}

	return ctx.JSON(http.StatusOK, Envelope{Success: true, Message: message, Data: map[string]any{"user": principal}})
}

func (a *AuthController) ResendVerification(ctx router.Context) error {
	actx, err := a.authContext(ctx)
	if err != nil {
		return err
	}

	if err := a.Service.ResendVerification(ctx.Context(), actx.PrincipalID()); err != nil {
		return err
	}

	return ctx.JSON(http.StatusOK, Envelope{Success: true, Message: "Verification email sent"})
}

func (a *AuthController) Me(ctx router.Context) error {
	actx, err := a.authContext(ctx)
	if err != nil {
		return err
	}

	principal, err := a.Service.Me(ctx.Context(), actx.PrincipalID())
	if err != nil {
		return err
	}

	return ctx.JSON(http.StatusOK, Envelope{Success: true, Data: map[string]any{"user": principal}})
}

func (a *AuthController) Sessions(ctx router.Context) error {
	actx, err := a.authContext(ctx)
	if err != nil {
		return err
	}

	sessions, err := a.Service.Sessions(ctx.Context(), actx.PrincipalID())
	if err != nil {
		return err
	}

	return ctx.JSON(http.StatusOK, Envelope{Success: true, Data: map[string]any{"sessions": sessions}})
}

// bind parses the JSON body into payload and runs its ozzo rules when it
// has any. Service operations validate again, this catches bad JSON early.
func (a *AuthController) bind(ctx router.Context, payload any) error {
	if err := ctx.Bind(payload); err != nil {
		a.Logger.Debug("failed to parse request body", "path", ctx.Path(), "error", err)
		return NewValidationError("invalid request body", err)
	}

	if v, ok := payload.(validation.Validatable); ok {
		if err := v.Validate(); err != nil {
			return NewValidationError("invalid request payload", err)
		}
	}
	return nil
}

func (a *AuthController) refreshToken(ctx router.Context) string {
	if token := a.Cookie.Read(ctx); token != "" {
		return token
	}

	payload := new(refreshPayload)
	if len(ctx.Body()) == 0 {
		return ""
	}
	if err := ctx.Bind(payload); err != nil {
		return ""
	}
	return payload.RefreshToken
}

func (a *AuthController) authContext(ctx router.Context) (*AuthContext, error) {
	actx, ok := FromRouterContext(ctx)
	if !ok || actx == nil || actx.Principal == nil {
		return nil, NewUnauthorizedError("")
	}
	return actx, nil
}
