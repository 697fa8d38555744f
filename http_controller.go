package accounts

import (
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
)

// RouteRegistrar captures the router methods used by the controller.
type RouteRegistrar interface {
	Get(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
	Post(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
}

// AccountsControllerRoutes holds the route paths
type AccountsControllerRoutes struct {
	Signup     string
	SignupInfo string
	Signin     string
	Signout    string
	Refresh    string
	Verify     string
	VerifyBack string
}

// AccountsController exposes the account platform as a JSON API
type AccountsController struct {
	Debug        bool
	Logger       Logger
	Accounts     *Accounts
	Sessions     *SessionManager
	Verification *VerificationFlow
	Stwt         *SignupTokenService
	Users        Users
	Routes       *AccountsControllerRoutes
	ErrorHandler router.ErrorHandler
}

type AccountsControllerOption func(*AccountsController) *AccountsController

func NewAccountsController(opts ...AccountsControllerOption) *AccountsController {
	c := &AccountsController{
		Logger:       defLogger{},
		ErrorHandler: jsonErrorHandler(defLogger{}),
		Routes: &AccountsControllerRoutes{
			Signup:     "/auth/signup",
			SignupInfo: "/auth/signup/info",
			Signin:     "/auth/signin",
			Signout:    "/auth/signout",
			Refresh:    "/auth/refresh",
			Verify:     "/auth/verify",
			VerifyBack: "/auth/verify/callback",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Accounts == nil {
		panic("Missing Accounts in accounts controller...")
	}

	if c.Sessions == nil {
		panic("Missing SessionManager in accounts controller...")
	}

	if c.Verification == nil {
		panic("Missing VerificationFlow in accounts controller...")
	}

	if c.Stwt == nil {
		panic("Missing SignupTokenService in accounts controller...")
	}

	if c.Users == nil {
		panic("Missing Users repository in accounts controller...")
	}

	return c
}

// RegisterAccountRoutes wires the controller routes. Signout and the
// verification pair require a live bearer token.
func RegisterAccountRoutes(app RouteRegistrar, opts ...AccountsControllerOption) *AccountsController {
	controller := NewAccountsController(opts...)
	protected := controller.Protected()

	app.Post(controller.Routes.Signup, controller.Signup)
	app.Get(controller.Routes.SignupInfo, controller.SignupInfo)
	app.Post(controller.Routes.Signin, controller.Signin)
	app.Post(controller.Routes.Refresh, controller.Refresh)
	app.Get(controller.Routes.Signout, controller.Signout, protected)
	app.Get(controller.Routes.Verify, controller.RequestVerification, protected)
	app.Post(controller.Routes.VerifyBack, controller.ConfirmVerification, protected)

	return controller
}

// Protected authenticates the bearer token, rejects revoked tokens, loads
// the user, and threads all three through the request context
func (a *AccountsController) Protected() router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			raw := bearerToken(ctx)
			if raw == "" {
				return a.ErrorHandler(ctx, errors.New("missing bearer token", errors.CategoryAuth).
					WithCode(errors.CodeUnauthorized))
			}

			claims := a.Sessions.VerifyAccess(raw)
			if claims == nil {
				return a.ErrorHandler(ctx, errors.New("invalid or expired token", errors.CategoryAuth).
					WithCode(errors.CodeUnauthorized))
			}

			revoked, err := a.Sessions.IsRevoked(ctx.Context(), raw)
			if err != nil {
				return a.ErrorHandler(ctx, errors.Wrap(err, errors.CategoryInternal, "failed to check token revocation"))
			}

			if revoked {
				return a.ErrorHandler(ctx, errors.New("invalid or expired token", errors.CategoryAuth).
					WithCode(errors.CodeUnauthorized))
			}

			userID, err := uuid.Parse(claims.UID)
			if err != nil {
				return a.ErrorHandler(ctx, errors.New("invalid or expired token", errors.CategoryAuth).
					WithCode(errors.CodeUnauthorized))
			}

			user, err := a.Users.GetByIdentifier(ctx.Context(), userID.String())
			if err != nil {
				if errors.IsNotFound(err) {
					return a.ErrorHandler(ctx, errors.New("invalid or expired token", errors.CategoryAuth).
						WithCode(errors.CodeUnauthorized))
				}
				return a.ErrorHandler(ctx, errors.Wrap(err, errors.CategoryInternal, "failed to load user"))
			}

			ctx.Locals("user", user)

			std := WithContext(ctx.Context(), user)
			std = WithClaimsContext(std, claims)
			std = WithAccessTokenContext(std, raw)
			ctx.SetContext(std)

			return next(ctx)
		}
	}
}

// Signup creates an account. An stwt query parameter carries the optional
// invitation token.
func (a *AccountsController) Signup(ctx router.Context) error {
	payload := SignupPayload{}

	if err := ctx.Bind(&payload); err != nil {
		return a.ErrorHandler(ctx, errors.Wrap(err, errors.CategoryBadInput, "failed to parse signup payload").
			WithCode(errors.CodeBadRequest))
	}

	if err := payload.Validate(); err != nil {
		return a.validationError(ctx, err)
	}

	if a.Debug {
		fmt.Println(print.MaybePrettyJSON(map[string]any{
			"email": payload.Email,
			"phone": payload.Phone,
		}))
	}

	result, err := a.Accounts.Signup(ctx.Context(), payload, ctx.Query("stwt", ""))
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusCreated, map[string]any{
		"user":                Sanitize(result.User),
		"recovery_passphrase": result.RecoveryPassphrase,
	})
}

// SignupInfo reports how far an invited user got through signup
func (a *AccountsController) SignupInfo(ctx router.Context) error {
	token := ctx.Query("stwt", "")
	if token == "" {
		return a.ErrorHandler(ctx, ErrStwtNotFound)
	}

	info, err := a.Stwt.ProcessInfo(ctx.Context(), token)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, info)
}

// Signin exchanges credentials for a token pair. A type query parameter
// restricts the accepted account type and defaults to CLIENT.
func (a *AccountsController) Signin(ctx router.Context) error {
	payload := SigninPayload{}

	if err := ctx.Bind(&payload); err != nil {
		return a.ErrorHandler(ctx, errors.Wrap(err, errors.CategoryBadInput, "failed to parse signin payload").
			WithCode(errors.CodeBadRequest))
	}

	if err := payload.Validate(); err != nil {
		return a.validationError(ctx, err)
	}

	expectedType := strings.ToUpper(ctx.Query("type", UserTypeClient))

	pair, user, err := a.Accounts.Signin(ctx.Context(), payload, expectedType)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"user":   Sanitize(user),
		"tokens": pair,
	})
}

// Signout clears the user's sessions and revokes the presented token
func (a *AccountsController) Signout(ctx router.Context) error {
	user, ok := GetRouterUser(ctx, "user")
	if !ok {
		return a.ErrorHandler(ctx, errors.New("missing authenticated user", errors.CategoryAuth).
			WithCode(errors.CodeUnauthorized))
	}

	token, _ := AccessTokenFromContext(ctx.Context())

	if err := a.Sessions.Logout(ctx.Context(), user, token); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"success": true,
	})
}

// RefreshPayload carries the rotated pair: both tokens are required
type RefreshPayload struct {
	AccessToken  string `form:"access_token" json:"access_token"`
	RefreshToken string `form:"refresh_token" json:"refresh_token"`
}

// Validate will run validation rules
func (r RefreshPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.AccessToken, validation.Required),
		validation.Field(&r.RefreshToken, validation.Required),
	)
}

// Refresh rotates a refresh token into a new pair. The access token gets
// revoked as part of the rotation; a missing or invalid access token fails
// the whole request.
func (a *AccountsController) Refresh(ctx router.Context) error {
	payload := RefreshPayload{}

	if err := ctx.Bind(&payload); err != nil {
		return a.ErrorHandler(ctx, errors.Wrap(err, errors.CategoryBadInput, "failed to parse refresh payload").
			WithCode(errors.CodeBadRequest))
	}

	if payload.RefreshToken == "" {
		return a.ErrorHandler(ctx, ErrMissingRefreshToken)
	}

	pair, err := a.Sessions.Refresh(ctx.Context(), payload.AccessToken, payload.RefreshToken)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, pair)
}

// RequestVerification sends a fresh verification code to the user's phone
func (a *AccountsController) RequestVerification(ctx router.Context) error {
	user, ok := GetRouterUser(ctx, "user")
	if !ok {
		return a.ErrorHandler(ctx, errors.New("missing authenticated user", errors.CategoryAuth).
			WithCode(errors.CodeUnauthorized))
	}

	if err := a.Verification.RequestCode(ctx.Context(), user); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"sent": true,
	})
}

// VerifyCallbackPayload carries the submitted verification code
type VerifyCallbackPayload struct {
	Code string `form:"code" json:"code"`
}

// ConfirmVerification checks the submitted code and flips the user to
// verified
func (a *AccountsController) ConfirmVerification(ctx router.Context) error {
	user, ok := GetRouterUser(ctx, "user")
	if !ok {
		return a.ErrorHandler(ctx, errors.New("missing authenticated user", errors.CategoryAuth).
			WithCode(errors.CodeUnauthorized))
	}

	payload := VerifyCallbackPayload{}
	if err := ctx.Bind(&payload); err != nil {
		return a.ErrorHandler(ctx, errors.Wrap(err, errors.CategoryBadInput, "failed to parse verification payload").
			WithCode(errors.CodeBadRequest))
	}

	if err := a.Verification.ConfirmCode(ctx.Context(), user, payload.Code); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"verified": true,
	})
}

func (a *AccountsController) validationError(ctx router.Context, err error) error {
	return ctx.JSON(fiber.StatusBadRequest, map[string]any{
		"error": map[string]any{
			"message":   "validation failed",
			"text_code": "VALIDATION_ERROR",
			"fields":    err.Error(),
		},
	})
}

func bearerToken(ctx router.Context) string {
	header := ctx.GetString(router.HeaderAuthorization, "")
	scheme := "Bearer"
	if len(header) > len(scheme)+1 && strings.EqualFold(header[:len(scheme)], scheme) {
		return strings.TrimSpace(header[len(scheme):])
	}
	return ""
}

// jsonErrorHandler maps rich errors onto their transport code. Anything
// else becomes an opaque 500.
func jsonErrorHandler(logger Logger) router.ErrorHandler {
	return func(c router.Context, err error) error {
		var richErr *errors.Error
		if !errors.As(err, &richErr) {
			richErr = errors.Wrap(err, errors.CategoryInternal, "An unexpected server error occurred").
				WithCode(errors.CodeInternal)
		}

		if richErr.Code == 0 {
			richErr = richErr.Clone()
			richErr.Code = fiber.StatusInternalServerError
		}

		logger.Info(
			"request error: %s category=%s text_code=%s",
			richErr.Message, richErr.Category, richErr.TextCode,
		)

		return c.JSON(richErr.Code, map[string]any{
			"error": map[string]any{
				"message":   richErr.Message,
				"text_code": richErr.TextCode,
			},
		})
	}
}
