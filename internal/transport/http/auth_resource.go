package http

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"sitekit/internal/middleware"
	"sitekit/internal/rest"
	"sitekit/internal/security"
	"sitekit/internal/services"
	api "sitekit/pkg/contracts/api/v1"
	"sitekit/pkg/contracts/domain"
)

// AuthResource handles session login, logout and identity lookup.
type AuthResource struct {
	users    *services.UserService
	codec    *security.Codec
	validate *validator.Validate
	logger   *slog.Logger
}

// NewAuthResource creates the auth resource.
func NewAuthResource(users *services.UserService, codec *security.Codec, logger *slog.Logger) *AuthResource {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthResource{
		users:    users,
		codec:    codec,
		validate: validator.New(),
		logger:   logger.With(slog.String("resource", "auth")),
	}
}

// Auth allows anonymous access: login is how a session starts.
func (res *AuthResource) Auth(r *http.Request) error { return nil }

// loginResult carries the authenticated user plus the session cookie
// the dispatcher should set.
type loginResult struct {
	user   domain.User
	cookie *http.Cookie
}

func (l loginResult) Payload() any            { return l.user }
func (l loginResult) Cookies() []*http.Cookie { return []*http.Cookie{l.cookie} }

// Get returns the current identity, or null for anonymous callers.
func (res *AuthResource) Get(r *http.Request) (any, error) {
	user := middleware.UserFromContext(r.Context())
	if user == nil {
		return nil, nil
	}
	return *user, nil
}

// Post authenticates the submitted credentials and issues a session
// cookie. Unknown users and wrong passwords get the same answer.
func (res *AuthResource) Post(r *http.Request) (any, error) {
	var req api.LoginRequest
	if err := rest.DecodeJSON(r, &req); err != nil {
		return nil, err
	}
	if err := res.validate.Struct(req); err != nil {
		return nil, rest.FromValidator(err)
	}

	user, err := res.users.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrBadCredentials) || errors.Is(err, services.ErrUserNotFound) {
			return nil, rest.PermissionDenied("invalid username or password")
		}
		return nil, err
	}

	cookie, err := res.codec.Cookie(security.Session{
		UserID:   user.ID,
		IssuedAt: time.Now(),
	})
	if err != nil {
		return nil, err
	}

	res.logger.InfoContext(r.Context(), "login", slog.String("username", user.Username))
	return loginResult{user: user, cookie: cookie}, nil
}

// logoutResult clears the session cookie.
type logoutResult struct {
	cookie *http.Cookie
}

func (l logoutResult) Payload() any            { return map[string]string{"status": "logged out"} }
func (l logoutResult) Cookies() []*http.Cookie { return []*http.Cookie{l.cookie} }

// Delete ends the session.
func (res *AuthResource) Delete(r *http.Request) (any, error) {
	if user := middleware.UserFromContext(r.Context()); user != nil {
		res.logger.InfoContext(r.Context(), "logout", slog.String("username", user.Username))
	}
	return logoutResult{cookie: res.codec.ClearCookie()}, nil
}
