package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/MrEthical07/sellerhub"
)

type authResultContextKey struct{}

// ErrorHandler writes the response for a rejected request.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

// AuthResultFromContext returns the result attached by [Guard].
func AuthResultFromContext(ctx context.Context) (*sellerhub.AuthResult, bool) {
	res, ok := ctx.Value(authResultContextKey{}).(*sellerhub.AuthResult)
	return res, ok
}

// SubjectID returns the authenticated subject id, or "" outside a guarded route.
func SubjectID(ctx context.Context) string {
	res, ok := AuthResultFromContext(ctx)
	if !ok || res == nil {
		return ""
	}
	return res.SubjectID
}

// WithAuthResult attaches res to ctx the same way [Guard] does.
func WithAuthResult(ctx context.Context, res *sellerhub.AuthResult) context.Context {
	return context.WithValue(ctx, authResultContextKey{}, res)
}

// Guard rejects requests without a valid access token cookie. A missing
// cookie yields [sellerhub.ErrTokenMissing]; anything that fails signature,
// structure or expiry checks yields [sellerhub.ErrTokenInvalid]. Both are
// handed to onError, which defaults to a JSON 401.
//
// A request without the cookie may still carry "Authorization: Bearer <token>",
// which is accepted as a fallback for non-browser clients.
func Guard(engine *sellerhub.Engine, onError ErrorHandler) func(http.Handler) http.Handler {
	if onError == nil {
		onError = writeError
	}

	cookieName := "accessToken"
	if engine != nil {
		cookies, _, _ := engine.CookieConfig()
		cookieName = cookies.AccessName
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				onError(w, r, sellerhub.ErrEngineNotReady)
				return
			}

			res, err := engine.Validate(r.Context(), accessToken(r, cookieName))
			if err != nil {
				onError(w, r, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithAuthResult(r.Context(), res)))
		})
	}
}

func accessToken(r *http.Request, cookieName string) string {
	if c, err := r.Cookie(cookieName); err == nil && c.Value != "" {
		return c.Value
	}
	token, _ := bearerToken(r.Header.Get("Authorization"))
	return token
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := value[len(bearer):]
	if token == "" {
		return "", false
	}

	return token, true
}

func writeError(w http.ResponseWriter, _ *http.Request, err error) {
	status := sellerhub.HTTPStatus(err)
	message := "Something went wrong"
	if e, ok := sellerhub.AsError(err); ok {
		message = e.Message
	}

	state := "fail"
	if status >= http.StatusInternalServerError {
		state = "error"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status":  state,
		"message": message,
	})
}
