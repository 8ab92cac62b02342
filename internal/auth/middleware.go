package auth

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/fdg312/plateplan/internal/config"
	"github.com/fdg312/plateplan/internal/logging"
	"github.com/fdg312/plateplan/internal/userctx"
)

// Middleware проверяет Bearer токен и кладёт владельца в контекст запроса.
type Middleware struct {
	config  *config.Config
	service *Service
	logger  *zap.Logger
}

func NewMiddleware(cfg *config.Config, service *Service, logger *zap.Logger) *Middleware {
	return &Middleware{
		config:  cfg,
		service: service,
		logger:  logging.OrNop(logger),
	}
}

// RequireAuth rejects requests without a valid token. With AUTH_REQUIRED=0
// it behaves like OptionalAuth.
func (m *Middleware) RequireAuth(next http.Handler) http.Handler {
	return m.wrap(next, m.config.AuthRequired)
}

// OptionalAuth validates Bearer token only when it is provided.
// Without token, requests pass through and act as the default owner.
func (m *Middleware) OptionalAuth(next http.Handler) http.Handler {
	return m.wrap(next, false)
}

func (m *Middleware) wrap(next http.Handler, required bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		header := strings.TrimSpace(r.Header.Get("Authorization"))
		if header == "" && !required {
			next.ServeHTTP(w, r)
			return
		}

		userID, err := m.authenticateHeader(header)
		if err != nil {
			message := "Invalid or expired token"
			if header == "" {
				message = "Unauthorized"
			}
			w.Header().Set("WWW-Authenticate", `Bearer realm="plateplan"`)
			writeErrorResponse(w, http.StatusUnauthorized, "unauthorized", message)
			return
		}

		m.logger.Debug("auth token accepted",
			zap.String("sub", userID),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path))
		next.ServeHTTP(w, r.WithContext(userctx.WithUserID(r.Context(), userID)))
	})
}

func (m *Middleware) authenticateHeader(authHeader string) (string, error) {
	scheme, token, ok := strings.Cut(authHeader, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", ErrInvalidToken
	}
	return m.service.VerifyJWT(strings.TrimSpace(token))
}

func isPublicPath(path string) bool {
	return path == "/healthz" || path == "/metrics" || strings.HasPrefix(path, "/v1/auth/")
}
