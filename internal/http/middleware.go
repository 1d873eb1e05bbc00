package httpserver

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/Clark-Hu/media-catalog/internal/auth"
	"github.com/Clark-Hu/media-catalog/internal/domain"
)

type ctxKey int

const identityKey ctxKey = iota

// identityFrom returns the caller attached by identify, or nil.
func identityFrom(ctx context.Context) *domain.Identity {
	id, _ := ctx.Value(identityKey).(*domain.Identity)
	return id
}

// identify resolves the bearer token, if any. Requests without an
// Authorization header continue anonymously; a bad token is rejected.
func (s *Server) identify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := strings.TrimSpace(r.Header.Get("Authorization"))
		if header == "" {
			next.ServeHTTP(w, r)
			return
		}

		const prefix = "Bearer "
		if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
			s.respondError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "Missing or invalid authentication information")
			return
		}
		token := strings.TrimSpace(header[len(prefix):])

		identity, err := s.identity.Identify(r.Context(), token)
		if err != nil {
			if errors.Is(err, auth.ErrInvalidCredential) {
				s.respondError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "Missing or invalid authentication information")
				return
			}
			s.logger.Error("identify caller failed", "error", err, "request_id", middleware.GetReqID(r.Context()))
			w.Header().Set("Retry-After", "1")
			s.respondError(w, http.StatusServiceUnavailable, "UNAVAILABLE", "Service temporarily unavailable")
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), identityKey, identity)))
	})
}

func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if identityFrom(r.Context()) == nil {
			s.respondError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "Missing or invalid authentication information")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requireRole(roles ...domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := identityFrom(r.Context())
			if identity == nil {
				s.respondError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "Missing or invalid authentication information")
				return
			}
			for _, role := range roles {
				if identity.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			s.respondError(w, http.StatusForbidden, "FORBIDDEN", "Insufficient permissions")
		})
	}
}
