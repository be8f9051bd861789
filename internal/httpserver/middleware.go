package httpserver

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/bkeenke/shm-admin-2/internal/auth"
)

// authMiddleware requires a valid bearer token when an issuer is configured
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.deps.Issuer == nil {
			next.ServeHTTP(w, r)
			return
		}

		token, err := auth.BearerToken(r.Header.Get("Authorization"))
		if err != nil {
			s.writeErrorResponse(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		claims, err := s.deps.Issuer.Verify(token)
		if err != nil {
			s.logger.Debug("Rejected bearer token", zap.Error(err))
			s.writeErrorResponse(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		s.logger.Debug("Authorized request",
			zap.String("subject", claims.Subject),
			zap.String("path", r.URL.Path))
		next.ServeHTTP(w, r)
	})
}
