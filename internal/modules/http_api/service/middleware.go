package service

import (
	"context"
	"net/http"
	"strings"
	"time"

	"mt5_gateway/internal/models"
	"mt5_gateway/pkg/logger"

	"github.com/oklog/ulid/v2"
)

const (
	headerAPIKey    = "X-API-Key"
	headerRequestID = "X-Request-ID"
)

type ctxKey int

const (
	principalKey ctxKey = iota
	requestIDKey
)

func PrincipalFrom(ctx context.Context) *models.Principal {
	p, _ := ctx.Value(principalKey).(*models.Principal)
	return p
}

func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// withRequestLog request id, access-лог и перехват паник.
func withRequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(headerRequestID)
		if id == "" {
			id = ulid.Make().String()
		}
		w.Header().Set(headerRequestID, id)
		r = r.WithContext(context.WithValue(r.Context(), requestIDKey, id))

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		defer func() {
			if p := recover(); p != nil {
				logger.Error("[HTTP] panic id=%s %s %s: %v", id, r.Method, r.URL.Path, p)
				writeError(rec, models.NewError(models.KindInternal, "internal server error"))
			}
			logger.Info("[HTTP] id=%s %s %s %d %s", id, r.Method, r.URL.Path, rec.status, time.Since(start).Round(time.Microsecond))
		}()
		next.ServeHTTP(rec, r)
	})
}

func tokenFrom(r *http.Request) string {
	if key := strings.TrimSpace(r.Header.Get(headerAPIKey)); key != "" {
		return key
	}
	auth := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

// protected нет ключа → 401, неизвестный ключ → 403.
func (s *Server) protected(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := tokenFrom(r)
		if token == "" {
			writeError(w, models.NewError(models.KindUnauthenticated, "Missing API key"))
			return
		}
		p, err := s.repo.VerifyToken(r.Context(), token)
		if err != nil {
			writeError(w, err)
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), principalKey, p)))
	}
}
