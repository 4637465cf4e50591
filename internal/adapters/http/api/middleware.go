package api

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/okian/chatrank/internal/domain/access"
	"github.com/okian/chatrank/pkg/logger"
)

// Identity headers set by the upstream auth proxy.
const (
	headerUserID     = "X-User-ID"
	headerUserName   = "X-User-Name"
	headerUserRole   = "X-User-Role"
	headerUserStatus = "X-User-Status"
	headerTeamID     = "X-Team-ID"
)

// Identity turns identity headers into an access.Principal.
type Identity struct {
	policy   access.StatusPolicy
	override *access.Override
}

// NewIdentity creates an Identity. A nil override leaves roles untouched.
func NewIdentity(policy access.StatusPolicy, override *access.Override) *Identity {
	return &Identity{policy: policy, override: override}
}

// Principal parses the identity headers of r. ok is false when the request
// carries no user id.
func (id *Identity) Principal(r *http.Request) (p access.Principal, ok bool, err error) {
	userID := strings.TrimSpace(r.Header.Get(headerUserID))
	if userID == "" {
		return access.Principal{}, false, nil
	}

	role := access.RoleChatter
	if raw := r.Header.Get(headerUserRole); strings.TrimSpace(raw) != "" {
		if role, err = access.ParseRole(raw); err != nil {
			return access.Principal{}, false, err
		}
	}
	status, err := id.policy.Resolve(r.Header.Get(headerUserStatus))
	if err != nil {
		return access.Principal{}, false, err
	}

	p = access.Principal{
		UserID: userID,
		Name:   strings.TrimSpace(r.Header.Get(headerUserName)),
		Role:   role,
		Status: status,
		TeamID: strings.TrimSpace(r.Header.Get(headerTeamID)),
	}
	return id.override.Apply(p), true, nil
}

// Middleware stores the caller's principal in the request context.
// Requests without identity pass through anonymously.
func (id *Identity) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok, err := id.Principal(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_identity", fmt.Errorf("%w: %w", ErrBadRequest, err))
			return
		}
		if ok {
			r = r.WithContext(access.WithPrincipal(r.Context(), p))
		}
		next.ServeHTTP(w, r)
	})
}

// observe records Prometheus metrics per matched route.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		endpoint := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			endpoint = rc.RoutePattern()
		}
		d := time.Since(start)
		s.metrics.ObserveHTTP(endpoint, r.Method, status, d)

		if status >= http.StatusInternalServerError {
			s.logger.Error(r.Context(), "request failed",
				logger.String("request_id", middleware.GetReqID(r.Context())),
				logger.String("endpoint", endpoint),
				logger.Int("status", status),
				logger.Duration("duration", d),
			)
		}
	})
}
