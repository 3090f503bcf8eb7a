package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"hqms/queue-service/internal/store"
)

type authContextKey struct{}

type authInfo struct {
	Session     store.Session
	Departments []string
}

// AuthMiddleware resolves the session for staff endpoints. Patient-facing
// endpoints (booking submission, displays, reference lookup) pass through.
func AuthMiddleware(st store.Store, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isPublicEndpoint(r) {
			next.ServeHTTP(w, r)
			return
		}
		sessionID := sessionIDFromRequest(r)
		if sessionID == "" {
			writeError(w, requestIDFromRequest(r), http.StatusUnauthorized, "unauthorized", "missing session")
			return
		}
		session, err := st.GetSession(r.Context(), sessionID)
		if err != nil {
			if errors.Is(err, store.ErrSessionNotFound) {
				writeError(w, requestIDFromRequest(r), http.StatusUnauthorized, "unauthorized", "invalid session")
				return
			}
			writeError(w, requestIDFromRequest(r), http.StatusInternalServerError, "internal_error", "internal server error")
			return
		}
		departments, err := st.GetAccess(r.Context(), session.StaffID)
		if err != nil {
			writeError(w, requestIDFromRequest(r), http.StatusInternalServerError, "internal_error", "access lookup failed")
			return
		}
		ctx := context.WithValue(r.Context(), authContextKey{}, authInfo{Session: session, Departments: departments})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func accessFromContext(ctx context.Context) (authInfo, bool) {
	value := ctx.Value(authContextKey{})
	if value == nil {
		return authInfo{}, false
	}
	info, ok := value.(authInfo)
	if !ok {
		return authInfo{}, false
	}
	return info, true
}

func actorFromContext(ctx context.Context) string {
	info, ok := accessFromContext(ctx)
	if !ok {
		return ""
	}
	return info.Session.StaffID
}

// requireDepartmentAccess allows staff with an empty grant list into any
// department; a non-empty list restricts them to the listed ones.
func requireDepartmentAccess(w http.ResponseWriter, r *http.Request, departmentID string) bool {
	info, ok := accessFromContext(r.Context())
	if !ok {
		writeError(w, requestIDFromRequest(r), http.StatusUnauthorized, "unauthorized", "missing session")
		return false
	}
	if departmentID == "" {
		writeError(w, requestIDFromRequest(r), http.StatusBadRequest, "invalid_request", "department_id is required")
		return false
	}
	if len(info.Departments) == 0 {
		return true
	}
	if !contains(info.Departments, departmentID) {
		writeError(w, requestIDFromRequest(r), http.StatusForbidden, "access_denied", "department access denied")
		return false
	}
	return true
}

func requireRole(w http.ResponseWriter, r *http.Request, role string) bool {
	info, ok := accessFromContext(r.Context())
	if !ok {
		writeError(w, requestIDFromRequest(r), http.StatusUnauthorized, "unauthorized", "missing session")
		return false
	}
	if info.Session.Role != role {
		writeError(w, requestIDFromRequest(r), http.StatusForbidden, "access_denied", "insufficient role")
		return false
	}
	return true
}

func contains(values []string, value string) bool {
	for _, item := range values {
		if item == value {
			return true
		}
	}
	return false
}

func sessionIDFromRequest(r *http.Request) string {
	if token := bearerToken(r.Header.Get("Authorization")); token != "" {
		return token
	}
	return strings.TrimSpace(r.Header.Get("X-Session-ID"))
}

func requestIDFromRequest(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get("X-Request-ID"))
}

func bearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.Fields(header)
	if len(parts) != 2 {
		return ""
	}
	if strings.ToLower(parts[0]) != "bearer" {
		return ""
	}
	return parts[1]
}

func isPublicEndpoint(r *http.Request) bool {
	switch r.URL.Path {
	case "/healthz", "/metrics", "/api/departments", "/api/display", "/api/lookup":
		return true
	case "/api/bookings":
		return r.Method == http.MethodPost
	}
	// Patients cancel their own booking with the booking id from their
	// reference lookup; no session exists for them.
	if strings.HasPrefix(r.URL.Path, "/api/bookings/") && strings.HasSuffix(r.URL.Path, "/actions/cancel") {
		return true
	}
	return r.Method == http.MethodOptions
}
