package api

import (
	"context"
	"crypto/subtle"
	"errors"
	"net"
	"net/http"
	"strings"

	"amenityhub/internal/config"
)

const (
	permReadReservations  = "read:reservations"
	permWriteReservations = "write:reservations"
	permReadAvailability  = "read:availability"
	permReadArtifacts     = "read:artifacts"
	permExportSchedule    = "export:schedule"
	clientKeyUnknown      = "unknown"
)

var (
	errMissingCredentials = errors.New("missing api key headers")
	errInvalidAPIKey      = errors.New("invalid api key")
	errInvalidExtra       = errors.New("invalid extra header")
	errPermissionDenied   = errors.New("permission denied")
	errMissingRequester   = errors.New("missing requester id")
)

// HTTPAuth provides API-key auth and per-key rate limiting for HTTP endpoints.
type HTTPAuth struct {
	cfg     config.APIConfig
	clients map[string]config.APIClientKey
	limiter *rateLimiter
}

func NewHTTPAuth(cfg config.APIConfig) *HTTPAuth {
	m := make(map[string]config.APIClientKey, len(cfg.Auth.APIKeys))
	for _, k := range cfg.Auth.APIKeys {
		m[k.Key] = k
	}
	return &HTTPAuth{cfg: cfg, clients: m, limiter: newRateLimiter(cfg.RateLimit)}
}

func (a *HTTPAuth) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.cfg.Auth.Enabled {
			if err := a.checkAuth(r); err != nil {
				statusCode := http.StatusUnauthorized
				if errors.Is(err, errPermissionDenied) {
					statusCode = http.StatusForbidden
				}
				writeError(w, statusCode, err.Error())
				return
			}
		}

		if !a.limiter.Allow(a.clientKey(r)) {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (a *HTTPAuth) header(name, fallback string) string {
	if h := strings.TrimSpace(name); h != "" {
		return h
	}
	return fallback
}

func (a *HTTPAuth) checkAuth(r *http.Request) error {
	apiKey := strings.TrimSpace(r.Header.Get(a.header(a.cfg.Auth.HeaderAPIKey, "x-api-key")))
	extra := strings.TrimSpace(r.Header.Get(a.header(a.cfg.Auth.HeaderExtra, "x-api-extra")))
	if apiKey == "" || extra == "" {
		return errMissingCredentials
	}

	client, ok := a.clients[apiKey]
	if !ok {
		return errInvalidAPIKey
	}
	if subtle.ConstantTimeCompare([]byte(client.Extra), []byte(extra)) != 1 {
		return errInvalidExtra
	}

	return a.checkPermissions(client, r)
}

// checkPermissions: a key without an explicit permission list may call everything.
func (a *HTTPAuth) checkPermissions(client config.APIClientKey, r *http.Request) error {
	required := requiredPermission(r)
	if required == "" || len(client.Permissions) == 0 {
		return nil
	}
	for _, p := range client.Permissions {
		if strings.TrimSpace(p) == required {
			return nil
		}
	}
	return errPermissionDenied
}

func requiredPermission(r *http.Request) string {
	path := r.URL.Path
	switch {
	case strings.HasPrefix(path, "/api/v1/reservations"):
		if r.Method == http.MethodGet {
			return permReadReservations
		}
		return permWriteReservations
	case strings.HasPrefix(path, "/api/v1/artifacts"):
		return permReadArtifacts
	case strings.HasPrefix(path, "/api/v1/resources") && strings.HasSuffix(path, "/schedule.xlsx"):
		return permExportSchedule
	case strings.HasPrefix(path, "/api/v1/resources"):
		return permReadAvailability
	}
	return ""
}

func (a *HTTPAuth) clientKey(r *http.Request) string {
	if apiKey := strings.TrimSpace(r.Header.Get(a.header(a.cfg.Auth.HeaderAPIKey, "x-api-key"))); apiKey != "" {
		return apiKey
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return clientKeyUnknown
}

type requesterKey struct{}

// RequireRequester reads the trusted caller identity into the request context.
func (a *HTTPAuth) RequireRequester(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requester := strings.TrimSpace(r.Header.Get(a.header(a.cfg.Auth.HeaderRequester, "x-requester-id")))
		if requester == "" {
			writeError(w, http.StatusUnauthorized, errMissingRequester.Error())
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requesterKey{}, requester)))
	})
}

func requesterFrom(ctx context.Context) string {
	id, _ := ctx.Value(requesterKey{}).(string)
	return id
}
