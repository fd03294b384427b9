package httpmiddleware

import (
	"net/http"
	"strconv"
	"strings"
)

// CORSConfig configures cross-origin access to the API.
type CORSConfig struct {
	// Origins lists the origins allowed to call the API. Empty, or a single
	// "*", allows any origin.
	Origins []string

	// Headers lists the request headers browsers may send. Empty echoes
	// whatever the preflight asked for.
	Headers []string

	// AllowCredentials lets browsers send cookies and auth headers. With
	// credentials the wildcard origin is not usable, so the matching origin
	// is echoed back instead.
	AllowCredentials bool

	// MaxAge is how long, in seconds, browsers may cache preflight results.
	MaxAge int
}

const corsMethods = "GET, POST, PUT, PATCH, DELETE, OPTIONS"

// CORS returns middleware answering preflight requests and attaching
// Access-Control headers to actual responses.
func CORS(cfg CORSConfig) Middleware {
	allowAny := len(cfg.Origins) == 0
	origins := make(map[string]string, len(cfg.Origins))
	for _, o := range cfg.Origins {
		if o == "*" {
			allowAny = true
			continue
		}
		origins[strings.ToLower(o)] = o
	}
	// The wildcard is invalid alongside credentials; echo the origin instead.
	wildcard := allowAny && !cfg.AllowCredentials

	headers := strings.Join(cfg.Headers, ", ")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" {
				next.ServeHTTP(w, r)
				return
			}

			allow := ""
			switch {
			case wildcard:
				allow = "*"
			case allowAny:
				allow = origin
			default:
				allow = origins[strings.ToLower(origin)]
			}

			w.Header().Add("Vary", "Origin")

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				w.Header().Add("Vary", "Access-Control-Request-Method")
				w.Header().Add("Vary", "Access-Control-Request-Headers")

				if allow != "" {
					w.Header().Set("Access-Control-Allow-Origin", allow)
					w.Header().Set("Access-Control-Allow-Methods", corsMethods)
					if headers != "" {
						w.Header().Set("Access-Control-Allow-Headers", headers)
					} else if asked := r.Header.Get("Access-Control-Request-Headers"); asked != "" {
						w.Header().Set("Access-Control-Allow-Headers", asked)
					}
					if cfg.AllowCredentials {
						w.Header().Set("Access-Control-Allow-Credentials", "true")
					}
					if cfg.MaxAge > 0 {
						w.Header().Set("Access-Control-Max-Age", strconv.Itoa(cfg.MaxAge))
					}
				}
				w.WriteHeader(http.StatusNoContent)
				return
			}

			if allow != "" {
				w.Header().Set("Access-Control-Allow-Origin", allow)
				if cfg.AllowCredentials {
					w.Header().Set("Access-Control-Allow-Credentials", "true")
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
