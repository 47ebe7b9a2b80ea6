package http

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"trivia-board-service/internal/domain"
	"trivia-board-service/internal/metrics"
)

var routeMethods = []string{
	http.MethodGet,
	http.MethodPost,
	http.MethodPut,
	http.MethodPatch,
	http.MethodDelete,
}

// NewRouter wires the game routes, /healthz and /metrics behind request
// logging and Prometheus instrumentation. m may be nil.
func NewRouter(h *Handler, m *metrics.Metrics, log logrus.FieldLogger) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	h.Register(mux)
	if m != nil {
		mux.Handle("GET /metrics", m.Handler())
	}

	var handler http.Handler = withErrorFallback(mux)
	if m != nil {
		handler = m.Middleware(handler)
	}
	return withRequestLogging(log, handler)
}

// withErrorFallback answers requests the mux cannot route with the JSON error
// body instead of the mux's plain-text 404 and 405 replies.
func withErrorFallback(mux *http.ServeMux) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, pattern := mux.Handler(r); pattern != "" {
			mux.ServeHTTP(w, r)
			return
		}
		allowed := allowedMethods(mux, r)
		if len(allowed) == 0 {
			writeJSON(w, http.StatusNotFound, errorBody{Error: errorDetail{
				Kind:    domain.KindNotFound,
				Message: fmt.Sprintf("no route for %s", r.URL.Path),
			}})
			return
		}
		w.Header().Set("Allow", strings.Join(allowed, ", "))
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{Error: errorDetail{
			Kind:    domain.KindValidation,
			Message: fmt.Sprintf("method %s not allowed on %s", r.Method, r.URL.Path),
		}})
	})
}

func allowedMethods(mux *http.ServeMux, r *http.Request) []string {
	var allowed []string
	for _, method := range routeMethods {
		if method == r.Method {
			continue
		}
		alt := r.Clone(r.Context())
		alt.Method = method
		if _, pattern := mux.Handler(alt); pattern != "" {
			allowed = append(allowed, method)
		}
	}
	return allowed
}
