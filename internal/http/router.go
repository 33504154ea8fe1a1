package http

import (
	"net/http"
	"strings"
)

// RouterConfig collects the handlers and middleware for the API router.
type RouterConfig struct {
	Health        *HealthHandler
	Conversations *ConversationHandler
	Sync          *SyncHandler
	// APIMiddleware wraps the /api subtree only; Middleware wraps everything.
	APIMiddleware []func(http.Handler) http.Handler
	Middleware    []func(http.Handler) http.Handler
}

// NewRouter assembles the HTTP handler tree.
func NewRouter(cfg RouterConfig) http.Handler {
	api := http.NewServeMux()

	if cfg.Conversations != nil {
		api.HandleFunc("/api/clarify", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Conversations.Clarify(w, r)
		})
		api.HandleFunc("/api/next", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Conversations.Next(w, r)
		})
		api.HandleFunc("/api/conversations/", func(w http.ResponseWriter, r *http.Request) {
			id := strings.TrimPrefix(r.URL.Path, "/api/conversations/")
			if id == "" || strings.Contains(id, "/") {
				http.NotFound(w, r)
				return
			}
			r = r.WithContext(ContextWithConversationID(r.Context(), id))
			switch r.Method {
			case http.MethodGet:
				cfg.Conversations.Snapshot(w, r)
			case http.MethodDelete:
				cfg.Conversations.Reset(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodDelete)
			}
		})
	}

	if cfg.Sync != nil {
		api.HandleFunc("/api/apply", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Sync.Apply(w, r)
		})
		api.HandleFunc("/api/undo", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Sync.Undo(w, r)
		})
	}

	var apiHandler http.Handler = api
	for i := len(cfg.APIMiddleware) - 1; i >= 0; i-- {
		apiHandler = cfg.APIMiddleware[i](apiHandler)
	}

	mux := http.NewServeMux()
	mux.Handle("/api/", apiHandler)

	if cfg.Health != nil {
		mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			cfg.Health.Check(w, r)
		})
	}

	var handler http.Handler = mux
	for i := len(cfg.Middleware) - 1; i >= 0; i-- {
		handler = cfg.Middleware[i](handler)
	}
	return handler
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
}
