package server

import (
	"net/http"
)

// Routes lists the handlers mounted by NewMux. Nil handlers are skipped.
type Routes struct {
	Tiles        http.Handler
	Status       http.Handler
	StatusStream http.Handler
	Metadata     http.Handler
	Sample       http.Handler
	// DemoDir is served under /demo/ when set.
	DemoDir string
}

// NewMux builds the server's router. Tile and status endpoints allow
// cross-origin requests so browser playgrounds can use them.
func NewMux(routes Routes) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})

	if routes.Tiles != nil {
		mux.Handle("/tiles/", WithCORS(routes.Tiles))
	}
	if routes.Status != nil {
		mux.Handle("/status", WithCORS(routes.Status))
	}
	if routes.StatusStream != nil {
		mux.Handle("/status/stream", WithCORS(routes.StatusStream))
	}
	if routes.Metadata != nil {
		mux.Handle("/metadata", WithCORS(routes.Metadata))
	}
	if routes.Sample != nil {
		mux.Handle("/sample", WithCORS(routes.Sample))
	}

	if routes.DemoDir != "" {
		fs := http.FileServer(http.Dir(routes.DemoDir))
		mux.Handle("/demo/", http.StripPrefix("/demo/", fs))
		mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/" {
				http.NotFound(w, r)
				return
			}
			http.Redirect(w, r, "/demo/", http.StatusFound)
		})
	}
	return mux
}

// WithCORS allows any origin to call next.
func WithCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
