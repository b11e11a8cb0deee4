package app

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Routes is the preview and monitoring mux.
func (a *App) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", a.Hub.HandleFramesWS)
	mux.HandleFunc("/diag", a.Hub.HandleDiagWS)
	mux.HandleFunc("/control", a.Hub.HandleControlWS)
	mux.HandleFunc("/health", a.Hub.HandleHealth)
	mux.Handle("/metrics", promhttp.HandlerFor(a.Registry, promhttp.HandlerOpts{}))
	return mux
}

func withCORS(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(200)
			return
		}
		h.ServeHTTP(w, r)
	})
}
