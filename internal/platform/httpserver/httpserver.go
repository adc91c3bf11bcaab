package httpserver

import (
	"net/http"
	"time"
)

// New builds the pool's HTTP server. Timeouts are tight because every
// endpoint is a small JSON exchange; anything slower is a stuck client.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
