package httpserver

import (
	"log/slog"
	"net/http"
	"time"
)

// New builds the ops HTTP server. WriteTimeout is left unset because a
// manually triggered job streams nothing until the run finishes; the admin
// routes bound themselves with a handler timeout instead.
func New(addr string, handler http.Handler, log *slog.Logger) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ErrorLog:          slog.NewLogLogger(log.Handler(), slog.LevelError),
	}
}
