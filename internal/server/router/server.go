package router

import (
	"context"
	"net"
	"net/http"
	"time"
)

// NewServer returns the HTTP server for handler. Request contexts are
// cancelled when Shutdown begins so open event streams end and the server
// can drain.
func NewServer(addr string, handler http.Handler) *http.Server {
	base, cancel := context.WithCancel(context.Background())
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
		BaseContext:  func(net.Listener) context.Context { return base },
	}
	srv.RegisterOnShutdown(cancel)
	return srv
}
