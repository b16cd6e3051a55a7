package middleware

import "net/http"

// Chain wraps h so the middleware run in the order given, first to last.
//
//	handler := Chain(mux,
//	    Metrics,                  // outermost, sees the final status
//	    RequestLogging,
//	    AuthMiddleware(sessions), // runs last, right before mux
//	)
func Chain(h http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}
