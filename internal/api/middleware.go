// Package api implements the contract REST API using chi.
package api

import (
	"net/http"
	"strings"
)

// corsHeaders is the fixed permissive header set every response carries.
var corsHeaders = map[string]string{
	"Access-Control-Allow-Origin":  "*",
	"Access-Control-Allow-Headers": "Content-Type",
	"Access-Control-Allow-Methods": "POST, GET, OPTIONS, PUT, DELETE",
}

// CORSMiddleware attaches the permissive CORS header set to every
// response and answers OPTIONS preflight requests directly.
func CORSMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for k, v := range corsHeaders {
			w.Header().Set(k, v)
		}
		if r.Method == http.MethodOptions {
			writeJSON(w, http.StatusOK, map[string]string{"message": "OK"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// AuthMiddleware returns middleware that validates a Bearer token.
// If enabled is false, all requests pass through (disabled mode).
func AuthMiddleware(enabled bool, token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !enabled {
				next.ServeHTTP(w, r)
				return
			}
			auth := r.Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") || strings.TrimPrefix(auth, "Bearer ") != token {
				writeJSON(w, http.StatusUnauthorized, errorBody("Unauthorized", "missing or invalid token"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
