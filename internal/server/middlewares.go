package server

import (
	"net/http"
	"strings"
)

// SetRequestInfo update the scheme and host on the incoming
// HTTP request URL (r.URL), based on provided headers and/or
// current environnement.
func SetRequestInfo(next http.Handler) http.Handler {
	fn := func(w http.ResponseWriter, r *http.Request) {
		r.URL.Scheme = "http"
		if proto := r.Header.Get("x-forwarded-proto"); proto != "" {
			r.URL.Scheme = proto
		} else if r.TLS != nil {
			r.URL.Scheme = "https"
		}

		if host := r.Header.Get("x-forwarded-host"); host != "" {
			r.Host = host
		}
		r.URL.Host = r.Host

		next.ServeHTTP(w, r)
	}

	return http.HandlerFunc(fn)
}

// SetSecurity adds some headers to improve client side security.
func SetSecurity(next http.Handler) http.Handler {
	cspHeader := strings.Join([]string{
		"default-src 'none'",
		"img-src 'self' data: blob:",
	}, "; ")

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Referrer-Policy", "same-origin")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Add("Content-Security-Policy", cspHeader)

		next.ServeHTTP(w, r)
	})
}

// LimitBody caps the size of request bodies.
func LimitBody(n int64) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if n > 0 && r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, n)
			}
			next.ServeHTTP(w, r)
		})
	}
}
