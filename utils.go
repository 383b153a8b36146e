package auth

import (
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"runtime/debug"
	"strings"
)

// HTTPError is an error that should be communicated to the user through
// an http status code.
type HTTPError interface {
	Error() string
	StatusCode() int
}

type httpError struct {
	status  int
	message string
}

func (h httpError) Error() string {
	return h.message
}

func (h httpError) StatusCode() int {
	return h.status
}

// HTTPPanic will cause a panic with an HTTPError. This is expected to be
// recovered at a higher level, for example using the RecoverErrors
// middleware so the error is returned to the client.
func HTTPPanic(status int, fmtStr string, args ...interface{}) HTTPError {
	panic(httpError{status, fmt.Sprintf(fmtStr, args...)})
}

// SendJSON will write a json response
// You don't need to use this but it's handy to have!
func SendJSON(w http.ResponseWriter, thing interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(thing)
}

// SendError writes an error as a status to the output
// You don't need to use this but it's handy to have!
func SendError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Status", err.Error())
	w.WriteHeader(status)
}

// CORS wraps an HTTP request handler, adding appropriate cors headers.
// If CORS is desired, you can wrap the handler with it.
func CORS(fn http.Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if origin := r.Header.Get("Origin"); origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE")
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Headers",
				"Accept, Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization")
			w.Header().Set("Access-Control-Expose-Headers", "Status, Content-Type, Content-Length")
		}
		// Stop here if its Preflighted OPTIONS request
		if r.Method == "OPTIONS" {
			return
		}

		fn.ServeHTTP(w, r)
	}
}

// RecoverErrors will wrap an HTTP handler so that no panic propagates past
// it. Authentication errors and HTTPPanic values become their HTTP status;
// anything else the store throws is logged with a stack and reported as a
// generic database failure, without leaking the driver message.
func RecoverErrors(fn http.Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if thing := recover(); thing != nil {
				code := http.StatusInternalServerError
				status := "Internal server error"
				switch v := thing.(type) {
				case HTTPError:
					code = v.StatusCode()
					status = v.Error()
				case error:
					log.Printf("panic serving %s: %v\n%s", r.URL.Path, v, debug.Stack())
					code = ErrDB.StatusCode()
					status = ErrDB.Error()
				default:
					log.Printf("panic serving %s: %v\n%s", r.URL.Path, thing, debug.Stack())
				}
				w.Header().Set("Status", status)
				w.WriteHeader(code)
			}
		}()

		fn.ServeHTTP(w, r)
	}
}

// GetIPAddress returns the address a request originated from, preferring
// the forwarding header set by a reverse proxy over the socket address.
func GetIPAddress(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return strings.TrimSpace(strings.Split(fwd, ",")[0])
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// IsRequestSecure returns true if the request used the HTTPS protocol.
// It also checks for appropriate Forwarding headers.
func IsRequestSecure(r *http.Request) bool {
	return strings.ToLower(r.URL.Scheme) == "https" ||
		strings.ToLower(r.Header.Get("X-Forwarded-Proto")) == "https" ||
		strings.Index(r.Header.Get("Forwarded"), "proto=https") >= 0
}
