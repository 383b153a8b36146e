package auth

import (
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"gopkg.in/cas.v2"
)

// Result is the outcome of a delegated authentication attempt. On the wire
// it is the pipe-delimited string
//
//	STATUS|username|email|permissions|fail-reason
//
// with STATUS either OK or FAIL. Trailing fields may be empty but the
// delimiters are mandatory. An adapter that already holds a complete local
// user record may attach it as User instead; callers must then skip the
// local lookup and treat the user as existing.
type Result struct {
	OK       bool
	Username string
	Email    string
	Perms    int
	Reason   string

	User *User
}

func (res *Result) String() string {
	status := "FAIL"
	if res.OK {
		status = "OK"
	}
	perms := ""
	if res.Perms != 0 {
		perms = strconv.Itoa(res.Perms)
	}
	return fmt.Sprintf("%s|%s|%s|%s|%s", status, res.Username, res.Email, perms, res.Reason)
}

// ParseResult decodes the delimited authentication result contract.
func ParseResult(s string) (*Result, error) {
	parts := strings.Split(s, "|")
	if len(parts) != 5 {
		return nil, fmt.Errorf("auth result must have 5 fields, got %d", len(parts))
	}

	res := &Result{
		Username: parts[1],
		Email:    parts[2],
		Reason:   parts[4],
	}

	switch parts[0] {
	case "OK":
		res.OK = true
	case "FAIL":
		res.OK = false
	default:
		return nil, fmt.Errorf("auth result status must be OK or FAIL, got %q", parts[0])
	}

	if parts[3] != "" {
		perms, err := strconv.Atoi(parts[3])
		if err != nil {
			return nil, fmt.Errorf("auth result permissions: %v", err)
		}
		res.Perms = perms
	}

	return res, nil
}

// ExternalAuthenticator is the contract for a delegated identity provider.
// Authenticate may write a challenge redirect to w and return nil; the
// caller then ends the request and waits for the provider to send the
// browser back. A provider failure comes back as a FAIL result, never as a
// panic past the entry point.
type ExternalAuthenticator interface {
	Authenticate(w http.ResponseWriter, r *http.Request, enforce bool) *Result
	Logout(w http.ResponseWriter, r *http.Request)
}

// CAS delegates authentication to a campus CAS server.
type CAS struct {
	client *cas.Client
}

// NewCAS builds the adapter from the configured CAS endpoint.
func NewCAS(settings *Settings) *CAS {
	u := &url.URL{
		Scheme: "https",
		Host:   fmt.Sprintf("%s:%d", settings.CASHost, settings.CASPort),
		Path:   settings.CASPath,
	}

	return &CAS{client: cas.NewClient(&cas.Options{URL: u})}
}

// Wrap installs the CAS ticket-validation middleware around a handler.
// Any handler that calls Authenticate must be reachable through it.
func (c *CAS) Wrap(h http.Handler) http.Handler {
	return c.client.Handle(h)
}

// Authenticate implements ExternalAuthenticator. With enforce set and no
// CAS assertion present it issues the login redirect and returns nil;
// without enforce it returns nil so the session-cookie path can stand in.
func (c *CAS) Authenticate(w http.ResponseWriter, r *http.Request, enforce bool) (res *Result) {
	// The provider must not be able to crash the request. Anything thrown
	// while talking to it becomes the FAIL branch of the contract.
	defer func() {
		if thing := recover(); thing != nil {
			log.Printf("CAS provider error: %v", thing)
			res = &Result{OK: false, Reason: "The login service is unavailable. Please contact support."}
		}
	}()

	if !cas.IsAuthenticated(r) {
		if enforce {
			cas.RedirectToLogin(w, r)
		}
		return nil
	}

	username := cas.Username(r)
	if username == "" {
		return &Result{OK: false, Reason: "The login service did not supply a username. Please contact support."}
	}

	email := ""
	if attrs := cas.Attributes(r); attrs != nil {
		email = attrs.Get("mail")
		if email == "" {
			email = attrs.Get("email")
		}
	}

	return &Result{OK: true, Username: username, Email: email}
}

// Logout implements ExternalAuthenticator by redirecting the browser to
// the CAS logout endpoint, which sends it back to the application root
// afterwards.
func (c *CAS) Logout(w http.ResponseWriter, r *http.Request) {
	cas.RedirectToLogout(w, r)
}

// ExternalIdentity is a local user whose login was established by an
// external identity provider. Logging out tears down the local session and
// then notifies the provider.
type ExternalIdentity struct {
	*User
	Provider ExternalAuthenticator
}

// Logout implements Identity.
func (e *ExternalIdentity) Logout(tx Tx, settings *Settings, w http.ResponseWriter, r *http.Request) {
	e.User.Logout(tx, settings, w, r)
	e.Provider.Logout(w, r)
}
