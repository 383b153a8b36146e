package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// DB is all the operations needed from the database.
// You can use the built-in UserDB provided by this package
// and override one or more operations.
//
// Any errors should be expressed through panic.
type DB interface {
	Begin(ctx context.Context) Tx
}

// Tx is a database transaction with the credential and session store
// operations. Any error should be communicated by panic(); it surfaces as
// a database failure at the HTTP boundary.
type Tx interface {
	Commit()
	Rollback()

	// GetUser looks a user up by case-insensitive username, nil if absent.
	GetUser(username string) *UserRow
	CreateUser(username, email, name, password, salt string, perms int) int64
	UpdatePassword(userid int64, password, salt string)
	UpdateEmail(userid int64, username, email string)
	UpdatePerms(userid int64, perms int)

	CreateSession(userid int64, session, token string)
	DeleteSession(userid int64, session string)
	UpdateToken(userid int64, session, token string)

	// SessionExists reports whether exactly one session record matches the
	// triple carried by a cookie.
	SessionExists(username, session, token string) bool
}

// Handler is an HTTP Handler that performs user authentication and
// session management.
type Handler struct {
	settings Settings
	db       DB

	cas    *CAS
	sso    http.Handler
	logout http.Handler
}

func (a *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/auth/create":
		a.handleCreate(w, r)
	case "/auth/login":
		a.handleLogin(w, r)
	case "/auth/get":
		a.handleGet(w, r)
	case "/auth/update":
		a.handleUpdate(w, r)
	case "/auth/setpassword":
		a.handleSetPassword(w, r)
	case "/auth/recover":
		a.handleRecover(w, r)
	case "/auth/logout":
		a.logout.ServeHTTP(w, r)
	case "/auth/sso":
		if a.sso == nil {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		a.sso.ServeHTTP(w, r)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// isDuplicateUser recognizes the unique-constraint violation raised when a
// username is taken, in both the sqlite and postgres error texts.
func isDuplicateUser(message string) bool {
	return strings.Contains(message, "UNIQUE") ||
		strings.Contains(message, "duplicate key")
}

func (a *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	defer func() {
		if thing := recover(); thing != nil {
			if isDuplicateUser(fmt.Sprintf("%v", thing)) {
				HTTPPanic(http.StatusBadRequest, "username already exists")
			}
			panic(thing)
		}
	}()

	tx := a.db.Begin(r.Context())
	defer tx.Rollback()

	// Native accounts sign in with their email address, so the username
	// is the email.
	username := strings.TrimSpace(strings.ToLower(r.FormValue("username")))
	password := r.FormValue("password")
	name := strings.TrimSpace(r.FormValue("name"))

	if !isEmail(username) {
		HTTPPanic(http.StatusBadRequest, "not an email address")
	}

	if !PasswordMeetsComplexity(password) {
		panic(ErrPasswordComplexityUnmet)
	}

	salt := MakeSalt()
	tx.CreateUser(username, username, name, HashPassword(password, salt), salt, PermUser)

	u, err := GetUser(tx, &a.settings, username)
	if err != nil {
		panic(err)
	}

	if r.FormValue("signin") != "0" {
		u.IsAuthenticated = true
		if err := u.StartSession(tx, &a.settings, w, r); err != nil {
			panic(err)
		}
	}

	tx.Commit()
	SendJSON(w, u)
}

func (a *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	username := strings.TrimSpace(strings.ToLower(r.FormValue("username")))
	password := r.FormValue("password")
	persist := r.FormValue("remember") == "1"

	DoRateLimit("login", r, username, 10, 10*time.Minute)

	tx := a.db.Begin(r.Context())
	defer tx.Commit() // so the sign-out below sticks even when the login fails

	// A login attempt ends whatever persisted session the request arrived
	// with, successful or not.
	if old := sessionUser(tx, &a.settings, r); old != nil {
		old.DestroySession(tx)
	}

	u, err := ValidatePassword(tx, &a.settings, w, r, username, password, persist)
	if err != nil {
		panic(err)
	}

	tx.Commit()
	SendJSON(w, u)
}

// currentUser validates and rotates the session cookie in its own
// transaction. Rotation happens on every authenticated access and must
// stick even when the request's main operation fails afterwards.
func (a *Handler) currentUser(w http.ResponseWriter, r *http.Request) *User {
	tx := a.db.Begin(r.Context())
	defer tx.Rollback()

	u := ValidateCookie(tx, &a.settings, w, r)
	if u == nil {
		HTTPPanic(http.StatusUnauthorized, "not signed in")
	}

	tx.Commit()
	return u
}

func (a *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	u := a.currentUser(w, r)
	SendJSON(w, u)
}

func (a *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	u := a.currentUser(w, r)

	tx := a.db.Begin(r.Context())
	defer tx.Rollback()

	if err := u.SetEmail(tx, r.FormValue("email")); err != nil {
		panic(err)
	}

	tx.Commit()

	// The cookie carries the username, so a rename must re-issue it or the
	// presented session stops matching on the next request.
	if u.Session != "" {
		setCookie(w, r, &a.settings, EncodeCookie(u.Username, u.Session, u.Token))
	}

	SendJSON(w, u)
}

func (a *Handler) handleSetPassword(w http.ResponseWriter, r *http.Request) {
	u := a.currentUser(w, r)

	tx := a.db.Begin(r.Context())
	defer tx.Rollback()

	if err := u.SetPassword(tx, r.FormValue("oldpassword"), r.FormValue("newpassword")); err != nil {
		panic(err)
	}

	tx.Commit()
	w.WriteHeader(http.StatusOK)
}

func (a *Handler) handleRecover(w http.ResponseWriter, r *http.Request) {
	username := strings.TrimSpace(strings.ToLower(r.FormValue("username")))

	DoRateLimit("recover", r, username, 5, time.Hour)

	tx := a.db.Begin(r.Context())
	defer tx.Rollback()

	u, err := GetUser(tx, &a.settings, username)
	if err != nil {
		panic(err)
	}

	// The deferred rollback is what keeps the password change atomic with
	// delivery: RecoverPassword persists the new password, then sends it,
	// and we only commit when both worked.
	if err := u.RecoverPassword(tx, &a.settings); err != nil {
		panic(err)
	}

	tx.Commit()
	w.WriteHeader(http.StatusOK)
}

func (a *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	tx := a.db.Begin(r.Context())
	defer tx.Rollback()

	sso := a.cas != nil && r.FormValue("sso") == "1"

	u := sessionUser(tx, &a.settings, r)
	if u != nil {
		var identity Identity = u
		if sso {
			identity = &ExternalIdentity{User: u, Provider: a.cas}
		}
		identity.Logout(tx, &a.settings, w, r)
	} else {
		UnsetCookie(w, r, &a.settings)
	}

	tx.Commit()
	if !sso {
		w.WriteHeader(http.StatusOK)
	}
}

// handleSSO is the delegated authentication entry point. The CAS adapter
// either issues a challenge redirect, reports a failure, or hands back a
// validated external username which is mapped onto a local user record,
// created if absent.
func (a *Handler) handleSSO(w http.ResponseWriter, r *http.Request) {
	res := a.cas.Authenticate(w, r, true)
	if res == nil {
		// Challenge redirect written; the provider will send the browser
		// back here.
		return
	}

	if !res.OK {
		HTTPPanic(http.StatusBadGateway, "%s", res.Reason)
	}

	tx := a.db.Begin(r.Context())
	defer tx.Rollback()

	u := res.User
	if u == nil {
		var err error
		u, err = GetUser(tx, &a.settings, res.Username)
		if err == ErrNoSuchUser {
			salt := MakeSalt()
			tx.CreateUser(res.Username, res.Email, "", HashPassword("", salt), salt,
				res.Perms|PermUser)
			u, err = GetUser(tx, &a.settings, res.Username)
		}
		if err != nil {
			panic(err)
		}
	}

	u.IsAuthenticated = true
	if err := u.StartSession(tx, &a.settings, w, r); err != nil {
		panic(err)
	}

	tx.Commit()
	SendJSON(w, u)
}

// New creates the authentication handler. The returned handler recovers
// panics from the store and converts them into HTTP failures, so no error
// propagates past it.
func New(db DB, settings Settings) http.Handler {
	a := &Handler{settings: settings, db: db}
	a.logout = http.HandlerFunc(a.handleLogout)

	if settings.CASHost != "" {
		// Logout goes through the CAS middleware too, so the post-logout
		// redirect to the provider has a client bound to the request.
		a.cas = NewCAS(&settings)
		a.sso = a.cas.Wrap(http.HandlerFunc(a.handleSSO))
		a.logout = a.cas.Wrap(a.logout)
	}

	return RecoverErrors(a)
}
