package auth

import (
	"net/http"
)

// ValidatePassword authenticates a username/password pair. A missing user
// and a wrong password are reported identically as ErrIncorrectCredentials
// so callers cannot probe for which accounts exist.
//
// On success the returned user is marked authenticated for this request.
// With persist set, a session record is created and the cookie written to w,
// so the login survives beyond the request.
func ValidatePassword(tx Tx, settings *Settings, w http.ResponseWriter, r *http.Request,
	username, password string, persist bool) (*User, error) {

	u, err := GetUser(tx, settings, username)
	if err != nil {
		return nil, ErrIncorrectCredentials
	}

	if err := u.ValidatePassword(tx, password); err != nil {
		return nil, err
	}

	if persist {
		if err := u.StartSession(tx, settings, w, r); err != nil {
			return nil, err
		}
	}

	return u, nil
}

// ValidatePassword checks the supplied password against the stored salted
// hash. On a match the user becomes authenticated for this request, and a
// legacy record with an empty salt is transparently re-hashed under a fresh
// one.
func (u *User) ValidatePassword(tx Tx, password string) error {
	if !CompareHashedPassword(u.PasswordHash, password, u.salt) {
		return ErrIncorrectCredentials
	}

	u.IsAuthenticated = true

	if u.salt == "" {
		u.setPassword(tx, password)
	}

	return nil
}

// SetPassword changes the user's password. The old password must verify
// against the stored hash, and the new one must meet the complexity
// requirements. A new salt is generated on every change.
func (u *User) SetPassword(tx Tx, oldPassword, newPassword string) error {
	if !CompareHashedPassword(u.PasswordHash, oldPassword, u.salt) {
		return ErrIncorrectCredentials
	}

	if !PasswordMeetsComplexity(newPassword) {
		return ErrPasswordComplexityUnmet
	}

	u.setPassword(tx, newPassword)
	return nil
}

func (u *User) setPassword(tx Tx, password string) {
	u.salt = MakeSalt()
	u.PasswordHash = HashPassword(password, u.salt)
	tx.UpdatePassword(u.ID, u.PasswordHash, u.salt)
}

// RecoverPassword sets a new random password and hands the plaintext to the
// mail collaborator. The password write and the delivery are atomic from
// the point of view of future logins: on a delivery failure the caller's
// deferred rollback discards the write, so a user is never locked out
// because a notification failed. Callers must commit only when this
// returns nil.
func (u *User) RecoverPassword(tx Tx, settings *Settings) error {
	password := MakeTempPassword()
	u.setPassword(tx, password)

	if err := settings.sendPassword(u.Email, u.Username, password); err != nil {
		return ErrCannotSendPassword
	}

	return nil
}

// StartSession begins a persisted login. Any session row held by this
// login flow is removed first, so starting twice keeps only the newer one.
// Session id and token both come from the operating system's entropy
// source. Fails with ErrCannotSetCookie unless the user has already
// authenticated during this request.
func (u *User) StartSession(tx Tx, settings *Settings, w http.ResponseWriter, r *http.Request) error {
	if !u.IsAuthenticated {
		return ErrCannotSetCookie
	}

	u.DestroySession(tx)

	session := MakeToken()
	token := MakeToken()
	tx.CreateSession(u.ID, session, token)

	u.Session = session
	u.Token = token
	setCookie(w, r, settings, EncodeCookie(u.Username, session, token))
	return nil
}

// DestroySession deletes the session record for the current login and
// clears the in-memory session fields. Pair with UnsetCookie for a full
// logout.
func (u *User) DestroySession(tx Tx) {
	if u.Session == "" {
		return
	}

	tx.DeleteSession(u.ID, u.Session)
	u.Session = ""
	u.Token = ""
}

// RotateToken replaces the session token server-side. It runs on every
// authenticated page access, so a stolen cookie stops validating as soon
// as its owner next uses the site. Two simultaneous requests on the same
// session race here; the last write wins and the loser's cookie goes stale.
func (u *User) RotateToken(tx Tx) {
	token := MakeToken()
	tx.UpdateToken(u.ID, u.Session, token)
	u.Token = token
}

// sessionUser resolves the session cookie on a request without advancing
// the token. An absent, malformed, or unmatched cookie yields nil; all
// three leave the request anonymous.
func sessionUser(tx Tx, settings *Settings, r *http.Request) *User {
	raw := requestCookie(r)
	if raw == "" {
		return nil
	}

	username, session, token, ok := DecodeCookie(raw)
	if !ok {
		return nil
	}

	if !tx.SessionExists(username, session, token) {
		return nil
	}

	u, err := GetUser(tx, settings, username)
	if err != nil {
		return nil
	}

	u.IsAuthenticated = true
	u.Session = session
	u.Token = token
	return u
}

// ValidateCookie resolves the session cookie on an incoming request. On a
// match the token is rotated and the refreshed cookie written to w; the
// value the request arrived with will not validate again.
func ValidateCookie(tx Tx, settings *Settings, w http.ResponseWriter, r *http.Request) *User {
	u := sessionUser(tx, settings, r)
	if u == nil {
		return nil
	}

	u.RotateToken(tx)
	setCookie(w, r, settings, EncodeCookie(u.Username, u.Session, u.Token))
	return u
}
