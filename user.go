package auth

import (
	"net/http"
	"strings"
)

// Permission bits stored in the perms column of the users table. The bits
// are independent: an administrator is not implicitly a publisher.
const (
	PermUser          = 1
	PermPublisher     = 2
	PermAdministrator = 4

	// PermSuperuser is reported on loaded users but never persisted by
	// ordinary flows. Superuser status comes only from the configured
	// allow-list of usernames.
	PermSuperuser = 8
)

// User is a local user record together with the authentication state of
// the current request. It is never shared between requests.
type User struct {
	ID       int64  `json:"userid"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Perms    int    `json:"perms"`

	// IsSuperuser is derived from Settings.Superusers on load, not stored.
	IsSuperuser bool `json:"superuser"`

	// IsAuthenticated records that credentials or a valid session cookie
	// were presented during this request.
	IsAuthenticated bool `json:"-"`

	// Session and Token identify the persisted login this request arrived
	// with, if any. Both are empty for a non-persisted login.
	Session string `json:"-"`
	Token   string `json:"-"`

	PasswordHash string `json:"-"`
	salt         string
}

// Identity is the capability shared by the native and external
// authentication modes: each hands the application a local user record and
// knows how to tear its own login state down.
type Identity interface {
	Account() *User
	Logout(tx Tx, settings *Settings, w http.ResponseWriter, r *http.Request)
}

// GetUser loads a user record by case-insensitive username. Missing users
// are reported as ErrNoSuchUser; login paths that must not leak which part
// of a credential pair failed convert that to ErrIncorrectCredentials.
func GetUser(tx Tx, settings *Settings, username string) (*User, error) {
	row := tx.GetUser(username)
	if row == nil {
		return nil, ErrNoSuchUser
	}

	u := &User{
		ID:           row.ID,
		Username:     row.Username,
		Email:        row.Email,
		Name:         row.Name.String,
		Perms:        row.Perms,
		Token:        row.Token,
		PasswordHash: row.Password.String,
		salt:         row.Salt,
	}

	if u.Name == "" {
		u.Name = u.Username
	}

	// A record created before its password was set stores the hash of the
	// empty string, never a bare NULL.
	if u.PasswordHash == "" {
		u.PasswordHash = HashPassword("", u.salt)
	}

	if settings.isSuperuser(u.Username) {
		// Superusers live only in the configuration, not in the perms
		// column. They are administrators; grant the stored bit if it is
		// missing so the rest of the application need not special-case them.
		if u.Perms&PermAdministrator == 0 {
			u.GrantPermission(tx, PermAdministrator)
		}
		u.IsSuperuser = true
		u.Perms |= PermSuperuser
	}

	return u, nil
}

// IsUser reports the stored user bit.
func (u *User) IsUser() bool { return u.Perms&PermUser != 0 }

// IsPublisher reports the stored publisher bit.
func (u *User) IsPublisher() bool { return u.Perms&PermPublisher != 0 }

// IsAdministrator reports the administrator bit, which superuser status
// implies.
func (u *User) IsAdministrator() bool { return u.Perms&PermAdministrator != 0 || u.IsSuperuser }

// GrantPermission sets a stored permission bit. PermSuperuser cannot be
// granted; it is configuration-derived.
func (u *User) GrantPermission(tx Tx, perm int) {
	perm &^= PermSuperuser
	u.Perms |= perm
	tx.UpdatePerms(u.ID, u.Perms&^PermSuperuser)
}

// RevokePermission clears a stored permission bit.
func (u *User) RevokePermission(tx Tx, perm int) {
	perm &^= PermSuperuser
	u.Perms &^= perm
	tx.UpdatePerms(u.ID, u.Perms&^PermSuperuser)
}

// SetEmail updates the user's email address. Native users sign in with
// their email, so the username is kept identical to it.
func (u *User) SetEmail(tx Tx, email string) error {
	if !isEmail(email) {
		return ErrInvalidInput
	}

	email = strings.ToLower(strings.TrimSpace(email))
	tx.UpdateEmail(u.ID, email, email)
	u.Username = email
	u.Email = email
	return nil
}

// Account implements Identity.
func (u *User) Account() *User { return u }

// Logout implements Identity for the native mode: the persisted session
// record is removed and the cookie expired. Both halves are required for a
// full logout.
func (u *User) Logout(tx Tx, settings *Settings, w http.ResponseWriter, r *http.Request) {
	u.DestroySession(tx)
	UnsetCookie(w, r, settings)
}

func isEmail(input string) bool {
	at := strings.Index(input, "@")
	dot := strings.LastIndex(input, ".")
	return at > 0 && dot > at
}
