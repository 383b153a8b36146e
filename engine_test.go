package auth

import (
	"context"
	"testing"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTx(t *testing.T) Tx {
	t.Helper()
	db := NewUserDB(sqlx.MustConnect("sqlite3", ":memory:"))
	return db.Begin(context.Background())
}

// Accounts that predate per-user salting carry an empty salt. A successful
// login must transparently re-hash them with a fresh salt.
func TestLegacyRecordsAreRehashed(t *testing.T) {
	tx := newTestTx(t)
	defer tx.Rollback()

	settings := DefaultSettings
	tx.CreateUser("old@example.com", "old@example.com", "", HashPassword("abc123", ""), "", PermUser)

	u, err := GetUser(tx, &settings, "old@example.com")
	require.NoError(t, err)
	require.NoError(t, u.ValidatePassword(tx, "abc123"))

	row := tx.GetUser("old@example.com")
	require.NotNil(t, row)
	assert.NotEmpty(t, row.Salt, "salt should be filled in after login")
	assert.NotEqual(t, HashPassword("abc123", ""), row.Password.String)

	// The same password still works against the migrated record.
	u2, err := GetUser(tx, &settings, "old@example.com")
	require.NoError(t, err)
	assert.NoError(t, u2.ValidatePassword(tx, "abc123"))
	assert.Error(t, u2.ValidatePassword(tx, "abc124"))
}

func TestGetUserIsCaseInsensitive(t *testing.T) {
	tx := newTestTx(t)
	defer tx.Rollback()

	settings := DefaultSettings
	salt := MakeSalt()
	tx.CreateUser("steve@example.com", "steve@example.com", "Steve", HashPassword("abc123", salt), salt, PermUser)

	u, err := GetUser(tx, &settings, "STEVE@Example.COM")
	require.NoError(t, err)
	assert.Equal(t, "steve@example.com", u.Username)
	assert.Equal(t, "Steve", u.Name)

	_, err = GetUser(tx, &settings, "nobody@example.com")
	assert.ErrorIs(t, err, ErrNoSuchUser)
}

// A session is identified by the exact (username, session, token) triple.
func TestSessionExistsMatchesExactTriple(t *testing.T) {
	tx := newTestTx(t)
	defer tx.Rollback()

	userid := tx.CreateUser("steve@example.com", "steve@example.com", "", "hash", "salt", PermUser)
	tx.CreateSession(userid, "sess1", "tok1")

	assert.True(t, tx.SessionExists("steve@example.com", "sess1", "tok1"))
	assert.True(t, tx.SessionExists("STEVE@EXAMPLE.COM", "sess1", "tok1"))
	assert.False(t, tx.SessionExists("steve@example.com", "sess1", "tok2"))
	assert.False(t, tx.SessionExists("steve@example.com", "sess2", "tok1"))
	assert.False(t, tx.SessionExists("other@example.com", "sess1", "tok1"))
}

func TestRotateTokenInvalidatesOldTriple(t *testing.T) {
	tx := newTestTx(t)
	defer tx.Rollback()

	settings := DefaultSettings
	salt := MakeSalt()
	tx.CreateUser("steve@example.com", "steve@example.com", "", HashPassword("abc123", salt), salt, PermUser)

	u, err := GetUser(tx, &settings, "steve@example.com")
	require.NoError(t, err)

	u.Session = MakeToken()
	u.Token = MakeToken()
	tx.CreateSession(u.ID, u.Session, u.Token)

	old := u.Token
	u.RotateToken(tx)

	assert.NotEqual(t, old, u.Token)
	assert.False(t, tx.SessionExists(u.Username, u.Session, old))
	assert.True(t, tx.SessionExists(u.Username, u.Session, u.Token))
}

func TestDestroySessionClearsStoreAndUser(t *testing.T) {
	tx := newTestTx(t)
	defer tx.Rollback()

	settings := DefaultSettings
	salt := MakeSalt()
	tx.CreateUser("steve@example.com", "steve@example.com", "", HashPassword("abc123", salt), salt, PermUser)

	u, err := GetUser(tx, &settings, "steve@example.com")
	require.NoError(t, err)

	u.Session = MakeToken()
	u.Token = MakeToken()
	tx.CreateSession(u.ID, u.Session, u.Token)
	session, token := u.Session, u.Token

	u.DestroySession(tx)

	assert.Empty(t, u.Session)
	assert.Empty(t, u.Token)
	assert.False(t, tx.SessionExists("steve@example.com", session, token))

	// Destroying again is a no-op.
	u.DestroySession(tx)
}

// Superuser status is derived from the configured allow-list on every load.
// Loading an allow-listed account also persists the administrator bit.
func TestSuperuserDerivation(t *testing.T) {
	tx := newTestTx(t)
	defer tx.Rollback()

	settings := DefaultSettings
	settings.Superusers = []string{"Super@Example.com"}

	salt := MakeSalt()
	tx.CreateUser("super@example.com", "super@example.com", "", HashPassword("abc123", salt), salt, PermUser)

	u, err := GetUser(tx, &settings, "super@example.com")
	require.NoError(t, err)
	assert.True(t, u.IsSuperuser)
	assert.True(t, u.IsAdministrator())
	assert.Equal(t, PermUser|PermAdministrator|PermSuperuser, u.Perms)

	// The stored perms gained administrator but never the superuser bit.
	row := tx.GetUser("super@example.com")
	require.NotNil(t, row)
	assert.Equal(t, PermUser|PermAdministrator, row.Perms)
}

// The duplicate-username check must recognize both drivers' error texts.
func TestDuplicateUserDetection(t *testing.T) {
	assert.True(t, isDuplicateUser("UNIQUE constraint failed: users.username"))
	assert.True(t, isDuplicateUser(`pq: duplicate key value violates unique constraint "users_username_ci"`))
	assert.False(t, isDuplicateUser("no such table: users"))
}

// The superuser bit cannot be stored, only derived.
func TestGrantCannotPersistSuperuser(t *testing.T) {
	tx := newTestTx(t)
	defer tx.Rollback()

	settings := DefaultSettings
	salt := MakeSalt()
	tx.CreateUser("steve@example.com", "steve@example.com", "", HashPassword("abc123", salt), salt, PermUser)

	u, err := GetUser(tx, &settings, "steve@example.com")
	require.NoError(t, err)

	u.GrantPermission(tx, PermPublisher|PermSuperuser)

	row := tx.GetUser("steve@example.com")
	require.NotNil(t, row)
	assert.Equal(t, PermUser|PermPublisher, row.Perms)
	assert.False(t, u.IsSuperuser)
}
