package auth

import (
	"context"
	"database/sql"
	"log"

	"github.com/jmoiron/sqlx"
)

// UserRow is one record of the users table.
type UserRow struct {
	ID       int64          `db:"userid"`
	Username string         `db:"username"`
	Email    string         `db:"email"`
	Name     sql.NullString `db:"name"`
	Password sql.NullString `db:"password"`
	Salt     string         `db:"passwordsalt"`
	Perms    int            `db:"perms"`
	Token    string         `db:"token"`
}

// UserDB is the bundled credential and session store, backed by sqlx.
// It supports sqlite and postgres.
type UserDB struct {
	db *sqlx.DB
}

// UserTx wraps a database transaction
type UserTx struct {
	Tx *sqlx.Tx
}

// NewUserDB returns a new user database, creating the tables if needed.
func NewUserDB(db *sqlx.DB) *UserDB {
	udb := &UserDB{db}
	udb.createTables()
	return udb
}

func (db *UserDB) createTables() {
	var err error
	if db.db.DriverName() == "postgres" {
		_, err = db.db.Exec(schemaPostgres)
	} else {
		_, err = db.db.Exec(schemaSqlite)
	}
	if err != nil {
		panic(err)
	}
}

// Begin begins a transaction
func (db *UserDB) Begin(ctx context.Context) Tx {
	return UserTx{db.db.MustBeginTx(ctx, nil)}
}

// Commit commits a DB transaction
func (tx UserTx) Commit() {
	err := tx.Tx.Commit()
	if err != nil && err != sql.ErrTxDone {
		log.Panic(err)
	}
}

// Rollback aborts a DB transaction
func (tx UserTx) Rollback() {
	tx.Tx.Rollback()
}

// GetUser returns the row for the given username, compared
// case-insensitively, or nil if there is none.
func (tx UserTx) GetUser(username string) *UserRow {
	query := `
		SELECT userid, username, email, name, password, passwordsalt, perms, token
		FROM users
		WHERE UPPER(username)=UPPER($1)`

	var row UserRow
	err := tx.Tx.Get(&row, query, username)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		panic(err)
	}

	return &row
}

// CreateUser inserts a user record and returns its id. The password is
// already hashed under the given salt.
func (tx UserTx) CreateUser(username, email, name, password, salt string, perms int) int64 {
	nowSecs := now().Unix()
	var err error
	var id int64

	if tx.Tx.DriverName() == "postgres" {
		err = tx.Tx.QueryRow(`INSERT INTO users (username, email, name, password, passwordsalt, perms, created, lastSeen)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING userid`,
			username, email, name, password, salt, perms, nowSecs, nowSecs).Scan(&id)
	} else {
		var res sql.Result
		res, err = tx.Tx.Exec(`INSERT INTO users (username, email, name, password, passwordsalt, perms, created, lastSeen)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			username, email, name, password, salt, perms, nowSecs, nowSecs)

		if err != nil {
			panic(err)
		}
		id, err = res.LastInsertId()
	}

	if err != nil {
		panic(err)
	}

	return id
}

// UpdatePassword stores a new password hash and salt for the user.
func (tx UserTx) UpdatePassword(userid int64, password, salt string) {
	tx.Tx.MustExec("UPDATE users SET password=$1, passwordsalt=$2 WHERE userid=$3",
		password, salt, userid)
}

// UpdateEmail changes the user's username and email together. Native
// accounts keep the two identical.
func (tx UserTx) UpdateEmail(userid int64, username, email string) {
	tx.Tx.MustExec("UPDATE users SET username=$1, email=$2 WHERE userid=$3",
		username, email, userid)
}

// UpdatePerms stores the permission bitmask for the user.
func (tx UserTx) UpdatePerms(userid int64, perms int) {
	tx.Tx.MustExec("UPDATE users SET perms=$1 WHERE userid=$2",
		perms, userid)
}

// CreateSession inserts a persisted login record.
func (tx UserTx) CreateSession(userid int64, session, token string) {
	nowSecs := now().Unix()

	tx.Tx.MustExec("INSERT INTO native_sessions (userid, session, token, lastUsed) VALUES ($1, $2, $3, $4)",
		userid, session, token, nowSecs)

	tx.Tx.MustExec("UPDATE users SET token=$1, lastSeen=$2 WHERE userid=$3",
		token, nowSecs, userid)

	tx.performMaintenance()
}

// DeleteSession removes one persisted login record. Other sessions the
// user holds on other devices are unaffected.
func (tx UserTx) DeleteSession(userid int64, session string) {
	tx.Tx.MustExec("DELETE FROM native_sessions WHERE userid=$1 AND session=$2",
		userid, session)
}

// UpdateToken rotates the token on a persisted login record.
func (tx UserTx) UpdateToken(userid int64, session, token string) {
	nowSecs := now().Unix()

	tx.Tx.MustExec("UPDATE native_sessions SET token=$1, lastUsed=$2 WHERE userid=$3 AND session=$4",
		token, nowSecs, userid, session)

	tx.Tx.MustExec("UPDATE users SET token=$1, lastSeen=$2 WHERE userid=$3",
		token, nowSecs, userid)
}

// SessionExists reports whether exactly one session record matches the
// (username, session, token) triple from a cookie.
func (tx UserTx) SessionExists(username, session, token string) bool {
	var count int
	err := tx.Tx.Get(&count, `
		SELECT COUNT(*)
		FROM native_sessions JOIN users ON native_sessions.userid = users.userid
		WHERE UPPER(users.username)=UPPER($1) AND native_sessions.session=$2 AND native_sessions.token=$3`,
		username, session, token)
	if err != nil {
		panic(err)
	}

	return count == 1
}

// Session rows older than the cookie lifetime can no longer validate any
// cookie that is still honored by a browser; drop them as we go.
func (tx UserTx) performMaintenance() {
	before := now().Add(-cookieLifetime).Unix()
	tx.Tx.MustExec("DELETE FROM native_sessions WHERE lastUsed < $1", before)
}
