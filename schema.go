package auth

// Username lookups are case-insensitive, and uniqueness must hold under
// that comparison. Sqlite gets NOCASE on the column; postgres enforces it
// with a unique index over the upper-cased value.

const schemaSqlite = `
CREATE TABLE IF NOT EXISTS users (
    userid INTEGER PRIMARY KEY,
    username TEXT UNIQUE NOT NULL COLLATE NOCASE,
	email TEXT NOT NULL,
	name TEXT,
	password TEXT,
	passwordsalt TEXT NOT NULL DEFAULT '',
	perms INTEGER NOT NULL DEFAULT 0,
	token TEXT NOT NULL DEFAULT '',
	created INTEGER NOT NULL,
	lastSeen INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS native_sessions (
	userid INTEGER NOT NULL,
	session TEXT NOT NULL,
	token TEXT NOT NULL,
	lastUsed INTEGER NOT NULL,
	FOREIGN KEY (userid) REFERENCES users ON DELETE CASCADE,
	UNIQUE(userid, session)
);
`

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS users (
    userid BIGSERIAL PRIMARY KEY,
    username TEXT NOT NULL,
	email TEXT NOT NULL,
	name TEXT,
	password TEXT,
	passwordsalt TEXT NOT NULL DEFAULT '',
	perms INTEGER NOT NULL DEFAULT 0,
	token TEXT NOT NULL DEFAULT '',
	created BIGINT NOT NULL,
	lastSeen BIGINT NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS users_username_ci ON users (UPPER(username));

CREATE TABLE IF NOT EXISTS native_sessions (
	userid BIGINT NOT NULL,
	session TEXT NOT NULL,
	token TEXT NOT NULL,
	lastUsed BIGINT NOT NULL,
	FOREIGN KEY (userid) REFERENCES users ON DELETE CASCADE,
	UNIQUE(userid, session)
);
`
