/*
Package auth is the login subsystem of a single web application.

It provides two authentication modes:
  - Native username/password accounts stored in a relational users table,
    with persistent cookie sessions, password recovery by email, and a
    coarse permission bitmask
  - Delegated single sign-on against a campus CAS server

It is not a general-purpose authentication framework. The native session
protocol, the permission model, and the CAS handoff are exactly what the
application needs and nothing more.

# Quick Start

This example mounts the authentication endpoints over a SQLite database.

	package main

	import (
		"log"
		"net/http"

		"github.com/jmoiron/sqlx"
		_ "github.com/mattn/go-sqlite3"
		"github.com/rpcalc/auth"
	)

	func main() {
		// 1. Connect to the database
		db, err := sqlx.Open("sqlite3", "users.db")
		if err != nil {
			log.Fatal(err)
		}

		// 2. Configure settings
		settings := auth.DefaultSettings
		settings.SMTPServer = "smtp.example.edu:587"
		settings.EmailFrom = "MyApp <support@myapp.example.edu>"
		settings.Superusers = []string{"admin@myapp.example.edu"}

		// 3. Create the handler
		// NewUserDB will automatically create necessary tables
		handler := auth.New(auth.NewUserDB(db), settings)

		// 4. Mount the handler
		// The endpoints will be available under /auth/...
		http.Handle("/auth/", handler)

		log.Println("Listening on :8080")
		log.Fatal(http.ListenAndServe(":8080", nil))
	}

Settings can also be populated from AUTH_* environment variables with
SettingsFromEnv.

# The session protocol

A successful login with remember=1 creates a session record (userid,
session, token) and issues the RPCAUTH cookie, whose value is the base64
encoding of "username|session|token". The session id identifies one
persisted login; a user signed in from several devices holds several
records.

On every authenticated request the presented triple must match exactly one
session record. The token is then rotated server-side and the refreshed
cookie sent back, so a stolen cookie stops working as soon as its owner
next uses the site. Logging out deletes the session record and expires the
cookie; both halves are required.

Session ids and tokens are drawn from the operating system's entropy
source, never from the clock.

# Passwords

Passwords are stored as a salted hash with a per-user random salt.
Accounts predating salting are re-hashed under a fresh salt on their next
successful login. New passwords must be at least six characters long and
contain a digit.

Password recovery generates a fresh random password and mails it to the
account's address. The database write and the mail delivery are atomic: if
the mail cannot be sent, the password change is rolled back, so a user is
never locked out by a failed notification.

A failed login does not reveal whether the username or the password was
wrong.

# Permissions

The perms column carries independent user, publisher, and administrator
bits. Superuser status is never stored: it is granted to the usernames
listed in Settings.Superusers, and implies administrator.

# Delegated sign-on

When Settings.CASHost is set, /auth/sso forces authentication against the
CAS server. A validated external username is mapped onto a local account,
created on first sight, and a normal session is issued for it. Provider
failures surface as an error message to the user; they never crash the
request.

# Storage

The DB and Tx interfaces abstract the store. The bundled UserDB runs on
sqlx with the sqlite and postgres drivers and creates its schema on first
use. Store errors are communicated by panic and converted to HTTP
failures at the handler boundary.
*/
package auth
