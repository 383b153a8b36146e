package auth

import (
	"strings"

	"github.com/caarlos0/env/v11"
)

// Settings is the settings for the auth package
type Settings struct {
	// SMTP Server and port
	SMTPServer   string `env:"AUTH_SMTP_SERVER"`
	SMTPUser     string `env:"AUTH_SMTP_USER"`
	SMTPPassword string `env:"AUTH_SMTP_PASSWORD"`

	// Eg. "My web site <example@example.com>"
	EmailFrom       string `env:"AUTH_EMAIL_FROM"`
	RecoverySubject string `env:"AUTH_RECOVERY_SUBJECT"`

	// RecoveryBody is the text of the password recovery mail.
	// ${USERNAME} and ${PASSWORD} are substituted.
	RecoveryBody string `env:"AUTH_RECOVERY_BODY"`

	// Alternatively, you can use this to deliver recovered passwords.
	// A non-nil error rolls the password change back.
	SendPasswordFn func(email, username, password string) error

	// CookiePath is the path attribute of the session cookie, normally the
	// application's base path. Empty means "/".
	CookiePath string `env:"AUTH_COOKIE_PATH"`

	// Superusers are the usernames granted superuser status. The status is
	// never written to the users table; it exists only while this list
	// says so.
	Superusers []string `env:"AUTH_SUPERUSERS"`

	// CAS server location. Leaving CASHost empty disables the delegated
	// authentication endpoint.
	CASHost string `env:"AUTH_CAS_HOST"`
	CASPort int    `env:"AUTH_CAS_PORT" envDefault:"443"`
	CASPath string `env:"AUTH_CAS_PATH" envDefault:"/cas"`
}

// DefaultSettings provide some reasonable defaults
var DefaultSettings = Settings{
	RecoverySubject: "Password recovery",
	RecoveryBody: "Hello ${USERNAME},\n\nYour password has been reset to:\n\n    ${PASSWORD}\n\n" +
		"Please sign in and change it.",
	CASPort: 443,
	CASPath: "/cas",
}

// SettingsFromEnv returns DefaultSettings overridden by AUTH_* environment
// variables.
func SettingsFromEnv() (Settings, error) {
	settings := DefaultSettings
	if err := env.Parse(&settings); err != nil {
		return settings, err
	}
	return settings, nil
}

func (settings *Settings) isSuperuser(username string) bool {
	for _, name := range settings.Superusers {
		if strings.EqualFold(name, username) {
			return true
		}
	}
	return false
}
