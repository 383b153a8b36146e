package auth

import (
	"net/smtp"
	"net/textproto"
	"strings"

	"github.com/jordan-wright/email"
)

// sendPassword delivers a recovered password to the user. The error return
// matters: password recovery rolls the password change back when delivery
// fails.
func (settings *Settings) sendPassword(addr, username, password string) error {
	if settings.SendPasswordFn != nil {
		return settings.SendPasswordFn(addr, username, password)
	}
	return sendPasswordEmail(settings, addr, username, password)
}

func sendPasswordEmail(settings *Settings, addr, username, password string) error {
	body := strings.Replace(settings.RecoveryBody, "${PASSWORD}", password, -1)
	body = strings.Replace(body, "${USERNAME}", username, -1)

	e := &email.Email{
		To:      []string{addr},
		From:    settings.EmailFrom,
		Subject: settings.RecoverySubject,
		Text:    []byte(body),
		Headers: textproto.MIMEHeader{},
	}

	return e.Send(settings.SMTPServer, smtp.PlainAuth("", settings.SMTPUser, settings.SMTPPassword,
		strings.Split(settings.SMTPServer, ":")[0]))
}
