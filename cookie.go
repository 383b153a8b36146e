package auth

import (
	"encoding/base64"
	"net"
	"net/http"
	"strings"
	"time"
)

// CookieName is the name of the transport cookie carrying the session
// identity.
const CookieName = "RPCAUTH"

const cookieLifetime = 10 * 365 * 24 * time.Hour

// EncodeCookie packs the session identity into the cookie value:
// base64 of the three fields joined by a pipe.
func EncodeCookie(username, session, token string) string {
	return base64.StdEncoding.EncodeToString(
		[]byte(username + "|" + session + "|" + token))
}

// DecodeCookie unpacks a cookie value produced by EncodeCookie. A value
// that does not decode, or does not split into exactly three parts, is
// treated the same as an absent cookie and reported with ok=false.
func DecodeCookie(value string) (username, session, token string, ok bool) {
	decoded, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return "", "", "", false
	}

	parts := strings.Split(string(decoded), "|")
	if len(parts) != 3 {
		return "", "", "", false
	}

	return parts[0], parts[1], parts[2], true
}

// cookieDomain is the current server name, without any port.
func cookieDomain(r *http.Request) string {
	host := r.Host
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return host
}

func cookiePath(settings *Settings) string {
	if settings.CookiePath == "" {
		return "/"
	}
	return settings.CookiePath
}

// setCookie issues the session cookie with a ten year expiry.
func setCookie(w http.ResponseWriter, r *http.Request, settings *Settings, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     cookiePath(settings),
		Domain:   cookieDomain(r),
		Expires:  now().Add(cookieLifetime),
		Secure:   IsRequestSecure(r),
		HttpOnly: true,
	})
}

// UnsetCookie expires the session cookie client-side. It is half of a full
// logout; DestroySession removes the server-side record.
func UnsetCookie(w http.ResponseWriter, r *http.Request, settings *Settings) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     cookiePath(settings),
		Domain:   cookieDomain(r),
		Expires:  now().Add(-24 * time.Hour),
		Secure:   IsRequestSecure(r),
		HttpOnly: true,
	})
}

// requestCookie returns the raw session cookie value, or "" if not present.
func requestCookie(r *http.Request) string {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}
