package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"math/big"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	hashIterations = 10000
	hashKeyLength  = 32
	saltLength     = 16
	tokenLength    = 32
)

const tokenCharset = "abcdefghijklmnopqrstuvwxyz" +
	"ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// randomInt returns a uniform random integer in [0, max) read from the
// operating system's entropy source. Panics if the source fails; there is
// no meaningful way to continue issuing credentials without it.
func randomInt(max int) int {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(max)))
	if err != nil {
		panic(err)
	}
	return int(n.Int64())
}

func randomString(length int, charset string) string {
	b := make([]byte, length)
	for i := range b {
		b[i] = charset[randomInt(len(charset))]
	}
	return string(b)
}

// MakeToken generates an unpredictable opaque string suitable for use as
// a session id or rotating session token.
func MakeToken() string {
	return randomString(tokenLength, tokenCharset)
}

// MakeSalt generates a fresh per-user password salt.
func MakeSalt() string {
	return randomString(saltLength, tokenCharset)
}

// HashPassword computes the salted password hash stored in the users table:
// hex(pbkdf2-sha256(password, salt)). An empty salt is permitted; records
// predating salting carry one until their first successful login re-hashes
// them.
func HashPassword(password, salt string) string {
	key := pbkdf2.Key([]byte(password), []byte(salt), hashIterations, hashKeyLength, sha256.New)
	return hex.EncodeToString(key)
}

// CompareHashedPassword reports whether the candidate password hashes to
// storedHash under the given salt, in constant time.
func CompareHashedPassword(storedHash, candidate, salt string) bool {
	computed := HashPassword(candidate, salt)
	return subtle.ConstantTimeCompare([]byte(storedHash), []byte(computed)) == 1
}

// PasswordMeetsComplexity returns true if the password meets the minimum
// complexity requirements: at least six characters, at least one digit.
func PasswordMeetsComplexity(password string) bool {
	return len(password) >= 6 && strings.IndexAny(password, "0123456789") >= 0
}

// MakeTempPassword creates the random password sent out by password
// recovery: four letters of random case and six digits, shuffled together.
// The result always satisfies PasswordMeetsComplexity.
func MakeTempPassword() string {
	chars := make([]byte, 0, 10)
	for i := 0; i < 4; i++ {
		c := byte('A' + randomInt(26))
		if randomInt(2) == 1 {
			c += 'a' - 'A'
		}
		chars = append(chars, c)
	}
	for i := 0; i < 6; i++ {
		chars = append(chars, byte('0'+randomInt(10)))
	}

	for i := len(chars) - 1; i > 0; i-- {
		j := randomInt(i + 1)
		chars[i], chars[j] = chars[j], chars[i]
	}

	return string(chars)
}
