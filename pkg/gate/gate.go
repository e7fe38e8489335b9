// Package gate implements the public-view access latch. A protected invoice
// starts Locked and becomes Unlocked on an exact password match; the match is
// constant-time but this is a usability gate, not a security boundary (no
// hashing, no lockout, no rate limiting).
package gate

import (
	"crypto/subtle"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"faktur/models"
)

// State of the view gate for one request.
type State int

const (
	Locked State = iota
	Unlocked
)

// ErrWrongPassword is returned when the submitted password does not match.
var ErrWrongPassword = errors.New("wrong password")

// Gate checks view passwords and issues signed unlock tokens so a browser
// stays unlocked across requests to the same invoice.
type Gate struct {
	secret []byte
	ttl    time.Duration
}

func New(secret []byte, ttl time.Duration) *Gate {
	return &Gate{secret: secret, ttl: ttl}
}

// StateFor resolves the gate state for a request carrying token (possibly
// empty). Unprotected invoices are always Unlocked.
func (g *Gate) StateFor(inv *models.Invoice, token string) State {
	if !inv.IsPasswordProtected {
		return Unlocked
	}
	if token != "" && g.verify(inv.ID, token) {
		return Unlocked
	}
	return Locked
}

// Unlock transitions Locked -> Unlocked when password exactly equals the
// stored one, returning a token for subsequent requests. For unprotected
// invoices it succeeds with an empty token.
func (g *Gate) Unlock(inv *models.Invoice, password string) (string, error) {
	if !inv.IsPasswordProtected {
		return "", nil
	}
	if subtle.ConstantTimeCompare([]byte(password), []byte(inv.Password)) != 1 {
		return "", ErrWrongPassword
	}
	claims := jwt.MapClaims{
		"sub": inv.ID,
		"exp": time.Now().Add(g.ttl).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(g.secret)
}

// verify checks that token is a valid HMAC-signed unlock token for invoiceID.
func (g *Gate) verify(invoiceID, token string) bool {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrInvalidKeyType
		}
		return g.secret, nil
	})
	if err != nil || !parsed.Valid {
		return false
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return false
	}
	sub, _ := claims["sub"].(string)
	return sub == invoiceID
}
