package auth

import (
	"crypto/subtle"
	"errors"
)

var ErrInvalidPassword = errors.New("incorrect password")

// Gate checks the shared operator password. There is no lockout and no
// per-user identity.
type Gate struct {
	password []byte
}

func NewGate(password string) *Gate {
	return &Gate{password: []byte(password)}
}

func (g *Gate) Check(password string) error {
	if len(g.password) == 0 {
		return ErrInvalidPassword
	}
	if subtle.ConstantTimeCompare(g.password, []byte(password)) != 1 {
		return ErrInvalidPassword
	}
	return nil
}
