// Package codegen produces the secrets that gate event access and check-in.
//
// Invite tokens are long URL-safe strings. Invite codes are short codes a
// person can type. Check-in tokens are six digits bound to one participant.
// All of them are drawn from crypto/rand.
package codegen

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"regexp"
	"strings"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	// InviteTokenBytes is the entropy of an invite token before encoding.
	InviteTokenBytes = 24
	// InviteCodeAlphabet is the 36-symbol alphabet of invite codes.
	InviteCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	// InviteCodeLength is the length of an invite code.
	InviteCodeLength = 8
	// CheckInTokenLength is the number of digits in a check-in token.
	CheckInTokenLength = 6
	// MaxInviteCodeAttempts bounds rejection sampling against used codes.
	MaxInviteCodeAttempts = 100
)

const checkInDigits = "0123456789"

var inviteCodePattern = regexp.MustCompile(`^[A-Z0-9]{8}$`)

// ErrCodeSpaceExhausted is returned when no unused invite code was found
// within MaxInviteCodeAttempts draws.
var ErrCodeSpaceExhausted = errors.New("no unused invite code found")

// Source produces raw secrets. Crypto is the production implementation;
// tests substitute deterministic sources.
type Source interface {
	InviteToken() (string, error)
	InviteCode() (string, error)
	CheckInToken() (string, error)
}

// Crypto draws every secret uniformly from crypto/rand.
type Crypto struct{}

// InviteToken returns 24 random bytes, base64url-encoded without padding.
func (Crypto) InviteToken() (string, error) {
	b := make([]byte, InviteTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// InviteCode returns 8 symbols from InviteCodeAlphabet.
func (Crypto) InviteCode() (string, error) {
	code, err := gonanoid.Generate(InviteCodeAlphabet, InviteCodeLength)
	if err != nil {
		return "", fmt.Errorf("generate invite code: %w", err)
	}
	return code, nil
}

// CheckInToken returns 6 decimal digits. Leading zeros are kept.
func (Crypto) CheckInToken() (string, error) {
	token, err := gonanoid.Generate(checkInDigits, CheckInTokenLength)
	if err != nil {
		return "", fmt.Errorf("generate check-in token: %w", err)
	}
	return token, nil
}

// UniqueInviteCode draws codes from src until one is not in used.
// It gives up after MaxInviteCodeAttempts with ErrCodeSpaceExhausted.
func UniqueInviteCode(src Source, used map[string]struct{}) (string, error) {
	for range MaxInviteCodeAttempts {
		code, err := src.InviteCode()
		if err != nil {
			return "", err
		}
		if _, taken := used[code]; !taken {
			return code, nil
		}
	}
	return "", ErrCodeSpaceExhausted
}

// ValidInviteCode reports whether code is well formed. It does not say
// whether any event uses it.
func ValidInviteCode(code string) bool {
	return inviteCodePattern.MatchString(code)
}

// CheckInCode joins a participant id and token as "<participantID>:<token>".
func CheckInCode(participantID, token string) string {
	return participantID + ":" + token
}

// ParseCheckInCode splits code on its first ':'. Both halves must be non-empty.
func ParseCheckInCode(code string) (participantID, token string, ok bool) {
	participantID, token, ok = strings.Cut(code, ":")
	if !ok || participantID == "" || token == "" {
		return "", "", false
	}
	return participantID, token, true
}
