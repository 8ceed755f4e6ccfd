package models

import (
	"fmt"
	"strings"
	"time"
)

// Token is the label of a single schedule cell. Tokens are opaque: two cells
// belong to the same appointment when their tokens are equal, regardless of
// whether the token is one of the known kinds.
type Token string

// Known tokens.
const (
	TokenPhones      Token = "F"
	TokenChat        Token = "C"
	TokenPTO         Token = "PTO"
	TokenSharedLunch Token = "SHARED_LUNCH"
)

// Kind classifies a Token.
type Kind int

const (
	KindOther Kind = iota
	KindPhones
	KindChat
	KindPTO
	KindSharedLunch
)

func (k Kind) String() string {
	switch k {
	case KindPhones:
		return "phones"
	case KindChat:
		return "chat"
	case KindPTO:
		return "pto"
	case KindSharedLunch:
		return "shared-lunch"
	default:
		return "other"
	}
}

// ParseToken normalizes raw cell text into a Token.
func ParseToken(raw string) Token {
	return Token(strings.TrimSpace(raw))
}

// Kind returns the category of the token, KindOther for anything unrecognized.
func (t Token) Kind() Kind {
	switch t {
	case TokenPhones:
		return KindPhones
	case TokenChat:
		return KindChat
	case TokenPTO:
		return KindPTO
	case TokenSharedLunch:
		return KindSharedLunch
	default:
		return KindOther
	}
}

// Appointment is a contiguous block of a single token type.
type Appointment struct {
	StartTime time.Time
	EndTime   time.Time
	Type      Token
}

// Duration returns the length of the appointment.
func (a Appointment) Duration() time.Duration {
	return a.EndTime.Sub(a.StartTime)
}

func (a Appointment) String() string {
	return fmt.Sprintf("%s: %s - %s", a.Type, a.StartTime.Format(time.RFC3339), a.EndTime.Format(time.RFC3339))
}

// TokenSet is a set of tokens, used for busy-type filters.
type TokenSet map[Token]struct{}

// NewTokenSet builds a TokenSet from the given tokens.
func NewTokenSet(tokens ...Token) TokenSet {
	s := make(TokenSet, len(tokens))
	for _, t := range tokens {
		s[t] = struct{}{}
	}
	return s
}

// ParseTokenSet parses a comma separated list such as "F,C,PTO".
func ParseTokenSet(list string) TokenSet {
	var tokens []Token
	for _, part := range strings.Split(list, ",") {
		if t := ParseToken(part); t != "" {
			tokens = append(tokens, t)
		}
	}
	return NewTokenSet(tokens...)
}

// Has reports whether t is in the set.
func (s TokenSet) Has(t Token) bool {
	_, ok := s[t]
	return ok
}
