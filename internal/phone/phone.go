// Package phone normalizes user-entered phone numbers to E.164.
package phone

import (
	"errors"
	"strings"
)

var (
	ErrEmpty         = errors.New("phone number is empty")
	ErrInvalidFormat = errors.New("phone number contains invalid characters")
	ErrInvalidLength = errors.New("phone number has an invalid number of digits")
)

const (
	minE164Digits = 7
	maxE164Digits = 15
)

// stripFormatting removes the separators people type between digit groups.
func stripFormatting(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '(', ')', '.', '\t':
			return -1
		}
		return r
	}, s)
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Normalize converts raw to E.164.
//
// Input with a leading "+" must carry 7 to 15 digits. Otherwise the number is
// read as North American: 10 digits, or 11 digits starting with 1.
func Normalize(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", ErrEmpty
	}

	s = stripFormatting(s)

	if strings.HasPrefix(s, "+") {
		digits := s[1:]
		if !allDigits(digits) {
			return "", ErrInvalidFormat
		}
		if len(digits) < minE164Digits || len(digits) > maxE164Digits {
			return "", ErrInvalidLength
		}
		return "+" + digits, nil
	}

	if !allDigits(s) {
		return "", ErrInvalidFormat
	}

	switch {
	case len(s) == 10:
		return "+1" + s, nil
	case len(s) == 11 && s[0] == '1':
		return "+" + s, nil
	}
	return "", ErrInvalidLength
}

// IsValid reports whether raw normalizes.
func IsValid(raw string) bool {
	_, err := Normalize(raw)
	return err == nil
}

// Display renders a North American E.164 number as (XXX) XXX-XXXX and returns
// anything else unchanged.
func Display(e164 string) string {
	if len(e164) != 12 || !strings.HasPrefix(e164, "+1") || !allDigits(e164[2:]) {
		return e164
	}
	d := e164[2:]
	return "(" + d[0:3] + ") " + d[3:6] + "-" + d[6:]
}

// Mask hides all but the last four digits, for logs.
func Mask(e164 string) string {
	if len(e164) <= 4 {
		return e164
	}
	return strings.Repeat("*", len(e164)-4) + e164[len(e164)-4:]
}
