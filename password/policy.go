// Package password provides the password-strength policy applied to signup
// and password-change forms, and the argon2id hasher used by in-process
// credential stores.
package password

import (
	"strings"
	"unicode/utf8"
)

// Rule failure messages. These strings are rendered verbatim in the UI
// checklist, so they are part of the contract; do not reword them.
const (
	msgLength  = "Password must be at least 12 characters long"
	msgLower   = "Password must contain at least one lowercase letter"
	msgUpper   = "Password must contain at least one uppercase letter"
	msgDigit   = "Password must contain at least one number"
	msgSpecial = "Password must contain at least one special character"
)

const minLength = 12

const specialSet = "!@#$%^&*()_+-=[]{};':\"\\|,.<>/?"

// Assessment is the result of evaluating a candidate password. Errors holds
// the failed rules' messages in fixed rule order.
type Assessment struct {
	Valid  bool     `json:"isValid"`
	Errors []string `json:"errors"`
}

// Evaluate scores a candidate password against the five policy rules:
// minimum length, lowercase, uppercase, digit, special character. It is a
// pure function and cheap enough to run on every keystroke.
func Evaluate(password string) Assessment {
	var errs []string

	if utf8.RuneCountInString(password) < minLength {
		errs = append(errs, msgLength)
	}

	hasLower := false
	hasUpper := false
	hasDigit := false
	// ASCII classes only, mirroring the checklist shown to users.
	for _, r := range password {
		switch {
		case r >= 'a' && r <= 'z':
			hasLower = true
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		case r >= '0' && r <= '9':
			hasDigit = true
		}
	}

	if !hasLower {
		errs = append(errs, msgLower)
	}
	if !hasUpper {
		errs = append(errs, msgUpper)
	}
	if !hasDigit {
		errs = append(errs, msgDigit)
	}
	if !strings.ContainsAny(password, specialSet) {
		errs = append(errs, msgSpecial)
	}

	return Assessment{
		Valid:  len(errs) == 0,
		Errors: errs,
	}
}
