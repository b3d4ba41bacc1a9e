package auth

import (
	"fmt"
	"strings"
	"unicode"
)

// MaxPasswordBytes is the longest password bcrypt can hash
const MaxPasswordBytes = 72

// PasswordStrength is the coarse score returned by the policy
type PasswordStrength string

const (
	PasswordWeak   PasswordStrength = "weak"
	PasswordMedium PasswordStrength = "medium"
	PasswordStrong PasswordStrength = "strong"
)

// PasswordPolicy describes what a new password must satisfy. MaxBytes is
// capped at MaxPasswordBytes.
type PasswordPolicy struct {
	MinLength       int
	MaxBytes        int
	MinClasses      int
	MaxRepeated     int
	MinSequenceRun  int
	CommonPasswords []string
}

// DefaultPasswordPolicy requires 8 characters from at least three of the
// four character classes.
func DefaultPasswordPolicy() PasswordPolicy {
	return PasswordPolicy{
		MinLength:      8,
		MaxBytes:       MaxPasswordBytes,
		MinClasses:     3,
		MaxRepeated:    2,
		MinSequenceRun: 4,
		CommonPasswords: []string{
			"password", "passw0rd", "p@ssword", "p@ssw0rd", "123456", "12345678",
			"123456789", "qwerty", "qwerty123", "letmein", "welcome", "admin",
			"iloveyou", "monkey", "dragon", "football", "baseball", "abc123",
			"111111", "sunshine", "princess", "trustno1", "changeme",
		},
	}
}

// PasswordCheck is the outcome of evaluating a password
type PasswordCheck struct {
	Violations []string
	Strength   PasswordStrength
}

// OK reports whether no rule was violated
func (c PasswordCheck) OK() bool {
	return len(c.Violations) == 0
}

// Err returns a PASSWORD_POLICY_VIOLATION error or nil
func (c PasswordCheck) Err() error {
	if c.OK() {
		return nil
	}
	return NewPasswordPolicyError(c.Violations)
}

// Check evaluates password. email, when given, must not appear in it.
func (p PasswordPolicy) Check(password, email string) PasswordCheck {
	var violations []string

	if len([]rune(password)) < p.MinLength {
		violations = append(violations, "password is too short")
	}

	maxBytes := p.MaxBytes
	if maxBytes <= 0 || maxBytes > MaxPasswordBytes {
		maxBytes = MaxPasswordBytes
	}
	if len(password) > maxBytes {
		violations = append(violations, fmt.Sprintf("password must not be longer than %d bytes", maxBytes))
	}

	classes := countClasses(password)
	if classes < p.MinClasses {
		violations = append(violations, "password must mix lower case, upper case, digits and symbols")
	}

	lower := strings.ToLower(password)
	for _, common := range p.CommonPasswords {
		if lower == common {
			violations = append(violations, "password is too common")
			break
		}
	}

	if p.MaxRepeated > 0 && hasRepeatedRun(lower, p.MaxRepeated+1) {
		violations = append(violations, "password repeats the same character")
	}

	if p.MinSequenceRun > 0 && hasSequence(lower, p.MinSequenceRun) {
		violations = append(violations, "password contains a sequence such as 1234 or abcd")
	}

	if local := emailLocalPart(email); len(local) >= 3 && strings.Contains(lower, local) {
		violations = append(violations, "password must not contain the email address")
	}

	return PasswordCheck{
		Violations: violations,
		Strength:   scorePassword(password, classes, len(violations)),
	}
}

func countClasses(password string) int {
	var lower, upper, digit, symbol bool
	for _, r := range password {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		default:
			symbol = true
		}
	}

	n := 0
	for _, ok := range []bool{lower, upper, digit, symbol} {
		if ok {
			n++
		}
	}
	return n
}

func hasRepeatedRun(s string, run int) bool {
	rs := []rune(s)
	count := 1
	for i := 1; i < len(rs); i++ {
		if rs[i] == rs[i-1] {
			count++
			if count >= run {
				return true
			}
			continue
		}
		count = 1
	}
	return false
}

func hasSequence(s string, run int) bool {
	rs := []rune(s)
	up, down := 1, 1
	for i := 1; i < len(rs); i++ {
		if !isSequenceRune(rs[i]) || !isSequenceRune(rs[i-1]) {
			up, down = 1, 1
			continue
		}
		switch rs[i] - rs[i-1] {
		case 1:
			up++
			down = 1
		case -1:
			down++
			up = 1
		default:
			up, down = 1, 1
		}
		if up >= run || down >= run {
			return true
		}
	}
	return false
}

func isSequenceRune(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
}

func emailLocalPart(email string) string {
	email = NormalizeEmail(email)
	if i := strings.IndexByte(email, '@'); i >= 0 {
		return email[:i]
	}
	return email
}

func scorePassword(password string, classes, violations int) PasswordStrength {
	if violations > 0 {
		return PasswordWeak
	}
	length := len([]rune(password))
	switch {
	case length >= 12 && classes >= 4:
		return PasswordStrong
	case length >= 16 && classes >= 3:
		return PasswordStrong
	default:
		return PasswordMedium
	}
}
