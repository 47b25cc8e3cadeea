// Package participant validates and de-duplicates meeting participant
// emails as they are entered.
package participant

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

var (
	// ErrInvalidEmail reports a token that does not look like an email
	// address.
	ErrInvalidEmail = errors.New("invalid email address")
	// ErrDuplicateEmail reports a token already present in the list.
	ErrDuplicateEmail = errors.New("duplicate email address")
)

// List accumulates validated participant emails. Insertion order and
// entered casing are preserved for display; uniqueness is enforced
// case-insensitively.
type List struct {
	validate *validator.Validate
	entries  []string
	seen     map[string]struct{}
}

// NewList constructs an empty participant list.
func NewList() *List {
	return &List{
		validate: validator.New(),
		seen:     make(map[string]struct{}),
	}
}

// AddToken trims and validates one candidate email. Empty input is ignored
// with no error. Malformed input returns ErrInvalidEmail and a duplicate
// returns ErrDuplicateEmail; in both cases the list is unchanged.
func (l *List) AddToken(raw string) error {
	token := strings.TrimSpace(raw)
	if token == "" {
		return nil
	}
	if err := l.checkShape(token); err != nil {
		return err
	}

	key := strings.ToLower(token)
	if _, ok := l.seen[key]; ok {
		return fmt.Errorf("participant %q: %w", token, ErrDuplicateEmail)
	}

	l.seen[key] = struct{}{}
	l.entries = append(l.entries, token)
	return nil
}

// TokenResult reports one token's outcome from a bulk entry.
type TokenResult struct {
	Token string
	Err   error
}

// AddText splits delimiter-separated input and funnels every candidate
// through AddToken, so flag values and interactive entry validate
// identically.
func (l *List) AddText(text string) []TokenResult {
	var results []TokenResult
	for _, token := range splitTokens(text) {
		results = append(results, TokenResult{Token: token, Err: l.AddToken(token)})
	}
	return results
}

// RemoveToken deletes a case-insensitive exact match if present. No-op
// otherwise.
func (l *List) RemoveToken(value string) {
	key := strings.ToLower(strings.TrimSpace(value))
	if key == "" {
		return
	}
	if _, ok := l.seen[key]; !ok {
		return
	}

	delete(l.seen, key)
	for i, entry := range l.entries {
		if strings.ToLower(entry) == key {
			l.entries = append(l.entries[:i], l.entries[i+1:]...)
			break
		}
	}
}

// Emails returns the validated addresses in insertion order with entered
// casing.
func (l *List) Emails() []string {
	return append([]string(nil), l.entries...)
}

// Len reports how many addresses the list holds.
func (l *List) Len() int {
	return len(l.entries)
}

// checkShape accepts local-part "@" domain "." tld. The validator library's
// email rule allows dotless domains, so the tld presence is checked
// explicitly.
func (l *List) checkShape(token string) error {
	if err := l.validate.Var(token, "email"); err != nil {
		return fmt.Errorf("participant %q: %w", token, ErrInvalidEmail)
	}

	at := strings.LastIndex(token, "@")
	domain := token[at+1:]
	dot := strings.LastIndex(domain, ".")
	if dot <= 0 || dot == len(domain)-1 {
		return fmt.Errorf("participant %q: %w", token, ErrInvalidEmail)
	}
	return nil
}

// splitTokens breaks entry text on the delimiter keys that commit a token:
// enter, comma, and space.
func splitTokens(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	})
}
