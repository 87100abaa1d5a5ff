// Package wizard implements the profile setup wizard and the question picker
// as pure transitions over session state. Nothing here talks to a store; the
// caller persists whatever the transitions produce.
package wizard

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/oggyb/matchbot/internal/db"
	svcErr "github.com/oggyb/matchbot/internal/errors"
)

const (
	MinAge       = 15
	MaxAge       = 100
	MaxInterests = 5
	MaxQuestions = 5
	PageSize     = 3
	MinNameLen   = 2
)

// ParseAge accepts an integer in [MinAge, MaxAge] and returns it normalized.
func ParseAge(text string) (string, error) {
	n, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil || n < MinAge || n > MaxAge {
		return "", svcErr.Validation(fmt.Sprintf("Please enter a valid age between %d and %d.", MinAge, MaxAge))
	}
	return strconv.Itoa(n), nil
}

// ParseGender lower-cases the input and strips everything but ASCII letters,
// so keyboard labels like "Male 👨" are accepted as typed text.
func ParseGender(text string) (string, error) {
	var b strings.Builder
	for _, r := range strings.ToLower(text) {
		if r >= 'a' && r <= 'z' {
			b.WriteRune(r)
		}
	}
	switch g := b.String(); g {
	case db.GenderMale, db.GenderFemale, db.GenderOther:
		return g, nil
	}
	return "", svcErr.Validation("Please select a gender using the buttons provided.")
}

// ParseName trims a display name and requires MinNameLen characters.
func ParseName(text string) (string, error) {
	name := strings.TrimSpace(text)
	if len([]rune(name)) < MinNameLen {
		return "", svcErr.Validation(fmt.Sprintf("Please enter a valid name (at least %d characters).", MinNameLen))
	}
	return name, nil
}

// AddInterests merges a comma separated batch into current.
//
// Behavior:
//   - entries are trimmed, empties dropped
//   - duplicates (case-insensitive) of current or earlier batch entries are ignored
//   - a batch that would push the list past MaxInterests is rejected whole,
//     current is returned unchanged
//
// It returns the merged list and the entries actually added.
func AddInterests(current []string, text string) ([]string, []string, error) {
	seen := make(map[string]struct{}, len(current))
	for _, in := range current {
		seen[strings.ToLower(in)] = struct{}{}
	}

	var added []string
	for _, part := range strings.Split(text, ",") {
		in := strings.TrimSpace(part)
		if in == "" {
			continue
		}
		key := strings.ToLower(in)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		added = append(added, in)
	}

	if len(added) == 0 {
		return current, nil, svcErr.Validation("Please enter new interests separated by commas.")
	}
	if len(current)+len(added) > MaxInterests {
		return current, nil, svcErr.Validation(fmt.Sprintf(
			"You can only have up to %d interests. Please remove some before adding more.", MaxInterests))
	}

	merged := make([]string, 0, len(current)+len(added))
	merged = append(merged, current...)
	merged = append(merged, added...)
	return merged, added, nil
}
