package importer

import (
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Member is a roster entry: the chat names that identify a club member and
// how to find their account.
type Member struct {
	Key         string
	Prefixes    []string // matched against the normalized sender
	DisplayName string   // used when a profile has to be created
	Email       string
}

// DefaultRoster returns the club's members without emails.
func DefaultRoster() []Member {
	return []Member{
		{Key: "neil", Prefixes: []string{"neil"}, DisplayName: "Neil Tilston"},
		{Key: "dave", Prefixes: []string{"dave", "david"}, DisplayName: "David Thomas"},
		{Key: "rory", Prefixes: []string{"rory"}, DisplayName: "Rory Edwards"},
		{Key: "ferg", Prefixes: []string{"ferg", "fergus"}, DisplayName: "Fergus Neville"},
	}
}

// RosterWithEmails returns a copy of roster with emails filled in from
// emails, keyed by member key (case-insensitive). Keys not on the roster are
// added as members matched by their own name.
func RosterWithEmails(roster []Member, emails map[string]string) []Member {
	out := make([]Member, len(roster))
	copy(out, roster)

	index := make(map[string]int, len(out))
	for i, m := range out {
		index[m.Key] = i
	}
	keys := make([]string, 0, len(emails))
	for k := range emails {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, raw := range keys {
		email := emails[raw]
		key := strings.ToLower(strings.TrimSpace(raw))
		if key == "" {
			continue
		}
		if i, ok := index[key]; ok {
			out[i].Email = email
			continue
		}
		index[key] = len(out)
		out = append(out, Member{Key: key, Prefixes: []string{key}, Email: email})
	}
	return out
}

var lower = cases.Lower(language.Und)

// NormalizeSender lowercases name, drops everything that is not a letter,
// digit or space, and trims.
func NormalizeSender(name string) string {
	s := lower.String(name)
	s = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsNumber(r) || unicode.IsSpace(r) {
			return r
		}
		return -1
	}, s)
	return strings.TrimSpace(s)
}

// matchMember returns the first member with a prefix of the normalized
// sender, or nil.
func matchMember(roster []Member, sender string) *Member {
	norm := NormalizeSender(sender)
	if norm == "" {
		return nil
	}
	for i := range roster {
		for _, p := range roster[i].Prefixes {
			if p != "" && strings.HasPrefix(norm, p) {
				return &roster[i]
			}
		}
	}
	return nil
}
