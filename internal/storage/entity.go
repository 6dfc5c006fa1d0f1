package storage

import (
	"cmp"
	"slices"
	"strings"
)

// Entry is a single phonebook record. The four fields together are its identity
type Entry struct {
	Surname   string `json:"surname" yaml:"surname"`
	Firstname string `json:"firstname" yaml:"firstname"`
	Number    string `json:"number" yaml:"number"`
	Address   string `json:"address" yaml:"address"`
}

// Compare orders entries by surname, then by the remaining fields so listings are stable
func Compare(a, b Entry) int {
	return cmp.Or(
		strings.Compare(a.Surname, b.Surname),
		strings.Compare(a.Firstname, b.Firstname),
		strings.Compare(a.Number, b.Number),
		strings.Compare(a.Address, b.Address),
	)
}

// Sort orders entries in place byte-wise by surname
func Sort(entries []Entry) {
	slices.SortFunc(entries, Compare)
}

// Fold lowers ASCII letters only, the same way SQLite's built-in lower() does.
// Every backend uses it so search behaves identically regardless of driver
func Fold(s string) string {
	return strings.Map(func(r rune) rune {
		if 'A' <= r && r <= 'Z' {
			return r + ('a' - 'A')
		}
		return r
	}, s)
}

// MatchSurname reports whether fragment occurs anywhere in the entry surname, ignoring ASCII case
func (e Entry) MatchSurname(fragment string) bool {
	return strings.Contains(Fold(e.Surname), Fold(fragment))
}
