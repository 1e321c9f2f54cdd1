// Package naming implements the display-name rules shared by players and games.
package naming

import (
	"strings"
	"unicode/utf8"

	"github.com/okian/grudgematch/internal/domain/model"
)

// Code is the outcome of validating a candidate name.
type Code int

const (
	Valid Code = iota
	NameInUseActive
	NameInUseInactive
	NameReserved
	NameTooLong
	IllegalCharacter
)

var codeNames = [...]string{
	Valid:             "valid",
	NameInUseActive:   "name_in_use_active",
	NameInUseInactive: "name_in_use_inactive",
	NameReserved:      "name_reserved",
	NameTooLong:       "name_too_long",
	IllegalCharacter:  "illegal_character",
}

func (c Code) String() string {
	if c < 0 || int(c) >= len(codeNames) {
		return "unknown"
	}
	return codeNames[c]
}

// Maximum name lengths, counted in characters.
const (
	MaxPlayerNameLength = 10
	MaxGameNameLength   = 30
)

// IllegalCharacters are rejected anywhere in a name.
const IllegalCharacters = ",\\./`~"

var commonReserved = []string{
	"", "0", "1", "2", "3", "4", "5", "6", "7", "8", "9",
	"default", "player", "name", "game",
}

var reserved = map[model.Kind]map[string]struct{}{
	model.KindPlayer: reservedSet("data"),
	model.KindGame:   reservedSet("date"),
}

func reservedSet(extra ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(commonReserved)+len(extra))
	for _, w := range append(append([]string(nil), commonReserved...), extra...) {
		set[w] = struct{}{}
	}
	return set
}

// MaxLength returns the longest permitted name for kind.
func MaxLength(kind model.Kind) int {
	if kind == model.KindGame {
		return MaxGameNameLength
	}
	return MaxPlayerNameLength
}

// IsReserved reports whether name, compared case-insensitively, is reserved
// for kind.
func IsReserved(kind model.Kind, name string) bool {
	_, ok := reserved[kind][strings.ToLower(name)]
	return ok
}

// ReservedWords lists the reserved words of kind, sorted as declared.
func ReservedWords(kind model.Kind) []string {
	out := append([]string(nil), commonReserved...)
	if kind == model.KindGame {
		return append(out, "date")
	}
	return append(out, "data")
}

// Lookup reports whether an entity of the kind under validation already
// holds name, and if so whether it is active.
type Lookup func(name string) (found, active bool)

// Validate applies the full precedence: active in use, inactive in use,
// reserved, too long, illegal character. A nil lookup skips the in-use
// checks.
func Validate(kind model.Kind, name string, lookup Lookup) Code {
	if lookup != nil {
		if found, active := lookup(name); found {
			if active {
				return NameInUseActive
			}
			return NameInUseInactive
		}
	}
	return Check(kind, name)
}

// Check applies the rules that depend on the name alone.
func Check(kind model.Kind, name string) Code {
	switch {
	case IsReserved(kind, name):
		return NameReserved
	case utf8.RuneCountInString(name) > MaxLength(kind):
		return NameTooLong
	case strings.ContainsAny(name, IllegalCharacters):
		return IllegalCharacter
	default:
		return Valid
	}
}
