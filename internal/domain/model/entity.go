// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"strings"
)

// Kind distinguishes the two entity collections.
type Kind string

const (
	KindPlayer Kind = "player"
	KindGame   Kind = "game"
)

// Kinds lists every entity kind in a stable order.
var Kinds = []Kind{KindPlayer, KindGame}

// ParseKind maps a user supplied string onto a Kind.
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case KindPlayer:
		return KindPlayer, nil
	case KindGame:
		return KindGame, nil
	default:
		return "", fmt.Errorf("unknown entity kind %q", s)
	}
}

func (k Kind) String() string { return string(k) }

// Entity is a named player or game. Entities are never removed; Active
// toggles between the two lifecycle states.
type Entity struct {
	ID     string    `json:"id"`
	Kind   Kind      `json:"-"`
	Name   string    `json:"name"`
	Active bool      `json:"active"`
	Info   *GameInfo `json:"info,omitempty"`
	// Aliases are other identifiers the ledger knows this entity by.
	Aliases []string `json:"aliases,omitempty"`
}

// Clone returns a copy that shares no memory with e.
func (e Entity) Clone() Entity {
	if e.Info != nil {
		info := *e.Info
		e.Info = &info
	}
	if e.Aliases != nil {
		e.Aliases = append([]string(nil), e.Aliases...)
	}
	return e
}

// Ref returns the ledger reference for the entity.
func (e Entity) Ref() Ref { return Ref{ID: e.ID, Name: e.Name} }

// State reports the lifecycle state as a word.
func (e Entity) State() string {
	if e.Active {
		return "active"
	}
	return "inactive"
}

// GameInfo is descriptive metadata attached to a game.
type GameInfo struct {
	Developer   string `json:"developer,omitempty"`
	Platform    string `json:"platform,omitempty"`
	ReleaseYear int    `json:"release_year,omitempty"`
}

// IsZero reports whether no field is set.
func (g GameInfo) IsZero() bool {
	return g.Developer == "" && g.Platform == "" && g.ReleaseYear == 0
}
