// Package geo maps geographic levels to broadcast rooms and feed filters.
package geo

import (
	"fmt"
	"strings"

	"gorm.io/gorm"
)

type LevelType string

const (
	Home         LevelType = "home"
	County       LevelType = "county"
	Constituency LevelType = "constituency"
	Ward         LevelType = "ward"
)

// Levels lists the supported level types, widest first.
var Levels = []LevelType{Home, County, Constituency, Ward}

// Valid reports whether t is one of the known level types.
func (t LevelType) Valid() bool {
	for _, l := range Levels {
		if t == l {
			return true
		}
	}
	return false
}

// Scope is a (levelType, levelValue) pair. For Home the value is ignored.
type Scope struct {
	LevelType  LevelType `json:"levelType"`
	LevelValue string    `json:"levelValue"`
}

// NewScope builds a scope. An empty level type means Home, and Home
// always carries an empty value.
func NewScope(levelType, levelValue string) Scope {
	t := LevelType(strings.TrimSpace(levelType))
	if t == "" || t == Home {
		return Scope{LevelType: Home}
	}
	return Scope{LevelType: t, LevelValue: strings.TrimSpace(levelValue)}
}

// ParseScope parses "home" or "type:value", e.g. "ward:Westlands".
func ParseScope(s string) (Scope, error) {
	levelType, levelValue, _ := strings.Cut(s, ":")
	scope := NewScope(levelType, levelValue)
	if err := scope.Validate(); err != nil {
		return Scope{}, err
	}
	return scope, nil
}

// Validate rejects unknown level types and non-home scopes without a value.
func (s Scope) Validate() error {
	if !s.LevelType.Valid() {
		return fmt.Errorf("unknown levelType %q", s.LevelType)
	}
	if s.LevelType != Home && s.LevelValue == "" {
		return fmt.Errorf("levelValue is required for levelType %s", s.LevelType)
	}
	return nil
}

// IsHome reports whether the scope spans every post.
func (s Scope) IsHome() bool {
	return s.LevelType == Home || s.LevelType == ""
}

// Room returns the broadcast room id of the scope.
func (s Scope) Room() string {
	return Room(string(s.LevelType), s.LevelValue)
}

func (s Scope) String() string {
	if s.IsHome() {
		return string(Home)
	}
	return string(s.LevelType) + ":" + s.LevelValue
}

// Room is "level-{levelType}-{levelValue or 'all'}". Home never carries a
// value, so every home pair maps to level-home-all.
func Room(levelType, levelValue string) string {
	if levelType == "" {
		levelType = string(Home)
	}
	if levelType == string(Home) || levelValue == "" {
		return "level-" + levelType + "-all"
	}
	return "level-" + levelType + "-" + levelValue
}

// ParseRoom is the inverse of Room.
func ParseRoom(room string) (Scope, bool) {
	rest, ok := strings.CutPrefix(room, "level-")
	if !ok {
		return Scope{}, false
	}
	levelType, levelValue, ok := strings.Cut(rest, "-")
	if !ok || !LevelType(levelType).Valid() {
		return Scope{}, false
	}
	if LevelType(levelType) == Home {
		return Scope{LevelType: Home}, levelValue == "all"
	}
	return Scope{LevelType: LevelType(levelType), LevelValue: levelValue}, levelValue != ""
}

// Filter returns the query predicate of the scope as a gorm scope. Home
// leaves the query untouched.
func (s Scope) Filter() func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if s.IsHome() {
			return db
		}
		return db.Where("level_type = ? AND level_value = ?", string(s.LevelType), s.LevelValue)
	}
}
