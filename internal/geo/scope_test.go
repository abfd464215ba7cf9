package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoom(t *testing.T) {
	tests := []struct {
		levelType, levelValue string
		want                  string
	}{
		{"home", "", "level-home-all"},
		{"home", "Nairobi", "level-home-all"},
		{"", "", "level-home-all"},
		{"county", "Nairobi", "level-county-Nairobi"},
		{"constituency", "Langata", "level-constituency-Langata"},
		{"ward", "Westlands", "level-ward-Westlands"},
		{"ward", "South-B", "level-ward-South-B"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, NewScope(tt.levelType, tt.levelValue).Room())
		})
	}
}

func TestRoomDistinctScopes(t *testing.T) {
	scopes := []Scope{
		NewScope("home", ""),
		NewScope("county", "Nairobi"),
		NewScope("constituency", "Nairobi"),
		NewScope("ward", "Nairobi"),
		NewScope("ward", "Westlands"),
		NewScope("ward", "Karen"),
	}
	seen := map[string]Scope{}
	for _, s := range scopes {
		room := s.Room()
		if prev, ok := seen[room]; ok {
			t.Fatalf("%v and %v share room %s", prev, s, room)
		}
		seen[room] = s
	}
}

func TestParseRoomRoundTrip(t *testing.T) {
	for _, s := range []Scope{NewScope("home", ""), NewScope("ward", "South-B"), NewScope("county", "Mombasa")} {
		got, ok := ParseRoom(s.Room())
		require.True(t, ok, s.Room())
		assert.Equal(t, s, got)
	}

	for _, bad := range []string{"", "lobby", "level-", "level-planet-Mars", "level-ward-"} {
		_, ok := ParseRoom(bad)
		assert.False(t, ok, bad)
	}
}

func TestValidate(t *testing.T) {
	assert.NoError(t, NewScope("", "").Validate())
	assert.NoError(t, NewScope("ward", "Westlands").Validate())
	assert.Error(t, NewScope("ward", "").Validate())
	assert.Error(t, NewScope("village", "x").Validate())
}

func TestParseScope(t *testing.T) {
	s, err := ParseScope("ward:Westlands")
	require.NoError(t, err)
	assert.Equal(t, Scope{LevelType: Ward, LevelValue: "Westlands"}, s)

	s, err = ParseScope("home")
	require.NoError(t, err)
	assert.True(t, s.IsHome())

	_, err = ParseScope("ward")
	assert.Error(t, err)
}
