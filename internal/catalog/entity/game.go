package entity

import (
	"strings"
	"time"
)

// Platform names used across sources.
const (
	PlatformPS5  = "PS5"
	PlatformPS4  = "PS4"
	PlatformPS3  = "PS3"
	PlatformVita = "PSVITA"
	PlatformXbox = "XBOX"
)

// TagShovelware marks low-effort catalog entries hidden by default.
const TagShovelware = "shovelware"

// LinkedVersion is one platform/region release of a canonical game.
// PlayStation releases carry NpCommunicationID, Xbox releases TitleID.
type LinkedVersion struct {
	Platform          string `json:"platform"`
	NpCommunicationID string `json:"npCommunicationId,omitempty"`
	TitleID           string `json:"titleId,omitempty"`
	Region            string `json:"region,omitempty"`
}

// NativeID is the platform identifier of the release.
func (l LinkedVersion) NativeID() string {
	if l.NpCommunicationID != "" {
		return l.NpCommunicationID
	}
	return l.TitleID
}

// MasterGameEntry is a canonical game from the static master catalog.
type MasterGameEntry struct {
	CanonicalID    string            `json:"canonicalId"`
	DisplayName    string            `json:"displayName"`
	Tags           []string          `json:"tags,omitempty"`
	Art            map[string]string `json:"art,omitempty"`
	LinkedVersions []LinkedVersion   `json:"linkedVersions"`
}

// Counts is the per-version tally. PlayStation versions fill the per-grade
// fields; Xbox versions leave them zero and put gamerscore in Earned/Total.
type Counts struct {
	Total          int `json:"total"`
	Earned         int `json:"earned"`
	Bronze         int `json:"bronze"`
	Silver         int `json:"silver"`
	Gold           int `json:"gold"`
	Platinum       int `json:"platinum"`
	EarnedBronze   int `json:"earnedBronze"`
	EarnedSilver   int `json:"earnedSilver"`
	EarnedGold     int `json:"earnedGold"`
	EarnedPlatinum int `json:"earnedPlatinum"`
}

// GameVersion is one platform/region variant of a UnifiedGame.
// IsOwned is false for ghost versions synthesized from the catalog.
type GameVersion struct {
	ID         string     `json:"id"`
	Platform   string     `json:"platform"`
	Region     string     `json:"region,omitempty"`
	Progress   int        `json:"progress"`
	LastPlayed *time.Time `json:"lastPlayed,omitempty"`
	Counts     Counts     `json:"counts"`
	IsOwned    bool       `json:"isOwned"`
}

// UnifiedGame is one logical game with every known version of it.
type UnifiedGame struct {
	ID       string            `json:"id"`
	Title    string            `json:"title"`
	Icon     string            `json:"icon,omitempty"`
	Art      map[string]string `json:"art,omitempty"`
	Tags     []string          `json:"tags,omitempty"`
	Versions []GameVersion     `json:"versions"`
}

// HasTag matches case-insensitively.
func (g UnifiedGame) HasTag(tag string) bool {
	for _, t := range g.Tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

// HasVersion reports whether a version with the native id is present.
func (g UnifiedGame) HasVersion(id string) bool {
	for _, v := range g.Versions {
		if v.ID == id {
			return true
		}
	}
	return false
}

// MaxProgress is the best progress over all versions.
func (g UnifiedGame) MaxProgress() int {
	best := 0
	for _, v := range g.Versions {
		if v.Progress > best {
			best = v.Progress
		}
	}
	return best
}

// LastPlayed is the most recent play time over all versions; zero if none.
func (g UnifiedGame) LastPlayed() time.Time {
	var last time.Time
	for _, v := range g.Versions {
		if v.LastPlayed != nil && v.LastPlayed.After(last) {
			last = *v.LastPlayed
		}
	}
	return last
}
