package catalog

import (
	"strings"
	"unicode"

	"github.com/ovaphlow/pitchfork/service-trophy-proxy/internal/catalog/entity"
)

// Index resolves any canonical or platform-native id to its master entry.
// Display names are indexed too, for sources whose ids the catalog does not carry.
type Index struct {
	byID   map[string]*entity.MasterGameEntry
	byName map[string]*entity.MasterGameEntry
}

func NewIndex(master []entity.MasterGameEntry) *Index {
	idx := &Index{
		byID:   make(map[string]*entity.MasterGameEntry, len(master)*3),
		byName: make(map[string]*entity.MasterGameEntry, len(master)),
	}
	for i := range master {
		m := &master[i]
		idx.addID(m.CanonicalID, m)
		for _, lv := range m.LinkedVersions {
			idx.addID(lv.NpCommunicationID, m)
			idx.addID(lv.TitleID, m)
		}
		// first entry wins on a name clash
		if key := normalizeName(m.DisplayName); key != "" {
			if _, taken := idx.byName[key]; !taken {
				idx.byName[key] = m
			}
		}
	}
	return idx
}

// addID keeps the first entry that claims id, like the name index.
func (idx *Index) addID(id string, m *entity.MasterGameEntry) {
	if id == "" {
		return
	}
	if _, taken := idx.byID[id]; !taken {
		idx.byID[id] = m
	}
}

// Lookup matches by exact id only.
func (idx *Index) Lookup(id string) (*entity.MasterGameEntry, bool) {
	m, ok := idx.byID[id]
	return m, ok
}

// Resolve matches by id, then falls back to name equality.
func (idx *Index) Resolve(id, name string) (*entity.MasterGameEntry, bool) {
	if id != "" {
		if m, ok := idx.byID[id]; ok {
			return m, true
		}
	}
	if key := normalizeName(name); key != "" {
		if m, ok := idx.byName[key]; ok {
			return m, true
		}
	}
	return nil, false
}

// normalizeName lower-cases and keeps only letters and digits, single-spaced,
// so "DOOM® Eternal" and "Doom Eternal" compare equal.
func normalizeName(s string) string {
	var b strings.Builder
	space := false
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(r)
			continue
		}
		if unicode.IsSpace(r) || r == ':' || r == '-' || r == '_' {
			space = true
		}
	}
	return b.String()
}
