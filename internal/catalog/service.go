package catalog

import (
	"sort"
	"strings"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/ovaphlow/pitchfork/service-trophy-proxy/internal/catalog/entity"
	trophyentity "github.com/ovaphlow/pitchfork/service-trophy-proxy/internal/trophy/entity"
)

// Unifier merges per-platform owned games with the master catalog into one
// display list. Unify keeps no state between calls.
type Unifier struct {
	master []entity.MasterGameEntry
	index  *Index
}

func NewUnifier(master []entity.MasterGameEntry) *Unifier {
	return &Unifier{master: master, index: NewIndex(master)}
}

// Lookup resolves a canonical or native id to its master entry.
func (u *Unifier) Lookup(id string) (*entity.MasterGameEntry, bool) {
	return u.index.Lookup(id)
}

// Size is the number of master entries.
func (u *Unifier) Size() int { return len(u.master) }

// Unify groups owned games by canonical identity, adds ghost versions when
// asked, then filters and sorts.
func (u *Unifier) Unify(psnGames []trophyentity.TrophyTitle, xboxGames []trophyentity.XboxTitle, opts entity.Options) []entity.UnifiedGame {
	g := newGrouper()

	for _, t := range psnGames {
		m, _ := u.index.Resolve(t.NpCommunicationID, t.TrophyTitleName)
		game := g.upsert(m, t.NpCommunicationID, t.TrophyTitleName, t.TrophyTitleIconURL)
		g.addVersion(game, psnVersion(t, m))
	}
	for _, t := range xboxGames {
		m, _ := u.index.Resolve(t.TitleID, t.Name)
		game := g.upsert(m, t.TitleID, t.Name, t.DisplayImage)
		g.addVersion(game, xboxVersion(t, m))
	}

	if opts.ShowUnowned {
		for i := range u.master {
			m := &u.master[i]
			for _, lv := range m.LinkedVersions {
				id := lv.NativeID()
				if id == "" || !platformEnabled(opts.Platforms, lv.Platform) {
					continue
				}
				if g.seen[id] {
					continue
				}
				game := g.upsert(m, id, m.DisplayName, "")
				g.addVersion(game, entity.GameVersion{ID: id, Platform: lv.Platform, Region: lv.Region})
			}
		}
	}

	out := make([]entity.UnifiedGame, 0, len(g.order))
	for _, key := range g.order {
		game := *g.games[key]
		game.Versions = keepPlatforms(game.Versions, opts.Platforms)
		if len(game.Versions) == 0 {
			continue
		}
		if !matches(game, opts) {
			continue
		}
		out = append(out, game)
	}
	sortGames(out, opts)
	return out
}

// grouper builds the unified list. seen holds every native id already placed
// in some game, so a release linked from two master entries appears once.
type grouper struct {
	games map[string]*entity.UnifiedGame
	order []string
	seen  map[string]bool
}

func newGrouper() *grouper {
	return &grouper{games: map[string]*entity.UnifiedGame{}, seen: map[string]bool{}}
}

// upsert returns the game under the master's canonical id, or under nativeID
// when the record has no master entry.
func (g *grouper) upsert(m *entity.MasterGameEntry, nativeID, title, icon string) *entity.UnifiedGame {
	key := nativeID
	if m != nil {
		key = m.CanonicalID
	}
	if game, ok := g.games[key]; ok {
		return game
	}
	game := &entity.UnifiedGame{ID: key, Title: title, Icon: icon}
	if m != nil {
		game.Title = m.DisplayName
		game.Art = m.Art
		game.Tags = m.Tags
		if sq := m.Art["square"]; sq != "" {
			game.Icon = sq
		}
	}
	g.games[key] = game
	g.order = append(g.order, key)
	return game
}

func (g *grouper) addVersion(game *entity.UnifiedGame, v entity.GameVersion) {
	if game.HasVersion(v.ID) {
		return
	}
	g.seen[v.ID] = true
	game.Versions = append(game.Versions, v)
}

func psnVersion(t trophyentity.TrophyTitle, m *entity.MasterGameEntry) entity.GameVersion {
	defined, earned := t.DefinedTrophies, t.EarnedTrophies
	progress := percent(earned.Total(), defined.Total())
	if t.Progress != nil {
		progress = clampProgress(*t.Progress)
	}
	return entity.GameVersion{
		ID:         t.NpCommunicationID,
		Platform:   t.TrophyTitlePlatform,
		Region:     regionOf(m, t.NpCommunicationID),
		Progress:   progress,
		LastPlayed: parseTime(t.LastUpdatedDateTime),
		Counts: entity.Counts{
			Total:          defined.Total(),
			Earned:         earned.Total(),
			Bronze:         defined.Bronze,
			Silver:         defined.Silver,
			Gold:           defined.Gold,
			Platinum:       defined.Platinum,
			EarnedBronze:   earned.Bronze,
			EarnedSilver:   earned.Silver,
			EarnedGold:     earned.Gold,
			EarnedPlatinum: earned.Platinum,
		},
		IsOwned: true,
	}
}

func xboxVersion(t trophyentity.XboxTitle, m *entity.MasterGameEntry) entity.GameVersion {
	a := t.Achievement
	progress := percent(a.CurrentGamerscore, a.TotalGamerscore)
	if a.ProgressPercentage > 0 {
		progress = clampProgress(a.ProgressPercentage)
	}
	return entity.GameVersion{
		ID:         t.TitleID,
		Platform:   entity.PlatformXbox,
		Region:     regionOf(m, t.TitleID),
		Progress:   progress,
		LastPlayed: parseTime(t.TitleHistory.LastTimePlayed),
		Counts:     entity.Counts{Total: a.TotalGamerscore, Earned: a.CurrentGamerscore},
		IsOwned:    true,
	}
}

func regionOf(m *entity.MasterGameEntry, nativeID string) string {
	if m == nil {
		return ""
	}
	for _, lv := range m.LinkedVersions {
		if lv.NativeID() == nativeID {
			return lv.Region
		}
	}
	return ""
}

// percent is an integer 0..100; a zero total yields 0.
func percent(earned, total int) int {
	if total <= 0 {
		return 0
	}
	return clampProgress(earned * 100 / total)
}

func clampProgress(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

func parseTime(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil
	}
	return &t
}

// platformEnabled treats a nil set as all enabled. Multi-platform strings
// such as "PS4,PSVITA" pass when any part is enabled.
func platformEnabled(enabled map[string]bool, platform string) bool {
	if enabled == nil {
		return true
	}
	for _, p := range strings.Split(platform, ",") {
		if enabled[strings.ToUpper(strings.TrimSpace(p))] {
			return true
		}
	}
	return false
}

func keepPlatforms(versions []entity.GameVersion, enabled map[string]bool) []entity.GameVersion {
	out := make([]entity.GameVersion, 0, len(versions))
	for _, v := range versions {
		if platformEnabled(enabled, v.Platform) {
			out = append(out, v)
		}
	}
	return out
}

func matches(g entity.UnifiedGame, opts entity.Options) bool {
	if !opts.ShowShovelware && g.HasTag(entity.TagShovelware) {
		return false
	}
	if opts.Search != "" && !strings.Contains(strings.ToLower(g.Title), strings.ToLower(strings.TrimSpace(opts.Search))) {
		return false
	}
	switch opts.Status {
	case entity.StatusInProgress:
		return anyVersion(g, func(p int) bool { return p > 0 && p < 100 })
	case entity.StatusCompleted:
		return anyVersion(g, func(p int) bool { return p == 100 })
	case entity.StatusNotStarted:
		return anyVersion(g, func(p int) bool { return p == 0 })
	}
	return true
}

func anyVersion(g entity.UnifiedGame, pred func(progress int) bool) bool {
	for _, v := range g.Versions {
		if pred(v.Progress) {
			return true
		}
	}
	return false
}

func isPinned(g entity.UnifiedGame, pinned map[string]bool) bool {
	for _, v := range g.Versions {
		if pinned[v.ID] {
			return true
		}
	}
	return false
}

// sortGames puts pinned games first whatever the mode, then orders each
// partition by the requested key. Ties fall back to title.
func sortGames(games []entity.UnifiedGame, opts entity.Options) {
	col := collate.New(language.English, collate.IgnoreCase)
	mode := opts.Sort
	if mode == "" {
		mode = entity.SortTitle
	}
	dir := opts.Direction
	if dir == "" {
		dir = entity.Desc
		if mode == entity.SortTitle {
			dir = entity.Asc
		}
	}

	pinned := make([]bool, len(games))
	for i := range games {
		pinned[i] = isPinned(games[i], opts.Pinned)
	}
	idx := make([]int, len(games))
	for i := range idx {
		idx[i] = i
	}

	sort.SliceStable(idx, func(a, b int) bool {
		ga, gb := games[idx[a]], games[idx[b]]
		pa, pb := pinned[idx[a]], pinned[idx[b]]
		if pa != pb {
			return pa
		}
		var c int
		switch mode {
		case entity.SortProgress:
			c = cmpInt(ga.MaxProgress(), gb.MaxProgress())
		case entity.SortLastPlayed:
			c = ga.LastPlayed().Compare(gb.LastPlayed())
		}
		if c == 0 {
			c = col.CompareString(ga.Title, gb.Title)
			if mode != entity.SortTitle {
				return c < 0
			}
		}
		if dir == entity.Desc {
			return c > 0
		}
		return c < 0
	})

	sorted := make([]entity.UnifiedGame, len(games))
	for i, j := range idx {
		sorted[i] = games[j]
	}
	copy(games, sorted)
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
