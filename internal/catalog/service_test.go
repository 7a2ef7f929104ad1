package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovaphlow/pitchfork/service-trophy-proxy/internal/catalog/entity"
	trophyentity "github.com/ovaphlow/pitchfork/service-trophy-proxy/internal/trophy/entity"
)

func master() []entity.MasterGameEntry {
	return []entity.MasterGameEntry{
		{
			CanonicalID: "game_x",
			DisplayName: "Game X",
			Art:         map[string]string{"square": "https://img/x.png"},
			LinkedVersions: []entity.LinkedVersion{
				{Platform: "PS5", NpCommunicationID: "NPWR1"},
				{Platform: "PS4", NpCommunicationID: "NPWR2", Region: "EU"},
			},
		},
		{
			CanonicalID: "game_y",
			DisplayName: "Game Y",
			LinkedVersions: []entity.LinkedVersion{
				{Platform: "PS4", NpCommunicationID: "NPWR3"},
				{Platform: "XBOX", TitleID: "1234"},
			},
		},
		{
			CanonicalID: "doom_eternal",
			DisplayName: "DOOM® Eternal",
			LinkedVersions: []entity.LinkedVersion{
				{Platform: "PS4", NpCommunicationID: "NPWR50"},
			},
		},
		{
			CanonicalID: "cheap_game",
			DisplayName: "Cheap Game",
			Tags:        []string{"Shovelware"},
			LinkedVersions: []entity.LinkedVersion{
				{Platform: "PS4", NpCommunicationID: "NPWR60"},
			},
		},
	}
}

func psnTitle(id, name, platform string, progress int) trophyentity.TrophyTitle {
	p := progress
	return trophyentity.TrophyTitle{
		NpCommunicationID:   id,
		TrophyTitleName:     name,
		TrophyTitlePlatform: platform,
		TrophyTitleIconURL:  "https://icon/" + id,
		Progress:            &p,
	}
}

func ids(games []entity.UnifiedGame) []string {
	out := make([]string, 0, len(games))
	for _, g := range games {
		out = append(out, g.ID)
	}
	return out
}

func find(t *testing.T, games []entity.UnifiedGame, id string) entity.UnifiedGame {
	t.Helper()
	for _, g := range games {
		if g.ID == id {
			return g
		}
	}
	require.Failf(t, "game not found", "id %s in %v", id, ids(games))
	return entity.UnifiedGame{}
}

func TestUnify_GhostVersionForUnownedRelease(t *testing.T) {
	u := NewUnifier(master())
	games := u.Unify(
		[]trophyentity.TrophyTitle{psnTitle("NPWR1", "Game X", "PS5", 40)},
		nil,
		entity.Options{ShowUnowned: true, Platforms: map[string]bool{"PS5": true, "PS4": true}},
	)

	g := find(t, games, "game_x")
	assert.Equal(t, "Game X", g.Title)
	assert.Equal(t, "https://img/x.png", g.Icon)
	require.Len(t, g.Versions, 2)
	assert.Equal(t, "NPWR1", g.Versions[0].ID)
	assert.True(t, g.Versions[0].IsOwned)
	assert.Equal(t, 40, g.Versions[0].Progress)
	assert.Equal(t, "NPWR2", g.Versions[1].ID)
	assert.False(t, g.Versions[1].IsOwned)
	assert.Equal(t, 0, g.Versions[1].Progress)
	assert.Equal(t, "EU", g.Versions[1].Region)
	assert.Equal(t, entity.Counts{}, g.Versions[1].Counts)
}

func TestUnify_GhostsRespectPlatformFilter(t *testing.T) {
	u := NewUnifier(master())
	games := u.Unify(
		[]trophyentity.TrophyTitle{psnTitle("NPWR1", "Game X", "PS5", 40)},
		nil,
		entity.Options{ShowUnowned: true, Platforms: map[string]bool{"PS5": true}},
	)
	assert.Equal(t, []string{"game_x"}, ids(games))
	assert.Len(t, games[0].Versions, 1)
}

func countVersion(games []entity.UnifiedGame, id string) int {
	n := 0
	for _, g := range games {
		for _, v := range g.Versions {
			if v.ID == id {
				n++
			}
		}
	}
	return n
}

func TestUnify_ReleaseLinkedTwiceAppearsOnce(t *testing.T) {
	dup := append(master(), entity.MasterGameEntry{
		CanonicalID: "game_x_remaster",
		DisplayName: "Game X Remaster",
		LinkedVersions: []entity.LinkedVersion{
			{Platform: "PS5", NpCommunicationID: "NPWR1"},
			{Platform: "PS5", NpCommunicationID: "NPWR9"},
		},
	})
	u := NewUnifier(dup)
	opts := entity.Options{ShowUnowned: true}

	owned := u.Unify([]trophyentity.TrophyTitle{psnTitle("NPWR1", "Game X", "PS5", 40)}, nil, opts)
	assert.Equal(t, 1, countVersion(owned, "NPWR1"))
	x := find(t, owned, "game_x")
	assert.True(t, x.Versions[0].IsOwned)
	remaster := find(t, owned, "game_x_remaster")
	require.Len(t, remaster.Versions, 1)
	assert.Equal(t, "NPWR9", remaster.Versions[0].ID)

	unowned := u.Unify(nil, nil, opts)
	assert.Equal(t, 1, countVersion(unowned, "NPWR1"))
	assert.Equal(t, 1, countVersion(unowned, "NPWR9"))
}

func TestUnify_EmptyPlatformSetShowsNothing(t *testing.T) {
	u := NewUnifier(master())
	owned := []trophyentity.TrophyTitle{psnTitle("NPWR1", "Game X", "PS5", 40)}

	assert.Empty(t, u.Unify(owned, nil, entity.Options{ShowUnowned: true, Platforms: map[string]bool{}}))
	assert.NotEmpty(t, u.Unify(owned, nil, entity.Options{ShowUnowned: true}))
}

func TestUnify_OwnedOnlyByDefault(t *testing.T) {
	u := NewUnifier(master())
	games := u.Unify([]trophyentity.TrophyTitle{psnTitle("NPWR1", "Game X", "PS5", 40)}, nil, entity.Options{})
	require.Len(t, games, 1)
	assert.Len(t, games[0].Versions, 1)
}

func TestUnify_MergesPSNAndXbox(t *testing.T) {
	u := NewUnifier(master())
	xbox := trophyentity.XboxTitle{TitleID: "1234", Name: "Game Y (Xbox)"}
	xbox.Achievement.CurrentGamerscore = 250
	xbox.Achievement.TotalGamerscore = 1000

	games := u.Unify([]trophyentity.TrophyTitle{psnTitle("NPWR3", "Game Y", "PS4", 10)}, []trophyentity.XboxTitle{xbox}, entity.Options{})
	require.Len(t, games, 1)
	g := games[0]
	assert.Equal(t, "game_y", g.ID)
	require.Len(t, g.Versions, 2)
	x := g.Versions[1]
	assert.Equal(t, entity.PlatformXbox, x.Platform)
	assert.Equal(t, 25, x.Progress)
	assert.Equal(t, entity.Counts{Total: 1000, Earned: 250}, x.Counts)
}

func TestUnify_UnmatchedKeepsNativeIdentity(t *testing.T) {
	u := NewUnifier(master())
	games := u.Unify([]trophyentity.TrophyTitle{psnTitle("NPWR99", "Lonely Game", "PS4", 0)}, nil, entity.Options{})
	require.Len(t, games, 1)
	assert.Equal(t, "NPWR99", games[0].ID)
	assert.Equal(t, "Lonely Game", games[0].Title)
	assert.Equal(t, "https://icon/NPWR99", games[0].Icon)
}

func TestUnify_NameFallback(t *testing.T) {
	u := NewUnifier(master())
	games := u.Unify(nil, []trophyentity.XboxTitle{{TitleID: "777", Name: "Doom Eternal"}}, entity.Options{})
	require.Len(t, games, 1)
	assert.Equal(t, "doom_eternal", games[0].ID)
	assert.Equal(t, "DOOM® Eternal", games[0].Title)
}

func TestUnify_DropsGamesWithNoEnabledVersion(t *testing.T) {
	u := NewUnifier(master())
	games := u.Unify(
		[]trophyentity.TrophyTitle{
			psnTitle("NPWR1", "Game X", "PS5", 40),
			psnTitle("NPWR3", "Game Y", "PS4", 10),
		},
		nil,
		entity.Options{Platforms: map[string]bool{"PS5": true}},
	)
	assert.Equal(t, []string{"game_x"}, ids(games))
}

func TestUnify_MultiPlatformTitle(t *testing.T) {
	u := NewUnifier(nil)
	games := u.Unify([]trophyentity.TrophyTitle{psnTitle("NPWR7", "Handheld", "PS4,PSVITA", 5)}, nil,
		entity.Options{Platforms: map[string]bool{"PSVITA": true}})
	assert.Equal(t, []string{"NPWR7"}, ids(games))
}

func TestUnify_Shovelware(t *testing.T) {
	u := NewUnifier(master())
	owned := []trophyentity.TrophyTitle{psnTitle("NPWR60", "Cheap Game", "PS4", 100)}

	assert.Empty(t, u.Unify(owned, nil, entity.Options{}))
	assert.Len(t, u.Unify(owned, nil, entity.Options{ShowShovelware: true}), 1)
}

func TestUnify_SearchAndStatus(t *testing.T) {
	u := NewUnifier(master())
	owned := []trophyentity.TrophyTitle{
		psnTitle("NPWR1", "Game X", "PS5", 40),
		psnTitle("NPWR3", "Game Y", "PS4", 100),
		psnTitle("NPWR50", "Doom Eternal", "PS4", 0),
	}

	assert.Equal(t, []string{"doom_eternal"}, ids(u.Unify(owned, nil, entity.Options{Search: "doom"})))
	assert.Equal(t, []string{"game_x"}, ids(u.Unify(owned, nil, entity.Options{Status: entity.StatusInProgress})))
	assert.Equal(t, []string{"game_y"}, ids(u.Unify(owned, nil, entity.Options{Status: entity.StatusCompleted})))
	assert.Equal(t, []string{"doom_eternal"}, ids(u.Unify(owned, nil, entity.Options{Status: entity.StatusNotStarted})))
}

func TestUnify_ProgressDerivation(t *testing.T) {
	computed := trophyentity.TrophyTitle{
		NpCommunicationID: "A",
		TrophyTitleName:   "A",
		DefinedTrophies:   trophyentity.RankCounts{Bronze: 8, Silver: 2},
		EarnedTrophies:    trophyentity.RankCounts{Bronze: 4, Silver: 1},
	}
	empty := trophyentity.TrophyTitle{NpCommunicationID: "B", TrophyTitleName: "B"}
	over := psnTitle("C", "C", "PS4", 150)

	games := NewUnifier(nil).Unify([]trophyentity.TrophyTitle{computed, empty, over}, nil, entity.Options{})
	assert.Equal(t, 50, find(t, games, "A").Versions[0].Progress)
	assert.Equal(t, 10, find(t, games, "A").Versions[0].Counts.Total)
	assert.Equal(t, 5, find(t, games, "A").Versions[0].Counts.Earned)
	assert.Equal(t, 0, find(t, games, "B").Versions[0].Progress)
	assert.Equal(t, 100, find(t, games, "C").Versions[0].Progress)
}

func TestUnify_PinnedSortFirst(t *testing.T) {
	owned := []trophyentity.TrophyTitle{
		psnTitle("A1", "A", "PS4", 100),
		psnTitle("B1", "B", "PS4", 10),
	}
	games := NewUnifier(nil).Unify(owned, nil, entity.Options{
		Sort:      entity.SortProgress,
		Direction: entity.Desc,
		Pinned:    map[string]bool{"B1": true},
	})
	assert.Equal(t, []string{"B1", "A1"}, ids(games))
}

func TestUnify_SortModes(t *testing.T) {
	owned := []trophyentity.TrophyTitle{
		psnTitle("G", "gamma", "PS4", 30),
		psnTitle("A", "Alpha", "PS4", 90),
		psnTitle("B", "beta", "PS4", 60),
	}
	owned[0].LastUpdatedDateTime = "2024-03-01T00:00:00Z"
	owned[1].LastUpdatedDateTime = "2024-01-01T00:00:00Z"
	owned[2].LastUpdatedDateTime = "2024-02-01T00:00:00Z"

	u := NewUnifier(nil)
	assert.Equal(t, []string{"A", "B", "G"}, ids(u.Unify(owned, nil, entity.Options{})))
	assert.Equal(t, []string{"G", "B", "A"}, ids(u.Unify(owned, nil, entity.Options{Direction: entity.Desc})))
	assert.Equal(t, []string{"A", "B", "G"}, ids(u.Unify(owned, nil, entity.Options{Sort: entity.SortProgress})))
	assert.Equal(t, []string{"G", "B", "A"}, ids(u.Unify(owned, nil, entity.Options{Sort: entity.SortProgress, Direction: entity.Asc})))
	assert.Equal(t, []string{"G", "B", "A"}, ids(u.Unify(owned, nil, entity.Options{Sort: entity.SortLastPlayed})))
}

func TestIndex_Lookup(t *testing.T) {
	idx := NewIndex(master())
	for _, id := range []string{"game_y", "NPWR3", "1234"} {
		m, ok := idx.Lookup(id)
		require.True(t, ok, id)
		assert.Equal(t, "game_y", m.CanonicalID)
	}
	_, ok := idx.Lookup("Game Y")
	assert.False(t, ok)
}

func TestIndex_FirstEntryKeepsSharedID(t *testing.T) {
	dup := append(master(), entity.MasterGameEntry{
		CanonicalID:    "other",
		DisplayName:    "Other",
		LinkedVersions: []entity.LinkedVersion{{Platform: "PS4", NpCommunicationID: "NPWR3"}},
	})
	m, ok := NewIndex(dup).Lookup("NPWR3")
	require.True(t, ok)
	assert.Equal(t, "game_y", m.CanonicalID)
}

func TestNormalizeName(t *testing.T) {
	assert.Equal(t, "doom eternal", normalizeName("DOOM® Eternal"))
	assert.Equal(t, "doom eternal", normalizeName("  Doom   Eternal "))
	assert.Equal(t, "halo 2 anniversary", normalizeName("Halo 2: Anniversary"))
	assert.Equal(t, "", normalizeName("™"))
}
