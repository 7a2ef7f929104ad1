package entity

// RankCounts holds per-grade trophy counts as the vendor reports them.
type RankCounts struct {
	Bronze   int `json:"bronze"`
	Silver   int `json:"silver"`
	Gold     int `json:"gold"`
	Platinum int `json:"platinum"`
}

// Total is the sum over all grades.
func (c RankCounts) Total() int {
	return c.Bronze + c.Silver + c.Gold + c.Platinum
}

// TrophyTitle is one owned PlayStation title from the trophyTitles listing.
type TrophyTitle struct {
	NpServiceName       string     `json:"npServiceName"`
	NpCommunicationID   string     `json:"npCommunicationId"`
	TrophySetVersion    string     `json:"trophySetVersion,omitempty"`
	TrophyTitleName     string     `json:"trophyTitleName"`
	TrophyTitleDetail   string     `json:"trophyTitleDetail,omitempty"`
	TrophyTitleIconURL  string     `json:"trophyTitleIconUrl"`
	TrophyTitlePlatform string     `json:"trophyTitlePlatform"`
	HasTrophyGroups     bool       `json:"hasTrophyGroups"`
	DefinedTrophies     RankCounts `json:"definedTrophies"`
	Progress            *int       `json:"progress,omitempty"`
	EarnedTrophies      RankCounts `json:"earnedTrophies"`
	HiddenFlag          bool       `json:"hiddenFlag"`
	LastUpdatedDateTime string     `json:"lastUpdatedDateTime,omitempty"`
}

// TrophyTitlesPage is both a single vendor page and the concatenated result.
type TrophyTitlesPage struct {
	TrophyTitles   []TrophyTitle `json:"trophyTitles"`
	TotalItemCount int           `json:"totalItemCount"`
	NextOffset     *int          `json:"nextOffset,omitempty"`
}

// Trophy merges a trophy definition with the user's earned state.
type Trophy struct {
	TrophyID         int    `json:"trophyId"`
	TrophyHidden     bool   `json:"trophyHidden"`
	TrophyType       string `json:"trophyType"`
	TrophyName       string `json:"trophyName,omitempty"`
	TrophyDetail     string `json:"trophyDetail,omitempty"`
	TrophyIconURL    string `json:"trophyIconUrl,omitempty"`
	TrophyGroupID    string `json:"trophyGroupId,omitempty"`
	Earned           bool   `json:"earned"`
	EarnedDateTime   string `json:"earnedDateTime,omitempty"`
	TrophyRare       *int   `json:"trophyRare,omitempty"`
	TrophyEarnedRate string `json:"trophyEarnedRate,omitempty"`
	Progress         string `json:"progress,omitempty"`
	ProgressRate     *int   `json:"progressRate,omitempty"`
}

// TrophyList is the vendor envelope for both definitions and earned state.
type TrophyList struct {
	TrophySetVersion string   `json:"trophySetVersion,omitempty"`
	HasTrophyGroups  bool     `json:"hasTrophyGroups"`
	Trophies         []Trophy `json:"trophies"`
	TotalItemCount   int      `json:"totalItemCount"`
}

// Summary is the lightweight per-user trophy summary.
type Summary struct {
	AccountID      string     `json:"accountId"`
	TrophyLevel    int        `json:"trophyLevel"`
	Progress       int        `json:"progress"`
	Tier           int        `json:"tier"`
	EarnedTrophies RankCounts `json:"earnedTrophies"`
}

// TotalEarned is the number the watchdog compares between polls.
func (s Summary) TotalEarned() int { return s.EarnedTrophies.Total() }
