package psn

import (
	"fmt"
	"net/url"
)

// TitlesPageSize is the largest page the trophy titles endpoint accepts.
const TitlesPageSize = 800

const profileFields = "npId,onlineId,accountId,avatarUrls,plus,aboutMe,languagesUsed," +
	"trophySummary(@default,level,progress,earnedTrophies),isOfficiallyVerified," +
	"personalDetail(@default,profilePictureUrls),primaryOnlineStatus,presences(@default,platform,lastOnlineDate)"

// ProfileURL is the legacy profile lookup by online id.
func (c *Client) ProfileURL(onlineID string) string {
	q := url.Values{}
	q.Set("fields", profileFields)
	return fmt.Sprintf("%s/users/%s/profile2?%s", c.cfg.ProfileBaseURL, url.PathEscape(onlineID), q.Encode())
}

// TrophyTitlesURL lists the titles a user has trophies in.
func (c *Client) TrophyTitlesURL(accountID string, limit, offset int) string {
	return fmt.Sprintf("%s/trophy/v1/users/%s/trophyTitles?limit=%d&offset=%d",
		c.cfg.APIBaseURL, url.PathEscape(accountID), limit, offset)
}

// TitleTrophiesURL lists trophy definitions of a title. serviceName may be empty.
func (c *Client) TitleTrophiesURL(npCommunicationID, serviceName string) string {
	u := fmt.Sprintf("%s/trophy/v1/npCommunicationIds/%s/trophyGroups/all/trophies",
		c.cfg.APIBaseURL, url.PathEscape(npCommunicationID))
	return withService(u, serviceName)
}

// EarnedTrophiesURL lists a user's earned state for a title's trophies.
func (c *Client) EarnedTrophiesURL(accountID, npCommunicationID, serviceName string) string {
	u := fmt.Sprintf("%s/trophy/v1/users/%s/npCommunicationIds/%s/trophyGroups/all/trophies",
		c.cfg.APIBaseURL, url.PathEscape(accountID), url.PathEscape(npCommunicationID))
	return withService(u, serviceName)
}

// SummaryURL is the lightweight per-user trophy summary.
func (c *Client) SummaryURL(accountID string) string {
	return fmt.Sprintf("%s/trophy/v1/users/%s/trophySummary", c.cfg.APIBaseURL, url.PathEscape(accountID))
}

func withService(u, serviceName string) string {
	if serviceName == "" {
		return u
	}
	return u + "?" + LegacyParam + "=" + url.QueryEscape(serviceName)
}
