package trophy

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-trophy-proxy/internal/psn"
	"github.com/ovaphlow/pitchfork/service-trophy-proxy/internal/trophy/entity"
)

// Fetcher performs an authenticated vendor GET. *psn.Requester satisfies it.
type Fetcher interface {
	GetJSON(ctx context.Context, rawURL string, headers map[string]string, out any) error
}

// maxTitlePages bounds paging in case the vendor keeps reporting a larger total.
const maxTitlePages = 50

// Service relays profile and trophy queries to the vendor.
type Service struct {
	fetch  Fetcher
	urls   *psn.Client
	logger *zap.SugaredLogger
}

func NewService(fetch Fetcher, urls *psn.Client, logger *zap.SugaredLogger) *Service {
	return &Service{fetch: fetch, urls: urls, logger: logger}
}

// Profile returns the vendor profile payload untouched.
func (s *Service) Profile(ctx context.Context, onlineID string) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := s.fetch.GetJSON(ctx, s.urls.ProfileURL(onlineID), nil, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// TrophyTitles pages through every owned title and concatenates the pages.
func (s *Service) TrophyTitles(ctx context.Context, accountID string) (*entity.TrophyTitlesPage, error) {
	out := &entity.TrophyTitlesPage{TrophyTitles: []entity.TrophyTitle{}}
	offset := 0
	for page := 0; page < maxTitlePages; page++ {
		var p entity.TrophyTitlesPage
		if err := s.fetch.GetJSON(ctx, s.urls.TrophyTitlesURL(accountID, psn.TitlesPageSize, offset), nil, &p); err != nil {
			return nil, fmt.Errorf("trophy titles offset %d: %w", offset, err)
		}
		out.TrophyTitles = append(out.TrophyTitles, p.TrophyTitles...)
		out.TotalItemCount = p.TotalItemCount
		offset += len(p.TrophyTitles)
		if len(p.TrophyTitles) == 0 || offset >= p.TotalItemCount {
			break
		}
	}
	s.logger.Debugw("trophy titles fetched", "account_id", accountID, "count", len(out.TrophyTitles), "total", out.TotalItemCount)
	return out, nil
}

// TitleTrophies returns the trophy definitions of a title merged with the
// user's earned state. platform picks the trophy service: PS5 titles use the
// default service, anything else the legacy one. Empty platform leaves the
// choice to the 404 fallback.
func (s *Service) TitleTrophies(ctx context.Context, accountID, npCommunicationID, platform string) ([]entity.Trophy, error) {
	service := serviceFor(platform)

	var defs entity.TrophyList
	if err := s.fetch.GetJSON(ctx, s.urls.TitleTrophiesURL(npCommunicationID, service), nil, &defs); err != nil {
		return nil, fmt.Errorf("trophy definitions: %w", err)
	}
	var earned entity.TrophyList
	if err := s.fetch.GetJSON(ctx, s.urls.EarnedTrophiesURL(accountID, npCommunicationID, service), nil, &earned); err != nil {
		return nil, fmt.Errorf("earned trophies: %w", err)
	}
	return mergeTrophies(defs.Trophies, earned.Trophies), nil
}

// Summary returns the lightweight trophy summary of a user.
func (s *Service) Summary(ctx context.Context, accountID string) (*entity.Summary, error) {
	var sum entity.Summary
	if err := s.fetch.GetJSON(ctx, s.urls.SummaryURL(accountID), nil, &sum); err != nil {
		return nil, err
	}
	return &sum, nil
}

func serviceFor(platform string) string {
	switch {
	case platform == "":
		return ""
	case strings.Contains(strings.ToUpper(platform), "PS5"):
		return ""
	default:
		return "trophy"
	}
}

// mergeTrophies overlays earned state onto definitions, keeping definition order.
func mergeTrophies(defs, earned []entity.Trophy) []entity.Trophy {
	byID := make(map[int]entity.Trophy, len(earned))
	for _, e := range earned {
		byID[e.TrophyID] = e
	}
	out := make([]entity.Trophy, 0, len(defs))
	for _, d := range defs {
		if e, ok := byID[d.TrophyID]; ok {
			d.Earned = e.Earned
			d.EarnedDateTime = e.EarnedDateTime
			d.TrophyRare = e.TrophyRare
			d.TrophyEarnedRate = e.TrophyEarnedRate
			d.Progress = e.Progress
			d.ProgressRate = e.ProgressRate
		}
		out = append(out, d)
	}
	return out
}
