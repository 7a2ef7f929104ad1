package trophy

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-trophy-proxy/internal/psn"
)

// fakeFetcher answers by URL; respond returns the JSON body or an error.
type fakeFetcher struct {
	urls    []string
	respond func(u *url.URL) (string, error)
}

func (f *fakeFetcher) GetJSON(_ context.Context, rawURL string, _ map[string]string, out any) error {
	f.urls = append(f.urls, rawURL)
	u, err := url.Parse(rawURL)
	if err != nil {
		return err
	}
	body, err := f.respond(u)
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(body), out)
}

func newTestService(f *fakeFetcher) *Service {
	urls := psn.NewClient(psn.Config{APIBaseURL: "http://psn/api", ProfileBaseURL: "http://prof"}, zap.NewNop().Sugar())
	return NewService(f, urls, zap.NewNop().Sugar())
}

func TestTrophyTitles_ConcatenatesPages(t *testing.T) {
	f := &fakeFetcher{respond: func(u *url.URL) (string, error) {
		switch u.Query().Get("offset") {
		case "0":
			return `{"trophyTitles":[{"npCommunicationId":"A"},{"npCommunicationId":"B"}],"totalItemCount":3,"nextOffset":2}`, nil
		case "2":
			return `{"trophyTitles":[{"npCommunicationId":"C"}],"totalItemCount":3}`, nil
		}
		return `{"trophyTitles":[],"totalItemCount":3}`, nil
	}}
	page, err := newTestService(f).TrophyTitles(context.Background(), "me")
	require.NoError(t, err)
	assert.Equal(t, 3, page.TotalItemCount)
	require.Len(t, page.TrophyTitles, 3)
	assert.Equal(t, "C", page.TrophyTitles[2].NpCommunicationID)
	assert.Len(t, f.urls, 2)
	assert.Contains(t, f.urls[0], "/trophy/v1/users/me/trophyTitles?limit=800&offset=0")
}

func TestTrophyTitles_StopsOnEmptyPage(t *testing.T) {
	f := &fakeFetcher{respond: func(u *url.URL) (string, error) {
		return `{"trophyTitles":[],"totalItemCount":10}`, nil
	}}
	page, err := newTestService(f).TrophyTitles(context.Background(), "me")
	require.NoError(t, err)
	assert.Empty(t, page.TrophyTitles)
	assert.Len(t, f.urls, 1)
}

func TestTitleTrophies_MergesEarnedState(t *testing.T) {
	f := &fakeFetcher{respond: func(u *url.URL) (string, error) {
		if strings.Contains(u.Path, "/users/") {
			return `{"trophies":[{"trophyId":1,"earned":true,"earnedDateTime":"2024-01-02T03:04:05Z","trophyEarnedRate":"12.5"}]}`, nil
		}
		return `{"trophies":[{"trophyId":0,"trophyType":"platinum","trophyName":"All"},{"trophyId":1,"trophyType":"bronze","trophyName":"First"}]}`, nil
	}}
	got, err := newTestService(f).TitleTrophies(context.Background(), "me", "NPWR1", "PS4")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.False(t, got[0].Earned)
	assert.True(t, got[1].Earned)
	assert.Equal(t, "First", got[1].TrophyName)
	assert.Equal(t, "12.5", got[1].TrophyEarnedRate)
	for _, u := range f.urls {
		assert.Contains(t, u, "npServiceName=trophy")
	}
}

func TestServiceFor(t *testing.T) {
	assert.Equal(t, "", serviceFor(""))
	assert.Equal(t, "", serviceFor("PS5"))
	assert.Equal(t, "", serviceFor("ps5,PSPC"))
	assert.Equal(t, "trophy", serviceFor("PS4"))
	assert.Equal(t, "trophy", serviceFor("PSVITA"))
}

func newTestMux(svc *Service) *http.ServeMux {
	h := NewHandler(svc, zap.NewNop().Sugar())
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/profile/{username}", h.Profile)
	mux.HandleFunc("GET /api/trophies/{accountId}", h.Titles)
	mux.HandleFunc("GET /api/trophies/{accountId}/{gameId}", h.TitleTrophies)
	mux.HandleFunc("GET /api/summary/{accountId}", h.Summary)
	return mux
}

func TestHandler_Summary(t *testing.T) {
	f := &fakeFetcher{respond: func(u *url.URL) (string, error) {
		return `{"accountId":"42","trophyLevel":300,"earnedTrophies":{"bronze":10,"silver":5,"gold":2,"platinum":1}}`, nil
	}}
	rec := httptest.NewRecorder()
	newTestMux(newTestService(f)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/summary/42", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body SummaryResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, 18, body.TotalEarned)
	assert.Equal(t, "42", body.AccountID)
}

func TestHandler_TitleTrophiesNotFound(t *testing.T) {
	f := &fakeFetcher{respond: func(u *url.URL) (string, error) {
		return "", &psn.Error{Kind: psn.KindNotFound, Status: 404, Body: "no such title"}
	}}
	rec := httptest.NewRecorder()
	newTestMux(newTestService(f)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/trophies/me/NPWR9?gameName=X&platform=PS4", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "no such title")
}

func TestHandler_ProfilePassThrough(t *testing.T) {
	f := &fakeFetcher{respond: func(u *url.URL) (string, error) {
		assert.Equal(t, "/users/some_one/profile2", u.Path)
		return `{"profile":{"onlineId":"some_one"}}`, nil
	}}
	rec := httptest.NewRecorder()
	newTestMux(newTestService(f)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/profile/some_one", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"profile":{"onlineId":"some_one"}}`, rec.Body.String())
}

func TestHandler_TitlesNetworkError(t *testing.T) {
	f := &fakeFetcher{respond: func(u *url.URL) (string, error) {
		return "", &psn.Error{Kind: psn.KindNetwork, Err: assert.AnError}
	}}
	rec := httptest.NewRecorder()
	newTestMux(newTestService(f)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/trophies/me", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
