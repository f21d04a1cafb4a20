package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/anonto42/mindhaven/backend/internal/apperrors"
	"github.com/anonto42/mindhaven/backend/internal/models"
	"github.com/anonto42/mindhaven/backend/internal/services"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

type fakeMatcher struct {
	calls     int
	lastPrefs *models.MatchPreferences
	result    *services.MatchResult
	current   *services.CurrentMatch
	history   []models.MatchEvent
	err       error
}

func (f *fakeMatcher) RequestMatch(_ context.Context, _ uuid.UUID, prefs *models.MatchPreferences) (*services.MatchResult, error) {
	f.calls++
	f.lastPrefs = prefs
	return f.result, f.err
}

func (f *fakeMatcher) CurrentMatch(_ context.Context, _ uuid.UUID) (*services.CurrentMatch, error) {
	f.calls++
	return f.current, f.err
}

func (f *fakeMatcher) History(_ context.Context, _ uuid.UUID, _ int64) ([]models.MatchEvent, error) {
	f.calls++
	return f.history, f.err
}

func newBuddyServer(t *testing.T, matcher *fakeMatcher) (*echo.Echo, uuid.UUID) {
	t.Helper()
	userID := uuid.New()
	e, _, api := newTestEcho(tokenTable{"alice-token": userID})
	NewBuddyMatchHandler(matcher).RegisterBuddyMatchRoutes(api)
	return e, userID
}

func TestRequestMatch_RejectsMalformedUserIDBeforeAnyCall(t *testing.T) {
	matcher := &fakeMatcher{}
	e, _ := newBuddyServer(t, matcher)

	rec := doJSON(e, http.MethodPost, "/api/v1/buddy/match", "alice-token", `{"userId":"not-a-uuid"}`)

	assertStatus(t, rec, http.StatusBadRequest)
	body := decode(t, rec)
	assert.Equal(t, false, body["success"])
	details, ok := body["details"].(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, details, "userId")
	assert.Zero(t, matcher.calls)
}

func TestRequestMatch_MalformedUserIDSkipsProfileLookup(t *testing.T) {
	matcher := &fakeMatcher{result: &services.MatchResult{Outcome: models.MatchOutcomePending, Request: &models.BuddyMatch{}}}
	userID := uuid.New()
	verifier := &deferredTable{tokens: tokenTable{"alice-token": userID}}
	e, _, api := newTestEcho(verifier)
	NewBuddyMatchHandler(matcher).RegisterBuddyMatchRoutes(api)

	rec := doJSON(e, http.MethodPost, "/api/v1/buddy/match", "alice-token", `{"userId":"not-a-uuid"}`)
	assertStatus(t, rec, http.StatusBadRequest)
	assert.Zero(t, verifier.lookups)
	assert.Zero(t, matcher.calls)

	rec = doJSON(e, http.MethodPost, "/api/v1/buddy/match", "alice-token", fmt.Sprintf(`{"userId":%q}`, userID))
	assertStatus(t, rec, http.StatusOK)
	assert.Equal(t, 1, verifier.lookups)
	assert.Equal(t, 1, matcher.calls)
}

func TestRequestMatch_ValidationDetails(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantField string
	}{
		{"missing userId", `{}`, "userId"},
		{"goals wrong type", fmt.Sprintf(`{"userId":%q,"preferences":{"goals":"sleep"}}`, uuid.NewString()), "preferences.goals"},
		{"empty goal tag", fmt.Sprintf(`{"userId":%q,"preferences":{"goals":["sleep",""]}}`, uuid.NewString()), "preferences.goals[1]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			matcher := &fakeMatcher{}
			e, _ := newBuddyServer(t, matcher)

			rec := doJSON(e, http.MethodPost, "/api/v1/buddy/match", "alice-token", tt.body)

			assertStatus(t, rec, http.StatusBadRequest)
			details, _ := decode(t, rec)["details"].(map[string]interface{})
			assert.Contains(t, details, tt.wantField)
			assert.Zero(t, matcher.calls)
		})
	}
}

func TestRequestMatch_MalformedJSON(t *testing.T) {
	matcher := &fakeMatcher{}
	e, _ := newBuddyServer(t, matcher)

	rec := doJSON(e, http.MethodPost, "/api/v1/buddy/match", "alice-token", `{"userId":`)
	assertStatus(t, rec, http.StatusBadRequest)
	assert.Zero(t, matcher.calls)
}

func TestRequestMatch_Unauthenticated(t *testing.T) {
	matcher := &fakeMatcher{}
	e, userID := newBuddyServer(t, matcher)
	body := fmt.Sprintf(`{"userId":%q}`, userID)

	for _, token := range []string{"", "forged"} {
		rec := doJSON(e, http.MethodPost, "/api/v1/buddy/match", token, body)
		assertStatus(t, rec, http.StatusUnauthorized)
	}
	assert.Zero(t, matcher.calls)
}

func TestRequestMatch_ForbiddenForOtherUser(t *testing.T) {
	matcher := &fakeMatcher{}
	e, _ := newBuddyServer(t, matcher)

	rec := doJSON(e, http.MethodPost, "/api/v1/buddy/match", "alice-token", fmt.Sprintf(`{"userId":%q}`, uuid.New()))

	assertStatus(t, rec, http.StatusForbidden)
	assert.Equal(t, false, decode(t, rec)["success"])
	assert.Zero(t, matcher.calls)
}

func TestRequestMatch_ResponseShapes(t *testing.T) {
	buddyID := uuid.New()
	now := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

	t.Run("pending", func(t *testing.T) {
		matcher := &fakeMatcher{}
		e, userID := newBuddyServer(t, matcher)
		matcher.result = &services.MatchResult{
			Outcome: models.MatchOutcomePending,
			Request: &models.BuddyMatch{
				ID:          uuid.New(),
				User1ID:     userID,
				Status:      models.MatchStatusPending,
				GoalsShared: datatypes.NewJSONType(models.SharedGoals{User1Goals: []string{"anxiety", "sleep"}}),
			},
		}

		rec := doJSON(e, http.MethodPost, "/api/v1/buddy/match", "alice-token",
			fmt.Sprintf(`{"userId":%q,"preferences":{"goals":["anxiety","sleep"],"timezone":"UTC"}}`, userID))

		assertStatus(t, rec, http.StatusOK)
		body := decode(t, rec)
		assert.Equal(t, true, body["success"])
		assert.Equal(t, true, body["pending"])
		assert.Equal(t, "Match request submitted! We'll notify you when we find a compatible buddy.", body["message"])
		request := body["request"].(map[string]interface{})
		assert.Equal(t, "pending", request["status"])
		assert.Equal(t, userID.String(), request["user_1_id"])
		assert.Nil(t, request["user_2_id"])

		require.NotNil(t, matcher.lastPrefs)
		assert.Equal(t, []string{"anxiety", "sleep"}, matcher.lastPrefs.Goals)
		assert.Equal(t, "UTC", matcher.lastPrefs.Timezone)
	})

	t.Run("matched", func(t *testing.T) {
		matcher := &fakeMatcher{}
		e, userID := newBuddyServer(t, matcher)
		buddy := &models.ProfileCompact{ID: buddyID, DisplayName: "Avery", AvatarURL: "https://cdn/a.png"}
		matcher.result = &services.MatchResult{
			Outcome: models.MatchOutcomeMatched,
			Match: &models.MatchWithProfiles{
				BuddyMatch: models.BuddyMatch{
					ID:        uuid.New(),
					User1ID:   buddyID,
					User2ID:   &userID,
					Status:    models.MatchStatusActive,
					MatchedAt: &now,
				},
				User1: buddy,
			},
			BuddyProfile: buddy,
		}

		rec := doJSON(e, http.MethodPost, "/api/v1/buddy/match", "alice-token", fmt.Sprintf(`{"userId":%q}`, userID))

		assertStatus(t, rec, http.StatusOK)
		body := decode(t, rec)
		assert.Equal(t, true, body["success"])
		assert.Equal(t, "Match found!", body["message"])
		assert.Nil(t, body["pending"])
		match := body["match"].(map[string]interface{})
		assert.Equal(t, "active", match["status"])
		assert.Equal(t, userID.String(), match["user_2_id"])
		profile := body["buddyProfile"].(map[string]interface{})
		assert.Equal(t, buddyID.String(), profile["id"])
		assert.Equal(t, "Avery", profile["display_name"])
		assert.Equal(t, "https://cdn/a.png", profile["avatar_url"])
	})

	t.Run("already matched", func(t *testing.T) {
		matcher := &fakeMatcher{}
		e, userID := newBuddyServer(t, matcher)
		matchID := uuid.New()
		matcher.result = &services.MatchResult{
			Outcome: models.MatchOutcomeAlreadyMatched,
			Match: &models.MatchWithProfiles{BuddyMatch: models.BuddyMatch{
				ID: matchID, User1ID: buddyID, User2ID: &userID, Status: models.MatchStatusActive,
			}},
		}

		rec := doJSON(e, http.MethodPost, "/api/v1/buddy/match", "alice-token", fmt.Sprintf(`{"userId":%q}`, userID))

		assertStatus(t, rec, http.StatusOK)
		body := decode(t, rec)
		assert.Equal(t, false, body["success"])
		assert.Equal(t, "You already have an active buddy match", body["message"])
		assert.Equal(t, matchID.String(), body["match"].(map[string]interface{})["id"])
		assert.Nil(t, body["buddyProfile"])
	})
}

func TestRequestMatch_InternalErrorIsGeneric(t *testing.T) {
	matcher := &fakeMatcher{err: apperrors.Internal("Failed to process match request", errors.New("pq: relation does not exist"))}
	e, userID := newBuddyServer(t, matcher)

	rec := doJSON(e, http.MethodPost, "/api/v1/buddy/match", "alice-token", fmt.Sprintf(`{"userId":%q}`, userID))

	assertStatus(t, rec, http.StatusInternalServerError)
	body := decode(t, rec)
	assert.Equal(t, "Failed to process match request", body["error"])
	assert.NotContains(t, rec.Body.String(), "pq:")
}

func TestGetCurrentMatch(t *testing.T) {
	matcher := &fakeMatcher{err: apperrors.NotFound("No buddy match or pending request")}
	e, userID := newBuddyServer(t, matcher)

	rec := doJSON(e, http.MethodGet, "/api/v1/buddy/match", "alice-token", "")
	assertStatus(t, rec, http.StatusNotFound)

	matcher.err = nil
	matcher.current = &services.CurrentMatch{Request: &models.BuddyMatch{ID: uuid.New(), User1ID: userID, Status: models.MatchStatusPending}}
	rec = doJSON(e, http.MethodGet, "/api/v1/buddy/match", "alice-token", "")
	assertStatus(t, rec, http.StatusOK)
	assert.Equal(t, true, decode(t, rec)["pending"])
}

func TestGetHistory(t *testing.T) {
	matcher := &fakeMatcher{history: []models.MatchEvent{{UserID: "u", Outcome: models.MatchOutcomePending}}}
	e, _ := newBuddyServer(t, matcher)

	rec := doJSON(e, http.MethodGet, "/api/v1/buddy/match/history?limit=5", "alice-token", "")
	assertStatus(t, rec, http.StatusOK)
	events := decode(t, rec)["data"].(map[string]interface{})["events"].([]interface{})
	assert.Len(t, events, 1)
}

func TestBuddyMatch_CORSPreflight(t *testing.T) {
	e, _ := newBuddyServer(t, &fakeMatcher{})

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/buddy/match", nil)
	req.Header.Set(echo.HeaderOrigin, "https://app.mindhaven.app")
	req.Header.Set(echo.HeaderAccessControlRequestMethod, http.MethodPost)
	req.Header.Set(echo.HeaderAccessControlRequestHeaders, "authorization, content-type")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
	assert.Contains(t, rec.Header().Get(echo.HeaderAccessControlAllowMethods), http.MethodPost)
}
