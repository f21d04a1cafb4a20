package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/anonto42/mindhaven/backend/internal/apperrors"
	"github.com/anonto42/mindhaven/backend/internal/events"
	"github.com/anonto42/mindhaven/backend/internal/models"
	"github.com/anonto42/mindhaven/backend/internal/repositories"
	"github.com/anonto42/mindhaven/backend/pkg/metrics"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
)

const DefaultCandidateLimit = 10

// MatchResult is the outcome of one match request. Match is set for
// already_matched and matched, Request for pending.
type MatchResult struct {
	Outcome      string
	Match        *models.MatchWithProfiles
	BuddyProfile *models.ProfileCompact
	Request      *models.BuddyMatch
}

// CurrentMatch is either the caller's active match or their open request.
type CurrentMatch struct {
	Match   *models.MatchWithProfiles
	Request *models.BuddyMatch
}

type profileLookup interface {
	GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Profile, error)
}

type notificationWriter interface {
	CreateNotification(ctx context.Context, notification *models.Notification) error
}

// BuddyMatchService pairs a requester with an open request from another
// user, or files a new open request.
type BuddyMatchService struct {
	matches        repositories.BuddyMatchRepository
	profiles       profileLookup
	notifications  notificationWriter
	audit          repositories.MatchEventRepository
	publisher      events.Publisher
	log            *logrus.Logger
	candidateLimit int
	now            func() time.Time
}

func NewBuddyMatchService(
	matches repositories.BuddyMatchRepository,
	profiles profileLookup,
	notifications notificationWriter,
	audit repositories.MatchEventRepository,
	publisher events.Publisher,
	log *logrus.Logger,
	candidateLimit int,
) *BuddyMatchService {
	if candidateLimit <= 0 {
		candidateLimit = DefaultCandidateLimit
	}
	return &BuddyMatchService{
		matches:        matches,
		profiles:       profiles,
		notifications:  notifications,
		audit:          audit,
		publisher:      publisher,
		log:            log,
		candidateLimit: candidateLimit,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

type scoredCandidate struct {
	match models.BuddyMatch
	score int
}

// RequestMatch runs the guard, search, claim and enqueue steps for userID.
func (s *BuddyMatchService) RequestMatch(ctx context.Context, userID uuid.UUID, prefs *models.MatchPreferences) (*MatchResult, error) {
	start := s.now()
	if prefs == nil {
		prefs = &models.MatchPreferences{}
	}
	audit := &models.MatchEvent{UserID: userID.String()}

	result, err := s.requestMatch(ctx, userID, *prefs, audit)
	if err != nil {
		audit.Outcome = models.MatchOutcomeError
		audit.Error = err.Error()
		s.record(ctx, audit, start)
		return nil, apperrors.Internal("Failed to process match request", err)
	}

	audit.Outcome = result.Outcome
	s.record(ctx, audit, start)
	return result, nil
}

func (s *BuddyMatchService) requestMatch(ctx context.Context, userID uuid.UUID, prefs models.MatchPreferences, audit *models.MatchEvent) (*MatchResult, error) {
	active, err := s.matches.FindActiveForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("find active match: %w", err)
	}
	if active != nil {
		return s.alreadyMatched(ctx, active, audit)
	}

	candidates, err := s.matches.ListPendingCandidates(ctx, userID, s.candidateLimit)
	if err != nil {
		return nil, fmt.Errorf("list pending candidates: %w", err)
	}
	ranked := rankCandidates(userID, candidates, prefs.Goals)
	audit.CandidateCount = len(ranked)
	if len(ranked) > 0 {
		audit.BestScore = ranked[0].score
	}

	for _, c := range ranked {
		matchedAt := s.now()
		claimed, err := s.matches.ClaimPending(ctx, c.match.ID, userID, prefs.Goals, matchedAt)
		if err != nil {
			return nil, fmt.Errorf("claim candidate %s: %w", c.match.ID, err)
		}
		if !claimed {
			audit.ClaimsLost++
			s.log.WithFields(logrus.Fields{
				"user_id":  userID,
				"match_id": c.match.ID,
			}).Debug("candidate claimed concurrently, trying next")
			continue
		}
		return s.matched(ctx, userID, c, prefs.Goals, matchedAt, audit)
	}

	if audit.ClaimsLost > 0 {
		// Someone may have claimed our own open request while we were
		// racing for theirs.
		active, err := s.matches.FindActiveForUser(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("recheck active match: %w", err)
		}
		if active != nil {
			return s.alreadyMatched(ctx, active, audit)
		}
	}

	return s.enqueue(ctx, userID, prefs, audit)
}

func (s *BuddyMatchService) alreadyMatched(ctx context.Context, active *models.BuddyMatch, audit *models.MatchEvent) (*MatchResult, error) {
	audit.MatchID = active.ID.String()
	enriched, err := s.withProfiles(ctx, active)
	if err != nil {
		return nil, err
	}
	return &MatchResult{Outcome: models.MatchOutcomeAlreadyMatched, Match: enriched}, nil
}

func (s *BuddyMatchService) matched(ctx context.Context, userID uuid.UUID, c scoredCandidate, goals []string, matchedAt time.Time, audit *models.MatchEvent) (*MatchResult, error) {
	match := c.match
	shared := match.GoalsShared.Data()
	shared.User2Goals = goals
	if shared.User2Goals == nil {
		shared.User2Goals = []string{}
	}
	match.GoalsShared = datatypes.NewJSONType(shared)
	match.User2ID = &userID
	match.Status = models.MatchStatusActive
	match.MatchedAt = &matchedAt

	audit.MatchID = match.ID.String()
	audit.BuddyID = match.User1ID.String()

	s.notifyMatched(ctx, &match, userID, c.score)

	enriched, err := s.withProfiles(ctx, &match)
	if err != nil {
		return nil, err
	}
	return &MatchResult{
		Outcome:      models.MatchOutcomeMatched,
		Match:        enriched,
		BuddyProfile: enriched.User1,
	}, nil
}

func (s *BuddyMatchService) enqueue(ctx context.Context, userID uuid.UUID, prefs models.MatchPreferences, audit *models.MatchEvent) (*MatchResult, error) {
	shared := prefs.SharedGoals()

	existing, err := s.matches.FindPendingForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("find own pending request: %w", err)
	}
	if existing != nil {
		refreshed, err := s.matches.RefreshPending(ctx, existing.ID, shared)
		if err != nil {
			return nil, fmt.Errorf("refresh pending request: %w", err)
		}
		if refreshed {
			existing.GoalsShared = datatypes.NewJSONType(shared)
			audit.MatchID = existing.ID.String()
			return &MatchResult{Outcome: models.MatchOutcomePending, Request: existing}, nil
		}
		// Claimed between the lookup and the refresh.
		active, err := s.matches.FindActiveForUser(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("recheck active match: %w", err)
		}
		if active != nil {
			return s.alreadyMatched(ctx, active, audit)
		}
	}

	request := &models.BuddyMatch{
		User1ID:     userID,
		GoalsShared: datatypes.NewJSONType(shared),
	}
	if err := s.matches.CreatePending(ctx, request); err != nil {
		return nil, fmt.Errorf("create pending request: %w", err)
	}
	audit.MatchID = request.ID.String()

	s.publish(ctx, events.MatchEvent{
		Type:       events.TypeMatchRequested,
		MatchID:    request.ID,
		UserID:     userID,
		OccurredAt: s.now(),
	})
	return &MatchResult{Outcome: models.MatchOutcomePending, Request: request}, nil
}

// CurrentMatch returns the caller's active match, else their open request.
func (s *BuddyMatchService) CurrentMatch(ctx context.Context, userID uuid.UUID) (*CurrentMatch, error) {
	active, err := s.matches.FindActiveForUser(ctx, userID)
	if err != nil {
		return nil, apperrors.Internal("Failed to load buddy match", fmt.Errorf("find active match: %w", err))
	}
	if active != nil {
		enriched, err := s.withProfiles(ctx, active)
		if err != nil {
			return nil, apperrors.Internal("Failed to load buddy match", err)
		}
		return &CurrentMatch{Match: enriched}, nil
	}

	pending, err := s.matches.FindPendingForUser(ctx, userID)
	if err != nil {
		return nil, apperrors.Internal("Failed to load buddy match", fmt.Errorf("find pending request: %w", err))
	}
	if pending == nil {
		return nil, apperrors.NotFound("No buddy match or pending request")
	}
	return &CurrentMatch{Request: pending}, nil
}

// History returns the caller's most recent match attempts, newest first.
func (s *BuddyMatchService) History(ctx context.Context, userID uuid.UUID, limit int64) ([]models.MatchEvent, error) {
	history, err := s.audit.ListByUser(ctx, userID.String(), limit)
	if err != nil {
		return nil, apperrors.Internal("Failed to load match history", err)
	}
	if history == nil {
		history = []models.MatchEvent{}
	}
	return history, nil
}

// rankCandidates orders candidates by goal overlap, highest first. The sort
// is stable so equal scores keep the order the store returned them in.
func rankCandidates(userID uuid.UUID, candidates []models.BuddyMatch, goals []string) []scoredCandidate {
	ranked := make([]scoredCandidate, 0, len(candidates))
	for _, c := range candidates {
		if c.User1ID == userID || c.User2ID != nil || c.Status != models.MatchStatusPending {
			continue
		}
		ranked = append(ranked, scoredCandidate{match: c, score: compatibilityScore(c.Goals(), goals)})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})
	return ranked
}

// compatibilityScore counts the requester goals the candidate also listed.
func compatibilityScore(candidateGoals, requesterGoals []string) int {
	if len(candidateGoals) == 0 || len(requesterGoals) == 0 {
		return 0
	}
	set := make(map[string]struct{}, len(candidateGoals))
	for _, g := range candidateGoals {
		set[g] = struct{}{}
	}
	score := 0
	seen := make(map[string]struct{}, len(requesterGoals))
	for _, g := range requesterGoals {
		if _, dup := seen[g]; dup {
			continue
		}
		seen[g] = struct{}{}
		if _, ok := set[g]; ok {
			score++
		}
	}
	return score
}

func (s *BuddyMatchService) withProfiles(ctx context.Context, match *models.BuddyMatch) (*models.MatchWithProfiles, error) {
	ids := []uuid.UUID{match.User1ID}
	if match.User2ID != nil {
		ids = append(ids, *match.User2ID)
	}
	profiles, err := s.profiles.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load match profiles: %w", err)
	}

	out := &models.MatchWithProfiles{BuddyMatch: *match}
	if p, ok := profiles[match.User1ID]; ok {
		c := p.ToCompact()
		out.User1 = &c
	}
	if match.User2ID != nil {
		if p, ok := profiles[*match.User2ID]; ok {
			c := p.ToCompact()
			out.User2 = &c
		}
	}
	return out, nil
}

// notifyMatched tells the pending author they have a buddy. Failures are
// logged only; the match itself is already committed.
func (s *BuddyMatchService) notifyMatched(ctx context.Context, match *models.BuddyMatch, requesterID uuid.UUID, score int) {
	notification := &models.Notification{
		Type:        models.NotificationTypeBuddyMatched,
		ActorID:     requesterID,
		RecipientID: match.User1ID,
		TargetID:    match.ID.String(),
		TargetType:  "buddy_match",
		Message:     "You have a new buddy match!",
	}
	if err := s.notifications.CreateNotification(ctx, notification); err != nil {
		s.log.WithError(err).WithField("match_id", match.ID).Warn("failed to create match notification")
	}

	s.publish(ctx, events.MatchEvent{
		Type:       events.TypeMatchActivated,
		MatchID:    match.ID,
		UserID:     match.User1ID,
		BuddyID:    &requesterID,
		Score:      score,
		OccurredAt: *match.MatchedAt,
	})
}

func (s *BuddyMatchService) publish(ctx context.Context, event events.MatchEvent) {
	if err := s.publisher.PublishMatchEvent(ctx, event); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"type":     event.Type,
			"match_id": event.MatchID,
		}).Warn("failed to publish match event")
	}
}

func (s *BuddyMatchService) record(ctx context.Context, event *models.MatchEvent, start time.Time) {
	event.CreatedAt = s.now()
	metrics.RecordMatchOutcome(event.Outcome, event.CreatedAt.Sub(start))

	if err := s.audit.Record(ctx, event); err != nil {
		s.log.WithError(err).WithField("user_id", event.UserID).Warn("failed to record match event")
	}
}
