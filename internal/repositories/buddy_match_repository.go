package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/anonto42/mindhaven/backend/internal/models"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// authorHasNoActiveMatch filters out pending rows whose author is already
// part of an active match, e.g. through a second pending row.
const authorHasNoActiveMatch = `NOT EXISTS (
	SELECT 1 FROM buddy_matches am
	WHERE am.status = 'active'
	AND (am.user_1_id = buddy_matches.user_1_id OR am.user_2_id = buddy_matches.user_1_id))`

const requesterHasNoActiveMatch = `NOT EXISTS (
	SELECT 1 FROM buddy_matches rm
	WHERE rm.status = 'active'
	AND (rm.user_1_id = ? OR rm.user_2_id = ?))`

// BuddyMatchRepository defines the data operations behind buddy matching
type BuddyMatchRepository interface {
	FindActiveForUser(ctx context.Context, userID uuid.UUID) (*models.BuddyMatch, error)
	FindPendingForUser(ctx context.Context, userID uuid.UUID) (*models.BuddyMatch, error)
	ListPendingCandidates(ctx context.Context, userID uuid.UUID, limit int) ([]models.BuddyMatch, error)
	ClaimPending(ctx context.Context, matchID, userID uuid.UUID, goals []string, matchedAt time.Time) (bool, error)
	CreatePending(ctx context.Context, match *models.BuddyMatch) error
	RefreshPending(ctx context.Context, matchID uuid.UUID, shared models.SharedGoals) (bool, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.BuddyMatch, error)
}

// PostgresBuddyMatchRepository implements BuddyMatchRepository for PostgreSQL
type PostgresBuddyMatchRepository struct {
	db *gorm.DB
}

// NewPostgresBuddyMatchRepository creates a new PostgresBuddyMatchRepository
func NewPostgresBuddyMatchRepository(db *gorm.DB) *PostgresBuddyMatchRepository {
	return &PostgresBuddyMatchRepository{db: db}
}

// FindActiveForUser returns the active match naming userID on either side,
// or nil when there is none.
func (r *PostgresBuddyMatchRepository) FindActiveForUser(ctx context.Context, userID uuid.UUID) (*models.BuddyMatch, error) {
	var matches []models.BuddyMatch
	err := r.db.WithContext(ctx).
		Where("status = ? AND (user_1_id = ? OR user_2_id = ?)", models.MatchStatusActive, userID, userID).
		Limit(1).
		Find(&matches).Error
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, nil
	}
	return &matches[0], nil
}

// FindPendingForUser returns the newest open request authored by userID, or nil.
func (r *PostgresBuddyMatchRepository) FindPendingForUser(ctx context.Context, userID uuid.UUID) (*models.BuddyMatch, error) {
	var matches []models.BuddyMatch
	err := r.db.WithContext(ctx).
		Where("status = ? AND user_1_id = ? AND user_2_id IS NULL", models.MatchStatusPending, userID).
		Order("created_at DESC").
		Limit(1).
		Find(&matches).Error
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, nil
	}
	return &matches[0], nil
}

// ListPendingCandidates returns up to limit open requests authored by other
// users. No ordering is applied.
func (r *PostgresBuddyMatchRepository) ListPendingCandidates(ctx context.Context, userID uuid.UUID, limit int) ([]models.BuddyMatch, error) {
	var candidates []models.BuddyMatch
	err := r.db.WithContext(ctx).
		Where("status = ? AND user_2_id IS NULL AND user_1_id <> ?", models.MatchStatusPending, userID).
		Where(authorHasNoActiveMatch).
		Limit(limit).
		Find(&candidates).Error
	if err != nil {
		return nil, err
	}
	return candidates, nil
}

// ClaimPending turns a pending row into an active match in one conditional
// UPDATE and reports false when the row is no longer claimable: already
// taken, or either participant has a committed active match.
//
// The claim runs in a transaction holding advisory locks on both
// participants, taken in a fixed order, so two claims involving the same
// user are serialized and the second one sees the first one's match. On
// success the requester's own open request, if any, is deleted.
func (r *PostgresBuddyMatchRepository) ClaimPending(ctx context.Context, matchID, userID uuid.UUID, goals []string, matchedAt time.Time) (bool, error) {
	if goals == nil {
		goals = []string{}
	}
	patch, err := json.Marshal(map[string][]string{"user_2_goals": goals})
	if err != nil {
		return false, err
	}

	claimed := false
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var authors []string
		if err := tx.Model(&models.BuddyMatch{}).Where("id = ?", matchID).Pluck("user_1_id", &authors).Error; err != nil {
			return fmt.Errorf("load pending author: %w", err)
		}
		if len(authors) == 0 {
			return nil
		}

		first, second := userID.String(), authors[0]
		if second < first {
			first, second = second, first
		}
		if err := tx.Exec("SELECT pg_advisory_xact_lock(hashtext(?)), pg_advisory_xact_lock(hashtext(?))", first, second).Error; err != nil {
			return fmt.Errorf("lock participants: %w", err)
		}

		res := tx.Model(&models.BuddyMatch{}).
			Where("id = ? AND status = ? AND user_2_id IS NULL AND user_1_id <> ?", matchID, models.MatchStatusPending, userID).
			Where(authorHasNoActiveMatch).
			Where(requesterHasNoActiveMatch, userID, userID).
			Updates(map[string]interface{}{
				"user_2_id":    userID,
				"status":       models.MatchStatusActive,
				"matched_at":   matchedAt,
				"goals_shared": gorm.Expr("COALESCE(goals_shared, '{}'::jsonb) || ?::jsonb", string(patch)),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return nil
		}
		claimed = true

		return tx.Where("user_1_id = ? AND status = ? AND user_2_id IS NULL", userID, models.MatchStatusPending).
			Delete(&models.BuddyMatch{}).Error
	})
	if err != nil {
		return false, err
	}
	return claimed, nil
}

// CreatePending inserts a new open request
func (r *PostgresBuddyMatchRepository) CreatePending(ctx context.Context, match *models.BuddyMatch) error {
	match.Status = models.MatchStatusPending
	match.User2ID = nil
	match.MatchedAt = nil
	return r.db.WithContext(ctx).Create(match).Error
}

// RefreshPending overwrites the stated preferences of a still-open request.
func (r *PostgresBuddyMatchRepository) RefreshPending(ctx context.Context, matchID uuid.UUID, shared models.SharedGoals) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.BuddyMatch{}).
		Where("id = ? AND status = ? AND user_2_id IS NULL", matchID, models.MatchStatusPending).
		Update("goals_shared", datatypes.NewJSONType(shared))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// GetByID retrieves a match by ID
func (r *PostgresBuddyMatchRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.BuddyMatch, error) {
	var match models.BuddyMatch
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&match).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &match, nil
}
