package repositories

import (
	"context"
	"errors"
	"strings"

	"github.com/anonto42/mindhaven/backend/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProfileRepository defines the read operations on profiles
type ProfileRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Profile, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Profile, error)
	GetByFirebaseUID(ctx context.Context, firebaseUID string) (*models.Profile, error)
	GetByEmail(ctx context.Context, email string) (*models.Profile, error)
}

// PostgresProfileRepository implements ProfileRepository for PostgreSQL
type PostgresProfileRepository struct {
	db *gorm.DB
}

// NewPostgresProfileRepository creates a new PostgresProfileRepository
func NewPostgresProfileRepository(db *gorm.DB) *PostgresProfileRepository {
	return &PostgresProfileRepository{db: db}
}

// GetByID retrieves a profile by ID
func (r *PostgresProfileRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	return r.first(ctx, "id = ?", id)
}

// GetByIDs loads several profiles at once, keyed by ID. Missing IDs are
// simply absent from the map.
func (r *PostgresProfileRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Profile, error) {
	out := make(map[uuid.UUID]models.Profile, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var profiles []models.Profile
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&profiles).Error; err != nil {
		return nil, err
	}
	for _, p := range profiles {
		out[p.ID] = p
	}
	return out, nil
}

// GetByFirebaseUID retrieves the profile linked to a Firebase UID
func (r *PostgresProfileRepository) GetByFirebaseUID(ctx context.Context, firebaseUID string) (*models.Profile, error) {
	return r.first(ctx, "firebase_uid = ?", firebaseUID)
}

// GetByEmail retrieves a profile by email, case-insensitively
func (r *PostgresProfileRepository) GetByEmail(ctx context.Context, email string) (*models.Profile, error) {
	return r.first(ctx, "LOWER(email) = ?", strings.ToLower(strings.TrimSpace(email)))
}

func (r *PostgresProfileRepository) first(ctx context.Context, query string, args ...interface{}) (*models.Profile, error) {
	var profile models.Profile
	if err := r.db.WithContext(ctx).Where(query, args...).First(&profile).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &profile, nil
}
