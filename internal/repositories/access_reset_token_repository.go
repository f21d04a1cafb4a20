package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/anonto42/mindhaven/backend/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AccessResetTokenRepository stores issued reset tokens
type AccessResetTokenRepository interface {
	Create(ctx context.Context, token *models.AccessResetToken) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.AccessResetToken, error)
	MarkUsed(ctx context.Context, id uuid.UUID, usedAt time.Time) (bool, error)
}

type PostgresAccessResetTokenRepository struct {
	db *gorm.DB
}

func NewPostgresAccessResetTokenRepository(db *gorm.DB) *PostgresAccessResetTokenRepository {
	return &PostgresAccessResetTokenRepository{db: db}
}

func (r *PostgresAccessResetTokenRepository) Create(ctx context.Context, token *models.AccessResetToken) error {
	return r.db.WithContext(ctx).Create(token).Error
}

func (r *PostgresAccessResetTokenRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.AccessResetToken, error) {
	var token models.AccessResetToken
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&token).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &token, nil
}

// MarkUsed consumes the token once; a second call reports false.
func (r *PostgresAccessResetTokenRepository) MarkUsed(ctx context.Context, id uuid.UUID, usedAt time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.AccessResetToken{}).
		Where("id = ? AND used_at IS NULL", id).
		Update("used_at", usedAt)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
