package repository

import (
	"context"
	"errors"
	"time"

	"github.com/sandeepkv93/support-space-backend/internal/domain"
	"github.com/sandeepkv93/support-space-backend/internal/observability"

	"gorm.io/gorm"
)

var ErrSessionNotFound = errors.New("session not found")

type SessionRepository interface {
	Create(ctx context.Context, s *domain.Session) error
	FindIdentityByTokenHash(ctx context.Context, hash string, now time.Time) (*domain.AuthUser, error)
	ListActiveByUserID(ctx context.Context, userID uint, now time.Time) ([]domain.Session, error)
	DeleteByTokenHash(ctx context.Context, hash string) (int64, error)
	DeleteByIDForUser(ctx context.Context, userID, sessionID uint) error
	DeleteExpiredForUser(ctx context.Context, userID uint, now time.Time) (int64, error)
	CleanupExpired(ctx context.Context, now time.Time) (int64, error)
	CountActive(ctx context.Context, now time.Time) (int64, error)
}

type GormSessionRepository struct{ db *gorm.DB }

func NewSessionRepository(db *gorm.DB) SessionRepository { return &GormSessionRepository{db: db} }

func (r *GormSessionRepository) Create(ctx context.Context, s *domain.Session) error {
	err := r.db.WithContext(ctx).Create(s).Error
	if err != nil {
		observability.RecordRepositoryOperation(ctx, "session", "create", "error")
		return err
	}
	observability.RecordRepositoryOperation(ctx, "session", "create", "success")
	return nil
}

// FindIdentityByTokenHash joins the session row to its owner. Rows that are
// expired or belong to an inactive user are treated as missing.
func (r *GormSessionRepository) FindIdentityByTokenHash(ctx context.Context, hash string, now time.Time) (*domain.AuthUser, error) {
	var identity domain.AuthUser
	res := r.db.WithContext(ctx).
		Table("user_sessions AS s").
		Select("u.id AS id, u.email AS email, u.name AS name, u.is_admin AS is_admin").
		Joins("JOIN users u ON u.id = s.user_id").
		Where("s.token_hash = ? AND s.expires_at > ? AND u.is_active = ?", hash, now, true).
		Limit(1).
		Scan(&identity)
	if res.Error != nil {
		observability.RecordRepositoryOperation(ctx, "session", "find_identity_by_token_hash", "error")
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		observability.RecordRepositoryOperation(ctx, "session", "find_identity_by_token_hash", "not_found")
		return nil, ErrSessionNotFound
	}
	observability.RecordRepositoryOperation(ctx, "session", "find_identity_by_token_hash", "success")
	return &identity, nil
}

func (r *GormSessionRepository) ListActiveByUserID(ctx context.Context, userID uint, now time.Time) ([]domain.Session, error) {
	var sessions []domain.Session
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND expires_at > ?", userID, now).
		Order("created_at DESC").
		Order("id DESC").
		Find(&sessions).Error
	if err != nil {
		observability.RecordRepositoryOperation(ctx, "session", "list_active_by_user_id", "error")
		return sessions, err
	}
	observability.RecordRepositoryOperation(ctx, "session", "list_active_by_user_id", "success")
	return sessions, nil
}

func (r *GormSessionRepository) DeleteByTokenHash(ctx context.Context, hash string) (int64, error) {
	res := r.db.WithContext(ctx).Where("token_hash = ?", hash).Delete(&domain.Session{})
	if res.Error != nil {
		observability.RecordRepositoryOperation(ctx, "session", "delete_by_token_hash", "error")
		return 0, res.Error
	}
	observability.RecordRepositoryOperation(ctx, "session", "delete_by_token_hash", "success")
	return res.RowsAffected, nil
}

func (r *GormSessionRepository) DeleteByIDForUser(ctx context.Context, userID, sessionID uint) error {
	res := r.db.WithContext(ctx).Where("user_id = ? AND id = ?", userID, sessionID).Delete(&domain.Session{})
	if res.Error != nil {
		observability.RecordRepositoryOperation(ctx, "session", "delete_by_id_for_user", "error")
		return res.Error
	}
	if res.RowsAffected == 0 {
		observability.RecordRepositoryOperation(ctx, "session", "delete_by_id_for_user", "not_found")
		return ErrSessionNotFound
	}
	observability.RecordRepositoryOperation(ctx, "session", "delete_by_id_for_user", "success")
	return nil
}

func (r *GormSessionRepository) DeleteExpiredForUser(ctx context.Context, userID uint, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("user_id = ? AND expires_at < ?", userID, now).Delete(&domain.Session{})
	if res.Error != nil {
		observability.RecordRepositoryOperation(ctx, "session", "delete_expired_for_user", "error")
		return 0, res.Error
	}
	observability.RecordRepositoryOperation(ctx, "session", "delete_expired_for_user", "success")
	return res.RowsAffected, nil
}

func (r *GormSessionRepository) CleanupExpired(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("expires_at < ?", now).Delete(&domain.Session{})
	if res.Error != nil {
		observability.RecordRepositoryOperation(ctx, "session", "cleanup_expired", "error")
		return res.RowsAffected, res.Error
	}
	observability.RecordRepositoryOperation(ctx, "session", "cleanup_expired", "success")
	return res.RowsAffected, nil
}

func (r *GormSessionRepository) CountActive(ctx context.Context, now time.Time) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&domain.Session{}).Where("expires_at > ?", now).Count(&n).Error; err != nil {
		observability.RecordRepositoryOperation(ctx, "session", "count_active", "error")
		return 0, err
	}
	observability.RecordRepositoryOperation(ctx, "session", "count_active", "success")
	return n, nil
}
