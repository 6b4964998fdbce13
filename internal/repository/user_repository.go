package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sandeepkv93/support-space-backend/internal/domain"
	"github.com/sandeepkv93/support-space-backend/internal/observability"

	"gorm.io/gorm"
)

var ErrUserNotFound = errors.New("user not found")

type UserListQuery struct {
	PageRequest
	SortBy    string
	SortOrder string
	Email     string
	IsActive  *bool
	IsAdmin   *bool
}

// UserAccess carries the account flags an admin may change. Nil fields are
// left untouched.
type UserAccess struct {
	IsActive *bool
	IsAdmin  *bool
}

type UserRepository interface {
	FindByID(ctx context.Context, id uint) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindActiveByEmail(ctx context.Context, email string) (*domain.User, error)
	Create(ctx context.Context, user *domain.User) error
	UpdateLastLogin(ctx context.Context, id uint, at time.Time) error
	UpdateAccess(ctx context.Context, id uint, access UserAccess) error
	ListPaged(ctx context.Context, query UserListQuery) (PageResult[domain.User], error)
	Count(ctx context.Context) (int64, error)
}

type GormUserRepository struct{ db *gorm.DB }

func NewUserRepository(db *gorm.DB) UserRepository { return &GormUserRepository{db: db} }

func (r *GormUserRepository) FindByID(ctx context.Context, id uint) (*domain.User, error) {
	return r.first(ctx, "find_by_id", r.db.WithContext(ctx).Where("id = ?", id))
}

func (r *GormUserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.first(ctx, "find_by_email", r.db.WithContext(ctx).Where("email = ?", email))
}

func (r *GormUserRepository) FindActiveByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.first(ctx, "find_active_by_email", r.db.WithContext(ctx).Where("email = ? AND is_active = ?", email, true))
}

func (r *GormUserRepository) first(ctx context.Context, op string, q *gorm.DB) (*domain.User, error) {
	var u domain.User
	err := q.First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.RecordRepositoryOperation(ctx, "user", op, "not_found")
			return nil, ErrUserNotFound
		}
		observability.RecordRepositoryOperation(ctx, "user", op, "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(ctx, "user", op, "success")
	return &u, nil
}

func (r *GormUserRepository) Create(ctx context.Context, user *domain.User) error {
	err := r.db.WithContext(ctx).Create(user).Error
	if err != nil {
		if isUniqueViolation(err) {
			observability.RecordRepositoryOperation(ctx, "user", "create", "conflict")
			return ErrDuplicateEmail
		}
		observability.RecordRepositoryOperation(ctx, "user", "create", "error")
		return err
	}
	observability.RecordRepositoryOperation(ctx, "user", "create", "success")
	return nil
}

func (r *GormUserRepository) UpdateLastLogin(ctx context.Context, id uint, at time.Time) error {
	return r.update(ctx, "update_last_login", id, map[string]any{"last_login_at": at, "updated_at": at})
}

// UpdateAccess writes both flags in a single UPDATE.
func (r *GormUserRepository) UpdateAccess(ctx context.Context, id uint, access UserAccess) error {
	updates := map[string]any{"updated_at": time.Now().UTC()}
	if access.IsActive != nil {
		updates["is_active"] = *access.IsActive
	}
	if access.IsAdmin != nil {
		updates["is_admin"] = *access.IsAdmin
	}
	return r.update(ctx, "update_access", id, updates)
}

func (r *GormUserRepository) update(ctx context.Context, op string, id uint, updates map[string]any) error {
	res := r.db.WithContext(ctx).Model(&domain.User{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		observability.RecordRepositoryOperation(ctx, "user", op, "error")
		return res.Error
	}
	if res.RowsAffected == 0 {
		observability.RecordRepositoryOperation(ctx, "user", op, "not_found")
		return ErrUserNotFound
	}
	observability.RecordRepositoryOperation(ctx, "user", op, "success")
	return nil
}

func (r *GormUserRepository) ListPaged(ctx context.Context, query UserListQuery) (PageResult[domain.User], error) {
	req := normalizePageRequest(query.PageRequest)
	result := PageResult[domain.User]{
		Page:     req.Page,
		PageSize: req.PageSize,
	}

	base := r.db.WithContext(ctx).Model(&domain.User{})
	if query.Email != "" {
		base = base.Where(`users.email LIKE ? ESCAPE '\'`, likePrefix(query.Email))
	}
	if query.IsActive != nil {
		base = base.Where("users.is_active = ?", *query.IsActive)
	}
	if query.IsAdmin != nil {
		base = base.Where("users.is_admin = ?", *query.IsAdmin)
	}

	if err := base.Session(&gorm.Session{}).Count(&result.Total).Error; err != nil {
		observability.RecordRepositoryOperation(ctx, "user", "list_paged", "error")
		return PageResult[domain.User]{}, err
	}

	sortOrder := normalizeSortOrder(query.SortOrder)
	listQuery := base.Session(&gorm.Session{})
	if col, ok := userSortColumns[query.SortBy]; ok {
		listQuery = listQuery.Order("users." + col + " " + sortOrder)
	}
	listQuery = listQuery.Order("users.id " + sortOrder)

	offset := (req.Page - 1) * req.PageSize
	if err := listQuery.Offset(offset).Limit(req.PageSize).Find(&result.Items).Error; err != nil {
		observability.RecordRepositoryOperation(ctx, "user", "list_paged", "error")
		return PageResult[domain.User]{}, err
	}
	result.TotalPages = calcTotalPages(result.Total, req.PageSize)
	observability.RecordRepositoryOperation(ctx, "user", "list_paged", "success")
	return result, nil
}

func (r *GormUserRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&domain.User{}).Count(&n).Error; err != nil {
		observability.RecordRepositoryOperation(ctx, "user", "count", "error")
		return 0, err
	}
	observability.RecordRepositoryOperation(ctx, "user", "count", "success")
	return n, nil
}

var userSortColumns = map[string]string{
	"email":         "email",
	"name":          "name",
	"created_at":    "created_at",
	"last_login_at": "last_login_at",
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// likePrefix matches s literally at the start of a LIKE pattern.
func likePrefix(s string) string {
	return likeEscaper.Replace(s) + "%"
}

func normalizeSortOrder(order string) string {
	if order == "desc" || order == "DESC" {
		return "DESC"
	}
	return "ASC"
}
