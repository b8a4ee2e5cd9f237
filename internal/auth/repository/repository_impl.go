package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/invoicely/internal/auth/domain"
	"github.com/smallbiznis/invoicely/pkg/db/option"
	"github.com/smallbiznis/invoicely/pkg/repository"
	"gorm.io/gorm"
)

var userSortColumns = map[string]bool{"created_at": true, "email": true}

type userRepo struct {
	users repository.Repository[domain.User]
}

type sessionRepo struct {
	sessions repository.Repository[domain.Session]
}

func New(db *gorm.DB) (domain.Repository, domain.SessionRepository) {
	return &userRepo{users: repository.ProvideStore[domain.User](db)},
		&sessionRepo{sessions: repository.ProvideStore[domain.Session](db)}
}

func (r *userRepo) WithTrx(tx *gorm.DB) domain.Repository {
	if tx == nil {
		return r
	}
	return &userRepo{users: r.users.WithTrx(tx)}
}

func (r *userRepo) Count(ctx context.Context) (int64, error) {
	return r.users.Count(ctx, nil)
}

func (r *userRepo) Create(ctx context.Context, user *domain.User) error {
	return r.users.Create(ctx, user)
}

func (r *userRepo) FindOne(ctx context.Context, query domain.User) (*domain.User, error) {
	return found(r.users.FindOne(ctx, &query))
}

func (r *userRepo) FindByID(ctx context.Context, id snowflake.ID) (*domain.User, error) {
	return found(r.users.FindOne(ctx, &domain.User{ID: id}))
}

// List returns users newest first, optionally narrowed by status and role.
func (r *userRepo) List(ctx context.Context, filter domain.UserFilter) ([]domain.User, error) {
	rows, err := r.users.Find(ctx, &domain.User{Status: filter.Status, Role: filter.Role},
		option.WithSortBy(option.WithQuerySortBy("created_at", "desc", userSortColumns)))
	if err != nil {
		return nil, err
	}
	users := make([]domain.User, 0, len(rows))
	for _, u := range rows {
		users = append(users, *u)
	}
	return users, nil
}

func (r *userRepo) UpdateFields(ctx context.Context, id snowflake.ID, fields map[string]any) error {
	n, err := r.users.Update(ctx, id, fields)
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func found(user *domain.User, err error) (*domain.User, error) {
	switch {
	case err != nil:
		return nil, err
	case user == nil:
		return nil, domain.ErrUserNotFound
	default:
		return user, nil
	}
}

func (r *sessionRepo) CreateSession(ctx context.Context, session *domain.Session) error {
	return r.sessions.Create(ctx, session)
}

func (r *sessionRepo) GetSessionByTokenHash(ctx context.Context, tokenHash string) (*domain.Session, error) {
	session, err := r.sessions.FindOne(ctx, &domain.Session{SessionTokenHash: tokenHash})
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

func (r *sessionRepo) UpdateLastSeen(ctx context.Context, sessionID snowflake.ID, lastSeen time.Time) error {
	return r.touch(ctx, sessionID, "last_seen_at", lastSeen)
}

func (r *sessionRepo) RevokeSession(ctx context.Context, sessionID snowflake.ID, revokedAt time.Time) error {
	return r.touch(ctx, sessionID, "revoked_at", revokedAt)
}

// RevokeUserSessions ends every live session of a user, e.g. on suspension.
func (r *sessionRepo) RevokeUserSessions(ctx context.Context, userID snowflake.ID, revokedAt time.Time) error {
	_, err := r.sessions.UpdateWhere(ctx, map[string]any{"revoked_at": revokedAt},
		option.ApplyOperator(option.Condition{Field: "user_id", Value: userID}),
		option.IsNull("revoked_at"),
	)
	return err
}

func (r *sessionRepo) touch(ctx context.Context, sessionID snowflake.ID, column string, at time.Time) error {
	n, err := r.sessions.Update(ctx, sessionID, map[string]any{column: at})
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}
