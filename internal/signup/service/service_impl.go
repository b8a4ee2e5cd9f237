package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	authdomain "github.com/smallbiznis/invoicely/internal/auth/domain"
	"github.com/smallbiznis/invoicely/internal/auth/password"
	authservice "github.com/smallbiznis/invoicely/internal/auth/service"
	"github.com/smallbiznis/invoicely/internal/clock"
	"github.com/smallbiznis/invoicely/internal/observability/metrics"
	"github.com/smallbiznis/invoicely/internal/signup/domain"
	"github.com/smallbiznis/invoicely/pkg/db/option"
	"github.com/smallbiznis/invoicely/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	accessPeriodDays  = 30
	minPasswordLength = 8
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	Clock       clock.Clock
	GenID       *snowflake.Node
	Requests    repository.Repository[domain.SignupRequest]
	Users       authdomain.Repository
	SessionRepo authdomain.SessionRepository
	Metrics     *metrics.Metrics `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	clock       clock.Clock
	genID       *snowflake.Node
	requests    repository.Repository[domain.SignupRequest]
	users       authdomain.Repository
	sessionRepo authdomain.SessionRepository
	metrics     *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("signup.service"),
		clock:       p.Clock,
		genID:       p.GenID,
		requests:    p.Requests,
		users:       p.Users,
		sessionRepo: p.SessionRepo,
		metrics:     p.Metrics,
	}
}

func (s *Service) Submit(ctx context.Context, req domain.SubmitRequest) (*domain.SignupRequest, error) {
	email, err := authservice.NormalizeEmail(req.Email)
	if err != nil {
		return nil, domain.ErrInvalidRequest
	}
	fullName := strings.TrimSpace(req.FullName)
	if fullName == "" {
		return nil, domain.ErrInvalidRequest
	}
	if len(strings.TrimSpace(req.Password)) < minPasswordLength {
		return nil, authdomain.ErrWeakPassword
	}

	if _, err := s.users.FindOne(ctx, authdomain.User{Email: email}); err == nil {
		return nil, authdomain.ErrUserExists
	} else if !errors.Is(err, authdomain.ErrUserNotFound) {
		return nil, err
	}

	pending, err := s.requests.FindOne(ctx, &domain.SignupRequest{Email: email, Status: domain.RequestPending})
	if err != nil {
		return nil, err
	}
	if pending != nil {
		return nil, domain.ErrRequestPending
	}

	hashed, err := password.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	request := &domain.SignupRequest{
		ID:           s.genID.Generate(),
		Email:        email,
		FullName:     fullName,
		CompanyName:  strings.TrimSpace(req.CompanyName),
		Phone:        strings.TrimSpace(req.Phone),
		PasswordHash: hashed,
		Status:       domain.RequestPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.requests.Create(ctx, request); err != nil {
		return nil, err
	}

	s.log.Info("signup request submitted", zap.String("request_id", request.ID.String()))
	return request, nil
}

func (s *Service) List(ctx context.Context, status string) ([]domain.SignupRequest, error) {
	var filter *domain.SignupRequest
	if status = strings.TrimSpace(status); status != "" {
		filter = &domain.SignupRequest{Status: status}
	}
	items, err := s.requests.Find(ctx, filter, option.WithSortBy(option.WithQuerySortBy("created_at", "asc", nil)))
	if err != nil {
		return nil, err
	}
	out := make([]domain.SignupRequest, 0, len(items))
	for _, item := range items {
		out = append(out, *item)
	}
	return out, nil
}

// Approve turns a pending request into an active user in one transaction.
// months == 0 grants permanent access.
func (s *Service) Approve(ctx context.Context, reviewerID snowflake.ID, requestID snowflake.ID, months int) (*authdomain.User, error) {
	if months < 0 || months > domain.MaxAccessMonths {
		return nil, domain.ErrInvalidAccessPeriod
	}

	now := s.clock.Now()
	var user *authdomain.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		requests := s.requests.WithTrx(tx)
		users := s.users.WithTrx(tx)

		request, err := s.loadPending(ctx, requests, requestID)
		if err != nil {
			return err
		}

		if _, err := users.FindOne(ctx, authdomain.User{Email: request.Email}); err == nil {
			return authdomain.ErrUserExists
		} else if !errors.Is(err, authdomain.ErrUserNotFound) {
			return err
		}

		user = &authdomain.User{
			ID:              s.genID.Generate(),
			Email:           request.Email,
			FullName:        request.FullName,
			CompanyName:     request.CompanyName,
			Phone:           request.Phone,
			PasswordHash:    request.PasswordHash,
			Role:            authdomain.RoleUser,
			Status:          authdomain.StatusActive,
			AccessExpiresAt: accessUntil(now, months),
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if err := users.Create(ctx, user); err != nil {
			return err
		}

		_, err = requests.Update(ctx, request.ID, map[string]any{
			"status":        domain.RequestApproved,
			"access_months": months,
			"reviewed_by":   reviewerID,
			"reviewed_at":   now,
			"user_id":       user.ID,
			"updated_at":    now,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordSignupDecision(ctx, domain.RequestApproved)
	s.log.Info("signup request approved",
		zap.String("request_id", requestID.String()),
		zap.String("user_id", user.ID.String()),
		zap.Int("months", months),
	)
	return user, nil
}

func (s *Service) Reject(ctx context.Context, reviewerID snowflake.ID, requestID snowflake.ID) (*domain.SignupRequest, error) {
	now := s.clock.Now()
	var request *domain.SignupRequest
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		requests := s.requests.WithTrx(tx)

		var err error
		request, err = s.loadPending(ctx, requests, requestID)
		if err != nil {
			return err
		}
		_, err = requests.Update(ctx, request.ID, map[string]any{
			"status":      domain.RequestRejected,
			"reviewed_by": reviewerID,
			"reviewed_at": now,
			"updated_at":  now,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	request.Status = domain.RequestRejected
	request.ReviewedBy = &reviewerID
	request.ReviewedAt = &now
	request.UpdatedAt = now

	s.metrics.RecordSignupDecision(ctx, domain.RequestRejected)
	s.log.Info("signup request rejected", zap.String("request_id", requestID.String()))
	return request, nil
}

// Suspend blocks login and revokes every live session of the user.
func (s *Service) Suspend(ctx context.Context, actorID snowflake.ID, userID snowflake.ID) (*authdomain.User, error) {
	user, err := s.manageable(ctx, actorID, userID)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	if err := s.users.UpdateFields(ctx, user.ID, map[string]any{
		"status":     authdomain.StatusSuspended,
		"updated_at": now,
	}); err != nil {
		return nil, err
	}
	if err := s.sessionRepo.RevokeUserSessions(ctx, user.ID, now); err != nil {
		return nil, err
	}
	user.Status = authdomain.StatusSuspended
	user.UpdatedAt = now

	s.log.Info("user suspended", zap.String("user_id", user.ID.String()), zap.String("actor_id", actorID.String()))
	return user, nil
}

func (s *Service) Reactivate(ctx context.Context, actorID snowflake.ID, userID snowflake.ID) (*authdomain.User, error) {
	user, err := s.manageable(ctx, actorID, userID)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	if err := s.users.UpdateFields(ctx, user.ID, map[string]any{
		"status":     authdomain.StatusActive,
		"updated_at": now,
	}); err != nil {
		return nil, err
	}
	user.Status = authdomain.StatusActive
	user.UpdatedAt = now
	return user, nil
}

// Extend adds months of access counted from the later of now and the current
// expiry. months == 0 makes access permanent.
func (s *Service) Extend(ctx context.Context, actorID snowflake.ID, userID snowflake.ID, months int) (*authdomain.User, error) {
	if months < 0 || months > domain.MaxAccessMonths {
		return nil, domain.ErrInvalidAccessPeriod
	}
	user, err := s.manageable(ctx, actorID, userID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	from := now
	if user.AccessExpiresAt != nil && user.AccessExpiresAt.After(now) {
		from = *user.AccessExpiresAt
	}
	expires := accessUntil(from, months)

	if err := s.users.UpdateFields(ctx, user.ID, map[string]any{
		"access_expires_at": expires,
		"updated_at":        now,
	}); err != nil {
		return nil, err
	}
	user.AccessExpiresAt = expires
	user.UpdatedAt = now
	return user, nil
}

// SetRole switches a user between user and admin. Superadmin is never granted
// through the API.
func (s *Service) SetRole(ctx context.Context, actorID snowflake.ID, userID snowflake.ID, role string) (*authdomain.User, error) {
	role = strings.ToLower(strings.TrimSpace(role))
	if role != authdomain.RoleUser && role != authdomain.RoleAdmin {
		return nil, authdomain.ErrInvalidRole
	}
	user, err := s.manageable(ctx, actorID, userID)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	if err := s.users.UpdateFields(ctx, user.ID, map[string]any{
		"role":       role,
		"updated_at": now,
	}); err != nil {
		return nil, err
	}
	user.Role = role
	user.UpdatedAt = now
	return user, nil
}

func (s *Service) loadPending(ctx context.Context, requests repository.Repository[domain.SignupRequest], id snowflake.ID) (*domain.SignupRequest, error) {
	request, err := requests.FindOne(ctx, &domain.SignupRequest{ID: id})
	if err != nil {
		return nil, err
	}
	if request == nil {
		return nil, domain.ErrRequestNotFound
	}
	if request.Status != domain.RequestPending {
		return nil, domain.ErrAlreadyReviewed
	}
	return request, nil
}

func (s *Service) manageable(ctx context.Context, actorID snowflake.ID, userID snowflake.ID) (*authdomain.User, error) {
	if actorID == userID {
		return nil, domain.ErrSelfManagement
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Role == authdomain.RoleSuperAdmin {
		return nil, domain.ErrProtectedUser
	}
	return user, nil
}

func accessUntil(from time.Time, months int) *time.Time {
	if months == 0 {
		return nil
	}
	until := from.AddDate(0, 0, months*accessPeriodDays)
	return &until
}
