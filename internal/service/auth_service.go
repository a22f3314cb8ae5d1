package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ullaszensar/mealtrackpro/internal/auth"
	"github.com/ullaszensar/mealtrackpro/internal/config"
	"github.com/ullaszensar/mealtrackpro/internal/domain"
	"github.com/ullaszensar/mealtrackpro/internal/events"
	"github.com/ullaszensar/mealtrackpro/internal/repository"
	apperrors "github.com/ullaszensar/mealtrackpro/pkg/util/errorutil"
)

// DemoPassword is the credential given to seeded demo accounts.
const DemoPassword = "password"

// AuthService coordinates login, logout and account provisioning.
type AuthService struct {
	users      repository.UserRepository
	tokenMgr   *auth.TokenManager
	revoked    auth.RevocationStore
	dispatcher events.Dispatcher
	logger     *zap.Logger
	bcryptCost int
	now        func() time.Time
}

// AuthDependencies encapsulates collaborators for the auth service.
type AuthDependencies struct {
	UserRepo    repository.UserRepository
	Revocations auth.RevocationStore
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
}

// LoginResult is returned by a successful login.
type LoginResult struct {
	User      *domain.User
	Token     string
	ExpiresAt time.Time
}

// ProvisionInput describes a new account.
type ProvisionInput struct {
	Username    string
	Password    string
	DisplayName string
	Role        string
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, deps AuthDependencies) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		users:      deps.UserRepo,
		tokenMgr:   auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTLMinutes),
		revoked:    deps.Revocations,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		bcryptCost: cfg.BcryptCost,
		now:        time.Now,
	}
}

// Login verifies credentials and issues an access token.
func (s *AuthService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, apperrors.NewValidationError("username and password are required", nil)
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, apperrors.MapError(err)
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, apperrors.NewUnauthorized("invalid credentials")
	}

	token, meta, err := s.tokenMgr.GenerateToken(user)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &LoginResult{User: user, Token: token, ExpiresAt: meta.ExpiresAt}, nil
}

// Logout revokes the presented token until it would have expired.
func (s *AuthService) Logout(ctx context.Context, token domain.Token) error {
	if s.revoked == nil {
		return nil
	}
	ttl := token.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	if err := s.revoked.Revoke(ctx, token.ID, ttl); err != nil {
		s.logger.Warn("token revocation failed", zap.String("token_id", token.ID), zap.Error(err))
	}
	return nil
}

// Me returns the current account.
func (s *AuthService) Me(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, mapRepoError(err, "user", map[string]any{"id": userID})
	}
	return user, nil
}

// ProvisionUser creates an account. Only administrators may call it.
func (s *AuthService) ProvisionUser(ctx context.Context, actor *domain.User, input ProvisionInput) (*domain.User, error) {
	if actor == nil || !actor.IsAdmin() {
		return nil, apperrors.NewForbidden("only administrators can create users")
	}
	user, err := s.createUser(ctx, input)
	if err != nil {
		return nil, err
	}
	if s.dispatcher != nil {
		event := events.Event{
			ID:        uuid.NewString(),
			Type:      events.EventUserProvisioned,
			Actor:     events.Actor{UserID: actor.ID, Role: actor.Role},
			Timestamp: s.now().UTC(),
			Payload:   events.UserProvisionedPayload{Username: user.Username, Role: user.Role},
		}
		if err := s.dispatcher.Publish(ctx, event); err != nil {
			s.logger.Warn("event handlers failed",
				zap.String("event_type", string(event.Type)),
				zap.String("event_id", event.ID),
				zap.Error(err),
			)
		}
	}
	return user, nil
}

// ListUsers returns every account sorted by username.
func (s *AuthService) ListUsers(ctx context.Context) ([]domain.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	sortUsers(users)
	return users, nil
}

// SeedDemoUsers creates the admin and staff demo accounts when absent.
func (s *AuthService) SeedDemoUsers(ctx context.Context) error {
	seeds := []ProvisionInput{
		{Username: "admin", Password: DemoPassword, DisplayName: "Admin User", Role: string(domain.RoleAdmin)},
		{Username: "staff", Password: DemoPassword, DisplayName: "Staff User", Role: string(domain.RoleStaff)},
	}
	for _, seed := range seeds {
		if _, err := s.users.GetByUsername(ctx, seed.Username); err == nil {
			continue
		} else if !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		user, err := s.createUser(ctx, seed)
		if err != nil {
			return err
		}
		s.logger.Info("seeded demo user", zap.String("username", user.Username), zap.String("role", string(user.Role)))
	}
	return nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

func (s *AuthService) createUser(ctx context.Context, input ProvisionInput) (*domain.User, error) {
	username := strings.TrimSpace(input.Username)
	displayName := strings.TrimSpace(input.DisplayName)
	missing := []string{}
	if username == "" {
		missing = append(missing, "username")
	}
	if input.Password == "" {
		missing = append(missing, "password")
	}
	if displayName == "" {
		missing = append(missing, "displayName")
	}
	if len(missing) > 0 {
		return nil, apperrors.NewValidationError("missing required fields", map[string]any{"fields": missing})
	}

	role, err := domain.ParseRole(input.Role)
	if err != nil {
		return nil, apperrors.NewValidationError("invalid role", map[string]any{"role": input.Role})
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	user := &domain.User{
		Username:     username,
		PasswordHash: hash,
		DisplayName:  displayName,
		Role:         role,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.NewConflict("username already exists", map[string]any{"username": username})
		}
		return nil, apperrors.MapError(err)
	}
	return user, nil
}

func sortUsers(users []domain.User) {
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
}
