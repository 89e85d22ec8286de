package services

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/chachabrian/tutorlink-backend/internal/apperror"
	"github.com/chachabrian/tutorlink-backend/internal/database"
	"github.com/chachabrian/tutorlink-backend/internal/models"
	"github.com/chachabrian/tutorlink-backend/pkg/utils"
)

// Revoker tracks logged-out tokens.
type Revoker interface {
	Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// MemoryRevoker is a process-local Revoker.
type MemoryRevoker struct {
	mu      sync.Mutex
	revoked map[string]time.Time
	now     func() time.Time
}

func NewMemoryRevoker() *MemoryRevoker {
	return &MemoryRevoker{revoked: make(map[string]time.Time), now: time.Now}
}

func (r *MemoryRevoker) Revoke(_ context.Context, tokenID string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	for id, exp := range r.revoked {
		if !exp.After(now) {
			delete(r.revoked, id)
		}
	}
	r.revoked[tokenID] = expiresAt
	return nil
}

func (r *MemoryRevoker) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	exp, ok := r.revoked[tokenID]
	return ok && exp.After(r.now()), nil
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Phone    string
	Role     models.Role
}

type AuthResult struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

type AuthService struct {
	store   database.Store
	tokens  *utils.TokenIssuer
	revoker Revoker
	log     *zap.Logger
}

func NewAuthService(store database.Store, tokens *utils.TokenIssuer, revoker Revoker, log *zap.Logger) *AuthService {
	return &AuthService{store: store, tokens: tokens, revoker: revoker, log: log}
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if in.Name == "" {
		return nil, apperror.Validation("name", "name is required")
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return nil, apperror.Validation("email", "a valid email is required")
	}
	if len(in.Password) < 6 {
		return nil, apperror.Validation("password", "password must be at least 6 characters")
	}
	if in.Role != models.RoleStudent && in.Role != models.RoleTutor {
		return nil, apperror.Validation("role", "role must be student or tutor")
	}

	user := &models.User{
		Name:  in.Name,
		Email: in.Email,
		Phone: strings.TrimSpace(in.Phone),
		Role:  in.Role,
	}
	if err := user.SetPassword(in.Password); err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	if user.Role == models.RoleTutor {
		profile := &models.TutorProfile{UserID: user.ID, Subjects: []string{}}
		if err := s.store.SaveTutorProfile(ctx, profile); err != nil {
			return nil, fmt.Errorf("create tutor profile: %w", err)
		}
	}

	s.log.Info("User registered", zap.Uint("user_id", user.ID), zap.String("role", string(user.Role)))
	return s.issue(user)
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.store.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if apperror.Is(err, apperror.KindNotFound) {
			return nil, apperror.Unauthenticated("invalid email or password")
		}
		return nil, err
	}
	if err := user.CheckPassword(password); err != nil {
		return nil, apperror.Unauthenticated("invalid email or password")
	}
	return s.issue(user)
}

func (s *AuthService) issue(user *models.User) (*AuthResult, error) {
	token, _, err := s.tokens.GenerateToken(user.ID, user.Email, string(user.Role))
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, User: user}, nil
}

// Logout revokes the session's token until it would have expired.
func (s *AuthService) Logout(ctx context.Context, session *models.Session) error {
	if session.TokenID == "" {
		return nil
	}
	if err := s.revoker.Revoke(ctx, session.TokenID, session.ExpiresAt); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

// Authenticate turns a bearer token into a Session.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*models.Session, error) {
	claims, err := s.tokens.ValidateToken(token)
	if err != nil {
		return nil, apperror.Unauthenticated("invalid token")
	}
	role := models.Role(claims.Role)
	if role != models.RoleStudent && role != models.RoleTutor {
		return nil, apperror.Unauthenticated("invalid token claims")
	}
	if claims.TokenID != "" {
		revoked, err := s.revoker.IsRevoked(ctx, claims.TokenID)
		if err != nil {
			return nil, fmt.Errorf("check token revocation: %w", err)
		}
		if revoked {
			return nil, apperror.Unauthenticated("token has been revoked")
		}
	}
	return &models.Session{
		UserID:    claims.UserID,
		Role:      role,
		TokenID:   claims.TokenID,
		ExpiresAt: claims.ExpiresAt,
	}, nil
}
