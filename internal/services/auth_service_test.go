package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/chachabrian/tutorlink-backend/internal/apperror"
	"github.com/chachabrian/tutorlink-backend/internal/database"
	"github.com/chachabrian/tutorlink-backend/internal/models"
	"github.com/chachabrian/tutorlink-backend/pkg/utils"
)

func newAuthService() (*AuthService, *database.MemoryStore) {
	store := database.NewMemoryStore()
	svc := NewAuthService(store, utils.NewTokenIssuer("test-secret", time.Hour), NewMemoryRevoker(), zap.NewNop())
	return svc, store
}

func TestRegisterLoginLogout(t *testing.T) {
	ctx := context.Background()
	svc, store := newAuthService()

	res, err := svc.Register(ctx, RegisterInput{Name: "Tia", Email: "Tia@Example.com", Password: "secret1", Role: models.RoleTutor})
	require.NoError(t, err)
	assert.Equal(t, "tia@example.com", res.User.Email)
	assert.NotEmpty(t, res.Token)

	profile, err := store.GetTutorProfile(ctx, res.User.ID)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, profile.UserID)

	login, err := svc.Login(ctx, "tia@example.com", "secret1")
	require.NoError(t, err)

	session, err := svc.Authenticate(ctx, login.Token)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, session.UserID)
	assert.Equal(t, models.RoleTutor, session.Role)

	require.NoError(t, svc.Logout(ctx, session))
	_, err = svc.Authenticate(ctx, login.Token)
	assert.True(t, apperror.Is(err, apperror.KindUnauthenticated))

	// Other tokens of the same user stay valid.
	_, err = svc.Authenticate(ctx, res.Token)
	assert.NoError(t, err)
}

func TestRegisterValidation(t *testing.T) {
	ctx := context.Background()
	svc, _ := newAuthService()

	_, err := svc.Register(ctx, RegisterInput{Name: "A", Email: "not-an-email", Password: "secret1", Role: models.RoleStudent})
	assert.True(t, apperror.Is(err, apperror.KindValidation))
	_, err = svc.Register(ctx, RegisterInput{Name: "A", Email: "a@example.com", Password: "123", Role: models.RoleStudent})
	assert.True(t, apperror.Is(err, apperror.KindValidation))
	_, err = svc.Register(ctx, RegisterInput{Name: "A", Email: "a@example.com", Password: "secret1", Role: "admin"})
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	_, err = svc.Register(ctx, RegisterInput{Name: "A", Email: "a@example.com", Password: "secret1", Role: models.RoleStudent})
	require.NoError(t, err)
	_, err = svc.Register(ctx, RegisterInput{Name: "B", Email: "a@example.com", Password: "secret1", Role: models.RoleStudent})
	assert.True(t, apperror.Is(err, apperror.KindConflict))
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	ctx := context.Background()
	svc, _ := newAuthService()
	_, err := svc.Register(ctx, RegisterInput{Name: "A", Email: "a@example.com", Password: "secret1", Role: models.RoleStudent})
	require.NoError(t, err)

	_, err = svc.Login(ctx, "a@example.com", "wrong")
	assert.True(t, apperror.Is(err, apperror.KindUnauthenticated))
	_, err = svc.Login(ctx, "nobody@example.com", "secret1")
	assert.True(t, apperror.Is(err, apperror.KindUnauthenticated))

	_, err = svc.Authenticate(ctx, "garbage")
	assert.True(t, apperror.Is(err, apperror.KindUnauthenticated))
}
