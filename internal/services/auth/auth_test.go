package auth_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/accelerator-platform/internal/lib/jwt"
	"github.com/magabrotheeeer/accelerator-platform/internal/lib/password"
	"github.com/magabrotheeeer/accelerator-platform/internal/models"
	"github.com/magabrotheeeer/accelerator-platform/internal/rbac"
	"github.com/magabrotheeeer/accelerator-platform/internal/services/auth"
)

const strongPassword = "Secret1"

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// memStore — хранилище пользователей и токенов в памяти.
type memStore struct {
	mu     sync.Mutex
	users  map[string]*models.User
	tokens map[string]*models.OneTimeToken
}

func newMemStore() *memStore {
	return &memStore{users: map[string]*models.User{}, tokens: map[string]*models.OneTimeToken{}}
}

func (m *memStore) saveToken(token models.OneTimeToken) {
	for _, t := range m.tokens {
		if t.UserID == token.UserID && t.Purpose == token.Purpose {
			t.IsUsed = true
		}
	}
	m.tokens[token.TokenHash] = &token
}

func (m *memStore) CreateUserWithToken(_ context.Context, user models.User, token models.OneTimeToken) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[user.Email]; ok {
		return nil, models.ErrDuplicateUser
	}
	user.ID = uuid.New()
	m.users[user.Email] = &user
	token.UserID = user.ID
	m.saveToken(token)
	u := user
	return &u, nil
}

func (m *memStore) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[email]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memStore) GetUserByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.ID == id {
			cp := *u
			return &cp, nil
		}
	}
	return nil, models.ErrNotFound
}

func (m *memStore) SaveToken(_ context.Context, token models.OneTimeToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveToken(token)
	return nil
}

func (m *memStore) consume(purpose models.TokenPurpose, hash string, now time.Time) (*models.User, error) {
	t, ok := m.tokens[hash]
	if !ok || t.Purpose != purpose || !t.Usable(now) {
		return nil, models.ErrInvalidOrExpiredToken
	}
	for _, u := range m.users {
		if u.ID == t.UserID {
			t.IsUsed = true
			return u, nil
		}
	}
	return nil, models.ErrInvalidOrExpiredToken
}

func (m *memStore) ConsumeVerification(_ context.Context, hash string, now time.Time) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.tokens[hash]; ok && t.Usable(now) {
		for _, u := range m.users {
			if u.ID == t.UserID && u.IsVerified {
				return nil, models.ErrAlreadyVerified
			}
		}
	}
	u, err := m.consume(models.PurposeVerification, hash, now)
	if err != nil {
		return nil, err
	}
	u.Disabled, u.IsVerified = false, true
	cp := *u
	return &cp, nil
}

func (m *memStore) ConsumeReset(_ context.Context, hash string, now time.Time, passwordHash string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, err := m.consume(models.PurposePasswordReset, hash, now)
	if err != nil {
		return nil, err
	}
	u.PasswordHash = passwordHash
	cp := *u
	return &cp, nil
}

func (m *memStore) put(t *testing.T, hasher *password.Hasher, email string, role models.Role, disabled, verified bool) {
	t.Helper()
	hashed, err := hasher.Hash(strongPassword)
	require.NoError(t, err)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[email] = &models.User{
		ID: uuid.New(), Email: email, PasswordHash: hashed, Role: role, Disabled: disabled, IsVerified: verified,
	}
}

type memRevoker struct {
	mu      sync.Mutex
	revoked map[string]bool
}

func (r *memRevoker) RevokeOnce(_ context.Context, jti string, _ time.Duration) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.revoked[jti] {
		return false, nil
	}
	r.revoked[jti] = true
	return true, nil
}

// MockNotifier записывает токены из писем.
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) SendVerification(ctx context.Context, to, token string) bool {
	return m.Called(ctx, to, token).Bool(0)
}

func (m *MockNotifier) SendPasswordReset(ctx context.Context, to, token string) bool {
	return m.Called(ctx, to, token).Bool(0)
}

// lastToken возвращает токен из последнего вызова метода.
func (m *MockNotifier) lastToken(method string) string {
	for i := len(m.Calls) - 1; i >= 0; i-- {
		if m.Calls[i].Method == method {
			return m.Calls[i].Arguments.String(2)
		}
	}
	return ""
}

type env struct {
	svc      *auth.Service
	store    *memStore
	hasher   *password.Hasher
	maker    *jwt.MakerImpl
	notifier *MockNotifier
	clock    *clock
}

func newEnv(t *testing.T) *env {
	t.Helper()
	c := &clock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	maker, err := jwt.NewJWTMaker("HS256", map[jwt.Kind]jwt.KeyConfig{
		jwt.KindAccess:       {Secret: "access-secret", TTL: 30 * time.Minute},
		jwt.KindRefresh:      {Secret: "refresh-secret", TTL: 720 * time.Hour},
		jwt.KindVerification: {Secret: "verification-secret", TTL: 24 * time.Hour},
		jwt.KindReset:        {Secret: "reset-secret", TTL: time.Hour},
	}, jwt.WithClock(c.Now))
	require.NoError(t, err)

	notifier := new(MockNotifier)
	notifier.On("SendVerification", mock.Anything, mock.Anything, mock.Anything).Return(true)
	notifier.On("SendPasswordReset", mock.Anything, mock.Anything, mock.Anything).Return(true)

	store := newMemStore()
	hasher := password.NewHasher(4)
	svc := auth.NewService(store, maker, hasher, &memRevoker{revoked: map[string]bool{}},
		notifier, rbac.DefaultPolicy(), newNoopLogger(), auth.WithClock(c.Now))
	return &env{svc: svc, store: store, hasher: hasher, maker: maker, notifier: notifier, clock: c}
}

func TestService_Register(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		password string
		role     models.Role
		wantErr  error
	}{
		{name: "student", email: " Student@Example.COM ", password: strongPassword, role: models.RoleStudent},
		{name: "teacher", email: "t@example.com", password: strongPassword, role: models.RoleTeacher},
		{name: "admin not allowed", email: "a@example.com", password: strongPassword, role: models.RoleAdmin, wantErr: models.ErrRoleNotAllowed},
		{name: "superadmin not allowed", email: "s@example.com", password: strongPassword, role: models.RoleSuperAdmin, wantErr: models.ErrRoleNotAllowed},
		{name: "weak password", email: "w@example.com", password: "secret", role: models.RoleStudent, wantErr: models.ErrValidation},
		{name: "password over 72 bytes", email: "l@example.com", password: strongPassword + strings.Repeat("a", 73), role: models.RoleStudent, wantErr: models.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t)
			user, err := e.svc.Register(context.Background(), tt.email, tt.password, tt.role)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				e.notifier.AssertNotCalled(t, "SendVerification", mock.Anything, mock.Anything, mock.Anything)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, models.NormalizeEmail(tt.email), user.Email)
			assert.True(t, user.Disabled)
			assert.False(t, user.IsVerified)
			assert.NotEqual(t, tt.password, user.PasswordHash)

			token := e.notifier.lastToken("SendVerification")
			require.NotEmpty(t, token)
			_, err = e.maker.Validate(token, jwt.KindVerification)
			assert.NoError(t, err)
		})
	}
}

func TestService_RegisterDuplicate(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	_, err := e.svc.Register(ctx, "dup@example.com", strongPassword, models.RoleStudent)
	require.NoError(t, err)
	_, err = e.svc.Register(ctx, "DUP@example.com", strongPassword, models.RoleTeacher)
	require.ErrorIs(t, err, models.ErrDuplicateUser)
}

func TestService_Lifecycle(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.svc.Register(ctx, "life@example.com", strongPassword, models.RoleStudent)
	require.NoError(t, err)

	_, err = e.svc.Login(ctx, "life@example.com", strongPassword)
	require.ErrorIs(t, err, models.ErrAccountNotVerified)

	token := e.notifier.lastToken("SendVerification")
	user, err := e.svc.VerifyEmail(ctx, token)
	require.NoError(t, err)
	assert.True(t, user.IsVerified)
	assert.False(t, user.Disabled)

	_, err = e.svc.VerifyEmail(ctx, token)
	require.ErrorIs(t, err, models.ErrInvalidOrExpiredToken)

	pair, err := e.svc.Login(ctx, "LIFE@example.com", strongPassword)
	require.NoError(t, err)
	assert.Equal(t, auth.TokenType, pair.TokenType)

	_, err = e.maker.Validate(pair.AccessToken, jwt.KindRefresh)
	assert.ErrorIs(t, err, jwt.ErrInvalidToken, "access token must not pass as refresh")
	_, err = e.svc.Refresh(ctx, pair.AccessToken)
	require.ErrorIs(t, err, models.ErrUnauthorized)

	rotated, err := e.svc.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, pair.RefreshToken, rotated.RefreshToken)

	_, err = e.svc.Refresh(ctx, pair.RefreshToken)
	require.ErrorIs(t, err, models.ErrUnauthorized, "refresh token is single use")

	_, err = e.svc.Refresh(ctx, rotated.RefreshToken)
	require.NoError(t, err)
}

func TestService_Login(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		password string
		admin    bool
		wantErr  error
	}{
		{name: "student ok", email: "student@example.com", password: strongPassword},
		{name: "wrong password", email: "student@example.com", password: "Wrong1", wantErr: models.ErrInvalidCredentials},
		{name: "unknown email", email: "ghost@example.com", password: strongPassword, wantErr: models.ErrInvalidCredentials},
		{name: "suspended", email: "suspended@example.com", password: strongPassword, wantErr: models.ErrAccountDisabled},
		{name: "admin on user login", email: "admin@example.com", password: strongPassword, wantErr: models.ErrForbidden},
		{name: "admin on admin login", email: "admin@example.com", password: strongPassword, admin: true},
		{name: "superadmin on admin login", email: "root@example.com", password: strongPassword, admin: true},
		{name: "teacher on admin login", email: "teacher@example.com", password: strongPassword, admin: true, wantErr: models.ErrForbidden},
	}

	e := newEnv(t)
	e.store.put(t, e.hasher, "student@example.com", models.RoleStudent, false, true)
	e.store.put(t, e.hasher, "teacher@example.com", models.RoleTeacher, false, true)
	e.store.put(t, e.hasher, "suspended@example.com", models.RoleStudent, true, true)
	e.store.put(t, e.hasher, "admin@example.com", models.RoleAdmin, false, true)
	e.store.put(t, e.hasher, "root@example.com", models.RoleSuperAdmin, false, true)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			login := e.svc.Login
			if tt.admin {
				login = e.svc.AdminLogin
			}
			pair, err := login(context.Background(), tt.email, tt.password)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, pair)
				return
			}
			require.NoError(t, err)
			claims, err := e.maker.Validate(pair.AccessToken, jwt.KindAccess)
			require.NoError(t, err)
			assert.Equal(t, tt.email, claims.Subject)
		})
	}
}

func TestService_LoginRequiresVerificationAfterEnable(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.svc.Register(ctx, "enabled@example.com", strongPassword, models.RoleStudent)
	require.NoError(t, err)

	e.store.mu.Lock()
	e.store.users["enabled@example.com"].Disabled = false
	e.store.mu.Unlock()

	pair, err := e.svc.Login(ctx, "enabled@example.com", strongPassword)
	require.ErrorIs(t, err, models.ErrAccountNotVerified)
	assert.Nil(t, pair)

	_, err = e.svc.VerifyEmail(ctx, e.notifier.lastToken("SendVerification"))
	require.NoError(t, err)
	_, err = e.svc.Login(ctx, "enabled@example.com", strongPassword)
	require.NoError(t, err)
}

func TestService_RefreshRejectsChangedAccount(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.store.put(t, e.hasher, "r@example.com", models.RoleStudent, false, true)

	pair, err := e.svc.Login(ctx, "r@example.com", strongPassword)
	require.NoError(t, err)

	e.store.users["r@example.com"].Role = models.RoleTeacher
	_, err = e.svc.Refresh(ctx, pair.RefreshToken)
	require.ErrorIs(t, err, models.ErrUnauthorized)

	e.store.users["r@example.com"].Role = models.RoleStudent
	e.store.users["r@example.com"].Disabled = true
	_, err = e.svc.Refresh(ctx, pair.RefreshToken)
	require.ErrorIs(t, err, models.ErrAccountDisabled)

	e.store.users["r@example.com"].Disabled = false
	e.clock.Advance(721 * time.Hour)
	_, err = e.svc.Refresh(ctx, pair.RefreshToken)
	require.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestService_VerifyEmail(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.svc.Register(ctx, "v@example.com", strongPassword, models.RoleTeacher)
	require.NoError(t, err)
	first := e.notifier.lastToken("SendVerification")

	t.Run("wrong kind", func(t *testing.T) {
		reset, err := e.maker.Issue(jwt.KindReset, "v@example.com", "teacher", 0)
		require.NoError(t, err)
		_, err = e.svc.VerifyEmail(ctx, reset)
		require.ErrorIs(t, err, models.ErrInvalidOrExpiredToken)
	})

	t.Run("resend invalidates previous", func(t *testing.T) {
		require.NoError(t, e.svc.ResendVerification(ctx, "V@example.com"))
		second := e.notifier.lastToken("SendVerification")
		require.NotEqual(t, first, second)

		_, err := e.svc.VerifyEmail(ctx, first)
		require.ErrorIs(t, err, models.ErrInvalidOrExpiredToken)

		_, err = e.svc.VerifyEmail(ctx, second)
		require.NoError(t, err)
	})

	t.Run("resend is silent for verified and unknown", func(t *testing.T) {
		calls := len(e.notifier.Calls)
		require.NoError(t, e.svc.ResendVerification(ctx, "v@example.com"))
		require.NoError(t, e.svc.ResendVerification(ctx, "nobody@example.com"))
		assert.Len(t, e.notifier.Calls, calls)
	})

	t.Run("expired", func(t *testing.T) {
		_, err := e.svc.Register(ctx, "late@example.com", strongPassword, models.RoleStudent)
		require.NoError(t, err)
		token := e.notifier.lastToken("SendVerification")
		e.clock.Advance(25 * time.Hour)
		_, err = e.svc.VerifyEmail(ctx, token)
		require.ErrorIs(t, err, models.ErrInvalidOrExpiredToken)
	})
}

func TestService_PasswordReset(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.store.put(t, e.hasher, "reset@example.com", models.RoleStudent, false, true)

	require.NoError(t, e.svc.RequestPasswordReset(ctx, "ghost@example.com"))
	e.notifier.AssertNotCalled(t, "SendPasswordReset", mock.Anything, mock.Anything, mock.Anything)

	require.NoError(t, e.svc.RequestPasswordReset(ctx, "Reset@Example.com"))
	token := e.notifier.lastToken("SendPasswordReset")
	require.NotEmpty(t, token)

	_, err := e.svc.ResetPassword(ctx, token, "weak")
	require.ErrorIs(t, err, models.ErrValidation)
	_, err = e.svc.ResetPassword(ctx, token, strongPassword+strings.Repeat("a", 73))
	require.ErrorIs(t, err, models.ErrValidation)

	_, err = e.svc.ResetPassword(ctx, token, "NewSecret2")
	require.NoError(t, err)

	_, err = e.svc.ResetPassword(ctx, token, "Another3")
	require.ErrorIs(t, err, models.ErrInvalidOrExpiredToken)

	_, err = e.svc.Login(ctx, "reset@example.com", strongPassword)
	require.ErrorIs(t, err, models.ErrInvalidCredentials)
	_, err = e.svc.Login(ctx, "reset@example.com", "NewSecret2")
	require.NoError(t, err)
}

func TestService_Me(t *testing.T) {
	e := newEnv(t)
	e.store.put(t, e.hasher, "me@example.com", models.RoleTeacher, false, true)
	id := e.store.users["me@example.com"].ID

	user, err := e.svc.Me(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "me@example.com", user.Email)

	_, err = e.svc.Me(context.Background(), uuid.New())
	require.True(t, errors.Is(err, models.ErrNotFound))
}
