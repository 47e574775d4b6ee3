package usecase_test

import (
	"context"
	"testing"

	"storefront/internal/config"
	"storefront/internal/domain/model"
	"storefront/internal/repository"
	"storefront/internal/usecase"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// =====================
// Mock: UserRepository
// =====================

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *MockUserRepository) FindByID(ctx context.Context, id int64) (*model.User, error) {
	args := m.Called(ctx, id)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *MockUserRepository) Update(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

// =====================
// Mock: AuthValidator
// =====================

type MockAuthValidator struct {
	mock.Mock
}

func (m *MockAuthValidator) ValidateLogin(ctx context.Context, email string, password string) error {
	args := m.Called(ctx, email, password)
	return args.Error(0)
}

func (m *MockAuthValidator) ValidateBootstrap(ctx context.Context, email string, password string) error {
	args := m.Called(ctx, email, password)
	return args.Error(0)
}

// =====================
// Helper
// =====================

const authTestSecret = "test-secret"

func mustHash(t *testing.T, plain string) string {
	t.Helper()
	b, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt failed: %v", err)
	}
	return string(b)
}

func newAuthUC(userRepo *MockUserRepository, v *MockAuthValidator) *usecase.AuthUsecase {
	// JWTSecret は Login で必須
	cfg := config.Config{JWTSecret: authTestSecret}
	return usecase.NewAuthUsecase(cfg, userRepo, v)
}

// =====================
// EnsureAdmin（起動時の管理者作成）
// =====================

func TestAuthUsecase_EnsureAdmin_CreatesWhenMissing(t *testing.T) {
	ctx := context.Background()
	userRepo := new(MockUserRepository)
	v := new(MockAuthValidator)

	v.On("ValidateBootstrap", mock.Anything, "admin@shop.test", "AdminPW123").Return(nil)
	userRepo.On("FindByEmail", mock.Anything, "admin@shop.test").Return(nil, repository.ErrUserNotFound)
	userRepo.On("Create", mock.Anything, mock.MatchedBy(func(u *model.User) bool {
		return u.Email == "admin@shop.test" &&
			u.Role == model.RoleAdmin &&
			u.IsActive &&
			bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("AdminPW123")) == nil
	})).Return(nil)

	created, err := newAuthUC(userRepo, v).EnsureAdmin(ctx, " admin@shop.test ", "AdminPW123")
	assert.NoError(t, err)
	assert.True(t, created)

	userRepo.AssertExpectations(t)
}

func TestAuthUsecase_EnsureAdmin_ExistingIsNoOp(t *testing.T) {
	ctx := context.Background()
	userRepo := new(MockUserRepository)
	v := new(MockAuthValidator)

	v.On("ValidateBootstrap", mock.Anything, "admin@shop.test", "AdminPW123").Return(nil)
	userRepo.On("FindByEmail", mock.Anything, "admin@shop.test").Return(&model.User{ID: 1, Email: "admin@shop.test"}, nil)

	created, err := newAuthUC(userRepo, v).EnsureAdmin(ctx, "admin@shop.test", "AdminPW123")
	assert.NoError(t, err)
	assert.False(t, created)

	userRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

// =====================
// Login
// =====================

func TestAuthUsecase_Login_Success(t *testing.T) {
	ctx := context.Background()
	userRepo := new(MockUserRepository)
	v := new(MockAuthValidator)

	email := "admin@shop.test"
	pass := "CorrectPW"

	v.On("ValidateLogin", mock.Anything, email, pass).Return(nil)
	userRepo.On("FindByEmail", mock.Anything, email).Return(&model.User{
		ID:           1,
		Email:        email,
		PasswordHash: mustHash(t, pass),
		Role:         model.RoleAdmin,
		TokenVersion: 3,
		IsActive:     true,
	}, nil)
	// last_login 更新は失敗しても継続なので、呼ばれてもOK
	userRepo.On("Update", mock.Anything, mock.AnythingOfType("*model.User")).Return(nil)

	res, err := newAuthUC(userRepo, v).Login(ctx, usecase.AuthLoginRequest{Email: email, Password: pass})
	require.NoError(t, err)
	assert.Equal(t, "ADMIN", res.User.Role)
	assert.Equal(t, 900, res.Token.ExpiresIn)
	assert.Equal(t, 3, res.Token.TokenVersion)

	//署名とclaimsを確認
	var claims usecase.AccessClaims
	tok, err := jwt.ParseWithClaims(res.Token.AccessToken, &claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(authTestSecret), nil
	})
	require.NoError(t, err)
	adminID, err := claims.AdminID()
	require.NoError(t, err)
	assert.Equal(t, int64(1), adminID)
	assert.Equal(t, model.RoleAdmin, claims.Role)
	assert.Equal(t, 3, claims.TokenVersion)
	require.NotNil(t, claims.ExpiresAt)
	assert.Equal(t, jwt.SigningMethodHS256.Alg(), tok.Method.Alg())

	userRepo.AssertExpectations(t)
	v.AssertExpectations(t)
}

// PW違い => 401
func TestAuthUsecase_Login_WrongPassword(t *testing.T) {
	ctx := context.Background()
	userRepo := new(MockUserRepository)
	v := new(MockAuthValidator)

	v.On("ValidateLogin", mock.Anything, "admin@shop.test", "WrongPW").Return(nil)
	userRepo.On("FindByEmail", mock.Anything, "admin@shop.test").Return(&model.User{
		ID:           1,
		PasswordHash: mustHash(t, "CorrectPW"),
		Role:         model.RoleAdmin,
		IsActive:     true,
	}, nil)

	res, err := newAuthUC(userRepo, v).Login(ctx, usecase.AuthLoginRequest{Email: "admin@shop.test", Password: "WrongPW"})
	assert.Nil(t, res)
	assert.ErrorIs(t, err, usecase.ErrUnauthorized)

	userRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestAuthUsecase_Login_ValidationError(t *testing.T) {
	ctx := context.Background()
	userRepo := new(MockUserRepository)
	v := new(MockAuthValidator)

	v.On("ValidateLogin", mock.Anything, "", "xxx").Return(usecase.ErrValidation)

	res, err := newAuthUC(userRepo, v).Login(ctx, usecase.AuthLoginRequest{Email: "", Password: "xxx"})
	assert.Nil(t, res)
	assert.ErrorIs(t, err, usecase.ErrValidation)

	userRepo.AssertNotCalled(t, "FindByEmail", mock.Anything, mock.Anything)
}

func TestAuthUsecase_Login_InactiveUser(t *testing.T) {
	ctx := context.Background()
	userRepo := new(MockUserRepository)
	v := new(MockAuthValidator)

	v.On("ValidateLogin", mock.Anything, "admin@shop.test", "CorrectPW").Return(nil)
	userRepo.On("FindByEmail", mock.Anything, "admin@shop.test").Return(&model.User{
		ID:           1,
		PasswordHash: mustHash(t, "CorrectPW"),
		Role:         model.RoleAdmin,
		IsActive:     false,
	}, nil)

	res, err := newAuthUC(userRepo, v).Login(ctx, usecase.AuthLoginRequest{Email: "admin@shop.test", Password: "CorrectPW"})
	assert.Nil(t, res)
	assert.ErrorIs(t, err, usecase.ErrForbidden)
}

// =====================
// Logout（token_versionを上げる）
// =====================

func TestAuthUsecase_Logout_IncrementsTokenVersion(t *testing.T) {
	ctx := context.Background()
	userRepo := new(MockUserRepository)
	v := new(MockAuthValidator)

	userRepo.On("FindByID", mock.Anything, int64(1)).Return(&model.User{ID: 1, TokenVersion: 4, IsActive: true}, nil)
	userRepo.On("Update", mock.Anything, mock.MatchedBy(func(u *model.User) bool {
		return u.ID == 1 && u.TokenVersion == 5
	})).Return(nil)

	err := newAuthUC(userRepo, v).Logout(ctx, 1)
	assert.NoError(t, err)
	userRepo.AssertExpectations(t)
}

func TestAuthUsecase_Logout_UnknownUser(t *testing.T) {
	ctx := context.Background()
	userRepo := new(MockUserRepository)
	v := new(MockAuthValidator)

	userRepo.On("FindByID", mock.Anything, int64(2)).Return(nil, repository.ErrUserNotFound)

	err := newAuthUC(userRepo, v).Logout(ctx, 2)
	assert.ErrorIs(t, err, usecase.ErrUnauthorized)
}

func TestAuthUsecase_Me(t *testing.T) {
	ctx := context.Background()
	userRepo := new(MockUserRepository)
	v := new(MockAuthValidator)

	userRepo.On("FindByID", mock.Anything, int64(1)).Return(&model.User{ID: 1, Email: "admin@shop.test", Role: model.RoleAdmin, IsActive: true}, nil)

	me, err := newAuthUC(userRepo, v).Me(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "admin@shop.test", me.Email)

	_, err = newAuthUC(userRepo, v).Me(ctx, 0)
	assert.ErrorIs(t, err, usecase.ErrUnauthorized)
}
