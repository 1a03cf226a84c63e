package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"titleflow/backend/config"
	"titleflow/backend/internal/dto"
	"titleflow/backend/internal/model"
	"titleflow/backend/pkg/jwt"
)

func newAuthTestEnv(t *testing.T) (AuthService, *mockUserRepo, *jwt.Manager) {
	t.Helper()
	repo, _, _, _ := newTestRepo()
	users := repo.User.(*mockUserRepo)
	jwtMgr := jwt.NewManager(&config.AuthConfig{
		JWTSecret:               "unit-test-secret-0123456789",
		AccessTokenTTL:          15 * time.Minute,
		RefreshTokenTTLDefault:  24 * time.Hour,
		RefreshTokenTTLRemember: 168 * time.Hour,
	})
	svc := NewAuthService(repo, jwtMgr, nil, zap.NewNop())
	return svc, users, jwtMgr
}

func seedUser(t *testing.T, users *mockUserRepo, email, password, role string) *model.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("生成密码哈希失败: %v", err)
	}
	u := &model.User{
		Name:         "测试账号",
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
	}
	if err := users.Create(context.Background(), u); err != nil {
		t.Fatalf("创建测试账号失败: %v", err)
	}
	return u
}

func TestLogin(t *testing.T) {
	svc, users, jwtMgr := newAuthTestEnv(t)
	seedUser(t, users, "ops@titleflow.in", "secret-pass", model.RoleOps)

	resp, err := svc.Login(context.Background(), &dto.LoginRequest{
		Email:    "ops@titleflow.in",
		Password: "secret-pass",
	})
	if err != nil {
		t.Fatalf("登录失败: %v", err)
	}
	if resp.User.Role != model.RoleOps {
		t.Errorf("期望角色 ops，实际 %s", resp.User.Role)
	}

	claims, err := jwtMgr.ParseToken(resp.AccessToken)
	if err != nil {
		t.Fatalf("解析 access token 失败: %v", err)
	}
	if claims.TokenType != "access" || claims.Role != model.RoleOps {
		t.Error("access token 声明异常")
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	svc, users, _ := newAuthTestEnv(t)
	seedUser(t, users, "ops@titleflow.in", "secret-pass", model.RoleOps)

	if _, err := svc.Login(context.Background(), &dto.LoginRequest{
		Email:    "ops@titleflow.in",
		Password: "wrong",
	}); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("期望 ErrInvalidCredentials，实际 %v", err)
	}

	if _, err := svc.Login(context.Background(), &dto.LoginRequest{
		Email:    "nobody@titleflow.in",
		Password: "secret-pass",
	}); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("账号不存在也应返回 ErrInvalidCredentials，实际 %v", err)
	}
}

func TestRefresh(t *testing.T) {
	svc, users, _ := newAuthTestEnv(t)
	seedUser(t, users, "ops@titleflow.in", "secret-pass", model.RoleOps)

	login, err := svc.Login(context.Background(), &dto.LoginRequest{
		Email:    "ops@titleflow.in",
		Password: "secret-pass",
	})
	if err != nil {
		t.Fatalf("登录失败: %v", err)
	}

	refreshed, err := svc.Refresh(context.Background(), &dto.RefreshRequest{
		RefreshToken: login.RefreshToken,
	})
	if err != nil {
		t.Fatalf("刷新失败: %v", err)
	}
	if refreshed.AccessToken == "" || refreshed.RefreshToken == "" {
		t.Error("刷新应返回新的 token 对")
	}

	// access token 不能用于刷新
	if _, err := svc.Refresh(context.Background(), &dto.RefreshRequest{
		RefreshToken: login.AccessToken,
	}); !errors.Is(err, ErrInvalidRefresh) {
		t.Errorf("access token 刷新应被拒绝，实际 %v", err)
	}
}

func TestChangePassword(t *testing.T) {
	svc, users, _ := newAuthTestEnv(t)
	u := seedUser(t, users, "ops@titleflow.in", "secret-pass", model.RoleOps)

	if err := svc.ChangePassword(context.Background(), u.UserID, &dto.ChangePasswordRequest{
		OldPassword: "wrong",
		NewPassword: "new-secret-pass",
	}); !errors.Is(err, ErrWrongOldPassword) {
		t.Errorf("期望 ErrWrongOldPassword，实际 %v", err)
	}

	if err := svc.ChangePassword(context.Background(), u.UserID, &dto.ChangePasswordRequest{
		OldPassword: "secret-pass",
		NewPassword: "new-secret-pass",
	}); err != nil {
		t.Fatalf("修改密码失败: %v", err)
	}

	if _, err := svc.Login(context.Background(), &dto.LoginRequest{
		Email:    "ops@titleflow.in",
		Password: "new-secret-pass",
	}); err != nil {
		t.Errorf("新密码应可登录: %v", err)
	}
}
