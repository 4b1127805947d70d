package service

import (
	"testing"
	"time"

	"study_platform_backend/internal/config"
	"study_platform_backend/internal/model"
	"study_platform_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthServiceForTest(repos *testRepos) *AuthService {
	cfg := &config.Config{}
	cfg.JWT.Secret = "test-secret"
	cfg.JWT.ExpireTime = time.Hour
	return NewAuthService(repos.User, repos.Profile, cfg)
}

func TestRegisterAndLogin(t *testing.T) {
	db := newTestDB(t)
	repos := newTestRepos(db)
	svc := newAuthServiceForTest(repos)

	user := &model.User{
		Name:     "测试学生",
		Email:    "student@test.dev",
		Password: "plain-password",
		Role:     model.Student,
	}
	require.NoError(t, svc.Register(user))

	// 密码已哈希，注册即建档
	stored, err := repos.User.FindByEmail("student@test.dev")
	require.NoError(t, err)
	assert.NotEqual(t, "plain-password", stored.Password)

	profile, err := repos.Profile.FindOrCreate(user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.ID, profile.UserID)

	token, err := svc.Login("student@test.dev", "plain-password")
	require.NoError(t, err)

	claims, err := util.ParseJWT(token, "test-secret")
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, model.Student, claims.Role)
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	db := newTestDB(t)
	repos := newTestRepos(db)
	svc := newAuthServiceForTest(repos)

	first := &model.User{Name: "甲", Email: "dup@test.dev", Password: "pw", Role: model.Student}
	require.NoError(t, svc.Register(first))

	second := &model.User{Name: "乙", Email: "dup@test.dev", Password: "pw", Role: model.Student}
	assert.ErrorIs(t, svc.Register(second), util.ErrEmailRegistered)
}

func TestLoginRejectsBadCredentialsAndDisabled(t *testing.T) {
	db := newTestDB(t)
	repos := newTestRepos(db)
	svc := newAuthServiceForTest(repos)

	user := &model.User{Name: "丙", Email: "student@test.dev", Password: "pw", Role: model.Student}
	require.NoError(t, svc.Register(user))

	_, err := svc.Login("student@test.dev", "wrong")
	assert.Error(t, err)

	_, err = svc.Login("nobody@test.dev", "pw")
	assert.Error(t, err)

	require.NoError(t, db.Model(&model.User{}).Where("id = ?", user.ID).Update("disabled", true).Error)
	_, err = svc.Login("student@test.dev", "pw")
	assert.Error(t, err)
}
