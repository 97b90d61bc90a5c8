package auth

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mzemr/record-api/internal/model"
	"github.com/mzemr/record-api/internal/repository"
	apperrors "github.com/mzemr/record-api/pkg/errors"
	"github.com/mzemr/record-api/pkg/security"
)

type fakeUserRepo struct {
	users map[string]*model.User
}

func (f *fakeUserRepo) GetByLoginName(_ context.Context, loginName string) (*model.User, error) {
	user, ok := f.users[loginName]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return user, nil
}

func newAuthService(t *testing.T) *Service {
	t.Helper()
	hasher := security.NewBcryptHasher(4)
	hash, err := hasher.Hash("s3cret-pw")
	require.NoError(t, err)

	repo := &fakeUserRepo{users: map[string]*model.User{
		"doc01": {
			ID:           1,
			LoginName:    "doc01",
			DisplayName:  "王医生",
			PasswordHash: hash,
			DocCode:      "D001",
			DeptCode:     "03",
			Roles:        "Doctor, QC",
			IsActive:     true,
		},
	}}
	return NewService(repo, hasher, "test-secret", time.Hour, zerolog.Nop())
}

func TestLoginSuccess(t *testing.T) {
	svc := newAuthService(t)

	resp, err := svc.Login(context.Background(), &model.LoginRequest{LoginName: "doc01", Password: "s3cret-pw"})
	require.NoError(t, err)

	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "doc01", resp.LoginName)
	assert.Equal(t, "D001", resp.DocCode)
	assert.Equal(t, []string{"doctor", "qc"}, resp.Roles)
	assert.Greater(t, resp.ExpiresAt, time.Now().Unix())
}

func TestLoginWrongPassword(t *testing.T) {
	svc := newAuthService(t)

	_, err := svc.Login(context.Background(), &model.LoginRequest{LoginName: "doc01", Password: "wrong"})
	require.Error(t, err)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeUnauthorized, appErr.Code)
	assert.Equal(t, "用户名或密码错误", appErr.Message)
}

func TestLoginUnknownUser(t *testing.T) {
	svc := newAuthService(t)

	_, err := svc.Login(context.Background(), &model.LoginRequest{LoginName: "nobody", Password: "s3cret-pw"})
	require.Error(t, err)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	// Unknown user and bad password are indistinguishable to the caller.
	assert.Equal(t, "用户名或密码错误", appErr.Message)
}

func TestTokenRoundTrip(t *testing.T) {
	svc := newAuthService(t)

	resp, err := svc.Login(context.Background(), &model.LoginRequest{LoginName: "doc01", Password: "s3cret-pw"})
	require.NoError(t, err)

	session, err := svc.ValidateToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, "doc01", session.LoginName)
	assert.Equal(t, "D001", session.DocCode)
	assert.Equal(t, "03", session.DeptCode)
	assert.True(t, session.HasRole(model.RoleQC))
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	svc := newAuthService(t)

	_, err := svc.ValidateToken("not-a-jwt")
	require.Error(t, err)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeUnauthorized, appErr.Code)
}

func TestValidateTokenRejectsForeignSecret(t *testing.T) {
	svc := newAuthService(t)
	other := NewService(&fakeUserRepo{}, security.NewBcryptHasher(4), "other-secret", time.Hour, zerolog.Nop())

	resp, err := svc.Login(context.Background(), &model.LoginRequest{LoginName: "doc01", Password: "s3cret-pw"})
	require.NoError(t, err)

	_, err = other.ValidateToken(resp.Token)
	require.Error(t, err)
}

func TestValidatePatientAccess(t *testing.T) {
	visit := &VisitAccessContext{DeptCode: " 03 ", DocCode: "D001"}

	doctor := &model.Session{LoginName: "doc01", DocCode: "D001", DeptCode: "03", Roles: []string{model.RoleDoctor}}
	assert.NoError(t, ValidatePatientAccess(doctor, visit))

	other := &model.Session{LoginName: "doc02", DocCode: "D002", DeptCode: "03", Roles: []string{model.RoleDoctor}}
	err := ValidatePatientAccess(other, visit)
	require.Error(t, err)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeForbidden, appErr.Code)
	assert.Equal(t, "无权访问该患者", appErr.Message)

	admin := &model.Session{LoginName: "admin", Roles: []string{model.RoleAdmin}}
	assert.NoError(t, ValidatePatientAccess(admin, visit))

	qc := &model.Session{LoginName: "qc01", Roles: []string{model.RoleQC}}
	assert.NoError(t, ValidatePatientAccess(qc, visit))
}

func TestValidatePatientAccessMissingVisit(t *testing.T) {
	admin := &model.Session{LoginName: "admin", Roles: []string{model.RoleAdmin}}
	err := ValidatePatientAccess(admin, nil)
	require.Error(t, err)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeNotFound, appErr.Code)
}
