package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/mzemr/record-api/internal/model"
	"github.com/mzemr/record-api/internal/repository"
	apperrors "github.com/mzemr/record-api/pkg/errors"
	"github.com/mzemr/record-api/pkg/security"
)

// Service authenticates local operator accounts and enforces visit
// access. Tokens are stateless JWTs; roles ride inside the claims.
type Service struct {
	users  repository.UserRepository
	hasher security.PasswordHasher
	secret []byte
	expiry time.Duration
	logger zerolog.Logger
}

func NewService(users repository.UserRepository, hasher security.PasswordHasher, secret string, expiry time.Duration, logger zerolog.Logger) *Service {
	return &Service{
		users:  users,
		hasher: hasher,
		secret: []byte(secret),
		expiry: expiry,
		logger: logger.With().Str("component", "auth").Logger(),
	}
}

type sessionClaims struct {
	DocCode  string   `json:"doc_code"`
	DeptCode string   `json:"dept_code"`
	Roles    []string `json:"roles"`
	jwt.RegisteredClaims
}

func (s *Service) Login(ctx context.Context, req *model.LoginRequest) (*model.LoginResponse, error) {
	user, err := s.users.GetByLoginName(ctx, strings.TrimSpace(req.LoginName))
	if err != nil {
		if err == repository.ErrNotFound {
			return nil, apperrors.Unauthorized("用户名或密码错误")
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	if err := s.hasher.Compare(user.PasswordHash, req.Password); err != nil {
		s.logger.Warn().Str("login_name", user.LoginName).Msg("password mismatch")
		return nil, apperrors.Unauthorized("用户名或密码错误")
	}

	roles := splitRoles(user.Roles)
	expiresAt := time.Now().Add(s.expiry)
	claims := sessionClaims{
		DocCode:  user.DocCode,
		DeptCode: user.DeptCode,
		Roles:    roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.LoginName,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return &model.LoginResponse{
		Token:     token,
		ExpiresAt: expiresAt.Unix(),
		LoginName: user.LoginName,
		DocCode:   user.DocCode,
		DeptCode:  user.DeptCode,
		Roles:     roles,
	}, nil
}

// ValidateToken parses and verifies a bearer token, returning the
// session identity it carries.
func (s *Service) ValidateToken(token string) (*model.Session, error) {
	parsed, err := jwt.ParseWithClaims(token, &sessionClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, apperrors.Unauthorized("会话无效或已过期")
	}

	claims, ok := parsed.Claims.(*sessionClaims)
	if !ok {
		return nil, apperrors.Unauthorized("会话无效或已过期")
	}

	return &model.Session{
		LoginName: claims.Subject,
		DocCode:   claims.DocCode,
		DeptCode:  claims.DeptCode,
		Roles:     claims.Roles,
	}, nil
}

func splitRoles(raw string) []string {
	var roles []string
	for _, role := range strings.Split(raw, ",") {
		role = strings.ToLower(strings.TrimSpace(role))
		if role != "" {
			roles = append(roles, role)
		}
	}
	return roles
}
