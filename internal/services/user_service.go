package services

import (
	"context"

	"clinic-backend/internal/auth"
	"clinic-backend/internal/cache"
	"clinic-backend/internal/models"
	"clinic-backend/internal/repositories"
)

type UserService struct {
	Repo       *repositories.UserRepository
	JWTManager *auth.JWTManager
}

func NewUserService(repo *repositories.UserRepository, jwtManager *auth.JWTManager) *UserService {
	return &UserService{Repo: repo, JWTManager: jwtManager}
}

func (s *UserService) CreateUser(ctx context.Context, u *models.User, password string) error {
	hashed, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	u.PasswordHash = hashed
	u.IsActive = true
	return s.Repo.Create(ctx, u)
}

// Login verifies credentials and issues a token. The bcrypt check is the
// expensive part; a cache hit on identical credentials skips it.
func (s *UserService) Login(ctx context.Context, req *models.LoginRequest) (*models.LoginResponse, error) {
	if userID, ok := cache.GetCachedAuth(ctx, req.Email, req.Password); ok {
		user, err := s.Repo.Get(ctx, int(userID))
		if err == nil && user.IsActive {
			token, err := s.JWTManager.GenerateToken(user)
			if err != nil {
				return nil, err
			}
			return &models.LoginResponse{Token: token, User: user}, nil
		}
		cache.InvalidateAuth(ctx, req.Email, req.Password)
	}

	user, err := s.Repo.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, models.NewValidationError("credentials", "invalid email or password")
	}
	if !user.IsActive {
		return nil, models.NewValidationError("credentials", "account is disabled")
	}
	if !auth.VerifyPassword(user.PasswordHash, req.Password) {
		return nil, models.NewValidationError("credentials", "invalid email or password")
	}

	cache.CacheAuth(ctx, req.Email, req.Password, int64(user.ID))

	token, err := s.JWTManager.GenerateToken(user)
	if err != nil {
		return nil, err
	}
	return &models.LoginResponse{Token: token, User: user}, nil
}
