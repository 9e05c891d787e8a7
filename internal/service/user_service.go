package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/maheshrc27/redditflow/internal/models"
	"github.com/maheshrc27/redditflow/internal/repository"
)

type UserService interface {
	GetUserInfo(ctx context.Context, id int64) (*models.User, error)
	RemoveUser(ctx context.Context, userID int64) error
}

type userService struct {
	u repository.UserRepository
}

func NewUserService(u repository.UserRepository) UserService {
	return &userService{
		u: u,
	}
}

func (s *userService) GetUserInfo(ctx context.Context, id int64) (*models.User, error) {
	if id == 0 {
		return nil, ErrUnauthenticated
	}

	user, isExist, err := s.u.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDataStore, err)
	}

	if !isExist {
		err = errors.New("user not found")
		slog.Info(err.Error(), "user_id", id)
		return nil, ErrUnauthenticated
	}

	return user, nil
}

func (s *userService) RemoveUser(ctx context.Context, userID int64) error {
	if userID == 0 {
		return ErrUnauthenticated
	}
	if err := s.u.Remove(ctx, userID); err != nil {
		return fmt.Errorf("%w: %v", ErrDataStore, err)
	}
	return nil
}
