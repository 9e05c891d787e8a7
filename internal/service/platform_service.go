package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	config "github.com/maheshrc27/redditflow/configs"
	"github.com/maheshrc27/redditflow/internal/models"
	"github.com/maheshrc27/redditflow/internal/reddit"
	"github.com/maheshrc27/redditflow/internal/repository"
	"github.com/maheshrc27/redditflow/pkg/utils"
)

const stateTokenTTL = 10 * time.Minute

// PlatformService connects and disconnects Reddit accounts.
type PlatformService interface {
	GetAuthURL(ctx context.Context, userID int64) (string, error)
	Callback(ctx context.Context, code, state string) (*models.Account, error)
	List(ctx context.Context, userID int64) ([]*models.Account, error)
	Delete(ctx context.Context, userID, accountID int64) error
}

type platformService struct {
	cfg    config.Config
	ac     repository.AccountRepository
	client reddit.Client
}

func NewPlatformService(cfg config.Config, ac repository.AccountRepository, client reddit.Client) PlatformService {
	return &platformService{
		cfg:    cfg,
		ac:     ac,
		client: client,
	}
}

func (s *platformService) GetAuthURL(ctx context.Context, userID int64) (string, error) {
	if userID == 0 {
		return "", ErrUnauthenticated
	}
	state, err := utils.GenerateStateToken(s.cfg.SecretKey, strconv.FormatInt(userID, 10), stateTokenTTL)
	if err != nil {
		return "", err
	}
	return s.client.GetAuthURL(state), nil
}

func (s *platformService) Callback(ctx context.Context, code, state string) (*models.Account, error) {
	if code == "" || state == "" {
		err := errors.New("code or state is empty")
		slog.Info(err.Error())
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	claims, err := utils.ValidateStateToken(s.cfg.SecretKey, state)
	if err != nil {
		return nil, ErrUnauthenticated
	}
	userID, err := strconv.ParseInt(claims.UserID, 10, 64)
	if err != nil || userID == 0 {
		return nil, ErrUnauthenticated
	}

	tok, err := s.client.ExchangeCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if tok.RefreshToken == "" {
		err = fmt.Errorf("%w: refresh token is empty", reddit.ErrOAuthExchange)
		slog.Info(err.Error())
		return nil, err
	}

	info, err := s.client.GetUserInfo(ctx, tok.AccessToken)
	if err != nil {
		return nil, err
	}

	key := []byte(s.cfg.SecretKey)
	encAccess, err := utils.Encrypt(tok.AccessToken, key)
	if err != nil {
		return nil, err
	}
	encRefresh, err := utils.Encrypt(tok.RefreshToken, key)
	if err != nil {
		return nil, err
	}

	acc := &models.Account{
		UserID:         userID,
		Platform:       models.PlatformReddit,
		AccountID:      info.ID,
		AccountName:    info.Name,
		AccessToken:    encAccess,
		RefreshToken:   encRefresh,
		TokenExpiresAt: tok.ExpiresAt,
	}
	id, err := s.ac.Create(ctx, nil, acc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDataStore, err)
	}
	acc.ID = id
	slog.Info("reddit account connected", "account_id", id, "user_id", userID, "reddit_user", info.Name)
	return acc, nil
}

func (s *platformService) List(ctx context.Context, userID int64) ([]*models.Account, error) {
	if userID == 0 {
		return nil, ErrUnauthenticated
	}
	accounts, err := s.ac.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDataStore, err)
	}
	return accounts, nil
}

// Delete revokes the stored refresh token (best effort) and removes the
// account.
func (s *platformService) Delete(ctx context.Context, userID, accountID int64) error {
	acc, err := ownedAccount(ctx, s.ac, userID, accountID)
	if err != nil {
		return err
	}

	if refresh, err := utils.Decrypt(acc.RefreshToken, []byte(s.cfg.SecretKey)); err == nil && refresh != "" {
		if err := s.client.RevokeToken(ctx, refresh, "refresh_token"); err != nil {
			slog.Warn("revoke reddit token failed", "account_id", accountID, "error", err)
		}
	}

	if err := s.ac.Remove(ctx, accountID); err != nil {
		return fmt.Errorf("%w: %v", ErrDataStore, err)
	}
	return nil
}

func ownedAccount(ctx context.Context, ac repository.AccountRepository, userID, accountID int64) (*models.Account, error) {
	if userID == 0 {
		return nil, ErrUnauthenticated
	}
	if accountID == 0 {
		return nil, fmt.Errorf("%w: account id is not valid", ErrInvalidInput)
	}
	acc, err := ac.GetByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDataStore, err)
	}
	if acc == nil || acc.UserID != userID {
		slog.Info(ErrAccountNotFound.Error(), "account_id", accountID)
		return nil, ErrAccountNotFound
	}
	return acc, nil
}
