package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync/atomic"
	"time"

	config "github.com/maheshrc27/redditflow/configs"
	"github.com/maheshrc27/redditflow/internal/models"
	"github.com/maheshrc27/redditflow/internal/reddit"
	"github.com/maheshrc27/redditflow/internal/repository"
	"github.com/maheshrc27/redditflow/pkg/utils"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// TokenService hands out usable access tokens for stored accounts,
// refreshing and persisting them when Reddit no longer accepts the old one.
type TokenService interface {
	AccessToken(ctx context.Context, acc *models.Account) (string, error)
	Session(ctx context.Context, acc *models.Account) (*TokenSession, error)
	Refresh(ctx context.Context, acc *models.Account) (string, error)
	WithToken(ctx context.Context, acc *models.Account, fn func(token string) error) error
	RefreshExpiring(ctx context.Context, within time.Duration) (int, error)
}

type tokenService struct {
	cfg      config.Config
	accounts repository.AccountRepository
	client   reddit.Client
	group    singleflight.Group
	now      func() time.Time
}

func NewTokenService(cfg config.Config, accounts repository.AccountRepository, client reddit.Client) TokenService {
	return &tokenService{
		cfg:      cfg,
		accounts: accounts,
		client:   client,
		now:      time.Now,
	}
}

type refreshed struct {
	access         string
	encAccess      string
	encRefresh     string
	tokenExpiresAt time.Time
}

func (s *tokenService) AccessToken(ctx context.Context, acc *models.Account) (string, error) {
	if acc.AccessToken == "" {
		return "", ErrTokenMissing
	}
	token, err := utils.Decrypt(acc.AccessToken, []byte(s.cfg.SecretKey))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTokenMissing, err)
	}

	_, err = s.client.GetUserInfo(ctx, token)
	switch {
	case err == nil:
		return token, nil
	case errors.Is(err, reddit.ErrUnauthorized):
		slog.Info("access token rejected, refreshing", "account_id", acc.ID)
		return s.Refresh(ctx, acc)
	}
	return "", err
}

// Refresh exchanges the stored refresh token. Concurrent refreshes of one
// account in this process share a single call; a refresh persisted by
// another process in the meantime wins and its token is used instead.
func (s *tokenService) Refresh(ctx context.Context, acc *models.Account) (string, error) {
	v, err, _ := s.group.Do(strconv.FormatInt(acc.ID, 10), func() (interface{}, error) {
		return s.refresh(ctx, acc)
	})
	if err != nil {
		return "", err
	}
	r := v.(*refreshed)
	acc.AccessToken = r.encAccess
	acc.RefreshToken = r.encRefresh
	acc.TokenExpiresAt = r.tokenExpiresAt
	return r.access, nil
}

func (s *tokenService) refresh(ctx context.Context, acc *models.Account) (*refreshed, error) {
	key := []byte(s.cfg.SecretKey)
	if acc.RefreshToken == "" {
		return nil, ErrTokenMissing
	}
	refreshToken, err := utils.Decrypt(acc.RefreshToken, key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenMissing, err)
	}

	tok, err := s.client.RefreshToken(ctx, refreshToken)
	if err != nil {
		slog.Warn("token refresh failed", "account_id", acc.ID, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrTokenRefreshFailed, err)
	}

	encAccess, err := utils.Encrypt(tok.AccessToken, key)
	if err != nil {
		return nil, err
	}
	encRefresh, err := utils.Encrypt(tok.RefreshToken, key)
	if err != nil {
		return nil, err
	}

	updated := *acc
	updated.AccessToken = encAccess
	updated.RefreshToken = encRefresh
	updated.TokenExpiresAt = tok.ExpiresAt

	err = s.accounts.SetToken(ctx, acc.ID, acc.AccessToken, &updated)
	switch {
	case errors.Is(err, repository.ErrTokenConflict):
		return s.reload(ctx, acc.ID)
	case err != nil:
		slog.Error("persist refreshed token failed", "account_id", acc.ID, "error", err)
	}

	return &refreshed{
		access:         tok.AccessToken,
		encAccess:      encAccess,
		encRefresh:     encRefresh,
		tokenExpiresAt: tok.ExpiresAt,
	}, nil
}

// reload picks up the token another runner stored.
func (s *tokenService) reload(ctx context.Context, accountID int64) (*refreshed, error) {
	current, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDataStore, err)
	}
	if current == nil {
		return nil, ErrAccountNotFound
	}
	access, err := utils.Decrypt(current.AccessToken, []byte(s.cfg.SecretKey))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenMissing, err)
	}
	slog.Info("token refreshed concurrently, using stored token", "account_id", accountID)
	return &refreshed{
		access:         access,
		encAccess:      current.AccessToken,
		encRefresh:     current.RefreshToken,
		tokenExpiresAt: current.TokenExpiresAt,
	}, nil
}

// TokenSession carries one validated token across several calls made for
// the same account.
type TokenSession struct {
	tokens *tokenService
	acc    *models.Account
	token  string
}

func (s *tokenService) Session(ctx context.Context, acc *models.Account) (*TokenSession, error) {
	token, err := s.AccessToken(ctx, acc)
	if err != nil {
		return nil, err
	}
	return &TokenSession{tokens: s, acc: acc, token: token}, nil
}

// Do runs fn with the session token. If Reddit answers 401 the token is
// refreshed and fn runs one more time; later calls use the new token.
func (ts *TokenSession) Do(ctx context.Context, fn func(token string) error) error {
	err := fn(ts.token)
	if !errors.Is(err, reddit.ErrUnauthorized) {
		return err
	}

	token, err := ts.tokens.Refresh(ctx, ts.acc)
	if err != nil {
		return err
	}
	ts.token = token
	return fn(token)
}

func (s *tokenService) WithToken(ctx context.Context, acc *models.Account, fn func(token string) error) error {
	session, err := s.Session(ctx, acc)
	if err != nil {
		return err
	}
	return session.Do(ctx, fn)
}

// RefreshExpiring refreshes every account whose token expires within the
// window, ten at a time, and returns how many succeeded.
func (s *tokenService) RefreshExpiring(ctx context.Context, within time.Duration) (int, error) {
	accounts, err := s.accounts.ListExpiring(ctx, s.now().Add(within))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrDataStore, err)
	}

	var ok atomic.Int64
	g := new(errgroup.Group)
	g.SetLimit(10)
	for _, acc := range accounts {
		acc := acc
		g.Go(func() error {
			if _, err := s.Refresh(ctx, acc); err != nil {
				slog.Error("scheduled token refresh failed", "account_id", acc.ID, "error", err)
				return nil
			}
			ok.Add(1)
			return nil
		})
	}
	g.Wait()
	return int(ok.Load()), nil
}
