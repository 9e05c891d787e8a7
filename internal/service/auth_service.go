package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	config "github.com/maheshrc27/redditflow/configs"
	"github.com/maheshrc27/redditflow/internal/models"
	"github.com/maheshrc27/redditflow/internal/repository"
	"github.com/maheshrc27/redditflow/internal/transfer"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
)

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v1/userinfo"

type AuthService interface {
	LoginURL(state string) string
	LoginCallback(ctx context.Context, code string) (int64, error)
}

type authService struct {
	oauth       *oauth2.Config
	userInfoURL string
	u           repository.UserRepository
}

func NewAuthService(cfg config.Config, u repository.UserRepository) AuthService {
	return &authService{
		oauth: &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.GoogleRedirectURI,
			Scopes:       []string{"https://www.googleapis.com/auth/userinfo.email", "https://www.googleapis.com/auth/userinfo.profile"},
			Endpoint:     endpoints.Google,
		},
		userInfoURL: googleUserInfoURL,
		u:           u,
	}
}

func (s *authService) LoginURL(state string) string {
	return s.oauth.AuthCodeURL(state)
}

// LoginCallback exchanges the Google code and returns the local user id,
// creating the user on first login.
func (s *authService) LoginCallback(ctx context.Context, code string) (int64, error) {
	if code == "" {
		err := errors.New("code is empty")
		slog.Info(err.Error())
		return 0, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if s.oauth.ClientID == "" || s.oauth.ClientSecret == "" || s.oauth.RedirectURL == "" {
		err := errors.New("OAuth2 configuration is incomplete")
		slog.Info(err.Error())
		return 0, err
	}

	token, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		slog.Info(err.Error())
		return 0, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}

	userInfo, err := s.fetchUserInfo(s.oauth.Client(ctx, token))
	if err != nil {
		return 0, err
	}

	user, isExist, err := s.u.GetByEmail(ctx, userInfo.Email)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrDataStore, err)
	}
	if isExist && user.GoogleID != "" {
		return user.ID, nil
	}

	if isExist {
		user.GoogleID = userInfo.ID
		user.Name = userInfo.Name
		user.ProfilePicture = userInfo.Picture
		if err := s.u.Update(ctx, user); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrDataStore, err)
		}
		return user.ID, nil
	}

	userID, err := s.u.Create(ctx, nil, &models.User{
		GoogleID:       userInfo.ID,
		Email:          userInfo.Email,
		Name:           userInfo.Name,
		ProfilePicture: userInfo.Picture,
	})
	if err != nil {
		slog.Info(err.Error())
		return 0, fmt.Errorf("%w: %v", ErrDataStore, err)
	}
	return userID, nil
}

func (s *authService) fetchUserInfo(client *http.Client) (*transfer.GoogleUserInfo, error) {
	resp, err := client.Get(s.userInfoURL)
	if err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("error fetching user info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected user info status: %d", resp.StatusCode)
	}

	var info transfer.GoogleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	if info.Email == "" {
		return nil, errors.New("google account has no email")
	}
	return &info, nil
}
