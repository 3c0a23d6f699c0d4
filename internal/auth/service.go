package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/ringmotos/ringpos/internal/apiclient"
	"github.com/ringmotos/ringpos/internal/identity"
	"github.com/ringmotos/ringpos/internal/platform/httpx"
)

// Service forwards credentials to the upstream auth endpoints.
type Service struct {
	api       *apiclient.Client
	logger    *slog.Logger
	validator *validator.Validate
}

// NewService constructs a new Service.
func NewService(api *apiclient.Client, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{api: api, logger: logger, validator: validator.New()}
}

type loginResponse struct {
	AccessToken      string `json:"access_token"`
	AccessTokenCamel string `json:"accessToken"`
	Token            string `json:"token"`
}

func (r loginResponse) token() string {
	for _, t := range []string{r.AccessToken, r.AccessTokenCamel, r.Token} {
		if t = strings.TrimSpace(t); t != "" {
			return t
		}
	}
	return ""
}

// Login authenticates upstream and returns the bearer token with its decoded user.
func (s *Service) Login(ctx context.Context, in LoginInput) (string, identity.User, error) {
	in.Email = strings.TrimSpace(strings.ToLower(in.Email))
	if err := s.validator.Struct(in); err != nil {
		return "", identity.User{}, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}
	var resp loginResponse
	if err := s.api.Post(ctx, "/auth/login", in, &resp); err != nil {
		var apiErr *apiclient.Error
		if errors.As(err, &apiErr) && (apiErr.Status == 400 || apiErr.Status == 401) {
			return "", identity.User{}, ErrInvalidCredentials
		}
		return "", identity.User{}, err
	}
	token := resp.token()
	if token == "" {
		return "", identity.User{}, ErrNoToken
	}
	user, err := identity.FromToken(token)
	if err != nil {
		s.logger.Warn("login token carries no identity", slog.Any("error", err))
		user = identity.User{Email: in.Email}
	}
	return token, user, nil
}

// Register creates an account upstream.
func (s *Service) Register(ctx context.Context, in RegisterInput) error {
	in.Email = strings.TrimSpace(strings.ToLower(in.Email))
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	if err := s.validator.Struct(in); err != nil {
		return fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}
	return s.api.Post(ctx, "/auth/register", in, nil)
}
