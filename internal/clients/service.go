package clients

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/singleflight"

	"github.com/ringmotos/ringpos/internal/apiclient"
	"github.com/ringmotos/ringpos/internal/platform/httpx"
)

// Service reads and writes clients upstream.
type Service struct {
	api       *apiclient.Client
	sign      BalanceSign
	logger    *slog.Logger
	validator *validator.Validate

	group      singleflight.Group
	mu         sync.RWMutex
	finalCache *Client
}

// NewService builds a Service.
func NewService(api *apiclient.Client, sign BalanceSign, logger *slog.Logger) *Service {
	if sign == "" {
		sign = PositiveOwes
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{api: api, sign: sign, logger: logger, validator: validator.New()}
}

// List returns all clients.
func (s *Service) List(ctx context.Context) ([]Client, error) {
	var out []Client
	if err := s.api.Get(ctx, "/clients", &out); err != nil {
		return nil, err
	}
	for i := range out {
		out[i].normalize(s.sign)
	}
	if out == nil {
		out = []Client{}
	}
	return out, nil
}

// Get returns one client.
func (s *Service) Get(ctx context.Context, id string) (*Client, error) {
	var c Client
	if err := s.api.Get(ctx, "/clients/"+apiclient.Segment(id), &c); err != nil {
		return nil, err
	}
	c.normalize(s.sign)
	return &c, nil
}

// DisplayName returns the full name of a client.
func (s *Service) DisplayName(ctx context.Context, id string) (string, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	return c.FullName(), nil
}

// Create validates and registers a client. The upstream field is spelled "adress".
func (s *Service) Create(ctx context.Context, in CreateInput) (*Client, error) {
	in.DNI = strings.TrimSpace(in.DNI)
	in.Name = strings.TrimSpace(in.Name)
	in.LastName = strings.TrimSpace(in.LastName)
	if err := s.validator.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}
	body := map[string]string{
		"dni":      in.DNI,
		"name":     in.Name,
		"lastName": in.LastName,
		"adress":   in.Address,
		"phone":    in.Phone,
		"email":    in.Email,
	}
	var c Client
	if err := s.api.Post(ctx, "/clients", body, &c); err != nil {
		return nil, err
	}
	c.normalize(s.sign)
	return &c, nil
}

// Delete removes a client.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.api.Delete(ctx, "/clients/"+apiclient.Segment(id), nil, nil)
}

// FinalConsumer returns the placeholder client for anonymous sales. It is
// fetched once; concurrent first calls share a single upstream request.
func (s *Service) FinalConsumer(ctx context.Context) (*Client, error) {
	s.mu.RLock()
	cached := s.finalCache
	s.mu.RUnlock()
	if cached != nil {
		c := *cached
		return &c, nil
	}

	v, err, _ := s.group.Do("final-consumer", func() (any, error) {
		var c Client
		if err := s.api.Get(ctx, "/clients/final-consumer", &c); err != nil {
			return nil, err
		}
		c.normalize(s.sign)
		s.mu.Lock()
		s.finalCache = &c
		s.mu.Unlock()
		return &c, nil
	})
	if err != nil {
		return nil, err
	}
	c := *v.(*Client)
	return &c, nil
}
