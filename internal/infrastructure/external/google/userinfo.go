package google

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	oauth2api "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"

	"github.com/garyjia/voucher-sync/internal/application/port"
	"github.com/garyjia/voucher-sync/internal/domain/entity"
)

// UserInfoProvider verifies bearer access tokens against the userinfo endpoint
type UserInfoProvider struct {
	timeout time.Duration
	opts    []option.ClientOption
	logger  *zap.Logger
}

// NewUserInfoProvider creates a provider. opts are added to every
// per-token client, e.g. option.WithEndpoint in tests.
func NewUserInfoProvider(timeout time.Duration, logger *zap.Logger, opts ...option.ClientOption) *UserInfoProvider {
	return &UserInfoProvider{
		timeout: timeout,
		opts:    opts,
		logger:  logger,
	}
}

// UserInfo exchanges bearer for the caller's verified identity
func (p *UserInfoProvider) UserInfo(ctx context.Context, bearer string) (*entity.Identity, error) {
	ctx, cancel := withTimeout(ctx, p.timeout)
	defer cancel()

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: bearer, TokenType: "Bearer"})
	opts := append([]option.ClientOption{option.WithTokenSource(ts)}, p.opts...)

	svc, err := oauth2api.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create userinfo client: %w", err)
	}

	info, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch userinfo: %w", err)
	}

	if info.Email == "" {
		return nil, fmt.Errorf("userinfo has no email")
	}
	if info.VerifiedEmail != nil && !*info.VerifiedEmail {
		return nil, fmt.Errorf("email %s is not verified", info.Email)
	}

	return &entity.Identity{
		Email:   info.Email,
		Name:    info.Name,
		Picture: info.Picture,
	}, nil
}

// Verify interface compliance
var _ port.IdentityProvider = (*UserInfoProvider)(nil)
