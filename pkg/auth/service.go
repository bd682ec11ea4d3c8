package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/platinummonkey/bastion/pkg/audit"
	"github.com/platinummonkey/bastion/pkg/hierarchy"
	"github.com/platinummonkey/bastion/pkg/observability"
	"github.com/platinummonkey/bastion/pkg/rbac"
	"github.com/platinummonkey/bastion/pkg/resource"
)

// TokenTypeBearer is the token_type returned with every access token.
const TokenTypeBearer = "Bearer"

// Denylist records revoked access tokens.
type Denylist interface {
	// Track remembers an issued token under its user so DenylistAll can reach it.
	Track(ctx context.Context, token string, userID int64) error
	// Denylist revokes one token for ttl. A non-positive ttl uses the
	// nominal access token lifetime.
	Denylist(ctx context.Context, token string, userID int64, ttl time.Duration) error
	// DenylistAll revokes every tracked token of the user.
	DenylistAll(ctx context.Context, userID int64) error
	// IsDenylisted reports whether a token was revoked.
	IsDenylisted(ctx context.Context, token string) (bool, error)
}

// Service ties credential checks, permission resolution, token issuance and
// revocation together.
type Service struct {
	users    UserStore
	resolver rbac.PermissionResolver
	issuer   *Issuer
	refresh  *RefreshTokens
	denylist Denylist

	logger  *observability.Logger
	audit   audit.Logger
	metrics *observability.Metrics
	rotate  bool
	now     func() time.Time
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger sets the service logger.
func WithLogger(logger *observability.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithAuditLogger records authentication events.
func WithAuditLogger(logger audit.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.audit = logger
		}
	}
}

// WithMetrics records authentication counters.
func WithMetrics(m *observability.Metrics) ServiceOption {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithRefreshRotation makes every refresh replace the presented refresh token.
func WithRefreshRotation(enabled bool) ServiceOption {
	return func(s *Service) {
		s.rotate = enabled
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService creates the authentication service.
func NewService(
	users UserStore,
	resolver rbac.PermissionResolver,
	issuer *Issuer,
	refresh *RefreshTokens,
	denylist Denylist,
	opts ...ServiceOption,
) *Service {
	s := &Service{
		users:    users,
		resolver: resolver,
		issuer:   issuer,
		refresh:  refresh,
		denylist: denylist,
		logger:   observability.NewNopLogger(),
		audit:    audit.NoopLogger{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Login checks credentials and opens a session. The permission snapshot is
// returned here and nowhere else.
func (s *Service) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	masked := observability.MaskUsername(username)
	log := observability.FromContext(ctx, s.logger).WithField("username", masked)

	user, err := s.users.VerifyCredentials(ctx, username, password)
	if err != nil {
		if errors.Is(err, ErrAuthenticationFailed) || errors.Is(err, ErrAccountDisabled) {
			log.WithError(err).Warn("login rejected")
			s.metrics.RecordLogin(observability.OutcomeFailure)
			s.recordAuth(ctx, audit.EventTypeAuthLoginFailed, nil, masked, audit.EventStatusFailure, err.Error())
			return nil, ErrAuthenticationFailed
		}
		s.metrics.RecordLogin(observability.OutcomeError)
		return nil, fmt.Errorf("failed to verify credentials: %w", err)
	}

	access, err := s.issueTracked(ctx, user)
	if err != nil {
		s.metrics.RecordLogin(observability.OutcomeError)
		return nil, err
	}

	var (
		snap *rbac.Snapshot
		rt   *RefreshToken
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		snap, err = s.resolver.Resolve(gctx, user.ID)
		if err != nil {
			return fmt.Errorf("failed to resolve permissions: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		rt, err = s.refresh.Create(gctx, user.ID)
		if err != nil {
			return fmt.Errorf("failed to create refresh token: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		s.metrics.RecordLogin(observability.OutcomeError)
		return nil, err
	}

	log.WithFields(map[string]interface{}{
		"user_id":     user.ID,
		"roles":       snap.Roles,
		"permissions": len(snap.Permissions),
	}).Info("login succeeded")
	s.metrics.RecordLogin(observability.OutcomeSuccess)
	s.recordAuth(ctx, audit.EventTypeAuthLogin, &user.ID, user.Username, audit.EventStatusSuccess, "login")

	return &LoginResult{
		UserID:       user.ID,
		Username:     user.Username,
		AccessToken:  access.Token,
		RefreshToken: rt.Token,
		TokenType:    TokenTypeBearer,
		ExpiresAt:    access.ExpiresAt,
		Permissions:  snap.Permissions,
		Roles:        snap.Roles,
	}, nil
}

// RefreshAccessToken exchanges a refresh token for a new access token.
func (s *Service) RefreshAccessToken(ctx context.Context, refreshToken string) (*RefreshResult, error) {
	rt, err := s.refresh.Validate(ctx, refreshToken)
	if err != nil {
		if IsAuthError(err) {
			s.metrics.RecordRefresh(observability.OutcomeFailure)
			observability.FromContext(ctx, s.logger).WithError(err).Warn("refresh rejected")
		} else {
			s.metrics.RecordRefresh(observability.OutcomeError)
		}
		return nil, err
	}

	enabled, err := s.users.IsEnabled(ctx, rt.UserID)
	if err != nil {
		s.metrics.RecordRefresh(observability.OutcomeError)
		return nil, fmt.Errorf("failed to check user: %w", err)
	}
	if !enabled {
		s.metrics.RecordRefresh(observability.OutcomeFailure)
		observability.FromContext(ctx, s.logger).WithField("user_id", rt.UserID).Warn("refresh rejected for disabled account")
		return nil, ErrAccountDisabled
	}

	user, err := s.users.GetUser(ctx, rt.UserID)
	if errors.Is(err, ErrUserNotFound) {
		s.metrics.RecordRefresh(observability.OutcomeFailure)
		return nil, ErrAccountDisabled
	}
	if err != nil {
		s.metrics.RecordRefresh(observability.OutcomeError)
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	access, err := s.issueTracked(ctx, user)
	if err != nil {
		s.metrics.RecordRefresh(observability.OutcomeError)
		return nil, err
	}

	result := &RefreshResult{
		AccessToken: access.Token,
		TokenType:   TokenTypeBearer,
		ExpiresAt:   access.ExpiresAt,
	}
	if s.rotate {
		next, err := s.refresh.Rotate(ctx, rt)
		if err != nil {
			s.metrics.RecordRefresh(observability.OutcomeError)
			return nil, fmt.Errorf("failed to rotate refresh token: %w", err)
		}
		result.RefreshToken = next.Token
	}

	s.metrics.RecordRefresh(observability.OutcomeSuccess)
	s.recordAuth(ctx, audit.EventTypeAuthTokenRefresh, &user.ID, user.Username, audit.EventStatusSuccess, "access token refreshed")
	return result, nil
}

// Logout ends the sessions of a user. Refresh tokens are always dropped. A
// presented access token is denylisted for its remaining lifetime; without
// one, every tracked access token of the user is denylisted.
func (s *Service) Logout(ctx context.Context, userID int64, accessToken string) error {
	log := observability.FromContext(ctx, s.logger).WithField("user_id", userID)
	var errs []error

	if n, err := s.refresh.RevokeAll(ctx, userID); err != nil {
		errs = append(errs, fmt.Errorf("failed to revoke refresh tokens: %w", err))
	} else {
		log.WithField("refresh_tokens", n).Debug("refresh tokens revoked")
	}

	if accessToken != "" {
		if err := s.denylistOne(ctx, accessToken, userID); err != nil {
			errs = append(errs, err)
		}
	} else if err := s.denylist.DenylistAll(ctx, userID); err != nil {
		errs = append(errs, fmt.Errorf("failed to revoke access tokens: %w", err))
	}

	if err := errors.Join(errs...); err != nil {
		log.WithError(err).Error("logout incomplete")
		s.recordAuth(ctx, audit.EventTypeAuthLogout, &userID, "", audit.EventStatusFailure, err.Error())
		return err
	}

	s.metrics.RecordLogout()
	s.recordAuth(ctx, audit.EventTypeAuthLogout, &userID, "", audit.EventStatusSuccess, "logout")
	log.Info("logout succeeded")
	return nil
}

func (s *Service) denylistOne(ctx context.Context, token string, userID int64) error {
	ttl := s.issuer.TTL()
	p, err := s.issuer.Verify(token)
	switch {
	case errors.Is(err, ErrTokenExpired):
		return nil
	case err == nil:
		ttl = p.ExpiresAt.Sub(s.now())
		if ttl <= 0 {
			return nil
		}
	}

	if err := s.denylist.Denylist(ctx, token, userID, ttl); err != nil {
		return fmt.Errorf("failed to revoke access token: %w", err)
	}
	return nil
}

// CheckRevoked reports whether an access token must be refused. It returns
// true when the denylist cannot be consulted.
func (s *Service) CheckRevoked(ctx context.Context, accessToken string) bool {
	revoked, err := s.denylist.IsDenylisted(ctx, accessToken)
	if err != nil {
		observability.FromContext(ctx, s.logger).WithError(err).Error("revocation check failed, refusing token")
		s.metrics.RecordRevocationCheck(observability.OutcomeError)
		return true
	}
	if revoked {
		s.metrics.RecordRevocationCheck(observability.OutcomeRevoked)
	} else {
		s.metrics.RecordRevocationCheck(observability.OutcomeSuccess)
	}
	return revoked
}

// Authenticate runs the revocation pre-check and then verifies the token.
func (s *Service) Authenticate(ctx context.Context, accessToken string) (*Principal, error) {
	if accessToken == "" {
		return nil, ErrTokenInvalid
	}
	if s.CheckRevoked(ctx, accessToken) {
		return nil, ErrTokenRevoked
	}
	return s.issuer.Verify(accessToken)
}

// ResolvePermissions returns the permission keys of a user.
func (s *Service) ResolvePermissions(ctx context.Context, userID int64) ([]string, error) {
	snap, err := s.resolver.Resolve(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve permissions: %w", err)
	}
	return snap.Permissions, nil
}

// MenuTree returns the navigation tree of a user.
func (s *Service) MenuTree(ctx context.Context, userID int64) ([]*hierarchy.Tree[resource.Menu], error) {
	forest, err := s.resolver.MenuTree(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve menu tree: %w", err)
	}
	return forest, nil
}

// SweepExpired deletes expired refresh tokens.
func (s *Service) SweepExpired(ctx context.Context) (int64, error) {
	n, err := s.refresh.SweepExpired(ctx)
	if err != nil {
		return 0, err
	}
	s.metrics.RecordSweep(n)
	return n, nil
}

func (s *Service) issueTracked(ctx context.Context, user *User) (*AccessToken, error) {
	access, err := s.issuer.Issue(user.ID, user.Username)
	if err != nil {
		return nil, err
	}
	if err := s.denylist.Track(ctx, access.Token, user.ID); err != nil {
		return nil, fmt.Errorf("failed to track access token: %w", err)
	}
	return access, nil
}

func (s *Service) recordAuth(ctx context.Context, eventType audit.EventType, userID *int64, username string, status audit.EventStatus, message string) {
	if err := s.audit.LogAuthentication(ctx, eventType, userID, username, status, message); err != nil {
		observability.FromContext(ctx, s.logger).WithError(err).Warn("failed to write audit event")
	}
}
