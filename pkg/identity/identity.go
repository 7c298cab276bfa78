// Package identity issues and verifies the bearer tokens that carry the
// caller's user id and role.
package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"creditshop/pkg/config"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
	"go.uber.org/fx"
)

const (
	RoleCustomer = "CUSTOMER"
	RoleAdmin    = "ADMIN"

	defaultTTL   = 7 * 24 * time.Hour
	minSecretLen = 32
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrWeakSecret   = fmt.Errorf("jwt secret must be at least %d bytes", minSecretLen)
)

var Module = fx.Module("identity", fx.Provide(Provide))

// Identity is the authenticated caller.
type Identity struct {
	UserID string `json:"userId"`
	Role   string `json:"role"`
}

func (i Identity) IsAdmin() bool { return i.Role == RoleAdmin }

type privateClaims struct {
	Role string `json:"role"`
}

type Service struct {
	key    []byte
	issuer string
	ttl    time.Duration
	signer jose.Signer
	now    func() time.Time
}

func Provide(cfg *config.Config) (*Service, error) {
	return NewService(cfg.Auth.JWTSecret, cfg.Auth.Issuer, defaultTTL)
}

func NewService(secret, issuer string, ttl time.Duration) (*Service, error) {
	if len(secret) < minSecretLen {
		return nil, ErrWeakSecret
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}

	signer, err := jose.NewSigner(
		jose.SigningKey{Algorithm: jose.HS256, Key: []byte(secret)},
		(&jose.SignerOptions{}).WithType("JWT"),
	)
	if err != nil {
		return nil, err
	}

	return &Service{
		key:    []byte(secret),
		issuer: issuer,
		ttl:    ttl,
		signer: signer,
		now:    time.Now,
	}, nil
}

func (s *Service) GenerateToken(userID, role string) (string, error) {
	now := s.now()
	std := jwt.Claims{
		Issuer:    s.issuer,
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		Expiry:    jwt.NewNumericDate(now.Add(s.ttl)),
	}

	return jwt.Signed(s.signer).Claims(std).Claims(privateClaims{Role: role}).Serialize()
}

func (s *Service) ValidateToken(raw string) (*Identity, error) {
	tok, err := jwt.ParseSigned(raw, []jose.SignatureAlgorithm{jose.HS256})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	var (
		std     jwt.Claims
		private privateClaims
	)
	if err := tok.Claims(s.key, &std, &private); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if err := std.ValidateWithLeeway(jwt.Expected{Issuer: s.issuer, Time: s.now()}, jwt.DefaultLeeway); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if std.Subject == "" || (private.Role != RoleCustomer && private.Role != RoleAdmin) {
		return nil, ErrInvalidToken
	}

	return &Identity{UserID: std.Subject, Role: private.Role}, nil
}

type ctxKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	return id, ok
}
