package account

import (
	"context"
	"strings"

	"creditshop/pkg/db/option"
	"creditshop/pkg/errutil"
	"creditshop/pkg/identity"
	"creditshop/pkg/logger"
	"creditshop/pkg/repository"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const bcryptCost = 10

type Service struct {
	db       *gorm.DB
	node     *snowflake.Node
	identity *identity.Service

	account repository.Repository[Account]
}

type ServiceParams struct {
	fx.In
	DB       *gorm.DB
	Node     *snowflake.Node
	Identity *identity.Service
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:       p.DB,
		node:     p.Node,
		identity: p.Identity,
		account:  repository.ProvideStore[Account](p.DB),
	}
}

func (s *Service) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || strings.TrimSpace(req.Name) == "" || req.Password == "" {
		return nil, errutil.ValidationFailed("Email, name and password are required", nil)
	}

	role := req.Role
	if role == "" {
		role = RoleCustomer
	}
	if !role.Valid() {
		return nil, errutil.ValidationFailed("Invalid role", nil)
	}

	existing, err := s.account.FindOne(ctx, &Account{Email: email})
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, errutil.ValidationFailed("User with this email already exists", nil)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
	if err != nil {
		return nil, errutil.Internal("failed to hash password", err)
	}

	acc := &Account{
		ID:            s.node.Generate().String(),
		Email:         email,
		Name:          strings.TrimSpace(req.Name),
		PasswordHash:  string(hash),
		Role:          role,
		CreditBalance: 0,
	}
	if err := s.account.Create(ctx, acc); err != nil {
		logger.FromContext(ctx).Error("failed to create account", zap.String("email", email), zap.Error(err))
		return nil, err
	}

	return s.issue(acc)
}

func (s *Service) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		return nil, errutil.Unauthorized("Invalid email or password", nil)
	}

	acc, err := s.account.FindOne(ctx, &Account{Email: email})
	if err != nil {
		return nil, err
	}
	if acc == nil {
		return nil, errutil.Unauthorized("Invalid email or password", nil)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(req.Password)); err != nil {
		return nil, errutil.Unauthorized("Invalid email or password", nil)
	}

	return s.issue(acc)
}

func (s *Service) issue(acc *Account) (*AuthResponse, error) {
	token, err := s.identity.GenerateToken(acc.ID, string(acc.Role))
	if err != nil {
		return nil, errutil.Internal("failed to issue token", err)
	}
	return &AuthResponse{User: acc, Token: token}, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (*Account, error) {
	if id == "" {
		return nil, errutil.NotFound("User not found", nil)
	}

	acc, err := s.account.FindOne(ctx, &Account{ID: id})
	if err != nil {
		return nil, err
	}
	if acc == nil {
		return nil, errutil.NotFound("User not found", nil)
	}
	return acc, nil
}

// GetCustomer is GetByID restricted to CUSTOMER accounts.
func (s *Service) GetCustomer(ctx context.Context, id string) (*Account, error) {
	acc, err := s.GetByID(ctx, id)
	if errutil.Is(err, errutil.StatusNotFound) || (err == nil && acc.Role != RoleCustomer) {
		return nil, errutil.NotFound("Customer not found", nil)
	}
	return acc, err
}

func (s *Service) ListCustomers(ctx context.Context) ([]*Account, error) {
	return s.account.Find(ctx, &Account{Role: RoleCustomer},
		option.WithSortBy(option.QuerySortBy{SortBy: "created_at", OrderBy: "desc"}),
	)
}
