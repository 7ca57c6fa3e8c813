package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelsplants/checkout-backend/pkg/db"
	"github.com/angelsplants/checkout-backend/pkg/db/models"
	pkgerrors "github.com/angelsplants/checkout-backend/pkg/errors"
	"github.com/angelsplants/checkout-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type cartCreator interface {
	CreateCartForNewUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*models.Cart, error)
}

// Service keeps the local user projection in sync with access token claims.
type Service struct {
	repo  *Repository
	tx    txRunner
	carts cartCreator
	logg  *logger.Logger
}

func NewService(repo *Repository, tx txRunner, carts cartCreator, logg *logger.Logger) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("users repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if carts == nil {
		return nil, fmt.Errorf("cart service required")
	}
	return &Service{repo: repo, tx: tx, carts: carts, logg: logg}, nil
}

// Provision returns the local user for the token subject. A first sighting creates the
// user and their first active cart in one transaction; later sightings refresh changed claims.
func (s *Service) Provision(ctx context.Context, in ProvisionInput) (*models.User, error) {
	if in.ID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "token subject missing")
	}
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))

	existing, err := s.repo.FindByID(ctx, in.ID)
	if err == nil {
		return s.refresh(ctx, existing, in)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}

	var created *models.User
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		user, err := s.repo.WithTx(tx).Create(ctx, in.toModel())
		if err != nil {
			return err
		}
		if _, err := s.carts.CreateCartForNewUser(ctx, tx, user.ID); err != nil {
			return fmt.Errorf("create first cart: %w", err)
		}
		created = user
		return nil
	})
	if err != nil {
		// lost a first-request race for the same subject
		if db.IsUniqueViolationOn(err, "users_pkey", "users.id") {
			return s.repo.FindByID(ctx, in.ID)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "provision user")
	}
	if s.logg != nil {
		s.logg.Info(s.logg.WithUserID(ctx, created.ID.String()), "user provisioned")
	}
	return created, nil
}

func (s *Service) refresh(ctx context.Context, user *models.User, in ProvisionInput) (*models.User, error) {
	want := in.toModel()
	if in.Email == "" {
		want.Email = user.Email
	}
	if user.Email == want.Email && user.FirstName == want.FirstName && user.LastName == want.LastName && user.Role == want.Role {
		return user, nil
	}
	want.Phone = user.Phone
	want.CreatedAt = user.CreatedAt
	if err := s.repo.UpdateProfile(ctx, want); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "refresh user profile")
	}
	return want, nil
}
