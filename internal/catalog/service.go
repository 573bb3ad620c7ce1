package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sayyara-app/sayyara-backend/pkg/db/models"
	pkgerrors "github.com/sayyara-app/sayyara-backend/pkg/errors"
	"github.com/sayyara-app/sayyara-backend/pkg/pagination"
)

// Service exposes read access to the canonical configuration catalog.
// Writes happen through the inventory ledger, which creates configurations
// on first confirmed dealer submission.
type Service interface {
	GetConfiguration(ctx context.Context, id uuid.UUID) (*models.CarConfiguration, error)
	ListAvailable(ctx context.Context, params pagination.Params) (*ListResult, error)
	ListMakes(ctx context.Context) ([]string, error)
	ListModels(ctx context.Context, make string) ([]string, error)
}

type service struct {
	repo *Repository
}

func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) GetConfiguration(ctx context.Context, id uuid.UUID) (*models.CarConfiguration, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "configuration id required")
	}
	config, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "configuration not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load configuration")
	}
	return config, nil
}

func (s *service) ListAvailable(ctx context.Context, params pagination.Params) (*ListResult, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	page, err := s.repo.ListAvailable(ctx, cursor, params.Limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list available configurations")
	}
	return page, nil
}

func (s *service) ListMakes(ctx context.Context) ([]string, error) {
	makes, err := s.repo.ListMakes(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list makes")
	}
	return makes, nil
}

func (s *service) ListModels(ctx context.Context, make string) ([]string, error) {
	names, err := s.repo.ListModels(ctx, make)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list models")
	}
	return names, nil
}
