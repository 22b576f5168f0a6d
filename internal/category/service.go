package category

import (
	"context"

	"github.com/getsentry/sentry-go"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"

	"quill/app/internal/faults"
	"quill/app/internal/slug"
	"quill/app/internal/validate"
)

// ErrNotFound indicates the requested category does not exist or is inactive.
var ErrNotFound = eris.New("category not found")

// Service defines higher-level category operations.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*Category, error)
	List(ctx context.Context, input ListInput) (*ListResult, error)
	GetBySlug(ctx context.Context, slugValue string) (*Category, error)
}

// CreateInput carries the fields for a new category.
type CreateInput struct {
	Name        string
	Description string
	IsActive    *bool
}

// ListInput carries pagination and filtering for category listings.
type ListInput struct {
	ActiveOnly bool
	Skip       int
	Limit      int
}

// ListResult pairs a page of categories with pagination bookkeeping.
type ListResult struct {
	Categories []Category
	Pagination Pagination
}

// Pagination describes the window a listing covered.
type Pagination struct {
	Skip    int   `json:"skip"`
	Limit   int   `json:"limit"`
	Total   int64 `json:"total"`
	HasNext bool  `json:"has_next"`
}

const (
	defaultListLimit = 100
	maxListLimit     = 100

	// slugConflictRetries bounds the retry loop when a concurrent writer
	// claims the assigned slug between check and insert.
	slugConflictRetries = 3
)

type service struct {
	repo      Repository
	slugs     *slug.Assigner
	logger    *logrus.Logger
	sentryHub *sentry.Hub
}

var _ Service = (*service)(nil)

// NewService wires the category service with its dependencies.
func NewService(repo Repository, logger *logrus.Logger, hub *sentry.Hub) (Service, error) {
	if repo == nil {
		return nil, eris.New("category repository is required")
	}

	assigner, err := slug.NewAssigner(repo.SlugExists)
	if err != nil {
		return nil, eris.Wrap(err, "building category slug assigner")
	}

	return &service{
		repo:      repo,
		slugs:     assigner,
		logger:    logger,
		sentryHub: hub,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*Category, error) {
	name := validate.SanitizeString(input.Name, 100)
	if name == "" {
		return nil, faults.New(faults.KindValidation, "category name is required")
	}

	active := true
	if input.IsActive != nil {
		active = *input.IsActive
	}

	var created *Category
	for attempt := 0; ; attempt++ {
		assigned, err := s.slugs.Assign(ctx, name, 0)
		if err != nil {
			s.recordError(logrus.Fields{"operation": "category_creation"}, err, "assigning category slug")
			return nil, eris.Wrap(err, "creating category")
		}

		candidate := &Category{
			Name:        name,
			Slug:        assigned,
			Description: validate.SanitizeString(input.Description, 0),
			IsActive:    active,
		}

		err = s.repo.Create(ctx, candidate)
		if err == nil {
			created = candidate
			break
		}

		// A concurrent writer can win the slug between the existence check
		// and the insert; the unique constraint is the backstop and the
		// next assignment picks a fresh suffix.
		if faults.IsKind(err, faults.KindDatabase) && attempt < slugConflictRetries {
			continue
		}

		s.recordError(logrus.Fields{"operation": "category_creation", "slug": assigned}, err, "persisting category")
		return nil, eris.Wrap(err, "creating category")
	}

	return created, nil
}

func (s *service) List(ctx context.Context, input ListInput) (*ListResult, error) {
	if input.Skip < 0 {
		input.Skip = 0
	}
	if input.Limit <= 0 {
		input.Limit = defaultListLimit
	}
	if input.Limit > maxListLimit {
		input.Limit = maxListLimit
	}

	categories, total, err := s.repo.List(ctx, input.ActiveOnly, input.Skip, input.Limit)
	if err != nil {
		s.recordError(nil, err, "listing categories")
		return nil, eris.Wrap(err, "listing categories")
	}

	return &ListResult{
		Categories: categories,
		Pagination: Pagination{
			Skip:    input.Skip,
			Limit:   input.Limit,
			Total:   total,
			HasNext: int64(input.Skip+input.Limit) < total,
		},
	}, nil
}

func (s *service) GetBySlug(ctx context.Context, slugValue string) (*Category, error) {
	found, err := s.repo.GetBySlug(ctx, slugValue)
	if err != nil {
		s.recordError(logrus.Fields{"slug": slugValue}, err, "fetching category")
		return nil, eris.Wrapf(err, "fetching category: %s", slugValue)
	}

	if found == nil || !found.IsActive {
		return nil, eris.Wrapf(ErrNotFound, "fetching category: %s", slugValue)
	}

	return found, nil
}

func (s *service) recordError(fields logrus.Fields, err error, message string) {
	if err == nil {
		return
	}

	if s.logger != nil {
		entry := s.logger.WithField("error", err.Error())
		if len(fields) > 0 {
			entry = entry.WithFields(fields)
		}
		entry.Error(message)
	}

	if s.sentryHub != nil {
		s.sentryHub.CaptureException(err)
	}
}
