package article

import (
	"context"

	"github.com/getsentry/sentry-go"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"

	"quill/app/internal/category"
	"quill/app/internal/faults"
	"quill/app/internal/slug"
	"quill/app/internal/user"
	"quill/app/internal/validate"
)

// ErrNotFound indicates the requested article does not exist or is not
// publicly visible.
var ErrNotFound = eris.New("article not found")

// Service defines higher-level article operations.
type Service interface {
	Create(ctx context.Context, input CreateInput, authorID uint) (*Article, error)
	Update(ctx context.Context, id uint, input UpdateInput, userID uint) (*Article, error)
	Publish(ctx context.Context, id uint, userID uint) (*Article, error)
	Unpublish(ctx context.Context, id uint, userID uint) (*Article, error)
	Delete(ctx context.Context, id uint, userID uint) error
	List(ctx context.Context, input ListInput) (*ListResult, error)
	GetBySlug(ctx context.Context, slugValue string) (*Article, error)
}

// CreateInput carries the fields for a new article.
type CreateInput struct {
	Title       string
	Content     string
	Excerpt     string
	CategoryID  *uint
	IsPublished bool
}

// UpdateInput carries a partial update; nil fields are left untouched.
// ClearCategory removes the category association when set.
type UpdateInput struct {
	Title         *string
	Content       *string
	Excerpt       *string
	CategoryID    *uint
	ClearCategory bool
	IsPublished   *bool
}

// ListInput carries pagination and filtering for article listings.
type ListInput struct {
	PublishedOnly bool
	AuthorID      uint
	CategoryID    uint
	Query         string
	Skip          int
	Limit         int
}

// ListResult pairs a page of articles with pagination bookkeeping.
type ListResult struct {
	Articles   []Article
	Pagination category.Pagination
}

const (
	defaultListLimit = 20
	maxListLimit     = 100

	// slugConflictRetries bounds the retry loop when a concurrent writer
	// claims the assigned slug between check and insert.
	slugConflictRetries = 3
)

type service struct {
	repo       Repository
	categories category.Repository
	users      user.Repository
	slugs      *slug.Assigner
	sanitizer  *validate.Sanitizer
	logger     *logrus.Logger
	sentryHub  *sentry.Hub
}

var _ Service = (*service)(nil)

// NewService wires the article service with its dependencies.
func NewService(repo Repository, categories category.Repository, users user.Repository, sanitizer *validate.Sanitizer, logger *logrus.Logger, hub *sentry.Hub) (Service, error) {
	if repo == nil {
		return nil, eris.New("article repository is required")
	}
	if categories == nil {
		return nil, eris.New("category repository is required")
	}
	if users == nil {
		return nil, eris.New("user repository is required")
	}
	if sanitizer == nil {
		return nil, eris.New("sanitizer is required")
	}

	assigner, err := slug.NewAssigner(repo.SlugExists)
	if err != nil {
		return nil, eris.Wrap(err, "building article slug assigner")
	}

	return &service{
		repo:       repo,
		categories: categories,
		users:      users,
		slugs:      assigner,
		sanitizer:  sanitizer,
		logger:     logger,
		sentryHub:  hub,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput, authorID uint) (*Article, error) {
	title := validate.SanitizeString(input.Title, 255)
	if title == "" {
		return nil, faults.New(faults.KindValidation, "title is required")
	}

	if input.Content == "" {
		return nil, faults.New(faults.KindValidation, "content is required")
	}

	if err := s.checkCategory(ctx, input.CategoryID); err != nil {
		return nil, err
	}

	content := s.sanitizer.SanitizeHTML(input.Content)
	excerpt := validate.SanitizeString(input.Excerpt, 0)

	var created *Article
	for attempt := 0; ; attempt++ {
		assigned, err := s.slugs.Assign(ctx, title, 0)
		if err != nil {
			s.recordError(logrus.Fields{"operation": "article_creation", "author_id": authorID}, err, "assigning article slug")
			return nil, eris.Wrap(err, "creating article")
		}

		candidate := &Article{
			Title:      title,
			Slug:       assigned,
			Content:    content,
			Excerpt:    excerpt,
			AuthorID:   authorID,
			CategoryID: input.CategoryID,
		}
		if input.IsPublished {
			candidate.Publish()
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

		s.recordError(logrus.Fields{"operation": "article_creation", "author_id": authorID, "slug": assigned}, err, "persisting article")
		return nil, eris.Wrap(err, "creating article")
	}

	return created, nil
}

func (s *service) Update(ctx context.Context, id uint, input UpdateInput, userID uint) (*Article, error) {
	existing, err := s.authorizeMutation(ctx, id, userID, "edit")
	if err != nil {
		return nil, err
	}

	titleChanged := false
	if input.Title != nil {
		title := validate.SanitizeString(*input.Title, 255)
		if title == "" {
			return nil, faults.New(faults.KindValidation, "title is required")
		}
		if title != existing.Title {
			existing.Title = title
			titleChanged = true
		}
	}

	if input.Content != nil {
		existing.Content = s.sanitizer.SanitizeHTML(*input.Content)
	}

	if input.Excerpt != nil {
		existing.Excerpt = validate.SanitizeString(*input.Excerpt, 0)
	}

	if input.ClearCategory {
		existing.CategoryID = nil
		existing.Category = nil
	} else if input.CategoryID != nil {
		if err := s.checkCategory(ctx, input.CategoryID); err != nil {
			return nil, err
		}
		existing.CategoryID = input.CategoryID
		existing.Category = nil
	}

	// PublishedAt moves only on an actual state flip; edits that leave
	// IsPublished alone never touch it.
	if input.IsPublished != nil {
		if *input.IsPublished {
			existing.Publish()
		} else {
			existing.Unpublish()
		}
	}

	if err := s.saveWithSlug(ctx, existing, titleChanged); err != nil {
		return nil, err
	}

	return existing, nil
}

func (s *service) Publish(ctx context.Context, id uint, userID uint) (*Article, error) {
	existing, err := s.authorizeMutation(ctx, id, userID, "publish")
	if err != nil {
		return nil, err
	}

	existing.Publish()

	if err := s.repo.Save(ctx, existing); err != nil {
		s.recordError(logrus.Fields{"operation": "article_publish", "article_id": id}, err, "saving article")
		return nil, eris.Wrap(err, "publishing article")
	}

	return existing, nil
}

func (s *service) Unpublish(ctx context.Context, id uint, userID uint) (*Article, error) {
	existing, err := s.authorizeMutation(ctx, id, userID, "unpublish")
	if err != nil {
		return nil, err
	}

	existing.Unpublish()

	if err := s.repo.Save(ctx, existing); err != nil {
		s.recordError(logrus.Fields{"operation": "article_unpublish", "article_id": id}, err, "saving article")
		return nil, eris.Wrap(err, "unpublishing article")
	}

	return existing, nil
}

func (s *service) Delete(ctx context.Context, id uint, userID uint) error {
	if _, err := s.authorizeMutation(ctx, id, userID, "delete"); err != nil {
		return err
	}

	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		s.recordError(logrus.Fields{"operation": "article_deletion", "article_id": id}, err, "deleting article")
		return eris.Wrap(err, "deleting article")
	}

	if !deleted {
		return faults.New(faults.KindBusinessLogic, "article not found")
	}

	return nil
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

	articles, total, err := s.repo.List(ctx, Filter{
		PublishedOnly: input.PublishedOnly,
		AuthorID:      input.AuthorID,
		CategoryID:    input.CategoryID,
		Query:         input.Query,
		Skip:          input.Skip,
		Limit:         input.Limit,
	})
	if err != nil {
		s.recordError(nil, err, "listing articles")
		return nil, eris.Wrap(err, "listing articles")
	}

	return &ListResult{
		Articles: articles,
		Pagination: category.Pagination{
			Skip:    input.Skip,
			Limit:   input.Limit,
			Total:   total,
			HasNext: int64(input.Skip+input.Limit) < total,
		},
	}, nil
}

func (s *service) GetBySlug(ctx context.Context, slugValue string) (*Article, error) {
	found, err := s.repo.GetBySlug(ctx, slugValue)
	if err != nil {
		s.recordError(logrus.Fields{"slug": slugValue}, err, "fetching article")
		return nil, eris.Wrapf(err, "fetching article: %s", slugValue)
	}

	// Drafts are invisible to public reads.
	if found == nil || !found.IsPublished {
		return nil, eris.Wrapf(ErrNotFound, "fetching article: %s", slugValue)
	}

	return found, nil
}

// authorizeMutation loads the article and checks the acting user is its
// author or staff.
func (s *service) authorizeMutation(ctx context.Context, id uint, userID uint, action string) (*Article, error) {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		s.recordError(logrus.Fields{"article_id": id}, err, "fetching article")
		return nil, eris.Wrap(err, "loading article")
	}

	if existing == nil {
		return nil, faults.New(faults.KindBusinessLogic, "article not found")
	}

	actor, err := s.users.GetByID(ctx, userID)
	if err != nil {
		s.recordError(logrus.Fields{"user_id": userID}, err, "fetching acting user")
		return nil, eris.Wrap(err, "loading acting user")
	}

	if actor == nil || (existing.AuthorID != userID && !actor.IsStaff) {
		return nil, faults.Newf(faults.KindAuthorization, "no permission to %s this article", action).
			WithUserMessage("You don't have permission to " + action + " this article")
	}

	return existing, nil
}

func (s *service) checkCategory(ctx context.Context, categoryID *uint) error {
	if categoryID == nil {
		return nil
	}

	found, err := s.categories.GetByID(ctx, *categoryID)
	if err != nil {
		s.recordError(logrus.Fields{"category_id": *categoryID}, err, "fetching category")
		return eris.Wrap(err, "validating category")
	}

	if found == nil || !found.IsActive {
		return faults.New(faults.KindValidation, "invalid category selected").
			WithUserMessage("Invalid category selected")
	}

	return nil
}

// saveWithSlug persists an updated article, reassigning the slug first when
// the title changed and retrying on storage conflicts.
func (s *service) saveWithSlug(ctx context.Context, existing *Article, titleChanged bool) error {
	for attempt := 0; ; attempt++ {
		if titleChanged {
			assigned, err := s.slugs.Assign(ctx, existing.Title, existing.ID)
			if err != nil {
				s.recordError(logrus.Fields{"operation": "article_update", "article_id": existing.ID}, err, "assigning article slug")
				return eris.Wrap(err, "updating article")
			}
			existing.Slug = assigned
		}

		err := s.repo.Save(ctx, existing)
		if err == nil {
			return nil
		}

		if titleChanged && faults.IsKind(err, faults.KindDatabase) && attempt < slugConflictRetries {
			continue
		}

		s.recordError(logrus.Fields{"operation": "article_update", "article_id": existing.ID}, err, "saving article")
		return eris.Wrap(err, "updating article")
	}
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
