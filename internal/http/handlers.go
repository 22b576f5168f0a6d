package http

import (
	"context"
	stdhttp "net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/getsentry/sentry-go"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"

	"quill/app/internal/article"
	"quill/app/internal/category"
	"quill/app/internal/db"
	"quill/app/internal/faults"
	"quill/app/internal/validate"
)

const jsonContentType = "application/json"

// envelope is the uniform response body: success with data, or an error
// record carrying a traceable identifier.
type envelope struct {
	Success    bool           `json:"success"`
	Data       any            `json:"data,omitempty"`
	Error      *faults.Record `json:"error,omitempty"`
	StatusCode int            `json:"status_code"`
}

type apiResponse struct {
	Status int
	Body   envelope
}

func okResponse(status int, data any) *apiResponse {
	return &apiResponse{
		Status: status,
		Body:   envelope{Success: true, Data: data, StatusCode: status},
	}
}

// errorResponse classifies the error, hands it to the fault manager for
// logging and identifier assignment, and wraps the record in the envelope.
func (s *Server) errorResponse(ctx context.Context, err error, fields logrus.Fields) (*apiResponse, error) {
	status := stdhttp.StatusInternalServerError
	severity := faults.SeverityHigh

	switch {
	case eris.Is(err, article.ErrNotFound), eris.Is(err, category.ErrNotFound):
		status = stdhttp.StatusNotFound
		severity = faults.SeverityLow
	default:
		kind := faults.KindOf(err)
		status = faults.HTTPStatus(kind)
		severity = faults.SeverityFor(kind)
	}

	if fields == nil {
		fields = logrus.Fields{}
	}
	if requestID := RequestIDFromContext(ctx); requestID != "" {
		fields["request_id"] = requestID
	}

	record := s.faults.Handle(err, severity, fields, faults.UserMessage(err))

	return &apiResponse{
		Status: status,
		Body:   envelope{Success: false, Error: &record, StatusCode: status},
	}, nil
}

type userView struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	FullName string `json:"full_name,omitempty"`
}

type categoryView struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description,omitempty"`
	IsActive    bool   `json:"is_active"`
	CreatedAt   string `json:"created_at"`
}

type articleView struct {
	ID          uint          `json:"id"`
	Title       string        `json:"title"`
	Slug        string        `json:"slug"`
	Content     string        `json:"content,omitempty"`
	Excerpt     string        `json:"excerpt,omitempty"`
	IsPublished bool          `json:"is_published"`
	PublishedAt *string       `json:"published_at"`
	Author      *userView     `json:"author,omitempty"`
	Category    *categoryView `json:"category,omitempty"`
	CreatedAt   string        `json:"created_at"`
	UpdatedAt   string        `json:"updated_at"`
}

type paginationView struct {
	Skip    int   `json:"skip"`
	Limit   int   `json:"limit"`
	Total   int64 `json:"total"`
	HasNext bool  `json:"has_next"`
}

func articleToView(a *article.Article, includeContent bool) articleView {
	view := articleView{
		ID:          a.ID,
		Title:       a.Title,
		Slug:        a.Slug,
		Excerpt:     a.Excerpt,
		IsPublished: a.IsPublished,
		CreatedAt:   a.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:   a.UpdatedAt.UTC().Format(time.RFC3339),
	}

	if includeContent {
		view.Content = a.Content
	}

	if a.PublishedAt != nil {
		published := a.PublishedAt.UTC().Format(time.RFC3339)
		view.PublishedAt = &published
	}

	if a.Author != nil {
		view.Author = &userView{
			ID:       a.Author.ID,
			Username: a.Author.Username,
			FullName: a.Author.FullName(),
		}
	}

	if a.Category != nil {
		cat := categoryToView(a.Category)
		view.Category = &cat
	}

	return view
}

func categoryToView(c *category.Category) categoryView {
	return categoryView{
		ID:          c.ID,
		Name:        c.Name,
		Slug:        c.Slug,
		Description: c.Description,
		IsActive:    c.IsActive,
		CreatedAt:   c.CreatedAt.UTC().Format(time.RFC3339),
	}
}

type registerInput struct {
	Body struct {
		Email     string `json:"email"`
		Username  string `json:"username"`
		Password  string `json:"password"`
		FirstName string `json:"first_name,omitempty"`
		LastName  string `json:"last_name,omitempty"`
	}
}

type loginInput struct {
	Body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
}

type changePasswordInput struct {
	Body struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
	}
}

type createArticleInput struct {
	Body struct {
		Title       string `json:"title"`
		Content     string `json:"content"`
		Excerpt     string `json:"excerpt,omitempty"`
		CategoryID  *uint  `json:"category_id,omitempty"`
		IsPublished bool   `json:"is_published,omitempty"`
	}
}

type updateArticleInput struct {
	ID   uint `path:"id"`
	Body struct {
		Title         *string `json:"title,omitempty"`
		Content       *string `json:"content,omitempty"`
		Excerpt       *string `json:"excerpt,omitempty"`
		CategoryID    *uint   `json:"category_id,omitempty"`
		ClearCategory bool    `json:"clear_category,omitempty"`
		IsPublished   *bool   `json:"is_published,omitempty"`
	}
}

type articleIDInput struct {
	ID uint `path:"id"`
}

type articleSlugInput struct {
	Slug string `path:"slug"`
}

type listArticlesInput struct {
	AuthorID   uint   `query:"author_id"`
	CategoryID uint   `query:"category_id"`
	Query      string `query:"q"`
	Skip       int    `query:"skip"`
	Limit      int    `query:"limit"`
}

type createCategoryInput struct {
	Body struct {
		Name        string `json:"name"`
		Description string `json:"description,omitempty"`
		IsActive    *bool  `json:"is_active,omitempty"`
	}
}

type listCategoriesInput struct {
	ActiveOnly bool `query:"active_only"`
	Skip       int  `query:"skip"`
	Limit      int  `query:"limit"`
}

type categorySlugInput struct {
	Slug string `path:"slug"`
}

type healthResponse struct {
	Status int
	Body   struct {
		Status   string `json:"status"`
		Database string `json:"database"`
	}
}

func (s *Server) registerAuthRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID:   "auth-register",
		Method:        stdhttp.MethodPost,
		Path:          "/api/auth/register",
		Summary:       "Register a new account",
		DefaultStatus: stdhttp.StatusCreated,
	}, s.registerHandler)

	huma.Register(s.api, huma.Operation{
		OperationID: "auth-login",
		Method:      stdhttp.MethodPost,
		Path:        "/api/auth/login",
		Summary:     "Authenticate and obtain a token",
	}, s.loginHandler)

	huma.Register(s.api, huma.Operation{
		OperationID: "auth-change-password",
		Method:      stdhttp.MethodPost,
		Path:        "/api/auth/change-password",
		Summary:     "Change the current account's password",
		Middlewares: huma.Middlewares{s.requireAuth()},
	}, s.changePasswordHandler)
}

func (s *Server) registerArticleRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "articles-list",
		Method:      stdhttp.MethodGet,
		Path:        "/api/articles",
		Summary:     "List published articles",
	}, s.listArticlesHandler)

	huma.Register(s.api, huma.Operation{
		OperationID: "articles-get",
		Method:      stdhttp.MethodGet,
		Path:        "/api/articles/{slug}",
		Summary:     "Fetch a published article by slug",
	}, s.getArticleHandler)

	huma.Register(s.api, huma.Operation{
		OperationID:   "articles-create",
		Method:        stdhttp.MethodPost,
		Path:          "/api/articles",
		Summary:       "Create an article",
		DefaultStatus: stdhttp.StatusCreated,
		Middlewares:   huma.Middlewares{s.requireAuth()},
	}, s.createArticleHandler)

	huma.Register(s.api, huma.Operation{
		OperationID: "articles-update",
		Method:      stdhttp.MethodPut,
		Path:        "/api/articles/{id}",
		Summary:     "Update an article",
		Middlewares: huma.Middlewares{s.requireAuth()},
	}, s.updateArticleHandler)

	huma.Register(s.api, huma.Operation{
		OperationID: "articles-delete",
		Method:      stdhttp.MethodDelete,
		Path:        "/api/articles/{id}",
		Summary:     "Delete an article",
		Middlewares: huma.Middlewares{s.requireAuth()},
	}, s.deleteArticleHandler)

	huma.Register(s.api, huma.Operation{
		OperationID: "articles-publish",
		Method:      stdhttp.MethodPost,
		Path:        "/api/articles/{id}/publish",
		Summary:     "Publish an article",
		Middlewares: huma.Middlewares{s.requireAuth()},
	}, s.publishArticleHandler)

	huma.Register(s.api, huma.Operation{
		OperationID: "articles-unpublish",
		Method:      stdhttp.MethodPost,
		Path:        "/api/articles/{id}/unpublish",
		Summary:     "Unpublish an article",
		Middlewares: huma.Middlewares{s.requireAuth()},
	}, s.unpublishArticleHandler)
}

func (s *Server) registerCategoryRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "categories-list",
		Method:      stdhttp.MethodGet,
		Path:        "/api/categories",
		Summary:     "List categories",
	}, s.listCategoriesHandler)

	huma.Register(s.api, huma.Operation{
		OperationID: "categories-get",
		Method:      stdhttp.MethodGet,
		Path:        "/api/categories/{slug}",
		Summary:     "Fetch a category by slug",
	}, s.getCategoryHandler)

	huma.Register(s.api, huma.Operation{
		OperationID:   "categories-create",
		Method:        stdhttp.MethodPost,
		Path:          "/api/categories",
		Summary:       "Create a category",
		DefaultStatus: stdhttp.StatusCreated,
		Middlewares:   huma.Middlewares{s.requireAuth()},
	}, s.createCategoryHandler)
}

func (s *Server) registerHealthRoute() {
	huma.Get(s.api, "/healthz", s.healthHandler, func(op *huma.Operation) {
		op.Summary = "Health check"
	})
}

func (s *Server) registerHandler(ctx context.Context, input *registerInput) (*apiResponse, error) {
	summary, err := s.users.Register(ctx, validate.Registration{
		Email:     input.Body.Email,
		Username:  input.Body.Username,
		Password:  input.Body.Password,
		FirstName: input.Body.FirstName,
		LastName:  input.Body.LastName,
	})
	if err != nil {
		return s.errorResponse(ctx, err, logrus.Fields{"operation": "user_registration"})
	}

	return okResponse(stdhttp.StatusCreated, summary), nil
}

func (s *Server) loginHandler(ctx context.Context, input *loginInput) (*apiResponse, error) {
	session, err := s.users.Authenticate(ctx, validate.Login{
		Email:    input.Body.Email,
		Password: input.Body.Password,
	})
	if err != nil {
		return s.errorResponse(ctx, err, logrus.Fields{"operation": "user_authentication"})
	}

	return okResponse(stdhttp.StatusOK, session), nil
}

func (s *Server) changePasswordHandler(ctx context.Context, input *changePasswordInput) (*apiResponse, error) {
	userID := UserIDFromContext(ctx)

	if err := s.users.ChangePassword(ctx, userID, input.Body.CurrentPassword, input.Body.NewPassword); err != nil {
		return s.errorResponse(ctx, err, logrus.Fields{"operation": "password_change", "user_id": userID})
	}

	return okResponse(stdhttp.StatusOK, map[string]string{"message": "Password updated successfully"}), nil
}

func (s *Server) listArticlesHandler(ctx context.Context, input *listArticlesInput) (*apiResponse, error) {
	result, err := s.articles.List(ctx, article.ListInput{
		PublishedOnly: true,
		AuthorID:      input.AuthorID,
		CategoryID:    input.CategoryID,
		Query:         strings.TrimSpace(input.Query),
		Skip:          input.Skip,
		Limit:         input.Limit,
	})
	if err != nil {
		return s.errorResponse(ctx, err, logrus.Fields{"operation": "article_listing"})
	}

	views := make([]articleView, 0, len(result.Articles))
	for i := range result.Articles {
		views = append(views, articleToView(&result.Articles[i], false))
	}

	return okResponse(stdhttp.StatusOK, map[string]any{
		"articles": views,
		"pagination": paginationView{
			Skip:    result.Pagination.Skip,
			Limit:   result.Pagination.Limit,
			Total:   result.Pagination.Total,
			HasNext: result.Pagination.HasNext,
		},
	}), nil
}

func (s *Server) getArticleHandler(ctx context.Context, input *articleSlugInput) (*apiResponse, error) {
	slug := strings.TrimSpace(input.Slug)

	found, err := s.articles.GetBySlug(ctx, slug)
	if err != nil {
		return s.errorResponse(ctx, err, logrus.Fields{"slug": slug})
	}

	return okResponse(stdhttp.StatusOK, articleToView(found, true)), nil
}

func (s *Server) createArticleHandler(ctx context.Context, input *createArticleInput) (*apiResponse, error) {
	userID := UserIDFromContext(ctx)

	created, err := s.articles.Create(ctx, article.CreateInput{
		Title:       input.Body.Title,
		Content:     input.Body.Content,
		Excerpt:     input.Body.Excerpt,
		CategoryID:  input.Body.CategoryID,
		IsPublished: input.Body.IsPublished,
	}, userID)
	if err != nil {
		return s.errorResponse(ctx, err, logrus.Fields{"operation": "article_creation", "user_id": userID})
	}

	return okResponse(stdhttp.StatusCreated, articleToView(created, true)), nil
}

func (s *Server) updateArticleHandler(ctx context.Context, input *updateArticleInput) (*apiResponse, error) {
	userID := UserIDFromContext(ctx)

	updated, err := s.articles.Update(ctx, input.ID, article.UpdateInput{
		Title:         input.Body.Title,
		Content:       input.Body.Content,
		Excerpt:       input.Body.Excerpt,
		CategoryID:    input.Body.CategoryID,
		ClearCategory: input.Body.ClearCategory,
		IsPublished:   input.Body.IsPublished,
	}, userID)
	if err != nil {
		return s.errorResponse(ctx, err, logrus.Fields{"operation": "article_update", "article_id": input.ID, "user_id": userID})
	}

	return okResponse(stdhttp.StatusOK, articleToView(updated, true)), nil
}

func (s *Server) deleteArticleHandler(ctx context.Context, input *articleIDInput) (*apiResponse, error) {
	userID := UserIDFromContext(ctx)

	if err := s.articles.Delete(ctx, input.ID, userID); err != nil {
		return s.errorResponse(ctx, err, logrus.Fields{"operation": "article_deletion", "article_id": input.ID, "user_id": userID})
	}

	return okResponse(stdhttp.StatusOK, map[string]string{"message": "Article deleted successfully"}), nil
}

func (s *Server) publishArticleHandler(ctx context.Context, input *articleIDInput) (*apiResponse, error) {
	userID := UserIDFromContext(ctx)

	published, err := s.articles.Publish(ctx, input.ID, userID)
	if err != nil {
		return s.errorResponse(ctx, err, logrus.Fields{"operation": "article_publish", "article_id": input.ID, "user_id": userID})
	}

	return okResponse(stdhttp.StatusOK, articleToView(published, true)), nil
}

func (s *Server) unpublishArticleHandler(ctx context.Context, input *articleIDInput) (*apiResponse, error) {
	userID := UserIDFromContext(ctx)

	unpublished, err := s.articles.Unpublish(ctx, input.ID, userID)
	if err != nil {
		return s.errorResponse(ctx, err, logrus.Fields{"operation": "article_unpublish", "article_id": input.ID, "user_id": userID})
	}

	return okResponse(stdhttp.StatusOK, articleToView(unpublished, true)), nil
}

func (s *Server) listCategoriesHandler(ctx context.Context, input *listCategoriesInput) (*apiResponse, error) {
	result, err := s.categories.List(ctx, category.ListInput{
		ActiveOnly: input.ActiveOnly,
		Skip:       input.Skip,
		Limit:      input.Limit,
	})
	if err != nil {
		return s.errorResponse(ctx, err, logrus.Fields{"operation": "category_listing"})
	}

	views := make([]categoryView, 0, len(result.Categories))
	for i := range result.Categories {
		views = append(views, categoryToView(&result.Categories[i]))
	}

	return okResponse(stdhttp.StatusOK, map[string]any{
		"categories": views,
		"pagination": paginationView{
			Skip:    result.Pagination.Skip,
			Limit:   result.Pagination.Limit,
			Total:   result.Pagination.Total,
			HasNext: result.Pagination.HasNext,
		},
	}), nil
}

func (s *Server) getCategoryHandler(ctx context.Context, input *categorySlugInput) (*apiResponse, error) {
	slug := strings.TrimSpace(input.Slug)

	found, err := s.categories.GetBySlug(ctx, slug)
	if err != nil {
		return s.errorResponse(ctx, err, logrus.Fields{"slug": slug})
	}

	return okResponse(stdhttp.StatusOK, categoryToView(found)), nil
}

func (s *Server) createCategoryHandler(ctx context.Context, input *createCategoryInput) (*apiResponse, error) {
	userID := UserIDFromContext(ctx)

	actor, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return s.errorResponse(ctx, err, logrus.Fields{"operation": "category_creation", "user_id": userID})
	}
	if actor == nil || !actor.IsStaff {
		denied := faults.New(faults.KindAuthorization, "staff role required to create categories").
			WithUserMessage("You don't have permission to create categories")
		return s.errorResponse(ctx, denied, logrus.Fields{"operation": "category_creation", "user_id": userID})
	}

	created, err := s.categories.Create(ctx, category.CreateInput{
		Name:        input.Body.Name,
		Description: input.Body.Description,
		IsActive:    input.Body.IsActive,
	})
	if err != nil {
		return s.errorResponse(ctx, err, logrus.Fields{"operation": "category_creation"})
	}

	return okResponse(stdhttp.StatusCreated, categoryToView(created)), nil
}

func (s *Server) healthHandler(ctx context.Context, _ *struct{}) (*healthResponse, error) {
	resp := &healthResponse{}
	resp.Body.Status = "ok"
	resp.Body.Database = "ok"

	sqlDB, err := db.SQLDB(s.db)
	if err != nil {
		s.recordError(ctx, err, "obtaining sql db", nil)
		resp.Body.Status = "degraded"
		resp.Body.Database = "error"
		resp.Status = stdhttp.StatusServiceUnavailable
	} else if pingErr := sqlDB.PingContext(ctx); pingErr != nil {
		s.recordError(ctx, pingErr, "pinging database", nil)
		resp.Body.Status = "degraded"
		resp.Body.Database = "error"
		resp.Status = stdhttp.StatusServiceUnavailable
	}

	if resp.Status == 0 {
		resp.Status = stdhttp.StatusOK
	}

	return resp, nil
}

func (s *Server) recordError(ctx context.Context, err error, message string, fields logrus.Fields) {
	if err == nil {
		return
	}

	if s.logger != nil {
		entry := s.logger.WithField("error", err.Error())
		if fields != nil {
			entry = entry.WithFields(fields)
		}
		if requestID := RequestIDFromContext(ctx); requestID != "" {
			entry = entry.WithField("request_id", requestID)
		}
		entry.Error(message)
	}

	if hub := sentry.GetHubFromContext(ctx); hub != nil {
		hub.CaptureException(err)
		return
	}
	if s.sentry != nil {
		s.sentry.CaptureException(err)
	}
}
