// Package router exposes the TwitOff web pages over HTTP using chi.
// Every failure of the underlying service is rendered as a message on the
// page instead of an error status, except for invalid forms (400) and
// rejected admin requests (401).
package router

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	validator "github.com/go-playground/validator/v10"

	"github.com/patric-chuzhbe/twitoff/internal/logger"
	"github.com/patric-chuzhbe/twitoff/internal/metrics"
	"github.com/patric-chuzhbe/twitoff/internal/models"
	"github.com/patric-chuzhbe/twitoff/internal/user"
)

const (
	pageHome       = "home.html"
	pageUser       = "user.html"
	pagePrediction = "prediction.html"
)

//go:embed templates/*.html
var templatesFS embed.FS

type service interface {
	AddOrUpdateUser(ctx context.Context, name string) (*user.User, error)
	UpdateAllUsers(ctx context.Context) ([]user.User, error)
	GetUsers(ctx context.Context) ([]user.User, error)
	GetUserTweets(ctx context.Context, name string) ([]models.Tweet, error)
	Compare(ctx context.Context, name1, name2, text string) (string, error)
	Reset(ctx context.Context) error
	Ping(ctx context.Context) error
}

type adminGuard interface {
	Guard(h http.Handler) http.Handler
}

// Router holds the handlers of the web pages.
type Router struct {
	svc      service
	pages    map[string]*template.Template
	validate *validator.Validate
}

func parsePages() (map[string]*template.Template, error) {
	pages := map[string]*template.Template{}
	for _, page := range []string{pageHome, pageUser, pagePrediction} {
		parsed, err := template.ParseFS(templatesFS, "templates/layout.html", "templates/"+page)
		if err != nil {
			return nil, fmt.Errorf("in internal/router/router.go/parsePages(): error while `template.ParseFS()` calling: %w", err)
		}
		pages[page] = parsed
	}

	return pages, nil
}

func newRouter(svc service) (*Router, error) {
	pages, err := parsePages()
	if err != nil {
		return nil, err
	}

	return &Router{
		svc:      svc,
		pages:    pages,
		validate: validator.New(),
	}, nil
}

// New builds the chi mux. The reset and update routes go through admin.
func New(svc service, admin adminGuard) (*chi.Mux, error) {
	myRouter, err := newRouter(svc)
	if err != nil {
		return nil, err
	}

	router := chi.NewRouter()
	router.Use(
		logger.WithLoggingHTTPMiddleware,
		middleware.Recoverer,
		middleware.Compress(5, "text/html", "text/plain"),
	)

	router.Get(`/`, myRouter.GetRoot)
	router.Get(`/ping`, myRouter.GetPing)
	router.Method(http.MethodGet, `/metrics`, metrics.Handler())
	router.Post(`/user`, myRouter.PostUser)
	router.Get(`/user/{name}`, myRouter.GetUser)
	router.Post(`/compare`, myRouter.PostCompare)
	router.Group(func(r chi.Router) {
		r.Use(admin.Guard)
		r.Get(`/reset`, myRouter.GetReset)
		r.Get(`/update`, myRouter.GetUpdate)
	})

	return router, nil
}

func (router *Router) render(response http.ResponseWriter, status int, page string, data any) {
	var buf bytes.Buffer
	if err := router.pages[page].ExecuteTemplate(&buf, "layout", data); err != nil {
		logger.Log.Errorw("rendering page failed", "page", page, "error", err)
		http.Error(response, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	response.Header().Set("Content-Type", "text/html; charset=utf-8")
	response.WriteHeader(status)
	if _, err := buf.WriteTo(response); err != nil {
		logger.Log.Debugw("writing page failed", "page", page, "error", err)
	}
}

// GetRoot lists the registered users.
func (router *Router) GetRoot(response http.ResponseWriter, request *http.Request) {
	page := models.HomePage{Title: "Home"}

	users, err := router.svc.GetUsers(request.Context())
	if err != nil {
		logger.Log.Errorw("listing users failed", "error", err)
		page.Message = fmt.Sprintf("Error listing users: %v", err)
	}
	page.Users = users

	router.render(response, http.StatusOK, pageHome, page)
}

// GetReset deletes every user and tweet.
func (router *Router) GetReset(response http.ResponseWriter, request *http.Request) {
	page := models.HomePage{Title: "Reset database"}

	if err := router.svc.Reset(request.Context()); err != nil {
		logger.Log.Errorw("reset failed", "error", err)
		page.Message = fmt.Sprintf("Error resetting database: %v", err)
	}

	router.render(response, http.StatusOK, pageHome, page)
}

// GetUpdate refreshes the tweets of every registered user.
func (router *Router) GetUpdate(response http.ResponseWriter, request *http.Request) {
	page := models.HomePage{Title: "Update all users"}

	users, err := router.svc.UpdateAllUsers(request.Context())
	if err != nil {
		logger.Log.Errorw("update failed", "error", err)
		page.Message = fmt.Sprintf("Error updating users: %v", err)
		users, _ = router.svc.GetUsers(request.Context())
	}
	page.Users = users

	router.render(response, http.StatusOK, pageHome, page)
}

// PostUser registers or refreshes the user named by the user_name form field.
func (router *Router) PostUser(response http.ResponseWriter, request *http.Request) {
	name := strings.TrimSpace(request.FormValue("user_name"))
	if err := router.validate.Var(name, "required"); err != nil {
		router.render(response, http.StatusBadRequest, pageUser, models.UserPage{
			Title:   "Add user",
			Message: "Error adding user: user_name is required",
		})
		return
	}

	message := fmt.Sprintf("User %s successfully added!", name)
	_, err := router.svc.AddOrUpdateUser(request.Context(), name)
	router.renderUser(response, request, name, message, err)
}

// GetUser lists the stored tweets of a user.
func (router *Router) GetUser(response http.ResponseWriter, request *http.Request) {
	router.renderUser(response, request, chi.URLParam(request, "name"), "", nil)
}

func (router *Router) renderUser(
	response http.ResponseWriter,
	request *http.Request,
	name string,
	message string,
	err error,
) {
	var tweets []models.Tweet
	if err == nil {
		tweets, err = router.svc.GetUserTweets(request.Context(), name)
	}
	if err != nil {
		logger.Log.Errorw("user page failed", "user", name, "error", err)
		message = fmt.Sprintf("Error adding %s: %v", name, err)
		tweets = nil
	}

	router.render(response, http.StatusOK, pageUser, models.UserPage{
		Title:   name,
		Message: message,
		Tweets:  tweets,
	})
}

// PostCompare predicts which of user1 and user2 is more likely to have written tweet_text.
func (router *Router) PostCompare(response http.ResponseWriter, request *http.Request) {
	form := models.CompareRequest{
		User1:     strings.TrimSpace(request.FormValue("user1")),
		User2:     strings.TrimSpace(request.FormValue("user2")),
		TweetText: request.FormValue("tweet_text"),
	}
	if err := router.validate.Struct(form); err != nil {
		router.render(response, http.StatusBadRequest, pagePrediction, models.PredictionPage{
			Title:   "Prediction",
			Message: fmt.Sprintf("Error comparing %s and %s: user1, user2 and tweet_text are required", form.User1, form.User2),
		})
		return
	}

	message, err := router.svc.Compare(request.Context(), form.User1, form.User2, form.TweetText)
	if err != nil {
		logger.Log.Errorw("compare failed", "user1", form.User1, "user2", form.User2, "error", err)
		message = fmt.Sprintf("Error comparing %s and %s: %v", form.User1, form.User2, err)
	}

	router.render(response, http.StatusOK, pagePrediction, models.PredictionPage{
		Title:   "Prediction",
		Message: message,
	})
}

// GetPing checks the storage.
func (router *Router) GetPing(response http.ResponseWriter, request *http.Request) {
	if err := router.svc.Ping(request.Context()); err != nil {
		logger.Log.Errorw("ping failed", "error", err)
		response.WriteHeader(http.StatusInternalServerError)
		return
	}

	response.WriteHeader(http.StatusOK)
}
