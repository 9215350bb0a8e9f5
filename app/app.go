// Package app implements the activity signup client: loading the catalog,
// submitting signups and removing participants.
//
// Every user action runs in two halves. The first half runs on the caller's
// goroutine and reads the page (and asks for confirmation on removal). The
// network request and the page update run through the Dispatcher, so the
// caller can keep accepting input while requests are in flight. Requests are
// never cancelled, de-duplicated or serialized; whichever response completes
// last leaves its banner and list on the page.
//
// After a successful signup or removal the whole catalog is fetched again
// rather than patched locally.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/nomis52/signup/catalog"
	"github.com/nomis52/signup/clients/activityclient"
	"github.com/nomis52/signup/page"
	"github.com/nomis52/signup/statusreporter"
)

// Texts shown to the user.
const (
	MsgGenericError     = "An error occurred"
	MsgSignupFailed     = "Failed to sign up. Please try again."
	MsgUnregisterFailed = "Failed to unregister. Please try again."
)

// ErrNoActivity is returned by Submit when no offered activity is selected.
var ErrNoActivity = errors.New("no activity selected")

// API is the subset of the activities API the client uses.
// *activityclient.Client satisfies it.
type API interface {
	ListActivities(ctx context.Context) (catalog.Catalog, error)
	Signup(ctx context.Context, activity, email string) (string, error)
	Unregister(ctx context.Context, activity, email string) (string, error)
}

// Confirmer asks the user a yes/no question.
type Confirmer interface {
	Confirm(prompt string) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(prompt string) bool

func (f ConfirmFunc) Confirm(prompt string) bool {
	return f(prompt)
}

// App is the signup client controller.
type App struct {
	client    API
	page      *page.Page
	banner    *statusreporter.Banner
	logger    *slog.Logger
	confirmer Confirmer
	dispatch  Dispatcher
	baseCtx   context.Context
}

// Option configures an App.
type Option func(*App)

// WithLogger sets the logger used for diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(a *App) {
		a.logger = logger
	}
}

// WithConfirmer sets who is asked before a participant is removed.
// Without one every removal is declined.
func WithConfirmer(c Confirmer) Option {
	return func(a *App) {
		a.confirmer = c
	}
}

// WithDispatcher sets how requests run. The default is an AsyncDispatcher.
func WithDispatcher(d Dispatcher) Option {
	return func(a *App) {
		a.dispatch = d
	}
}

// New creates an App driving pg and registers its handler for clicks in the
// activity list.
func New(client API, pg *page.Page, opts ...Option) *App {
	a := &App{
		client:  client,
		page:    pg,
		banner:  pg.Banner(),
		baseCtx: context.Background(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = slog.Default()
	}
	if a.confirmer == nil {
		a.confirmer = ConfirmFunc(func(string) bool { return false })
	}
	if a.dispatch == nil {
		a.dispatch = &AsyncDispatcher{}
	}

	pg.OnListClick(func(el page.Element) {
		a.HandleListClick(a.baseCtx, el)
	})
	return a
}

// Start records ctx as the context for click-driven requests and loads the
// catalog.
func (a *App) Start(ctx context.Context) {
	a.baseCtx = ctx
	a.LoadActivities(ctx)
}

// Wait blocks until all in-flight requests have completed.
func (a *App) Wait() {
	a.dispatch.Wait()
}

// LoadActivities fetches the catalog in the background and replaces the list
// and selector with it.
func (a *App) LoadActivities(ctx context.Context) {
	a.dispatch.Go(func() {
		_ = a.Refresh(ctx)
	})
}

// Refresh fetches the catalog and replaces the list and selector with it.
// On failure the list shows the error and the selector is left unchanged.
func (a *App) Refresh(ctx context.Context) error {
	c, err := a.client.ListActivities(ctx)
	if err != nil {
		a.logger.Error("failed to fetch activities", "error", err)
		a.page.ShowNotice(fmt.Sprintf("Failed to load activities: %v", loadErrorText(err)))
		return err
	}
	a.page.ShowCatalog(c)
	return nil
}

// Submit signs up the form's email for the form's activity. It returns
// ErrNoActivity, sending nothing, when the selected activity is not offered.
// The response is handled in the background.
func (a *App) Submit(ctx context.Context) error {
	form := a.page.Form()
	if form.Activity == "" || !slices.Contains(a.page.Options(), form.Activity) {
		return ErrNoActivity
	}

	a.dispatch.Go(func() {
		msg, err := a.client.Signup(ctx, form.Activity, form.Email)
		if err != nil {
			a.showFailure(err, MsgSignupFailed, "failed to sign up")
			return
		}
		a.banner.Show(statusreporter.Success, msg)
		a.page.ResetForm()
		a.LoadActivities(ctx)
	})
	return nil
}

// HandleListClick handles a click anywhere in the activity list. Only removal
// controls react: after confirmation the participant is unregistered in the
// background. A declined confirmation sends nothing.
func (a *App) HandleListClick(ctx context.Context, el page.Element) {
	if !el.HasClass(page.MarkerClass) {
		return
	}
	activity := el.Data[page.DataActivity]
	email := el.Data[page.DataEmail]

	prompt := fmt.Sprintf("Are you sure you want to unregister %s from %s?", email, activity)
	if !a.confirmer.Confirm(prompt) {
		a.logger.Debug("removal declined", "activity", activity, "email", email)
		return
	}

	a.dispatch.Go(func() {
		msg, err := a.client.Unregister(ctx, activity, email)
		if err != nil {
			a.showFailure(err, MsgUnregisterFailed, "failed to unregister")
			return
		}
		a.banner.Show(statusreporter.Success, msg)
		a.LoadActivities(ctx)
	})
}

// showFailure shows the server's detail for API errors and transportText for
// everything else, which is also logged.
func (a *App) showFailure(err error, transportText, logMsg string) {
	var apiErr *activityclient.APIError
	if errors.As(err, &apiErr) {
		text := apiErr.Detail
		if text == "" {
			text = MsgGenericError
		}
		a.banner.Show(statusreporter.Error, text)
		return
	}
	a.logger.Error(logMsg, "error", err)
	a.banner.Show(statusreporter.Error, transportText)
}

// loadErrorText returns the message shown for a failed catalog load. HTTP
// status failures read "HTTP <code>: <reason>".
func loadErrorText(err error) string {
	var statusErr *activityclient.StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Error()
	}
	return err.Error()
}
