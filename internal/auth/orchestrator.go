package auth

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/anisync/internal/models"
	"github.com/desertthunder/anisync/internal/server"
	"github.com/desertthunder/anisync/internal/shared"
	"golang.org/x/oauth2"
)

// DefaultGrantTimeout bounds how long an authorization flow waits for the
// user to complete the browser grant.
const DefaultGrantTimeout = 2 * time.Minute

// Orchestrator drives the OAuth authorization-code and refresh-token flows
// for both services and persists the results in the token [Store].
type Orchestrator struct {
	store        *Store
	descriptors  map[models.ServiceName]Descriptor
	listenAddr   string
	grantTimeout time.Duration
	openBrowser  func(string) error
	logger       *log.Logger
}

// OrchestratorOpts contains construction options for an [Orchestrator].
type OrchestratorOpts struct {
	Store        *Store
	Descriptors  map[models.ServiceName]Descriptor
	ListenAddr   string // host:port the callback listener binds to
	GrantTimeout time.Duration
	OpenBrowser  func(string) error
	Logger       *log.Logger
}

// NewOrchestrator creates an authentication orchestrator.
func NewOrchestrator(opts OrchestratorOpts) *Orchestrator {
	if opts.GrantTimeout <= 0 {
		opts.GrantTimeout = DefaultGrantTimeout
	}
	if opts.OpenBrowser == nil {
		opts.OpenBrowser = shared.OpenBrowser
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	return &Orchestrator{
		store:        opts.Store,
		descriptors:  opts.Descriptors,
		listenAddr:   opts.ListenAddr,
		grantTimeout: opts.GrantTimeout,
		openBrowser:  opts.OpenBrowser,
		logger:       opts.Logger,
	}
}

// CanRefresh reports whether the given service supports token refresh.
func (o *Orchestrator) CanRefresh(service models.ServiceName) bool {
	return o.descriptors[service].CanRefresh
}

// Authenticate runs the full authorization-code flow for a service.
//
// It starts a short-lived local callback listener, opens the browser to the
// authorization URL with a random anti-forgery state, waits for the redirect
// (bounded by the grant timeout), exchanges the code for tokens, and persists
// the resulting record.
func (o *Orchestrator) Authenticate(ctx context.Context, service models.ServiceName) (models.TokenRecord, error) {
	desc, ok := o.descriptors[service]
	if !ok {
		return models.TokenRecord{}, fmt.Errorf("%w: unknown service %q", shared.ErrInvalidArgument, service)
	}

	state, err := shared.GenerateState()
	if err != nil {
		return models.TokenRecord{}, err
	}

	var authOpts, exchangeOpts []oauth2.AuthCodeOption
	if desc.UsesPKCE {
		verifier, err := shared.GenerateState()
		if err != nil {
			return models.TokenRecord{}, err
		}
		// MAL only supports the plain challenge method, so the challenge
		// is the verifier itself.
		authOpts = append(authOpts,
			oauth2.SetAuthURLParam("code_challenge", verifier),
			oauth2.SetAuthURLParam("code_challenge_method", "plain"),
		)
		exchangeOpts = append(exchangeOpts, oauth2.SetAuthURLParam("code_verifier", verifier))
	}

	authURL := desc.Config.AuthCodeURL(state, authOpts...)
	handler := server.NewOAuthHandler(desc.Config, state, exchangeOpts...)
	router := server.NewBasicRouter()
	router.Handler(handler)

	ln, err := net.Listen("tcp", o.listenAddr)
	if err != nil {
		return models.TokenRecord{}, fmt.Errorf("failed to bind callback listener: %w", err)
	}

	httpServer := &http.Server{Handler: router}
	serverErrors := make(chan error, 1)
	go func() {
		if err := httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			o.logger.Warn("error shutting down callback listener", "error", err)
		}
	}()

	o.logger.Info("starting authorization flow", "service", service, "listen", ln.Addr().String())
	if err := o.openBrowser(authURL); err != nil {
		o.logger.Warn("could not open browser automatically", "error", err)
		o.logger.Infof("visit this URL to authorize:\n%s", authURL)
	}

	timeout := time.NewTimer(o.grantTimeout)
	defer timeout.Stop()

	var result server.OAuthResult
	select {
	case result = <-handler.Result():
	case err := <-serverErrors:
		return models.TokenRecord{}, fmt.Errorf("callback listener error: %w", err)
	case <-timeout.C:
		return models.TokenRecord{}, fmt.Errorf("%w: no authorization after %s", shared.ErrTimeout, o.grantTimeout)
	case <-ctx.Done():
		return models.TokenRecord{}, ctx.Err()
	}

	if result.Error() != nil {
		return models.TokenRecord{}, result.Error()
	}
	if result.Token == nil {
		return models.TokenRecord{}, fmt.Errorf("%w: no token received", shared.ErrAuthFailed)
	}

	record := recordFromToken(result.Token)
	if err := o.store.Put(service, record); err != nil {
		return models.TokenRecord{}, err
	}

	o.logger.Info("authorization successful", "service", service, "expires_at", record.ExpiresAt)
	return record, nil
}

// Refresh exchanges a service's refresh token for a new access token.
//
// For a service without refresh capability this is a deliberate no-op that
// returns the existing (possibly stale) record: expiry for such a service can
// only be cleared by a full Authenticate.
func (o *Orchestrator) Refresh(ctx context.Context, service models.ServiceName) (models.TokenRecord, error) {
	desc, ok := o.descriptors[service]
	if !ok {
		return models.TokenRecord{}, fmt.Errorf("%w: unknown service %q", shared.ErrInvalidArgument, service)
	}

	record, exists, err := o.store.Get(service)
	if err != nil {
		return models.TokenRecord{}, err
	}
	if !exists {
		return models.TokenRecord{}, fmt.Errorf("%w: no stored token for %s", shared.ErrAuthFailed, service)
	}

	if !desc.CanRefresh {
		return record, nil
	}
	if !record.Refreshable() {
		return models.TokenRecord{}, fmt.Errorf("%w: %s record has no refresh token", shared.ErrNoRefreshToken, service)
	}

	o.logger.Info("refreshing access token", "service", service)
	source := desc.Config.TokenSource(ctx, &oauth2.Token{RefreshToken: record.RefreshToken})
	token, err := source.Token()
	if err != nil {
		return models.TokenRecord{}, fmt.Errorf("%w: %v", shared.ErrRefreshFailed, err)
	}

	refreshed := recordFromToken(token)
	if refreshed.RefreshToken == "" {
		// The service did not rotate the refresh token; keep the old one.
		refreshed.RefreshToken = record.RefreshToken
	}

	if err := o.store.Put(service, refreshed); err != nil {
		return models.TokenRecord{}, err
	}

	return refreshed, nil
}

// Reauthenticate runs a full authorization flow after a live call reported an
// authorization failure. It never refreshes: a 401/403 means the credential
// is invalid outright, not merely time-expired.
func (o *Orchestrator) Reauthenticate(ctx context.Context, service models.ServiceName) (models.TokenRecord, error) {
	o.logger.Warn("credential rejected by service, starting re-authorization", "service", service)
	return o.Authenticate(ctx, service)
}

// Token resolves a usable token for a service.
//
// Missing tokens trigger a full authorization. Expired tokens are refreshed
// when the service supports it; otherwise [shared.ErrReauthRequired] is
// returned so the caller can surface the manual-action condition without
// touching any remote list.
func (o *Orchestrator) Token(ctx context.Context, service models.ServiceName) (models.TokenRecord, error) {
	record, exists, err := o.store.Get(service)
	if err != nil {
		return models.TokenRecord{}, err
	}

	if !exists || record.AccessToken == "" {
		return o.Authenticate(ctx, service)
	}

	if !o.store.IsExpired(record, time.Now()) {
		return record, nil
	}

	if o.CanRefresh(service) && record.Refreshable() {
		return o.Refresh(ctx, service)
	}

	return models.TokenRecord{}, fmt.Errorf("%w: %s token expired and cannot be refreshed", shared.ErrReauthRequired, service)
}

func recordFromToken(token *oauth2.Token) models.TokenRecord {
	return models.TokenRecord{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		TokenType:    token.TokenType,
		ExpiresAt:    token.Expiry,
	}
}
