package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"

	"github.com/desertthunder/hubtwin/internal/server"
	"github.com/desertthunder/hubtwin/internal/services"
	"github.com/desertthunder/hubtwin/internal/shared"
	"github.com/desertthunder/hubtwin/internal/ui"
)

const shutdownTimeout = 5 * time.Second

// AuthLogin performs the Twinfield OAuth2 authorization code flow.
//
// Starts the TLS callback listener, opens the browser for authorization, waits for the redirect to hand the
// code over, closes the listener and exchanges the code for tokens that are saved to the config file.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	if err := r.config.Validate(); err != nil {
		return err
	}
	if err := r.config.ValidateTwinfield(); err != nil {
		return err
	}

	token, err := r.doOAuth(ctx, cmd)
	if err != nil {
		return err
	}

	services.StoreToken(&r.config.Credentials.Twinfield, token)
	if err := r.saveConfig(); err != nil {
		return err
	}

	r.writePlainln("%s", ui.Success("✓ Authorization successful"))
	r.writePlain("✓ Tokens saved to %s\n\n", r.configPath)
	r.writePlain("You can now use: hubtwin sync run --dry-run\n")
	return nil
}

func (r *Runner) doOAuth(ctx context.Context, cmd *cli.Command) (*oauth2.Token, error) {
	state, err := shared.GenerateState()
	if err != nil {
		return nil, fmt.Errorf("failed to generate state token: %w", err)
	}
	nonce, err := shared.GenerateState()
	if err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	handoff := server.NewHandoff(1)
	opts := []server.CallbackOption{server.WithCallbackLogger(r.logger)}
	if r.config.Server.ValidateState {
		opts = append(opts, server.WithState(state))
	}
	handler := server.NewCallbackHandler(handoff, opts...)

	listener, callbackURL, err := server.Start(server.ListenerConfigFrom(r.config.Server), server.NewCallbackRouter(handler), r.logger)
	if err != nil {
		return nil, err
	}
	defer func() {
		r.closeListener(listener)
		r.logger.Debug("callback listener closed", "captured", handler.Captured())
	}()

	authCfg := r.config.Credentials.Twinfield
	if authCfg.RedirectURI == "" {
		authCfg.RedirectURI = callbackURL + "/"
	}

	auth, err := r.twinfieldAuth(authCfg)
	if err != nil {
		return nil, err
	}
	authURL := auth.AuthURL(state, nonce)

	r.writePlain("→ Callback listener ready at %s\n", callbackURL)
	r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	if !cmd.Bool("no-browser") && r.config.Server.OpenBrowser {
		r.writePlain("→ Opening browser for Twinfield authorization...\n")
		if err := r.openBrowser(authURL); err != nil {
			r.logger.Warnf("failed to open browser automatically %v", err)
			r.writePlainln("%s", ui.Warning("⚠ Could not open browser automatically."))
		}
	}

	timeout := r.config.Server.ReceiveTimeout.Duration
	if cmd.IsSet("timeout") {
		timeout = cmd.Duration("timeout")
	}
	if timeout > 0 {
		r.writePlain("→ Waiting for authorization (%s timeout)...\n", timeout)
	} else {
		r.writePlain("→ Waiting for authorization...\n")
	}

	code, err := r.receiveCode(ctx, handoff, listener, timeout)
	if err != nil {
		return nil, err
	}

	r.closeListener(listener)
	r.logger.Debug("authorization code received", "code", shared.Mask(code))

	return auth.Exchange(ctx, code)
}

// receiveCode waits for the handoff, the listener dying, ctx, or the timeout, whichever comes first.
func (r *Runner) receiveCode(ctx context.Context, handoff *server.Handoff, listener *server.Listener, timeout time.Duration) (string, error) {
	waitCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	if timeout > 0 {
		waitCtx, cancel = context.WithTimeout(waitCtx, timeout)
		defer cancel()
	}

	go func() {
		select {
		case <-listener.Done():
			cancel()
		case <-waitCtx.Done():
		}
	}()

	code, err := handoff.Receive(waitCtx)
	if err == nil {
		return code, nil
	}

	switch {
	case listener.Err() != nil:
		return "", fmt.Errorf("callback listener stopped: %w", listener.Err())
	case errors.Is(err, context.DeadlineExceeded):
		return "", fmt.Errorf("%w: no authorization code received within %s", shared.ErrTimeout, timeout)
	default:
		return "", err
	}
}

func (r *Runner) closeListener(l *server.Listener) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := l.Close(ctx); err != nil {
		r.logger.Warn("error shutting down callback listener", "error", err)
	}
}

// AuthStatus shows the stored Twinfield tokens, optionally refreshing them.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	tw := r.config.Credentials.Twinfield

	if cmd.Bool("refresh") {
		if err := r.config.ValidateTwinfield(); err != nil {
			return err
		}
		auth, err := r.twinfieldAuth(tw)
		if err != nil {
			return err
		}
		token, err := auth.Refresh(ctx, tw.RefreshToken)
		if err != nil {
			return err
		}
		services.StoreToken(&r.config.Credentials.Twinfield, token)
		if err := r.saveConfig(); err != nil {
			return err
		}
		tw = r.config.Credentials.Twinfield
		r.writePlain("%s\n", ui.Success("✓ Access token refreshed"))
	}

	r.writePlainHeader("Twinfield")
	r.writePlain("Client ID:     %s\n", valueOr(tw.ClientID, "(not set)"))
	r.writePlain("Company code:  %s\n", valueOr(tw.CompanyCode, "(not set)"))

	token := services.TokenFromConfig(tw)
	if token == nil {
		r.writePlain("Tokens:        %s\n", ui.Error("✗ Not authenticated"))
		r.writePlain("\nRun 'hubtwin auth login' to authorize.\n")
		return nil
	}

	r.writePlain("Access token:  %s\n", shared.Mask(token.AccessToken))
	if token.RefreshToken != "" {
		r.writePlain("Refresh token: %s\n", shared.Mask(token.RefreshToken))
	} else {
		r.writePlain("Refresh token: %s\n", ui.Warning("(none)"))
	}

	switch {
	case token.Expiry.IsZero():
		r.writePlain("Expiry:        unknown\n")
	case token.Valid():
		r.writePlain("Expiry:        %s (%s)\n", token.Expiry.Format(time.RFC3339), ui.Success("valid"))
	default:
		r.writePlain("Expiry:        %s (%s)\n", token.Expiry.Format(time.RFC3339), ui.Warning("expired, refreshed on next sync"))
	}

	r.writePlainHeader("HubSpot")
	if r.config.Credentials.HubSpot.AccessToken == "" {
		r.writePlain("Access token:  %s\n", ui.Error("✗ Not set"))
	} else {
		r.writePlain("Access token:  %s\n", shared.Mask(r.config.Credentials.HubSpot.AccessToken))
	}
	return nil
}

func valueOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
