package main

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"

	"github.com/desertthunder/stride/internal/server"
	"github.com/desertthunder/stride/internal/services"
	"github.com/desertthunder/stride/internal/shared"
)

const authTimeout = 2 * time.Minute

// SpotifyAuth runs the OAuth2 authorization flow and saves the resulting tokens to the config file.
func (r *Runner) SpotifyAuth(ctx context.Context, cmd *cli.Command) error {
	creds := r.config.Credentials.Spotify
	spotify, err := services.NewSpotifyService(creds.Map())
	if err != nil {
		return err
	}

	token, err := r.doOAuth(ctx, spotify, creds.RedirectURI)
	if err != nil {
		return err
	}

	if err := r.saveTokens(token); err != nil {
		return err
	}

	spotify.SetToken(ctx, token)
	r.spotify, r.streaming = nil, spotify

	user, err := spotify.CurrentUser(ctx)
	if err != nil {
		r.logger.Warn("authenticated but failed to load profile", "error", err)
		r.writePlainln("✓ Authenticated with Spotify")
		return nil
	}

	r.writePlainln("✓ Authenticated with Spotify as %s", displayName(user))
	return nil
}

// doOAuth executes the OAuth2 authorization flow with a local callback server.
func (r *Runner) doOAuth(ctx context.Context, spotify *services.SpotifyService, redirectURI string) (*oauth2.Token, error) {
	state, err := shared.GenerateState()
	if err != nil {
		return nil, fmt.Errorf("failed to generate state token: %w", err)
	}

	addr, err := server.CallbackAddr(redirectURI)
	if err != nil {
		return nil, err
	}

	handler := server.NewOAuthHandler(spotify.OAuthConfig(), state)
	cs, err := server.ListenCallback(addr, handler, r.logger)
	if err != nil {
		return nil, err
	}

	authURL := spotify.GetAuthURL(state)
	r.writePlainln("→ Opening browser for Spotify authorization...")
	if err := shared.OpenBrowser(authURL); err != nil {
		r.logger.Warnf("failed to open browser automatically %v", err)
		r.writePlainln("⚠ Could not open browser automatically.")
		r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	}

	r.writePlainln("→ Waiting for authorization (2 minute timeout)...")

	waitCtx, cancel := context.WithTimeout(ctx, authTimeout)
	defer cancel()

	token, err := cs.Wait(waitCtx)
	if err != nil {
		return nil, fmt.Errorf("authorization failed: %w", err)
	}
	return token, nil
}

// SpotifyMe prints the authenticated user's profile.
func (r *Runner) SpotifyMe(ctx context.Context, cmd *cli.Command) error {
	streaming, err := r.streamingService(ctx)
	if err != nil {
		return err
	}

	user, err := streaming.CurrentUser(ctx)
	if err != nil {
		return fmt.Errorf("failed to get current user: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(user, true)
	}

	r.writePlainln("%s (%s)", displayName(user), user.ID)
	if user.Email != "" {
		r.writePlainln("  %s", user.Email)
	}
	return nil
}

func displayName(user *services.User) string {
	if user.DisplayName != "" {
		return user.DisplayName
	}
	return user.ID
}
