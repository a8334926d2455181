package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
)

const DefaultTokenFile = "token.json"

// Credentials points at the secret material used to reach the Calendar API.
// File holds either a service account key or an OAuth client secret; TokenFile is only
// read for the latter and is produced by the auth command.
type Credentials struct {
	File      string
	TokenFile string
}

// httpClient exchanges the credentials for an authenticated HTTP client scoped to calendar read/write.
func (c Credentials) httpClient(ctx context.Context, logger *slog.Logger) (*http.Client, error) {
	if c.File == "" {
		return nil, errors.New("credentials file is not set")
	}
	b, err := os.ReadFile(c.File)
	if err != nil {
		return nil, fmt.Errorf("unable to read credentials file: %w", err)
	}

	// Service account first.
	jwtConfig, jwtErr := google.JWTConfigFromJSON(b, calendar.CalendarScope)
	if jwtErr == nil {
		ts := jwtConfig.TokenSource(ctx)
		if _, err := ts.Token(); err != nil {
			return nil, fmt.Errorf("service account credentials rejected: %w", err)
		}
		logger.Debug("Authenticated with service account", "email", jwtConfig.Email)
		return oauth2.NewClient(ctx, ts), nil
	}

	config, err := google.ConfigFromJSON(b, calendar.CalendarScope)
	if err != nil {
		return nil, fmt.Errorf("unsupported credentials format: %w", jwtErr)
	}

	tokenFile := c.TokenFile
	if tokenFile == "" {
		tokenFile = DefaultTokenFile
	}
	token, err := tokenFromFile(tokenFile)
	if err != nil {
		return nil, fmt.Errorf("could not load token %s: %w. Please run the 'auth' command first", tokenFile, err)
	}
	logger.Debug("Authenticated with user token", "file", tokenFile)
	return config.Client(ctx, token), nil
}

// OAuthConfig is used by the auth command to get the config for the web flow.
func OAuthConfig(credentialsFile string) (*oauth2.Config, error) {
	b, err := os.ReadFile(credentialsFile)
	if err != nil {
		var pathErr *fs.PathError
		if errors.As(err, &pathErr) {
			return nil, fmt.Errorf("%s not found. Set CREDENTIALS_FILE to an OAuth client secret file", credentialsFile)
		}
		return nil, fmt.Errorf("unable to read client secret file: %w", err)
	}

	config, err := google.ConfigFromJSON(b, calendar.CalendarScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse client secret file to config: %w", err)
	}
	config.RedirectURL = "urn:ietf:wg:oauth:2.0:oob" // For desktop app flow
	return config, nil
}

// TokenFromWeb exchanges an authorization code for a token.
func TokenFromWeb(ctx context.Context, config *oauth2.Config, authCode string) (*oauth2.Token, error) {
	return config.Exchange(ctx, authCode)
}

// SaveToken saves a token to a file path.
func SaveToken(path string, token *oauth2.Token) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("unable to create token file: %w", err)
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(token)
}

// tokenFromFile retrieves a token from a local file.
func tokenFromFile(file string) (*oauth2.Token, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tok := &oauth2.Token{}
	err = json.NewDecoder(f).Decode(tok)
	return tok, err
}
