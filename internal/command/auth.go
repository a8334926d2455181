package command

import (
	"bufio"
	"fmt"
	"gcal/internal/google"
	"strings"

	"github.com/urfave/cli/v2"
	"golang.org/x/oauth2"
)

// authCommand runs the OAuth web flow for a user account. Service account keys need no token.
func (d *Dispatcher) authCommand() *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Authenticate with a Google account and save the API token.",
		Action: func(c *cli.Context) error {
			d.logger.Info("Starting Google authentication flow.")

			config, err := google.OAuthConfig(c.String("credentials"))
			if err != nil {
				return fmt.Errorf("failed to get google oauth config: %w", err)
			}

			authURL := config.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
			fmt.Fprintf(d.stdout, "Go to the following link in your browser then type the "+
				"authorization code: \n%v\n", authURL)

			fmt.Fprint(d.stdout, "Enter Authorization Code: ")
			reader := bufio.NewReader(d.stdin)
			authCode, _ := reader.ReadString('\n')
			authCode = strings.TrimSpace(authCode)
			if authCode == "" {
				return usageError("an authorization code is required.")
			}

			token, err := google.TokenFromWeb(c.Context, config, authCode)
			if err != nil {
				return fmt.Errorf("unable to retrieve token from web: %w", err)
			}

			tokenFile := c.String("token")
			if err := google.SaveToken(tokenFile, token); err != nil {
				return fmt.Errorf("failed to save token: %w", err)
			}

			d.logger.Info("Successfully authenticated and saved token.", "file", tokenFile)
			return nil
		},
	}
}
