package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/pkg/browser"
	"github.com/spf13/cobra"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"pingen/pkg/config"
)

const (
	defaultUserCredentialsPath = "./gcp_user_credentials.json"
	oauthCallbackAddr          = "localhost:8085"
)

var authCredentialsPath string

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Inspect and set up credentials",
	Long:  `Check which providers are configured, or sign in to Google Cloud using OAuth credentials from .env`,
}

var authGoogleCmd = &cobra.Command{
	Use:   "google",
	Short: "Sign in to Google Cloud (OAuth)",
	Long: `Complete a browser OAuth flow and save an authorized_user credentials file
that the Cloud Storage and Vertex AI clients can use.`,
	RunE: runAuthGoogle,
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check credential status for all providers",
	RunE:  runAuthStatus,
}

func init() {
	authGoogleCmd.Flags().StringVarP(&authCredentialsPath, "out", "o", defaultUserCredentialsPath, "Where to write the credentials file")
	authCmd.AddCommand(authGoogleCmd)
	authCmd.AddCommand(authStatusCmd)
	rootCmd.AddCommand(authCmd)
}

func runAuthStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := config.LoadFrom(ctx, configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	fmt.Println(infoStyle.Render("\nProvider Credential Status:\n"))

	adcProject := ""
	if creds, err := google.FindDefaultCredentials(ctx); err == nil {
		adcProject = creds.ProjectID
		fmt.Println(successStyle.Render("✓ Google ADC: found (project " + orDash(creds.ProjectID) + ")"))
	} else {
		fmt.Println(infoStyle.Render("○ Google ADC: not found (run: pingen auth google, or gcloud auth application-default login)"))
	}

	switch cfg.LLM.Provider {
	case config.ProviderGroq:
		printKeyStatus("Groq", "GROQ_API_KEY", cfg.GroqAPIKey != "")
	default:
		switch {
		case cfg.GeminiAPIKey != "":
			fmt.Println(successStyle.Render("✓ Gemini: API key configured"))
		case cfg.GCPProject != "" || adcProject != "":
			fmt.Println(successStyle.Render("✓ Gemini: Vertex AI via project " + orDash(cfg.GCPProject+adcProject)))
		default:
			fmt.Println(errorStyle.Render("✗ Gemini: missing GEMINI_API_KEY or GOOGLE_CLOUD_PROJECT"))
		}
	}

	printKeyStatus("OpenAI", "OPENAI_API_KEY", cfg.OpenAIAPIKey != "")

	if cfg.Storage.Backend == config.BackendLocal {
		fmt.Println(infoStyle.Render("○ Storage: local directory " + cfg.Storage.LocalDir))
	} else {
		printKeyStatus("Cloud Storage bucket", "GCS_BUCKET", cfg.GCSBucket != "")
	}

	if cfg.Secrets.Enabled {
		fmt.Println(infoStyle.Render("○ Secret Manager: enabled for missing keys"))
	}

	fmt.Println()
	return nil
}

func printKeyStatus(name, env string, ok bool) {
	if ok {
		fmt.Println(successStyle.Render("✓ " + name + ": configured"))
		return
	}
	fmt.Println(errorStyle.Render("✗ " + name + ": missing " + env))
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func runAuthGoogle(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := config.LoadFrom(ctx, configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if cfg.OAuthClientID == "" || cfg.OAuthClientSecret == "" {
		return fmt.Errorf("GOOGLE_OAUTH_CLIENT_ID and GOOGLE_OAUTH_CLIENT_SECRET must be set in .env")
	}

	return runGoogleAuth(ctx, cfg.OAuthClientID, cfg.OAuthClientSecret, authCredentialsPath)
}

// authorizedUser is the credentials file layout understood by
// google.CredentialsFromJSON.
type authorizedUser struct {
	Type         string `json:"type"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	RefreshToken string `json:"refresh_token"`
}

func runGoogleAuth(ctx context.Context, clientID, clientSecret, credentialsPath string) error {
	oauthConfig := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     google.Endpoint,
		Scopes: []string{
			"https://www.googleapis.com/auth/cloud-platform",
			"https://www.googleapis.com/auth/devstorage.read_write",
		},
		RedirectURL: "http://" + oauthCallbackAddr + "/callback",
	}

	codeChan := make(chan string, 1)
	errChan := make(chan error, 1)

	listener, err := net.Listen("tcp", oauthCallbackAddr)
	if err != nil {
		return fmt.Errorf("failed to start callback server: %w", err)
	}

	server := &http.Server{
		ReadHeaderTimeout: 10 * time.Second,
	}

	server.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/callback" {
			http.NotFound(w, r)
			return
		}

		code := r.URL.Query().Get("code")
		if code == "" {
			errChan <- fmt.Errorf("no code in callback")
			_, _ = fmt.Fprintf(w, "<html><body><h1>Error</h1><p>No authorization code received.</p></body></html>")
			return
		}

		codeChan <- code
		_, _ = fmt.Fprintf(w, "<html><body><h1>Signed in</h1><p>You can close this window and return to the terminal.</p></body></html>")
	})

	go func() {
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	authURL := oauthConfig.AuthCodeURL("pingen", oauth2.AccessTypeOffline, oauth2.ApprovalForce)
	fmt.Println(infoStyle.Render("\nOpening browser for Google sign-in..."))
	fmt.Println(infoStyle.Render("If browser doesn't open, visit:\n" + authURL))

	_ = browser.OpenURL(authURL)

	fmt.Println(infoStyle.Render("\nWaiting for authentication..."))

	select {
	case code := <-codeChan:
		token, err := oauthConfig.Exchange(ctx, code)
		if err != nil {
			return fmt.Errorf("failed to exchange code: %w", err)
		}
		if token.RefreshToken == "" {
			return fmt.Errorf("no refresh token returned; revoke the app's access and retry")
		}

		data, err := json.MarshalIndent(authorizedUser{
			Type:         "authorized_user",
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RefreshToken: token.RefreshToken,
		}, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal credentials: %w", err)
		}

		if err := os.WriteFile(credentialsPath, data, 0600); err != nil {
			return fmt.Errorf("failed to save credentials: %w", err)
		}

		fmt.Println(successStyle.Render("✓ Google sign-in complete"))
		fmt.Println(successStyle.Render("  Credentials saved to: " + credentialsPath))
		fmt.Println(infoStyle.Render("  Set GOOGLE_APPLICATION_CREDENTIALS=" + credentialsPath + " in .env"))
		return nil

	case err := <-errChan:
		return err

	case <-ctx.Done():
		return ctx.Err()

	case <-time.After(5 * time.Minute):
		return fmt.Errorf("authentication timed out")
	}
}
