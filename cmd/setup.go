package cmd

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/huh/spinner"
	"github.com/spf13/cobra"

	"pingen/pkg/config"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Interactive setup wizard for Pingen",
	Long:  `Configure API keys, the Cloud Storage bucket and local directories.`,
	RunE:  runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(cmd *cobra.Command, args []string) error {
	fmt.Println(titleStyle.Render("📌 Pingen Setup"))

	steps := []struct {
		name string
		fn   func() error
	}{
		{"Creating directories", createDirectories},
		{"Configuring environment", configureEnv},
	}

	for _, step := range steps {
		if err := step.fn(); err != nil {
			return fmt.Errorf("%s: %w", step.name, err)
		}
	}

	return nil
}

func createDirectories() error {
	cfg, err := config.LoadFrom(rootCmd.Context(), configPath)
	if err != nil {
		return err
	}

	dirs := []string{cfg.Pipeline.ScratchDir}
	if cfg.Storage.Backend == config.BackendLocal {
		dirs = append(dirs, cfg.Storage.LocalDir)
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	fmt.Println(successStyle.Render("✓ Created directories"))
	return nil
}

func configureEnv() error {
	if _, err := os.Stat(".env"); err == nil {
		var overwrite bool
		if err := huh.NewConfirm().
			Title("Found existing .env file").
			Description("Overwrite?").
			Value(&overwrite).
			Run(); err != nil {
			return err
		}
		if !overwrite {
			fmt.Println(infoStyle.Render("Kept existing .env"))
			return nil
		}
	}

	env := make(map[string]string)

	if err := configureTextProvider(env); err != nil {
		return err
	}

	if err := configureImageKey(env); err != nil {
		return err
	}

	if err := configureGCP(env); err != nil {
		return err
	}

	return writeEnvFile(env)
}

func configureTextProvider(env map[string]string) error {
	var provider string
	if err := huh.NewSelect[string]().
		Title("Text model provider").
		Options(
			huh.NewOption("Gemini (Google AI Studio key or Vertex AI)", config.ProviderGemini),
			huh.NewOption("Groq", config.ProviderGroq),
		).
		Value(&provider).
		Run(); err != nil {
		return err
	}

	if provider == config.ProviderGroq {
		var key string
		if err := huh.NewInput().
			Title("GROQ API Key").
			Description("https://console.groq.com/keys").
			EchoMode(huh.EchoModePassword).
			Value(&key).
			Validate(required("GROQ API Key")).
			Run(); err != nil {
			return err
		}
		env["GROQ_API_KEY"] = strings.TrimSpace(key)
		fmt.Println(warnStyle.Render("Set llm.provider: groq in config.yaml"))
		return nil
	}

	var key string
	if err := huh.NewInput().
		Title("Gemini API Key").
		Description("https://aistudio.google.com/apikey (leave empty to use Vertex AI)").
		EchoMode(huh.EchoModePassword).
		Value(&key).
		Run(); err != nil {
		return err
	}
	if key = strings.TrimSpace(key); key != "" {
		env["GEMINI_API_KEY"] = key
	}
	return nil
}

func configureImageKey(env map[string]string) error {
	var key string
	if err := huh.NewInput().
		Title("OpenAI API Key").
		Description("Used for DALL·E images: https://platform.openai.com/api-keys").
		EchoMode(huh.EchoModePassword).
		Value(&key).
		Validate(required("OpenAI API Key")).
		Run(); err != nil {
		return err
	}
	env["OPENAI_API_KEY"] = strings.TrimSpace(key)
	return nil
}

func configureGCP(env map[string]string) error {
	var setupGCP bool
	if err := huh.NewConfirm().
		Title("Setup Google Cloud?").
		Description("Required for Cloud Storage uploads and Vertex AI").
		Value(&setupGCP).
		Run(); err != nil {
		return err
	}

	if !setupGCP {
		return nil
	}

	if !commandExists("gcloud") {
		fmt.Println(warnStyle.Render("gcloud CLI not found - install from https://cloud.google.com/sdk/docs/install"))
		return configureBucket(env, "")
	}

	project, err := getGCPProject()
	if err != nil {
		fmt.Println(warnStyle.Render(fmt.Sprintf("GCP setup skipped: %v", err)))
		return nil
	}

	env["GOOGLE_CLOUD_PROJECT"] = project

	if err := enableGCPAPIs(project); err != nil {
		fmt.Println(warnStyle.Render(fmt.Sprintf("API enablement failed: %v", err)))
	}

	return configureBucket(env, project)
}

func getGCPProject() (string, error) {
	existing := getActiveProject()

	var choice string
	options := []huh.Option[string]{
		huh.NewOption("Enter project ID manually", "manual"),
	}
	if existing != "" {
		options = append([]huh.Option[string]{
			huh.NewOption(fmt.Sprintf("Use current: %s", existing), existing),
		}, options...)
	}

	if err := huh.NewSelect[string]().
		Title("Google Cloud Project").
		Options(options...).
		Value(&choice).
		Run(); err != nil {
		return "", err
	}

	if choice != "manual" {
		return choice, nil
	}

	var projectID string
	if err := huh.NewInput().
		Title("Project ID").
		Value(&projectID).
		Validate(required("Project ID")).
		Run(); err != nil {
		return "", err
	}
	return strings.TrimSpace(projectID), nil
}

func getActiveProject() string {
	out, err := exec.Command("gcloud", "config", "get-value", "project").Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}

func enableGCPAPIs(project string) error {
	apis := []string{
		"storage.googleapis.com",
		"aiplatform.googleapis.com",
		"secretmanager.googleapis.com",
	}

	return runWithSpinner("Enabling APIs", func() error {
		args := append([]string{"services", "enable"}, apis...)
		args = append(args, "--project", project)
		return runSetupCmd("gcloud", args...)
	})
}

func configureBucket(env map[string]string, project string) error {
	var bucket string
	if err := huh.NewInput().
		Title("Cloud Storage bucket").
		Description("Images are uploaded here").
		Value(&bucket).
		Validate(required("Bucket")).
		Run(); err != nil {
		return err
	}
	bucket = strings.TrimPrefix(strings.TrimSpace(bucket), "gs://")
	env["GCS_BUCKET"] = bucket

	if project == "" || bucketExists(bucket) {
		return nil
	}

	var create bool
	if err := huh.NewConfirm().
		Title(fmt.Sprintf("Bucket %s not found", bucket)).
		Description("Create it now?").
		Value(&create).
		Run(); err != nil || !create {
		return err
	}

	if err := runWithSpinner("Creating bucket", func() error {
		return runSetupCmd("gcloud", "storage", "buckets", "create", "gs://"+bucket, "--project", project)
	}); err != nil {
		fmt.Println(warnStyle.Render(fmt.Sprintf("Bucket creation failed: %v", err)))
	}
	return nil
}

func bucketExists(bucket string) bool {
	return exec.Command("gcloud", "storage", "buckets", "describe", "gs://"+bucket).Run() == nil
}

func writeEnvFile(env map[string]string) error {
	f, err := os.Create(".env")
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	order := []string{
		"GOOGLE_CLOUD_PROJECT",
		"GEMINI_API_KEY",
		"GROQ_API_KEY",
		"OPENAI_API_KEY",
		"GCS_BUCKET",
	}

	for _, key := range order {
		if val, ok := env[key]; ok && val != "" {
			_, _ = fmt.Fprintf(f, "%s=%s\n", key, val)
		}
	}

	fmt.Println(successStyle.Render("✓ Created .env file"))
	printNextSteps()
	return nil
}

func printNextSteps() {
	fmt.Println()
	fmt.Println(titleStyle.Render("Next steps:"))
	fmt.Println("  1. Check credentials: pingen auth status")
	fmt.Println("  2. Run: pingen generate -t \"your topic\" -b \"Board\" -u https://example.com")
	fmt.Println("  3. Or start the web form: pingen serve --open")
}

func required(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", field)
		}
		return nil
	}
}

func commandExists(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

func runSetupCmd(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s: %s", err, stderr.String())
	}
	return nil
}

func runWithSpinner(title string, fn func() error) error {
	var err error
	_ = spinner.New().
		Title(title).
		Action(func() { err = fn() }).
		Run()
	if err != nil {
		return err
	}
	fmt.Println(successStyle.Render("✓ " + title))
	return nil
}
