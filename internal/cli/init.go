package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/avezina/roundup/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create config directory with example files",
	RunE:  initAction,
}

func initAction(_ *cobra.Command, _ []string) error {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	created := 0

	configPath := filepath.Join(configDir, config.DefaultConfigFile)
	wrote, err := writeIfNotExists(configPath, []byte(exampleConfig))
	if err != nil {
		return err
	}
	if wrote {
		created++
	}

	credsPath := filepath.Join(configDir, "matrix-credentials.json")
	wrote, err = writeIfNotExists(credsPath, []byte(exampleCredentials))
	if err != nil {
		return err
	}
	if wrote {
		created++
	}

	if created == 0 {
		fmt.Printf("Config directory %s already initialized.\n", configDir)
	} else {
		fmt.Printf("Initialized %s with %d config files.\n", configDir, created)
	}
	return nil
}

// writeIfNotExists writes data to path if the file does not exist.
// Returns true if the file was created.
func writeIfNotExists(path string, data []byte) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		fmt.Printf("  exists: %s\n", path)
		return false, nil
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return false, fmt.Errorf("write %s: %w", path, err)
	}
	fmt.Printf("  created: %s\n", path)
	return true, nil
}

const exampleConfig = `# roundup client configuration

[general]
# body_limit caps issue/PR body length in the report; 0 disables truncation.
body_limit = 100
# timeout bounds each client's fetch.
timeout = "30s"
# redact = ['(?i)secret', 'ghp_[a-zA-Z0-9]+']

[[clients]]
name = "Work Repo"
api = "github"
owner = "your-org"
repo = "your-repo"
access_token_env = "GITHUB_TOKEN"

[[clients]]
name = "Team Room"
api = "matrix"
credentials = "matrix-credentials.json"
room_id = "!yourroomid:example.org"
`

const exampleCredentials = `{
  "homeserver": "https://matrix.example.org",
  "access_token": "syt_replace_me",
  "user_id": "@you:example.org",
  "device_id": "ROUNDUP01"
}
`
