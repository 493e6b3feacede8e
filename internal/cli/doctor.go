package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/avezina/roundup/internal/client"
	"github.com/avezina/roundup/internal/config"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check configuration and credentials without fetching",
	RunE:  doctorAction,
}

func doctorAction(_ *cobra.Command, _ []string) error {
	ok := true

	// Config dir
	if info, err := os.Stat(configDir); err != nil || !info.IsDir() {
		printCheck(false, "config directory %s", configDir)
		return fmt.Errorf("some checks failed")
	}
	printCheck(true, "config directory %s", configDir)

	// Config file
	cfg, err := config.Load(configDir)
	if err != nil {
		printCheck(false, "%s: %v", config.DefaultConfigFile, err)
		return fmt.Errorf("some checks failed")
	}
	printCheck(true, "%s (%d clients)", config.DefaultConfigFile, len(cfg.Clients))

	// Each entry must resolve to a concrete client before any fetch would run.
	for _, entry := range cfg.Clients {
		c, err := client.New(entry)
		if err != nil {
			printCheck(false, "client %q: %v", entry.Name, err)
			ok = false
			continue
		}
		printCheck(true, "client %q (%s)", c.Name(), entry.API)

		if entry.API == config.SourceGitHub && entry.AccessTokenEnv == "" {
			printInfo("client %q: access token stored inline; prefer access_token_env", entry.Name)
		}
	}

	if !ok {
		return fmt.Errorf("some checks failed")
	}
	fmt.Println("\nAll checks passed.")
	return nil
}

func printCheck(pass bool, format string, args ...any) {
	mark := "FAIL"
	if pass {
		mark = " OK "
	}
	fmt.Printf("[%s] %s\n", mark, fmt.Sprintf(format, args...))
}

func printInfo(format string, args ...any) {
	fmt.Printf("[INFO] %s\n", fmt.Sprintf(format, args...))
}
