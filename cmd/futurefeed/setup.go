// ABOUTME: Cobra command for interactive FutureFeed session setup.
// ABOUTME: Launches a bubbletea TUI wizard to collect and validate the session cookie.
package main

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/2389-research/futurefeed/internal/config"
	"github.com/2389-research/futurefeed/internal/tui"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Connect your FutureFeed account",
	Long:  "Interactive wizard to configure the API URL and session cookie.",
	RunE:  runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	model := tui.NewSetupModel(
		cfg.API.URL,
		cfg.API.CookieName,
		cfg.API.Session,
	)

	p := tea.NewProgram(model)
	result, err := p.Run()
	if err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	final := result.(tui.SetupModel)
	if !final.ShouldSave() {
		fmt.Println("Setup cancelled.")
		return nil
	}

	apiURL, cookieName, session := final.Result()
	cfg.API.URL = apiURL
	cfg.API.CookieName = cookieName
	cfg.API.Session = session

	if err := cfg.Save(); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	configPath, err := config.GetConfigPath()
	if err != nil {
		fmt.Println("Config saved successfully.")
	} else {
		fmt.Printf("Config saved to %s\n", configPath)
	}
	if u := final.User(); u != nil {
		fmt.Printf("Signed in as %s\n", u.Username)
	}
	return nil
}
