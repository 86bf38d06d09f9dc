// Package cli defines the favsync command tree.
package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/openmeet/favsync/internal/app"
	"github.com/openmeet/favsync/internal/config"
	"github.com/openmeet/favsync/internal/tui/views"
)

// rootOptions holds flags shared by every command.
type rootOptions struct {
	configPath string
	dataDir    string
	apiURL     string
	pushURL    string
}

// NewRootCommand creates the root command. Running favsync with no
// subcommand opens the favorites watch view.
func NewRootCommand(version string) *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:     "favsync",
		Short:   "favsync - device-local favorites with live sync",
		Long:    "favsync keeps a device-local cache of favorited groups, reconciles it once per sign-in with the server, and shows live favorite counts broadcast from other visitors.",
		Version: version,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(opts)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", config.DefaultPath(), "Config file path")
	cmd.PersistentFlags().StringVar(&opts.dataDir, "data-dir", "", "Override data directory")
	cmd.PersistentFlags().StringVar(&opts.apiURL, "api-url", "", "Override favorites service URL")
	cmd.PersistentFlags().StringVar(&opts.pushURL, "push-url", "", "Override push channel URL")

	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewAddCommand(opts))
	cmd.AddCommand(NewRemoveCommand(opts))
	cmd.AddCommand(NewToggleCommand(opts))
	cmd.AddCommand(NewClearCommand(opts))
	cmd.AddCommand(NewSyncCommand(opts))
	cmd.AddCommand(NewStatusCommand(opts))

	return cmd
}

// buildApp loads config, applies flag overrides, and constructs the app.
func buildApp(opts *rootOptions) (*app.App, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	if opts.dataDir != "" {
		cfg.DataDir = opts.dataDir
	}
	if opts.apiURL != "" {
		cfg.APIBaseURL = opts.apiURL
	}
	if opts.pushURL != "" {
		cfg.PushURL = opts.pushURL
	}

	return app.New(app.WithConfig(cfg))
}

// watchModel wraps the FavoritesView for bubbletea.
type watchModel struct {
	view *views.FavoritesView
}

func (m watchModel) Init() tea.Cmd {
	return m.view.Init()
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	updated, cmd := m.view.Update(msg)
	m.view = updated
	return m, cmd
}

func (m watchModel) View() string {
	return m.view.View()
}

// runWatch starts the favorites watch TUI.
func runWatch(opts *rootOptions) error {
	application, err := buildApp(opts)
	if err != nil {
		return err
	}
	defer application.Close()

	application.StartWatcher()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	application.ConnectPush(ctx)
	cancel()

	view := views.NewFavoritesView(
		application.Cache(),
		application.Catalog(),
		application.Push(),
		application.Reconciler(),
		views.Config{
			GraceDelay: application.Config().GraceDelay(),
			FadeDelay:  application.Config().FadeDelay(),
		},
		application.Logger(),
	)
	defer view.Teardown()

	p := tea.NewProgram(watchModel{view: view}, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running TUI: %v\n", err)
		return err
	}
	return nil
}
