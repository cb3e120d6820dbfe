package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/alfredjeanlab/clubdesk/internal/client"
	"github.com/alfredjeanlab/clubdesk/internal/config"
	"github.com/alfredjeanlab/clubdesk/internal/credentials"
	"github.com/alfredjeanlab/clubdesk/internal/logging"
	"github.com/alfredjeanlab/clubdesk/internal/ui"
)

var (
	configPath string
	remoteName string
	serverURL  string
	jsonOutput bool
	verbose    bool

	cfg           *config.Config
	logger        = zap.NewNop()
	location      = time.UTC
	consoleClient *client.HTTPClient
	activeRemote  credentials.Remote
)

// reportedError marks a failure that has already been shown to the
// operator, so main only sets the exit code.
type reportedError struct{ err error }

func (e *reportedError) Error() string { return e.err.Error() }
func (e *reportedError) Unwrap() error { return e.err }

var rootCmd = &cobra.Command{
	Use:           "clubdesk",
	Short:         "Moderation console for the club federation",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := setup(); err != nil {
			return err
		}
		return connect()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if consoleClient != nil {
			consoleClient.Close()
		}
		_ = logger.Sync()
	},
}

// setup loads .env, the config file and the environment, then builds the
// logger. It never touches the network.
func setup() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}

	var err error
	cfg, err = config.Load(configPath)
	if err != nil {
		return err
	}

	level := "warn"
	if verbose {
		level = "debug"
	}
	logger, err = logging.New(logging.Options{Level: level, Development: true})
	if err != nil {
		return err
	}

	ui.SetColor(ui.ShouldUseColor())
	location, err = cfg.Location()
	return err
}

// connect resolves the target server. --server wins over the active remote,
// which wins over server.url.
func connect() error {
	path, err := remotesPath()
	if err != nil {
		return err
	}
	remote, ok, err := credentials.NewStore(path).Resolve(remoteName)
	if err != nil {
		return err
	}
	url := cfg.ServerURL
	activeRemote = credentials.Remote{}
	if ok {
		activeRemote = remote
		url = remote.URL
		logger.Debug("using remote", zap.String("url", url))
	}
	if serverURL != "" {
		url = serverURL
	}
	consoleClient = client.NewHTTPClient(url, client.Options{
		Token:         activeRemote.Token,
		Timeout:       cfg.Timeout,
		ReadRetries:   cfg.FetchRetryMax,
		RatePerSecond: cfg.FetchRatePerSecond,
		Logger:        logger,
	})
	return nil
}

// remotesPath honours CLUBDESK_REMOTES before the default location.
func remotesPath() (string, error) {
	if p := os.Getenv(config.EnvPrefix + "_REMOTES"); p != "" {
		return p, nil
	}
	return credentials.DefaultPath()
}

// natsURL is the remote's bus when it names one, else events.nats_url.
func natsURL() string {
	if activeRemote.NATSURL != "" {
		return activeRemote.NATSURL
	}
	if cfg == nil {
		return ""
	}
	return cfg.NATSURL
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.config/clubdesk/config.toml)")
	rootCmd.PersistentFlags().StringVar(&remoteName, "remote", "", "named remote to use instead of the active one")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "server URL, overrides remotes and config")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging to stderr")

	rootCmd.AddGroup(
		&cobra.Group{ID: "tables", Title: "Tables:"},
		&cobra.Group{ID: "system", Title: "System:"},
	)

	rootCmd.AddCommand(clubsCmd)
	rootCmd.AddCommand(tournamentsCmd)
	rootCmd.AddCommand(usersCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(remoteCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(serveCmd)

	rootCmd.SetHelpFunc(colorizedHelpFunc())
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		var reported *reportedError
		if !errors.As(err, &reported) {
			fmt.Fprintln(os.Stderr, ui.RenderFail("Error:"), err)
		}
		os.Exit(1)
	}
}
