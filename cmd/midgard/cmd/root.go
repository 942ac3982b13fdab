package cmd

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/lexfrei/midgard/internal/cloud"
	"github.com/lexfrei/midgard/internal/config"
	"github.com/lexfrei/midgard/internal/ingress"
	"github.com/lexfrei/midgard/internal/metrics"
	"github.com/lexfrei/midgard/internal/provision"
	"github.com/lexfrei/midgard/internal/secret"
	"github.com/lexfrei/midgard/internal/store"
)

//nolint:gochecknoglobals // set by SetVersion from main
var (
	version = "development"
	gitsha  = "development"
)

func SetVersion(ver, sha string) {
	version = ver
	gitsha = sha
}

//nolint:gochecknoglobals // cobra command pattern
var rootCmd = &cobra.Command{
	Use:   "midgard",
	Short: "Tenant cloud provisioner with tunnel-based ingress",
	Long: `Midgard provisions per-requester cloud tenants (project, user, network
stack) on an OpenStack control plane and publishes tenant services through a
Cloudflare tunnel ingress table.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "json", "Log format (json, text)")

	rootCmd.PersistentFlags().String(config.KeyAuthURL, "", "OpenStack identity endpoint")
	rootCmd.PersistentFlags().String(config.KeyRegion, "", "OpenStack region")
	rootCmd.PersistentFlags().String(config.KeyUsername, "", "OpenStack admin username")
	rootCmd.PersistentFlags().String(config.KeyPassword, "", "OpenStack admin password")
	rootCmd.PersistentFlags().String(config.KeyUserDomainName, "Default", "OpenStack user domain")
	rootCmd.PersistentFlags().String(config.KeyProjectName, "", "OpenStack admin project")
	rootCmd.PersistentFlags().String(config.KeyProjectDomainName, "Default", "OpenStack project domain")

	rootCmd.PersistentFlags().String(config.KeyCFAPIToken, "", "Cloudflare API token (or MIDGARD_CF_API_TOKEN)")
	rootCmd.PersistentFlags().String(config.KeyCFAccountID, "", "Cloudflare account ID")
	rootCmd.PersistentFlags().String(config.KeyCFTunnelID, "", "Cloudflare tunnel ID")
	rootCmd.PersistentFlags().String(config.KeyCFZoneID, "", "Cloudflare DNS zone ID")
	rootCmd.PersistentFlags().String(config.KeyDomain, "", "Routing domain suffix for published hostnames")

	rootCmd.PersistentFlags().String(config.KeyDBURL, "sqlite:./midgard.db", "Credential cache database URL")
	rootCmd.PersistentFlags().String(config.KeyProjectPrefix, "midgard", "Prefix for provisioned project names")
	rootCmd.PersistentFlags().Duration(config.KeyProvisionTimeout, 0, "Upper bound for a full provisioning run")

	rootCmd.PersistentFlags().String(config.KeyExternalNetwork, "public1", "External gateway network name")

	_ = viper.BindPFlags(rootCmd.PersistentFlags())
}

func initConfig() {
	viper.SetEnvPrefix("MIDGARD")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	config.SetDefaults(viper.GetViper())

	viper.SetDefault("log-level", "info")
	viper.SetDefault("log-format", "json")
}

func Execute() error {
	return errors.Wrap(rootCmd.Execute(), "command execution failed")
}

func setupLogger() *slog.Logger {
	level := slog.LevelInfo

	switch viper.GetString("log-level") {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if viper.GetString("log-format") == "text" {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}

	return slog.New(handler)
}

// app holds everything a subcommand needs after wiring.
type app struct {
	engine   *provision.Engine
	settings *config.Settings
}

// buildApp resolves configuration and wires the engine with its store, the
// control plane client and the edge router.
func buildApp(ctx context.Context) (*app, error) {
	logger := setupLogger()
	slog.SetDefault(logger)

	logger.Debug("starting midgard", "version", version, "gitsha", gitsha)

	settings, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, err
	}

	collector := metrics.NewCollector(prometheus.NewRegistry())

	db, err := store.OpenFromURL(settings.DBURL)
	if err != nil {
		return nil, err
	}

	err = store.AutoMigrate(db)
	if err != nil {
		return nil, err
	}

	controlPlane, err := cloud.Connect(ctx, settings, collector)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to control plane")
	}

	cfClient := ingress.NewCloudflareClient(ingress.CloudflareOptions{
		APIToken:  settings.CFAPIToken,
		AccountID: settings.CFAccountID,
		TunnelID:  settings.CFTunnelID,
		ZoneID:    settings.CFZoneID,
		Metrics:   collector,
	})

	edge := ingress.NewManager(cfClient, settings.Domain, collector)

	engine := provision.NewEngine(
		store.NewCredentialRepository(db),
		controlPlane,
		edge,
		secret.Generator{},
		settings,
		collector,
	)

	return &app{engine: engine, settings: settings}, nil
}
