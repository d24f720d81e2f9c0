package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	builddclient "pkt.systems/buildd/client"
	"pkt.systems/buildd/internal/loggingutil"
	"pkt.systems/pslog"
)

const (
	serverKey   = "server"
	userKey     = "user"
	tokenKey    = "token"
	timeoutKey  = "timeout"
	logLevelKey = "log_level"
	outputKey   = "output"

	envReservedResource = "BUILDD_RESOURCE"
)

func submain(ctx context.Context) int {
	cmd := newRootCommand()
	if err := cmd.ExecuteContext(ctx); err != nil {
		if err != context.Canceled {
			fmt.Fprintf(os.Stderr, "%s\n", err)
		}
		return 1
	}
	return 0
}

func newRootCommand() *cobra.Command {
	cfg := &cliConfig{}
	cmd := &cobra.Command{
		Use:           "builddctl",
		Short:         "Interact with a buildd controller",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringP("server", "s", "http://127.0.0.1:8080", "buildd controller base URL")
	flags.StringP("user", "u", "", "username for basic auth")
	flags.String("token", "", "API token for basic auth")
	flags.Duration("timeout", builddclient.DefaultHTTPTimeout, "HTTP client timeout")
	flags.String("log-level", "none", "client log level (trace|debug|info|warn|error|none)")
	flags.StringP("output", "o", "text", "output format (text|json|yaml)")

	mustBindFlag(serverKey, "BUILDD_SERVER", flags.Lookup("server"))
	mustBindFlag(userKey, "BUILDD_USER", flags.Lookup("user"))
	mustBindFlag(tokenKey, "BUILDD_TOKEN", flags.Lookup("token"))
	mustBindFlag(timeoutKey, "BUILDD_TIMEOUT", flags.Lookup("timeout"))
	mustBindFlag(logLevelKey, "BUILDD_LOG_LEVEL", flags.Lookup("log-level"))
	mustBindFlag(outputKey, "BUILDD_OUTPUT", flags.Lookup("output"))

	cmd.AddCommand(
		newResourcesCommand(cfg),
		newJobsCommand(cfg),
		newViewsCommand(cfg),
		newPluginsCommand(cfg),
		newCredentialsCommand(cfg),
		newLabelCommand(cfg),
		newVersionCommand(),
	)

	return cmd
}

func mustBindFlag(key, env string, flag *pflag.Flag) {
	if flag == nil {
		panic(fmt.Sprintf("flag for key %s not found", key))
	}
	if err := viper.BindPFlag(key, flag); err != nil {
		panic(err)
	}
	if env != "" {
		if err := viper.BindEnv(key, env); err != nil {
			panic(err)
		}
	}
}

type cliConfig struct {
	loaded   bool
	server   string
	user     string
	token    string
	timeout  time.Duration
	output   outputMode
	logLevel string
	logger   pslog.Base
}

type outputMode string

const (
	outputText outputMode = "text"
	outputJSON outputMode = "json"
	outputYAML outputMode = "yaml"
)

func (c *cliConfig) load() error {
	if c.loaded {
		return nil
	}
	c.server = viper.GetString(serverKey)
	if c.server == "" {
		c.server = "http://127.0.0.1:8080"
	}
	c.user = viper.GetString(userKey)
	c.token = viper.GetString(tokenKey)
	c.timeout = viper.GetDuration(timeoutKey)
	if c.timeout <= 0 {
		c.timeout = builddclient.DefaultHTTPTimeout
	}
	c.output = outputMode(strings.ToLower(strings.TrimSpace(viper.GetString(outputKey))))
	switch c.output {
	case outputText, outputJSON, outputYAML:
	case "":
		c.output = outputText
	default:
		return fmt.Errorf("invalid output format %q", c.output)
	}
	c.logLevel = strings.TrimSpace(viper.GetString(logLevelKey))
	if err := c.setupLogger(); err != nil {
		return err
	}
	c.loaded = true
	return nil
}

func (c *cliConfig) setupLogger() error {
	levelStr := strings.ToLower(c.logLevel)
	if levelStr == "" || levelStr == "none" || levelStr == "disabled" || levelStr == "off" {
		c.logger = nil
		return nil
	}
	level, ok := pslog.ParseLevel(levelStr)
	if !ok {
		return fmt.Errorf("invalid log level %q", c.logLevel)
	}
	c.logger = loggingutil.WithSubsystem(pslog.NewStructured(os.Stderr).LogLevel(level), "cli")
	return nil
}

func (c *cliConfig) client() (*builddclient.Client, error) {
	if err := c.load(); err != nil {
		return nil, err
	}
	opts := []builddclient.Option{
		builddclient.WithHTTPTimeout(c.timeout),
	}
	if c.user != "" || c.token != "" {
		opts = append(opts, builddclient.WithBasicAuth(c.user, c.token))
	}
	if c.logger != nil {
		opts = append(opts, builddclient.WithLogger(c.logger))
	}
	return builddclient.New(c.server, opts...)
}

// render writes v in the configured output format. The text fallback is
// produced by the caller, which knows how to summarise its own result.
func (c *cliConfig) render(out io.Writer, v any, text func(io.Writer) error) error {
	switch c.output {
	case outputJSON:
		return writeJSON(out, v)
	case outputYAML:
		return yaml.NewEncoder(out).Encode(v)
	default:
		return text(out)
	}
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print builddctl version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "builddctl %s\n", versionString())
			return nil
		},
	}
}
