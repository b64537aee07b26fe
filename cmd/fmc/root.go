package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"FirepowerKit/internal/cli"
	"FirepowerKit/internal/config"
	"FirepowerKit/internal/fmc"
	"FirepowerKit/internal/logging"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"
)

// app carries state shared by the subcommands.
type app struct {
	v   *viper.Viper
	cfg *config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:           "fmc",
		Short:         "Firepower Management Center policy tools",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.loadConfig()
		},
	}

	flags := root.PersistentFlags()
	flags.StringP("config", "c", config.DefaultPath, "path to the YAML config")
	flags.StringP("server", "s", "", "FMC server URL (env FMC_SERVER)")
	flags.StringP("username", "u", "", "API username (env FMC_USERNAME)")
	flags.StringP("password", "p", "", "API password (env FMC_PASSWORD); prompted when empty")
	flags.String("domain", "", "domain UUID (env FMC_DOMAIN); taken from the auth response when empty")
	flags.Bool("insecure", false, "skip TLS verification (env FMC_INSECURE)")
	flags.Bool("debug", false, "enable debug logging")

	a.v.SetEnvPrefix("FMC")
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()
	if err := a.v.BindPFlags(flags); err != nil {
		panic(err)
	}

	root.AddCommand(
		newRuleVarsCmd(a),
		newComplexityCmd(a),
		newStaticRouteCmd(a),
		newImportObjectsCmd(a),
	)
	return root
}

func (a *app) loadConfig() error {
	cfg, found, err := config.LoadConfigOrDefault(a.v.GetString("config"))
	if err != nil {
		return cli.Wrap(cli.ErrInput, "invalid configuration", err)
	}
	if a.v.GetBool("debug") {
		cfg.Log.Level = "debug"
	}
	if err := logging.Setup(cfg.Log); err != nil {
		return cli.Wrap(cli.ErrIO, "failed to set up logging", err)
	}
	if !found {
		log.Debugf("No config file at %s, using defaults", a.v.GetString("config"))
	}
	cfg.FMC = overlayFMC(cfg.FMC, a.v)
	a.cfg = cfg
	return nil
}

// overlayFMC applies flags and FMC_* variables on top of the config file.
func overlayFMC(base config.FMCConfig, v *viper.Viper) config.FMCConfig {
	if s := v.GetString("server"); s != "" {
		base.Server = s
	}
	if s := v.GetString("username"); s != "" {
		base.Username = s
	}
	if s := v.GetString("password"); s != "" {
		base.Password = s
	}
	if s := v.GetString("domain"); s != "" {
		base.Domain = s
	}
	if v.GetBool("insecure") {
		base.InsecureSkipVerify = true
	}
	return base
}

// client returns an authenticated FMC client, asking for the password on
// the terminal when none was given.
func (a *app) client(ctx context.Context) (*fmc.Client, error) {
	cfg := a.cfg.FMC
	if cfg.Server == "" || cfg.Username == "" {
		return nil, cli.NewAppError(cli.ErrUsage, "server and username are required (flags, FMC_* variables or config)")
	}
	if cfg.Password == "" {
		pw, err := readPassword()
		if err != nil {
			return nil, err
		}
		cfg.Password = pw
	}

	c := fmc.NewClient(cfg)
	if err := c.Authenticate(ctx); err != nil {
		return nil, cli.Wrap(cli.ErrAPI, "authentication failed", err)
	}
	return c, nil
}

func readPassword() (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", cli.NewAppError(cli.ErrUsage, "no password given and stdin is not a terminal")
	}
	fmt.Fprint(os.Stderr, "Password: ")
	pw, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", cli.Wrap(cli.ErrIO, "failed to read password", err)
	}
	return string(pw), nil
}

// apiError tags FMC failures. Cancellation is left untagged so it maps to
// the interrupted exit code.
func apiError(msg string, err error) error {
	if err == nil || errors.Is(err, context.Canceled) {
		return err
	}
	return cli.Wrap(cli.ErrAPI, msg, err)
}
