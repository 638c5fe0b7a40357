package serve

import (
	"context"
	"flag"
	"strings"
	"time"

	"github.com/peterbourgon/ff/v3"
	"github.com/peterbourgon/ff/v3/ffcli"

	"github.com/stablewatch/premiums/cmd/env"
	"github.com/stablewatch/premiums/provider/currencies"
	"github.com/stablewatch/premiums/server/config"
	"github.com/stablewatch/premiums/storage/types"
)

// serveCfg wraps the serve configuration
type serveCfg struct {
	config *config.Config

	configPath string
	asset      string
	refFiat    string
	fiats      string
	timeout    time.Duration
}

// NewServeCmd creates the serve subcommand
func NewServeCmd() *ffcli.Command {
	cfg := &serveCfg{
		config: config.DefaultConfig(),
	}

	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	cfg.registerFlags(fs)

	cmd := &ffcli.Command{
		Name:       "serve",
		ShortUsage: "serve <subcommand> [flags]",
		LongHelp:   "Serves the premiums backend",
		FlagSet:    fs,
		Exec: func(_ context.Context, _ []string) error {
			return flag.ErrHelp
		},
		Options: []ff.Option{
			// Allow using ENV variables
			ff.WithEnvVars(),
			ff.WithEnvVarPrefix(env.Prefix),
		},
	}

	cmd.Subcommands = []*ffcli.Command{
		newServeSQLCmd(cfg),
		newServeMemoryCmd(cfg),
	}

	return cmd
}

func (c *serveCfg) registerFlags(fs *flag.FlagSet) {
	fs.StringVar(
		&c.config.ListenAddress,
		"listen",
		config.DefaultListenAddress,
		"the IP:PORT URL for the server",
	)

	fs.StringVar(
		&c.configPath,
		"config",
		"",
		"the path to the server TOML configuration, if any",
	)

	fs.StringVar(
		&c.asset,
		"asset",
		currencies.USDT.String(),
		"the stablecoin asset to monitor",
	)

	fs.StringVar(
		&c.refFiat,
		"ref-fiat",
		currencies.USD.String(),
		"the reference fiat for FX rates",
	)

	fs.StringVar(
		&c.fiats,
		"fiats",
		"MXN,BRL,ARS",
		"comma-separated fiat markets to monitor",
	)

	fs.DurationVar(
		&c.timeout,
		"timeout",
		time.Second*30,
		"per-request timeout for upstream providers",
	)
}

// fiatList parses the configured fiat markets
func (c *serveCfg) fiatList() []types.Currency {
	var out []types.Currency

	for _, part := range strings.Split(c.fiats, ",") {
		if part = strings.ToUpper(strings.TrimSpace(part)); part != "" {
			out = append(out, types.Currency(part))
		}
	}

	return out
}
