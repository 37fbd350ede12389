package main

import (
	"fmt"
	"os"

	"github.com/btcsuite/btclog/v2"
	"github.com/lightningnetwork/keytree/build"
	"github.com/lightningnetwork/keytree/keyring"
	"github.com/urfave/cli"
)

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "[ktcli] %v\n", err)
	os.Exit(1)
}

// setupLogging routes subsystem logs to stderr so command output on stdout
// stays machine readable, then applies the requested debug level.
func setupLogging(ctx *cli.Context) error {
	handler := btclog.NewDefaultHandler(
		os.Stderr, build.DefaultLoggerConfig().HandlerOptions()...,
	)
	logManager := build.NewSubLoggerManager(handler)

	keyring.UseLogger(logManager.GenSubLogger(keyring.Subsystem))

	return build.ParseAndSetDebugLevels(
		ctx.GlobalString("debuglevel"), logManager,
	)
}

func main() {
	app := cli.NewApp()
	app.Name = "ktcli"
	app.Version = build.Version() + " commit=" + build.Commit
	app.Usage = "derive and inspect hierarchical deterministic key trees"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name: "network, n",
			Usage: "The network to encode keys and addresses " +
				"for, e.g. mainnet, testnet, regtest, simnet " +
				"or signet.",
			Value: "mainnet",
		},
		cli.StringFlag{
			Name: "debuglevel",
			Usage: "Logging level for all subsystems {trace, " +
				"debug, info, warn, error, critical} -- you " +
				"may also specify " +
				"<subsystem>=<level>,<subsystem2>=<level>,... " +
				"to set the log level for individual " +
				"subsystems.",
			Value: build.LogLevel,
		},
	}
	app.Before = setupLogging
	app.Commands = []cli.Command{
		genSeedCommand,
		genMnemonicCommand,
		masterCommand,
		deriveCommand,
		neuterCommand,
		decodeCommand,
		addrCommand,
		ringKeyCommand,
	}

	if err := app.Run(os.Args); err != nil {
		fatal(err)
	}
}
