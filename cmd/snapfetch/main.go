package main

import (
	"context"
	"fmt"
	"os"

	"github.com/mizosoft/snapfetch"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

// A one-shot fetch: resolves the leader from the given membership, downloads
// its latest checkpoint into the staging root and prints the resulting
// descriptor. Intended for operators pre-seeding a replica by hand; the
// consensus layer drives the same code path programmatically.
func main() {
	app := &cli.App{
		Name:  "snapfetch",
		Usage: "Download the latest checkpoint from a metadata service leader",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "YAML configuration file declaring transfer options and peers",
			},
			&cli.StringFlag{
				Name:  "join",
				Usage: "Inline peer list (e.g., om1=localhost:9872,om2=localhost:9873)",
			},
			&cli.StringFlag{
				Name:     "leader",
				Usage:    "Peer ID of the leader to download from (required)",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "staging-root",
				Usage: "Directory for the staged checkpoint (overrides the config file)",
			},
			&cli.DurationFlag{
				Name:  "connect-timeout",
				Usage: "Connection establishment timeout",
			},
			&cli.DurationFlag{
				Name:  "request-timeout",
				Usage: "Total request timeout",
			},
			&cli.StringFlag{
				Name:  "policy",
				Usage: "HTTP policy: HTTP, HTTPS or HTTP_AND_HTTPS (overrides the config file)",
			},
			&cli.StringFlag{
				Name:  "auth-type",
				Usage: "Auth type: simple or kerberos (overrides the config file)",
			},
			&cli.StringFlag{
				Name:  "user",
				Usage: "Identity to run the transfer under",
			},
			&cli.StringFlag{
				Name:  "token",
				Usage: "Negotiated auth token (kerberos auth only)",
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	var config snapfetch.Config
	var peers []snapfetch.PeerNode
	var err error

	if file := c.String("config"); file != "" {
		config, peers, err = snapfetch.LoadConfigFile(file)
		if err != nil {
			return err
		}
	}

	if join := c.String("join"); join != "" {
		peers, err = snapfetch.ParsePeerList(join)
		if err != nil {
			return err
		}
	}
	if len(peers) == 0 {
		return fmt.Errorf("no peers given: use --config or --join")
	}

	if root := c.String("staging-root"); root != "" {
		config.StagingRoot = root
	}
	if config.StagingRoot == "" {
		config.StagingRoot = "."
	}
	if d := c.Duration("connect-timeout"); d != 0 {
		config.ConnectTimeout = d
	}
	if d := c.Duration("request-timeout"); d != 0 {
		config.RequestTimeout = d
	}
	if policy := c.String("policy"); policy != "" {
		if config.Policy, err = snapfetch.ParsePolicy(policy); err != nil {
			return err
		}
	}
	if authType := c.String("auth-type"); authType != "" {
		if config.AuthType, err = snapfetch.ParseAuthType(authType); err != nil {
			return err
		}
	}

	logger := zap.Must(zap.NewDevelopment())
	defer logger.Sync()
	config.Logger = logger

	registry, err := snapfetch.NewRegistry(peers)
	if err != nil {
		return err
	}

	fetcher, err := snapfetch.NewFetcher(config, registry)
	if err != nil {
		return err
	}

	descriptor, err := fetcher.Fetch(context.Background(), c.String("leader"), snapfetch.Identity{
		User:  c.String("user"),
		Token: c.String("token"),
	})
	if err != nil {
		return err
	}

	fmt.Printf("%s logIndex=%d logTerm=%d\n", descriptor.Dir, descriptor.LogIndex, descriptor.LogTerm)
	return nil
}
