// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// setupCommand handles setup operations for configuration and the database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "config",
				Usage:  "Write a config.toml from the built-in template",
				Action: r.SetupConfig,
			},
			{
				Name:   "database",
				Usage:  "Initialize database and run migrations",
				Action: r.SetupDatabase,
			},
		},
	}
}

// authCommand handles Twinfield authentication
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage Twinfield authentication",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Authorize with Twinfield through the browser and save the tokens",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "no-browser",
						Usage: "Print the authorization URL instead of opening a browser",
					},
					&cli.DurationFlag{
						Name:  "timeout",
						Usage: "How long to wait for the redirect (0 waits forever)",
					},
				},
				Action: r.AuthLogin,
			},
			{
				Name:  "status",
				Usage: "Show the stored Twinfield tokens",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "refresh",
						Usage: "Refresh the access token and save it",
					},
				},
				Action: r.AuthStatus,
			},
		},
	}
}

// invoicesCommand handles HubSpot invoice operations
func invoicesCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "invoices",
		Usage: "HubSpot invoice operations",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List HubSpot invoices",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "status",
						Usage: "Only show invoices with this status",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
						Value: true,
					},
				},
				Action: r.InvoicesList,
			},
		},
	}
}

// syncCommand handles sync runs
func syncCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Sync paid invoices into Twinfield",
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Run a full HubSpot → Twinfield sync",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "dry-run",
						Usage: "Build transactions without posting them",
					},
					&cli.BoolFlag{
						Name:  "tui",
						Usage: "Show interactive progress",
					},
					&cli.StringFlag{
						Name:  "report",
						Usage: "Write a report of the run to this file",
					},
					&cli.StringFlag{
						Name:  "format",
						Usage: "Report format (csv, markdown, text, json)",
						Value: "text",
					},
				},
				Action: r.SyncRun,
			},
		},
	}
}

// ledgerCommand handles the synced invoice ledger
func ledgerCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "ledger",
		Usage: "Inspect the ledger of synced invoices",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List synced invoices",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "run",
						Usage: "Only show invoices synced by this run",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of entries to return",
						Value: 50,
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.LedgerList,
			},
			{
				Name:  "forget",
				Usage: "Remove an invoice from the ledger so the next run syncs it again",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "invoice-id"},
				},
				Action: r.LedgerForget,
			},
		},
	}
}

// runsCommand handles sync run history
func runsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "runs",
		Usage: "Inspect sync run history",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List recent sync runs",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of runs to return",
						Value: 20,
					},
					&cli.StringFlag{
						Name:  "status",
						Usage: "Only show runs with this status (running, completed, failed)",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.RunsList,
			},
		},
	}
}

// apiCommand handles direct HubSpot API calls
func apiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "api",
		Usage: "Direct HubSpot API calls",
		Commands: []*cli.Command{
			{
				Name:  "get",
				Usage: "Direct GET to the HubSpot API, prints raw JSON",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "path",
					},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
						Value: true,
					},
				},
				Action: r.APIGet,
			},
			{
				Name:  "post",
				Usage: "Direct POST with JSON body",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "path",
					},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "data",
						Aliases:  []string{"d"},
						Usage:    "JSON body to send",
						Required: true,
					},
				},
				Action: r.APIPost,
			},
		},
	}
}
