// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/poiesic/vaultimport/config"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func ownerFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "owner",
		Aliases:  []string{"o"},
		Usage:    "Owner ID the credentials belong to",
		EnvVars:  []string{"VAULTIMPORT_OWNER"},
		Required: true,
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "vaultimport",
		Usage: "Import credentials from password-manager exports into an encrypted vault",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to YAML config file (default " + config.DefaultConfigFile() + ")",
			},
			&cli.StringFlag{
				Name:    "db",
				Aliases: []string{"d"},
				Usage:   "Path to the credential store",
			},
			&cli.StringFlag{
				Name:  "store",
				Usage: "Storage backend (badger, sqlite)",
			},
			&cli.StringFlag{
				Name:  "model-host",
				Usage: "OpenAI-compatible model service URL",
			},
			&cli.StringFlag{
				Name:  "model",
				Usage: "Model name used for extraction",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "import",
				Usage:     "Import credentials from a file",
				ArgsUsage: "FILE",
				Action:    importCommand,
				Flags: []cli.Flag{
					ownerFlag(),
					&cli.StringFlag{
						Name:    "kind",
						Aliases: []string{"k"},
						Usage:   "Source kind (csv, text, image, pdf); inferred from the file extension if omitted",
					},
					&cli.StringFlag{
						Name:  "server",
						Usage: "Send the file to a running vaultimport server instead of importing locally",
					},
					&cli.IntFlag{
						Name:  "max-chunk-chars",
						Usage: "Maximum characters per chunk sent to the model",
					},
					&cli.BoolFlag{
						Name:  "prefer-direct-csv",
						Usage: "Parse CSV files directly before asking the model",
					},
				},
			},
			{
				Name:   "serve",
				Usage:  "Serve the import API over HTTP",
				Action: serveCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "listen",
						Usage: "Address to listen on (default " + config.DefaultListenAddr + ")",
					},
					&cli.IntFlag{
						Name:  "pool-size",
						Usage: "Maximum concurrent imports",
					},
					&cli.DurationFlag{
						Name:  "drain-timeout",
						Usage: "How long shutdown waits for running imports",
						Value: 5 * time.Minute,
					},
				},
			},
			{
				Name:   "list",
				Usage:  "List stored credentials",
				Action: listCommand,
				Flags: []cli.Flag{
					ownerFlag(),
					&cli.StringFlag{
						Name:    "query",
						Aliases: []string{"q"},
						Usage:   "Substring to match against name, username, email and website",
					},
					&cli.StringFlag{
						Name:  "name",
						Usage: "Exact name to match",
					},
					&cli.StringFlag{
						Name:  "website",
						Usage: "Exact website to match",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum credentials to list (-1 for all)",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "offset",
						Usage: "Number of credentials to skip",
					},
					&cli.BoolFlag{
						Name:  "reveal",
						Usage: "Print decrypted secrets",
					},
				},
			},
			{
				Name:      "reveal",
				Usage:     "Print one credential with its secret decrypted",
				ArgsUsage: "ID",
				Action:    revealCommand,
				Flags:     []cli.Flag{ownerFlag()},
			},
			{
				Name:   "rekey",
				Usage:  "Re-encrypt an owner's credentials under a new master secret",
				Action: rekeyCommand,
				Flags: []cli.Flag{
					ownerFlag(),
					&cli.StringFlag{
						Name:  "new-secret-env",
						Usage: "Environment variable holding the new master secret",
						Value: "VAULTIMPORT_NEW_MASTER_SECRET",
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of credentials to process in each batch",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum attempts for each store update",
						Value: 3,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: 1 * time.Second,
					},
				},
			},
			{
				Name:      "parse-csv",
				Usage:     "Parse a CSV export without a model and print the records found",
				ArgsUsage: "FILE",
				Action:    parseCSVCommand,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "show-secrets",
						Usage: "Include passwords in the output",
					},
				},
			},
		},
	}
}

func setupLogger(c *cli.Context) error {
	// Get log level from flag and normalize to lowercase
	levelStr := strings.ToLower(c.String("log-level"))

	// Map string to slog.Level
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	// Configure slog with the specified level
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
