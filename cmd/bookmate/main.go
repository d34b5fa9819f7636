// Package main is the bookmate entrypoint: an HTTP server plus small
// command-line helpers for searching and importing books.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/bookmate/bookmate/internal/logger"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	app := &cli.App{
		Name:    "bookmate",
		Usage:   "Track your library, reading sessions and statistics",
		Version: fmt.Sprintf("%s (%s) %s", version, commit, date),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Load configuration from `FILE`",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP server",
				Action: runServe,
			},
			{
				Name:      "search",
				Usage:     "Search the book providers and print candidates",
				ArgsUsage: "QUERY",
				Action:    runSearch,
			},
			{
				Name:  "import",
				Usage: "Import a book by ISBN into the library",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "isbn",
						Usage:    "ISBN-10 or ISBN-13 to import",
						Required: true,
					},
					&cli.BoolFlag{
						Name:  "wishlist",
						Usage: "Add the book to the wishlist instead of the library",
					},
				},
				Action: runImport,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.Get().Error("Error running application", map[string]interface{}{
			"error": err.Error(),
		})
		os.Exit(1)
	}
}
