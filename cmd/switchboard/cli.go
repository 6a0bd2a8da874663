package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/kordite/switchboard/internal/classify"
	"github.com/kordite/switchboard/internal/config"
	"github.com/kordite/switchboard/internal/constraint"
	"github.com/kordite/switchboard/internal/errors"
	"github.com/kordite/switchboard/internal/route"
	"github.com/kordite/switchboard/internal/signature"
	"github.com/kordite/switchboard/internal/taxonomy"
)

// appDeps bundles the wired pipeline for CLI commands.
type appDeps struct {
	router     *route.Router
	classifier *classify.Classifier
	tax        *taxonomy.Taxonomy
	cfg        *config.Config
}

// newCLIApp creates the CLI application with all commands.
func newCLIApp(deps *appDeps) *cli.App {
	app := &cli.App{
		Name:    "switchboard",
		Usage:   "Query classifier and constraint resolver",
		Version: Version,
		Commands: []*cli.Command{
			classifyCmd(deps),
			resolveCmd(),
			expansionsCmd(deps),
			archetypesCmd(deps),
			historyCmd(deps),
			transitionsCmd(deps),
			cacheCmd(deps),
			statsCmd(deps),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// classifyCmd creates the classify command.
func classifyCmd(deps *appDeps) *cli.Command {
	return &cli.Command{
		Name:      "classify",
		Usage:     "Classify a free-text query into systems, domains, and clusters",
		ArgsUsage: "<query...>",
		Action: func(c *cli.Context) error {
			query := strings.Join(c.Args().Slice(), " ")
			if strings.TrimSpace(query) == "" {
				return outputError(errors.NewInvalidRequest("query is required"))
			}

			result, err := deps.router.Classify(context.Background(), query)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(result)
		},
	}
}

// resolveCmd creates the resolve command. Constraint JSON is read from
// stdin in either accepted shape.
func resolveCmd() *cli.Command {
	return &cli.Command{
		Name:  "resolve",
		Usage: "Resolve constraint conflicts (reads constraint JSON from stdin)",
		Action: func(c *cli.Context) error {
			if !stdinHasData() {
				return outputError(errors.NewInvalidRequest("constraint JSON must be piped via stdin"))
			}
			raw, err := io.ReadAll(os.Stdin)
			if err != nil {
				return outputError(errors.NewInternal(err))
			}

			result, err := constraint.Resolve(raw)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(result)
		},
	}
}

// expansionsCmd creates the expansions command.
func expansionsCmd(deps *appDeps) *cli.Command {
	return &cli.Command{
		Name:      "expansions",
		Usage:     "Suggest keywords that would strengthen a vague query (read-only)",
		ArgsUsage: "<query...>",
		Action: func(c *cli.Context) error {
			query := strings.Join(c.Args().Slice(), " ")
			if strings.TrimSpace(query) == "" {
				return outputError(errors.NewInvalidRequest("query is required"))
			}

			normalized := signature.Normalize(query)
			result := deps.classifier.Classify(normalized)
			return outputJSON(map[string]any{
				"query":                query,
				"normalized":           normalized,
				"suggested_expansions": result.SuggestedExpansions,
				"confidence":           result.Confidence,
				"state":                result.State,
			})
		},
	}
}

// archetypesCmd creates the archetypes command.
func archetypesCmd(deps *appDeps) *cli.Command {
	return &cli.Command{
		Name:  "archetypes",
		Usage: "List canonical example queries and their classifications",
		Action: func(c *cli.Context) error {
			return outputJSON(map[string]any{"archetypes": deps.tax.Archetypes})
		},
	}
}

// historyCmd creates the history command.
func historyCmd(deps *appDeps) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Show recent classification history, newest first",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Usage: "Maximum entries (0 = all)"},
		},
		Action: func(c *cli.Context) error {
			entries, err := deps.router.History(context.Background(), c.Int("limit"))
			if err != nil {
				return outputError(errors.NewInternal(err))
			}
			return outputJSON(map[string]any{"entries": entries})
		},
	}
}

// transitionsCmd creates the transitions command.
func transitionsCmd(deps *appDeps) *cli.Command {
	return &cli.Command{
		Name:  "transitions",
		Usage: "Show the domain-to-domain transition table",
		Action: func(c *cli.Context) error {
			transitions, err := deps.router.Transitions(context.Background())
			if err != nil {
				return outputError(errors.NewInternal(err))
			}
			return outputJSON(map[string]any{"transitions": transitions})
		},
	}
}

// cacheCmd creates the cache command.
func cacheCmd(deps *appDeps) *cli.Command {
	return &cli.Command{
		Name:      "cache",
		Usage:     "Look up a query's pattern-cache entry without classifying it",
		ArgsUsage: "<query...>",
		Action: func(c *cli.Context) error {
			query := strings.Join(c.Args().Slice(), " ")
			if strings.TrimSpace(query) == "" {
				return outputError(errors.NewInvalidRequest("query is required"))
			}

			sig, entry, err := deps.router.CacheLookup(context.Background(), query)
			if err != nil {
				return outputError(errors.NewInternal(err))
			}
			if entry == nil {
				return outputError(errors.NewNotFound(sig))
			}
			return outputJSON(map[string]any{"signature": sig, "hit": true, "entry": entry})
		},
	}
}

// statsCmd creates the stats command.
func statsCmd(deps *appDeps) *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Show pattern cache, history, and transition statistics",
		Action: func(c *cli.Context) error {
			stats, err := deps.router.CacheStats(context.Background())
			if err != nil {
				return outputError(errors.NewInternal(err))
			}
			return outputJSON(stats)
		},
	}
}

// Helper functions

// outputJSON marshals result to stdout as JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	if sbErr, ok := err.(*errors.SwitchboardError); ok {
		return cli.Exit(fmt.Sprintf("[%s] %s", sbErr.Code, sbErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}

// stdinHasData returns true if stdin has piped data (not a terminal).
func stdinHasData() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}
