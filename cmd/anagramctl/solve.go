package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/anagram-solver/internal/dictionary"
	"github.com/Adithya-Monish-Kumar-K/anagram-solver/internal/normalizer"
	"github.com/Adithya-Monish-Kumar-K/anagram-solver/internal/solver"
	"github.com/Adithya-Monish-Kumar-K/anagram-solver/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/anagram-solver/pkg/pool"
)

var solveCmd = &cobra.Command{
	Use:   "solve <text>...",
	Short: "Decompose text into dictionary words without a server",
	Long: `Loads the dictionary, runs one search per argument and prints each
decomposition on its own line. Arguments are joined with spaces when
--join is set.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSolve,
}

func init() {
	f := solveCmd.Flags()
	f.Int("max-words", 0, "max words per result (0 uses the default)")
	f.Int("max-results", 0, "max results (0 uses the default)")
	f.String("ordering", config.OrderingOrdered, "result ordering policy: ordered or multiset")
	f.String("encoding", "", "encoding of the arguments (defaults to utf-8)")
	f.Bool("json", false, "print the full response as JSON")
	f.Bool("join", false, "treat all arguments as one input")
	rootCmd.AddCommand(solveCmd)
}

func runSolve(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	source, _ := cmd.Flags().GetString("dict")
	maxWords, _ := cmd.Flags().GetInt("max-words")
	maxResults, _ := cmd.Flags().GetInt("max-results")
	ordering, _ := cmd.Flags().GetString("ordering")
	encoding, _ := cmd.Flags().GetString("encoding")
	asJSON, _ := cmd.Flags().GetBool("json")
	join, _ := cmd.Flags().GetBool("join")

	cfg := config.Default()
	cfg.Dictionary.Source = source
	cfg.Solver.Ordering = ordering
	if maxWords > 0 {
		cfg.Solver.MaxWords = maxWords
	}
	if maxResults > 0 {
		cfg.Solver.MaxResults = maxResults
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	svc, err := localService(ctx, cfg)
	if err != nil {
		return err
	}

	inputs := args
	if join {
		inputs = []string{strings.Join(args, " ")}
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	for _, in := range inputs {
		resp, err := svc.Decompose(ctx, solver.Request{Text: []byte(in), Encoding: encoding})
		if err != nil {
			return err
		}
		if asJSON {
			if err := enc.Encode(resp); err != nil {
				return err
			}
			continue
		}
		if len(inputs) > 1 {
			fmt.Printf("# %s\n", in)
		}
		if resp.Debug.Error != "" {
			fmt.Fprintf(os.Stderr, "%s: %s\n", in, resp.Debug.Error)
			continue
		}
		for _, r := range resp.Results {
			fmt.Println(strings.Join(r, " "))
		}
		if resp.Truncated {
			fmt.Fprintf(os.Stderr, "truncated after %d results (%s)\n", resp.Count, resp.TruncatedReason)
		}
	}
	return nil
}

func localService(ctx context.Context, cfg *config.Config) (*solver.Service, error) {
	idx, err := dictionary.Load(ctx, cfg.Dictionary.Source)
	if err != nil {
		return nil, err
	}
	norm, err := normalizer.New(cfg.Normalizer.DefaultEncoding)
	if err != nil {
		return nil, err
	}
	holder := dictionary.NewHolder(cfg.Dictionary.Source, idx, nil)
	return solver.New(norm, holder, pool.New(1), cfg.Solver), nil
}
