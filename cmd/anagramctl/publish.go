package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/anagram-solver/internal/dictionary"
	"github.com/Adithya-Monish-Kumar-K/anagram-solver/pkg/redis"
)

var publishCmd = &cobra.Command{
	Use:   "publish <redis-url>",
	Short: "Replace the word list stored in Redis with --dict",
	Long: `Loads --dict and stores its words as a Redis list, replacing whatever
the key held. The URL may carry ?key=NAME; servers pick the list up with a
redis:// dictionary source and POST /api/v1/dictionary/reload.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		source, _ := cmd.Flags().GetString("dict")

		target, err := dictionary.ParseSource(args[0])
		if err != nil {
			return err
		}
		if target.Kind != dictionary.KindRedis {
			return fmt.Errorf("publish target must be a redis:// URL, got %s", target.Kind)
		}

		idx, err := dictionary.Load(ctx, source)
		if err != nil {
			return err
		}
		words := make([]string, 0, idx.Len())
		for _, e := range idx.Entries() {
			words = append(words, e.Word)
		}

		client, err := redis.NewFromURL(ctx, target.Location)
		if err != nil {
			return err
		}
		defer client.Close()
		if err := client.ReplaceWords(ctx, target.Key, words); err != nil {
			return err
		}
		fmt.Printf("published %s words to %s\n", humanize.Comma(int64(len(words))), target)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(publishCmd)
}
