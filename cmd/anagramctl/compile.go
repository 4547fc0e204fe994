package main

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/anagram-solver/internal/dictionary"
)

var compileCmd = &cobra.Command{
	Use:   "compile",
	Short: "Compile a dictionary source into a binary snapshot",
	Long: `Loads --dict (any supported source) and writes a checksummed snapshot
that the solver can load with a snapshot:// source.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		source, _ := cmd.Flags().GetString("dict")
		out, _ := cmd.Flags().GetString("out")

		idx, err := dictionary.Load(cmd.Context(), source)
		if err != nil {
			return err
		}
		if err := dictionary.WriteSnapshot(out, idx); err != nil {
			return err
		}
		info, err := os.Stat(out)
		if err != nil {
			return err
		}
		st := idx.Stats()
		fmt.Printf("wrote %s: %s words, %s skipped, %s\n",
			out, humanize.Comma(int64(st.Words)), humanize.Comma(int64(st.Skipped)), humanize.Bytes(uint64(info.Size())))
		return nil
	},
}

func init() {
	compileCmd.Flags().StringP("out", "o", "data/words.adx", "snapshot output path")
	rootCmd.AddCommand(compileCmd)
}
