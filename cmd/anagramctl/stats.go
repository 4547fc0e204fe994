package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/anagram-solver/internal/dictionary"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print statistics for a dictionary source",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		source, _ := cmd.Flags().GetString("dict")
		asJSON, _ := cmd.Flags().GetBool("json")

		src, err := dictionary.ParseSource(source)
		if err != nil {
			return err
		}
		start := time.Now()
		var (
			idx    *dictionary.Index
			header *dictionary.SnapshotHeader
		)
		if src.Kind == dictionary.KindSnapshot {
			var h dictionary.SnapshotHeader
			idx, h, err = dictionary.ReadSnapshot(src.Location)
			header = &h
		} else {
			idx, err = dictionary.LoadSource(cmd.Context(), src)
		}
		if err != nil {
			return err
		}
		elapsed := time.Since(start)
		st := idx.Stats()

		if asJSON {
			return json.NewEncoder(os.Stdout).Encode(st)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintf(w, "source\t%s\n", src)
		fmt.Fprintf(w, "words\t%s\n", humanize.Comma(int64(st.Words)))
		fmt.Fprintf(w, "skipped\t%s\n", humanize.Comma(int64(st.Skipped)))
		fmt.Fprintf(w, "buckets\t%s\n", humanize.Comma(int64(st.Buckets)))
		fmt.Fprintf(w, "alphabet\t%d letters\n", st.Alphabet)
		fmt.Fprintf(w, "longest word\t%d letters\n", st.LongestWord)
		fmt.Fprintf(w, "average word\t%.2f letters\n", st.AvgWordLen)
		fmt.Fprintf(w, "load time\t%s\n", elapsed.Round(time.Millisecond))
		if header != nil {
			fmt.Fprintf(w, "snapshot version\t%d\n", header.Version)
			fmt.Fprintf(w, "compiled\t%s\n", humanize.Time(time.Unix(header.CreatedAt, 0)))
			fmt.Fprintf(w, "word block\t%s\n", humanize.Bytes(uint64(header.BlockSize)))
		}
		return w.Flush()
	},
}

func init() {
	statsCmd.Flags().Bool("json", false, "print statistics as JSON")
	rootCmd.AddCommand(statsCmd)
}
