package main

import (
	"encoding/json"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/anagram-solver/pkg/proto"
	"github.com/Adithya-Monish-Kumar-K/anagram-solver/pkg/rpc"
)

var rpcCmd = &cobra.Command{
	Use:   "rpc",
	Short: "Call a running solver over the RPC protocol",
}

func init() {
	rpcCmd.PersistentFlags().String("addr", "localhost:9300", "solver RPC address")
	rpcCmd.PersistentFlags().Duration("timeout", 10*time.Second, "call timeout")

	decompose := &cobra.Command{
		Use:   "decompose <text>...",
		Short: "Decompose text on the server",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			maxResults, _ := cmd.Flags().GetInt("max-results")
			encoding, _ := cmd.Flags().GetString("encoding")
			req := proto.DecomposeRequest{
				Text:       strings.Join(args, " "),
				Encoding:   encoding,
				MaxResults: maxResults,
			}
			var resp proto.DecomposeResponse
			return call(cmd, proto.MethodDecompose, req, &resp)
		},
	}
	decompose.Flags().Int("max-results", 0, "max results (0 uses the server default)")
	decompose.Flags().String("encoding", "", "encoding name sent with the text")

	rpcCmd.AddCommand(
		decompose,
		&cobra.Command{
			Use:   "stats",
			Short: "Print the server's dictionary statistics",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				var resp proto.DictionaryStatsResponse
				return call(cmd, proto.MethodDictionaryStats, proto.DictionaryStatsRequest{}, &resp)
			},
		},
		&cobra.Command{
			Use:   "reload",
			Short: "Ask the server to reload its dictionary",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				var resp proto.ReloadResponse
				return call(cmd, proto.MethodReload, proto.ReloadRequest{}, &resp)
			},
		},
		&cobra.Command{
			Use:   "health",
			Short: "Check whether the server is serving",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				var resp proto.HealthCheckResponse
				return call(cmd, proto.MethodHealth, nil, &resp)
			},
		},
	)
	rootCmd.AddCommand(rpcCmd)
}

// call runs one RPC and prints the result as indented JSON.
func call(cmd *cobra.Command, method string, params, result any) error {
	addr, _ := cmd.Flags().GetString("addr")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	client, err := rpc.Dial(addr, timeout)
	if err != nil {
		return err
	}
	defer client.Close()

	if err := client.Call(cmd.Context(), method, params, result); err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
