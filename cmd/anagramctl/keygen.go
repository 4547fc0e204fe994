package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/anagram-solver/internal/auth/apikey"
)

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate an admin API key and the digest to configure",
	Long: `Prints a new random key and its SHA-256 digest. Give the key to the
operator and add the digest to server.adminKeyHashes (or AS_ADMIN_KEY_HASHES).
The key cannot be recovered from the digest.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := apikey.GenerateKey()
		if err != nil {
			return err
		}
		fmt.Printf("key:    %s\ndigest: %s\n", key, apikey.HashKey(key))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(keygenCmd)
}
