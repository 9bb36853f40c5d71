package cmd

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"github.com/spf13/cobra"
)

func newKeysCmd() *cobra.Command {
	var blockBytes int
	c := &cobra.Command{
		Use:   "keys",
		Short: "Generate keys for the encrypted per-account cookie jars",
		RunE: func(cmd *cobra.Command, args []string) error {
			switch blockBytes {
			case 16, 24, 32:
			default:
				return fmt.Errorf("--block-bytes must be 16, 24 or 32")
			}
			hash := make([]byte, 64)
			block := make([]byte, blockBytes)
			if _, err := rand.Read(hash); err != nil {
				return err
			}
			if _, err := rand.Read(block); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "# add to the environment before `supplybot run`")
			fmt.Fprintf(out, "export COOKIE_HASH_KEY=%s\n", base64.StdEncoding.EncodeToString(hash))
			fmt.Fprintf(out, "export COOKIE_BLOCK_KEY=%s\n", base64.StdEncoding.EncodeToString(block))
			return nil
		},
	}
	c.Flags().IntVar(&blockBytes, "block-bytes", 32, "block key size in bytes (aes-128/192/256)")
	return c
}
