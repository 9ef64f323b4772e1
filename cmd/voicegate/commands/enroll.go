package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var enrollCmd = &cobra.Command{
	Use:   "enroll <username> <sample.json>...",
	Short: "Enroll a new user from embedding sample files",
	Long: `Enroll a new user. All samples must come from the same extraction
method; the configured minimum (default 3) applies.

Examples:
  voicegate enroll alice s1.json s2.json s3.json`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		username := args[0]
		embs, err := readEmbeddings(args[1:])
		if err != nil {
			return err
		}

		g, closeGate, err := openGate(cmd.Context())
		if err != nil {
			return err
		}
		defer closeGate()

		if err := g.Enroll(cmd.Context(), username, embs); err != nil {
			return err
		}
		fmt.Printf("%s enrolled %q with %d samples (%s)\n",
			styles.Badge("ok", "OK"), username, len(embs), embs[0].Method)
		return nil
	},
}

var reenrollCmd = &cobra.Command{
	Use:   "reenroll <username> <sample.json>...",
	Short: "Replace an enrolled user's embeddings",
	Long: `Replace a user's embeddings wholesale. The new samples may use a
different extraction method; old vectors are discarded.

Examples:
  voicegate reenroll alice new1.json new2.json new3.json`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		username := args[0]
		embs, err := readEmbeddings(args[1:])
		if err != nil {
			return err
		}

		g, closeGate, err := openGate(cmd.Context())
		if err != nil {
			return err
		}
		defer closeGate()

		if err := g.Reenroll(cmd.Context(), username, embs); err != nil {
			return err
		}
		fmt.Printf("%s re-enrolled %q with %d samples (%s)\n",
			styles.Badge("ok", "OK"), username, len(embs), embs[0].Method)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(enrollCmd)
	rootCmd.AddCommand(reenrollCmd)
}
