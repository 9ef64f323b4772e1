package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/haivivi/voicegate/pkg/gate"
)

var authIdentifier string

var authCmd = &cobra.Command{
	Use:   "auth <candidate.json>",
	Short: "Authenticate a candidate embedding",
	Long: `Evaluate one candidate embedding against every enrolled profile.
On accept, prints the matched user and a session token.

Examples:
  voicegate auth candidate.json
  voicegate auth candidate.json --identifier kiosk-2
  voicegate auth candidate.json --format json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		candidate, err := readEmbedding(args[0])
		if err != nil {
			return err
		}

		g, closeGate, err := openGate(cmd.Context())
		if err != nil {
			return err
		}
		defer closeGate()

		d, err := g.Authenticate(cmd.Context(), candidate, authIdentifier)
		if err != nil {
			return err
		}

		if formatOutput == "json" {
			return printJSON(d)
		}
		printDecision(d)
		return nil
	},
}

func printDecision(d gate.Decision) {
	switch d.Outcome {
	case gate.OutcomeAccept:
		fmt.Printf("%s matched %q (score %.3f)\n", styles.Badge("ok", "ACCEPT"), d.Username, d.Score)
		fmt.Printf("session: %s\n", d.SessionID)
	case gate.OutcomeNotMatched:
		fmt.Printf("%s no profile above threshold (best score %.3f)\n", styles.Badge("err", "REJECT"), d.Score)
		if d.AttemptsLeft > 0 {
			fmt.Println(styles.Dim.Render(fmt.Sprintf("%d attempts left before lockout", d.AttemptsLeft)))
		} else {
			fmt.Println(styles.Warn.Render("identifier is now locked out"))
		}
	case gate.OutcomeLockedOut:
		fmt.Printf("%s locked out, retry in %s\n", styles.Badge("warn", "LOCKED"), d.RetryAfter)
	case gate.OutcomeNoProfiles:
		fmt.Printf("%s nobody is enrolled for this method\n", styles.Badge("warn", "NO PROFILES"))
	}
}

func init() {
	authCmd.Flags().StringVar(&authIdentifier, "identifier", gate.DefaultIdentifier, "lockout identifier for this attempt source")

	rootCmd.AddCommand(authCmd)
}
