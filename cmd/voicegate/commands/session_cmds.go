package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <session-id>",
	Short: "Check whether a session token is still valid",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		g, closeGate, err := openGate(cmd.Context())
		if err != nil {
			return err
		}
		defer closeGate()

		username, ok := g.ValidateSession(cmd.Context(), args[0])
		if !ok {
			fmt.Printf("%s session is invalid or expired\n", styles.Badge("err", "INVALID"))
			return nil
		}
		fmt.Printf("%s session belongs to %q\n", styles.Badge("ok", "VALID"), username)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout <session-id>",
	Short: "Revoke a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		g, closeGate, err := openGate(cmd.Context())
		if err != nil {
			return err
		}
		defer closeGate()

		if err := g.Logout(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Printf("%s session revoked\n", styles.Badge("ok", "OK"))
		return nil
	},
}

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List live sessions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		g, closeGate, err := openGate(cmd.Context())
		if err != nil {
			return err
		}
		defer closeGate()

		sessions := g.ListSessions()
		if formatOutput == "json" {
			return printJSON(sessions)
		}
		if len(sessions) == 0 {
			fmt.Println("No live sessions.")
			return nil
		}

		w := newTabWriter()
		fmt.Fprintln(w, "ID\tUSER\tCREATED\tEXPIRES")
		for _, s := range sessions {
			fmt.Fprintf(w, "%s...\t%s\t%s\t%s\n",
				s.ID[:12], s.Username,
				s.CreatedAt.Format("2006-01-02 15:04:05"),
				s.ExpiresAt.Format("2006-01-02 15:04:05"))
		}
		w.Flush()
		fmt.Printf("(%d sessions)\n", len(sessions))
		return nil
	},
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Remove expired sessions once",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		g, closeGate, err := openGate(cmd.Context())
		if err != nil {
			return err
		}
		defer closeGate()

		n, err := g.Sweep(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("removed %d expired sessions\n", n)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(sessionsCmd)
	rootCmd.AddCommand(sweepCmd)
}
