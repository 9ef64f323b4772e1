package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "List enrolled users",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		g, closeGate, err := openGate(cmd.Context())
		if err != nil {
			return err
		}
		defer closeGate()

		users, err := g.ListUsers(cmd.Context())
		if err != nil {
			return err
		}
		if formatOutput == "json" {
			return printJSON(users)
		}
		if len(users) == 0 {
			fmt.Println("No users enrolled.")
			return nil
		}

		w := newTabWriter()
		fmt.Fprintln(w, "USER\tMETHOD\tENROLLED\tLAST AUTH")
		for _, u := range users {
			lastAuth := "never"
			if u.LastAuthenticatedAt != nil {
				lastAuth = u.LastAuthenticatedAt.Format("2006-01-02 15:04:05")
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
				u.Username, u.Method,
				u.EnrolledAt.Format("2006-01-02 15:04:05"), lastAuth)
		}
		w.Flush()
		fmt.Printf("(%d users)\n", len(users))
		return nil
	},
}

var removeCmd = &cobra.Command{
	Use:   "remove <username>",
	Short: "Remove a user and revoke their sessions",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		g, closeGate, err := openGate(cmd.Context())
		if err != nil {
			return err
		}
		defer closeGate()

		if err := g.RemoveUser(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Printf("%s removed %q and revoked their sessions\n", styles.Badge("ok", "OK"), args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(usersCmd)
	rootCmd.AddCommand(removeCmd)
}
