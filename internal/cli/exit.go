package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/classline/classline/internal/student/session"
)

// newExitCmd creates and returns a new exit command
func newExitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "exit",
		Short: "Leave the joined session and clear the local cache",
		Long: `Clear the session cached on this machine. The enrollment itself survives
on the platform; rejoining with the same name and PIN resumes it.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := session.NewStore()
			if err != nil {
				return fmt.Errorf("failed to open session store: %w", err)
			}

			rec := store.Load()
			store.Clear()

			if jsonOutput {
				printJSON(map[string]string{"status": "cleared"})
				return nil
			}
			if rec == nil {
				fmt.Println("No cached session to clear.")
				return nil
			}
			okLabel.Printf("✓ Left the session for %s\n", rec.StudentName)
			if rec.RejoinPin != "" {
				fmt.Printf("Rejoin any time with your PIN (%s).\n", rec.RejoinPin)
			}
			return nil
		},
	}
}
