package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/classline/classline/internal/student/session"
	"github.com/classline/classline/pkg/api"
)

// newStatusCmd creates and returns a new status command
func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the cached session, if any",
		Long: `Show the session cached on this machine: who joined, which run,
when it was last active, and how long until the cache expires. This command
works offline; it never contacts the platform.`,
		RunE: runStatus,
	}
}

// runStatus handles the status command execution
func runStatus(cmd *cobra.Command, args []string) error {
	store, err := session.NewStore()
	if err != nil {
		return fmt.Errorf("failed to open session store: %w", err)
	}

	res := store.Validate()
	if !res.Valid {
		if jsonOutput {
			printJSON(map[string]string{
				"session": "none",
				"reason":  string(res.Reason),
			})
		} else {
			fmt.Printf("No usable session (%s). Join one with \"classline join <code>\".\n", res.Reason)
		}
		return nil
	}
	rec := res.Session

	remaining := time.Until(rec.ExpiresAt()).Round(time.Second)

	if jsonOutput {
		kv := map[string]interface{}{
			"session":          "active",
			"run_id":           rec.RunID,
			"student_name":     rec.StudentName,
			"joined_at":        rec.JoinedAt.Format(time.RFC3339),
			"last_activity_at": rec.LastActivityAt.Format(time.RFC3339),
			"expires_in":       remaining.String(),
		}
		if claims, err := api.ParseActivityToken(rec.ActivityToken); err == nil {
			kv["enrollment_id"] = claims.EnrollmentID
		}
		printJSON(kv)
		return nil
	}

	okLabel.Printf("✓ Session cached for %s (run %d)\n", rec.StudentName, rec.RunID)
	fmt.Printf("Joined:        %s\n", rec.JoinedAt.Local().Format(time.RFC1123))
	fmt.Printf("Last activity: %s\n", rec.LastActivityAt.Local().Format(time.RFC1123))
	fmt.Printf("Expires in:    %s\n", remaining)
	if claims, err := api.ParseActivityToken(rec.ActivityToken); err == nil {
		fmt.Printf("Enrollment:    %d\n", claims.EnrollmentID)
	}
	if rec.RejoinPin != "" {
		fmt.Printf("Rejoin PIN:    %s\n", rec.RejoinPin)
	}
	return nil
}
