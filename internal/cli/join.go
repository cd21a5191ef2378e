package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/classline/classline/internal/common/apperrors"
	"github.com/classline/classline/internal/common/httpclient"
	"github.com/classline/classline/internal/platform"
	"github.com/classline/classline/internal/student/session"
	"github.com/classline/classline/pkg/api"
)

// newJoinCmd creates and returns a new join command
func newJoinCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "join <code>",
		Short: "Join a running session as a student",
		Long: `Join a running session with the 6-character code the teacher shares.
On first join the platform issues a 2-digit rejoin PIN; keep it, it is the
only way to resume the session from another device or after the cache
expires. Rejoining with the same name later requires the PIN.

Examples:
  classline join ABC123 --name "Riya"
  classline join ABC123 --name "Riya" --pin 42`,
		Args: cobra.ExactArgs(1),
		RunE: runJoin,
	}

	cmd.Flags().String("name", "", "Student name (20 characters max)")
	cmd.Flags().String("pin", "", "2-digit rejoin PIN, if you have one")
	return cmd
}

// runJoin handles the join command execution
func runJoin(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	if cfg == nil {
		return fmt.Errorf("no configuration loaded")
	}

	name, _ := cmd.Flags().GetString("name")
	pin, _ := cmd.Flags().GetString("pin")

	store, err := session.NewStore()
	if err != nil {
		return fmt.Errorf("failed to open session store: %w", err)
	}

	// A valid cached session short-circuits the join entirely.
	if res := store.Validate(); res.Valid {
		if jsonOutput {
			printJSON(map[string]interface{}{
				"status":       "cached",
				"run_id":       res.Session.RunID,
				"student_name": res.Session.StudentName,
			})
		} else {
			okLabel.Printf("✓ Already joined as %s\n", res.Session.StudentName)
			fmt.Println("Run \"classline learn\" to continue, or \"classline exit\" to leave first.")
		}
		return nil
	}

	req := &api.JoinRequest{
		Code:        args[0],
		StudentName: name,
		RejoinPin:   pin,
	}

	client := platform.New(httpclient.NewClient(cfg))
	resp, joinErr := client.Join(cmd.Context(), req)

	// The name is already enrolled in this run; a rejoin needs the PIN.
	if joinErr != nil && apperrors.Is(joinErr, platform.ErrRequiresPin) && req.RejoinPin == "" {
		fmt.Printf("%q has already joined this session.\n", req.StudentName)
		fmt.Print("Enter your 2-digit rejoin PIN: ")
		reader := bufio.NewReader(os.Stdin)
		line, readErr := reader.ReadString('\n')
		if readErr != nil {
			return fmt.Errorf("failed to read PIN: %w", readErr)
		}
		req.RejoinPin = strings.TrimSpace(line)
		resp, joinErr = client.Join(cmd.Context(), req)
	}
	if joinErr != nil {
		return joinErr
	}

	store.Save(resp.RunID, resp.StudentName, resp.RejoinPin, resp.ActivityToken)

	if jsonOutput {
		kv := map[string]interface{}{
			"status":       "success",
			"run_id":       resp.RunID,
			"student_name": resp.StudentName,
		}
		if resp.RejoinPin != "" {
			kv["rejoin_pin"] = resp.RejoinPin
		}
		printJSON(kv)
	} else {
		okLabel.Printf("✓ Joined as %s\n", resp.StudentName)
		if resp.RejoinPin != "" {
			fmt.Printf("Your rejoin PIN is %s. Keep it to rejoin after a disconnect.\n", resp.RejoinPin)
		}
		fmt.Println("Run \"classline learn\" to start.")
	}
	return nil
}
