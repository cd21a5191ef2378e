package cli

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/spf13/cobra"

	"github.com/classline/classline/internal/common/httpclient"
	"github.com/classline/classline/internal/events"
	"github.com/classline/classline/internal/platform"
	"github.com/classline/classline/internal/student/activitylog"
	"github.com/classline/classline/internal/student/liveness"
	"github.com/classline/classline/internal/student/session"
	"github.com/classline/classline/pkg/api"
)

// newLearnCmd creates and returns a new learn command
func newLearnCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "learn",
		Short: "Work through the activity in the joined session",
		Long: `Resume the cached session and work through the activity. Each line you
enter is recorded as a turn; the session stays live in the background and
you are told when the teacher ends it. Type /quit to leave the loop without
abandoning the session.`,
		RunE: runLearn,
	}

	cmd.Flags().String("activity", "main", "Activity key to record turns under")
	return cmd
}

// runLearn handles the learn command execution
func runLearn(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	if cfg == nil {
		return fmt.Errorf("no configuration loaded")
	}

	store, err := session.NewStore()
	if err != nil {
		return fmt.Errorf("failed to open session store: %w", err)
	}

	res := store.Validate()
	if !res.Valid {
		return fmt.Errorf("no usable session (%s); join one with \"classline join <code>\"", res.Reason)
	}
	rec := res.Session

	client := platform.New(httpclient.NewClient(cfg))

	// Probe the session once before committing to the interactive loop.
	// Transient failures are retried; a definitive status is not.
	var status int
	err = retry.Do(func() error {
		var probeErr error
		status, probeErr = client.SessionStatus(cmd.Context(), rec.ActivityToken)
		return probeErr
	}, retry.Attempts(3), retry.Delay(1*time.Second), retry.DelayType(retry.BackOffDelay), retry.Context(cmd.Context()))
	if err != nil {
		return fmt.Errorf("could not reach the platform: %w", err)
	}
	switch {
	case status == http.StatusUnauthorized:
		store.Clear()
		return fmt.Errorf("session expired; rejoin with \"classline join <code>\"")
	case status == http.StatusGone:
		store.Clear()
		fmt.Println("This session has ended.")
		return nil
	case status < 200 || status >= 300:
		return fmt.Errorf("unexpected session status %d", status)
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	bus := events.New()
	defer bus.Close()

	poller := liveness.New(client, bus, rec.ActivityToken, liveness.WithSessionRefresh(store.Touch))
	poller.Start(ctx)
	defer poller.Stop()

	dispatcher := activitylog.New(client, bus, rec.ActivityToken, activitylog.WithSessionRefresh(store.Refresh))

	activityKey, _ := cmd.Flags().GetString("activity")
	turnIndex := 0
	if last := dispatcher.LastLogged(); last != nil && last.ActivityKey == activityKey {
		turnIndex = last.TurnIndex + 1
	}

	// Render bus events until the session ends or the loop is done.
	evCh, unsubscribe := bus.Subscribe(16)
	defer unsubscribe()
	go func() {
		for ev := range evCh {
			switch e := ev.(type) {
			case events.Notice:
				renderNotice(e)
			case events.SessionEnded:
				fmt.Println("\nThe teacher has ended this session.")
				store.Clear()
				cancel()
			case events.LearningCompleted:
				okLabel.Printf("\n✓ Activity complete. Understanding score %d\n", e.Score)
				cancel()
			}
		}
	}()

	okLabel.Printf("✓ Session live. Learning as %s\n", rec.StudentName)
	fmt.Println("Type your responses below. /quit to leave.")

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			text := strings.TrimSpace(line)
			if text == "" {
				continue
			}
			if text == "/quit" {
				fmt.Println("Leaving the loop. Your session stays cached; \"classline learn\" resumes it.")
				return nil
			}
			store.Touch()
			entry := &api.TurnLogEntry{
				ActivityKey:  activityKey,
				TurnIndex:    turnIndex,
				StudentInput: &text,
			}
			if dispatcher.Send(ctx, entry) {
				turnIndex++
			}
		}
	}
}

// renderNotice prints a bus notice with a severity-appropriate label.
func renderNotice(n events.Notice) {
	switch n.Level {
	case events.LevelError:
		errorLabel.Fprintf(os.Stderr, "! %s\n", n.Message)
	case events.LevelWarn:
		fmt.Fprintf(os.Stderr, "! %s\n", n.Message)
	default:
		fmt.Println(n.Message)
	}
}
