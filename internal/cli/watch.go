package cli

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/spf13/cobra"

	"github.com/classline/classline/internal/common/httpclient"
	"github.com/classline/classline/internal/events"
	"github.com/classline/classline/internal/platform"
	"github.com/classline/classline/internal/teacher/livewatch"
	"github.com/classline/classline/pkg/api"
)

// newWatchCmd creates and returns a new watch command
func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch live participation for a session you are running",
		Long: `Watch live participation for a running session: who has joined, who has
been active within the recency window, and per-student turn counts. The view
refreshes every few seconds until the session ends.

Examples:
  classline watch --run 42
  classline watch --run 42 --window 60`,
		RunE: runWatch,
	}

	cmd.Flags().Int64("run", 0, "Run ID of the session to watch")
	cmd.Flags().Int("window", 300, "Recency window in seconds for the active count")
	cmd.MarkFlagRequired("run")
	return cmd
}

// runWatch handles the watch command execution
func runWatch(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	if cfg == nil {
		return fmt.Errorf("no configuration loaded")
	}

	runID, _ := cmd.Flags().GetInt64("run")
	windowSec, _ := cmd.Flags().GetInt("window")

	client := platform.New(httpclient.NewClient(cfg))

	// Fetch one snapshot up front so a bad run ID fails fast instead of
	// silently polling nothing.
	var status int
	err := retry.Do(func() error {
		var probeErr error
		_, status, probeErr = client.LiveSnapshot(cmd.Context(), runID, windowSec)
		return probeErr
	}, retry.Attempts(3), retry.Delay(1*time.Second), retry.DelayType(retry.BackOffDelay), retry.Context(cmd.Context()))
	if err != nil {
		return fmt.Errorf("could not reach the platform: %w", err)
	}
	switch status {
	case http.StatusOK:
	case http.StatusGone:
		fmt.Println("This session has ended.")
		return nil
	case http.StatusNotFound:
		return fmt.Errorf("no run with ID %d", runID)
	default:
		return fmt.Errorf("unexpected snapshot status %d", status)
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	bus := events.New()
	defer bus.Close()

	evCh, unsubscribe := bus.Subscribe(4)
	defer unsubscribe()

	watcher := livewatch.New(client, bus, runID,
		livewatch.WithWindow(windowSec),
		livewatch.WithOnSnapshot(renderSnapshot),
	)
	watcher.Start(ctx)
	defer watcher.Stop()

	for ev := range evCh {
		switch e := ev.(type) {
		case events.SessionEnded:
			fmt.Println("Session ended.")
			return nil
		case events.Notice:
			renderNotice(e)
		}
	}
	return nil
}

// renderSnapshot prints one live snapshot.
func renderSnapshot(snap *api.LiveSnapshot) {
	fmt.Printf("\n[%s] %s | joined %d, active %d (last %ds)\n",
		time.Now().Format("15:04:05"), snap.Status, snap.JoinedTotal, snap.ActiveRecent, snap.WindowSec)
	for _, s := range snap.Students {
		lastSeen := "never"
		if s.LastSeenAt != nil {
			lastSeen = fmt.Sprintf("%s ago", time.Since(*s.LastSeenAt).Round(time.Second))
		}
		fmt.Printf("  %-20s  turns %-4d  seen %s\n", s.StudentName, s.TurnsTotal, lastSeen)
	}
}
