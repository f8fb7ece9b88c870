package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/theramind/availability/internal/gateway"
	"github.com/theramind/availability/internal/grid"
	"github.com/theramind/availability/internal/model"
	"github.com/theramind/availability/internal/selection"
)

// slot-grid-sim drives one drag gesture against a running availability
// service: it lists the therapist's existing slots, replays
// down/move/up through the selection controller, prints the resulting
// proposal and optionally commits it.
func main() {
	var (
		baseURL     = flag.String("base-url", getenv("BASE_URL", "http://localhost:8084"), "availability service base url")
		therapistID = flag.String("therapist-id", getenv("THERAPIST_ID", ""), "therapist id")
		sessionType = flag.String("session-type", "virtual", "session type (virtual|clinic)")
		date        = flag.String("date", time.Now().AddDate(0, 0, 1).Format("2006-01-02"), "grid anchor date (YYYY-MM-DD)")
		timezone    = flag.String("timezone", "UTC", "IANA timezone of the grid")
		granularity = flag.Int("granularity", 30, "slot granularity in minutes")
		day         = flag.Int("day", 0, "day offset from the anchor date")
		from        = flag.Int("from", 20, "cell index where the drag starts")
		to          = flag.Int("to", 21, "cell index where the drag ends")
		commit      = flag.Bool("commit", false, "confirm the proposal instead of discarding it")
	)
	flag.Parse()

	if *therapistID == "" {
		fatal("THERAPIST_ID is required")
	}
	st := model.SessionType(*sessionType)
	if !st.Valid() {
		fatal("session-type must be virtual or clinic")
	}

	gran, err := grid.NewGranularity(*granularity)
	if err != nil {
		fatal(err.Error())
	}
	ix, err := grid.NewIndex(*date, *timezone, gran)
	if err != nil {
		fatal(err.Error())
	}

	ctx := context.Background()
	client := gateway.NewClient(*baseURL)
	existing, err := client.ListSlots(ctx, *therapistID, st, ix.Date(0), ix.Date(*day), *timezone)
	if err != nil {
		fatal("list slots: " + err.Error())
	}
	fmt.Printf("existing slots: %d\n", len(existing))
	for _, s := range existing {
		fmt.Printf("  %s  %s - %s\n", s.ID, s.StartTime.Format(time.RFC3339), s.EndTime.Format(time.RFC3339))
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	ctrl := selection.NewController(ix, *therapistID, st, client, logger)

	ctrl.PointerDown(*day, *from)
	ctrl.PointerMove(*day, *to)
	proposal, err := ctrl.PointerUp(existing, time.Now())
	if err != nil {
		fatal("selection rejected: " + err.Error())
	}
	fmt.Printf("proposal: %s (%s)\n", proposal.Display, ix.Date(*day))
	for _, r := range proposal.Ranges {
		fmt.Printf("  %s - %s\n", r.StartTime.Format(time.RFC3339), r.EndTime.Format(time.RFC3339))
	}

	if !*commit {
		ctrl.Cancel()
		fmt.Println("dry run; pass -commit to persist")
		return
	}

	created, err := ctrl.Confirm(ctx)
	if err != nil {
		if gateway.IsConflict(err) {
			fatal("commit conflicted with a concurrent booking")
		}
		fatal("commit failed: " + err.Error())
	}
	fmt.Printf("created %d slot(s)\n", len(created))
	for _, s := range created {
		fmt.Printf("  %s  %s - %s\n", s.ID, s.StartTime.Format(time.RFC3339), s.EndTime.Format(time.RFC3339))
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func fatal(msg string) {
	fmt.Fprintln(os.Stderr, "error: "+msg)
	os.Exit(1)
}
