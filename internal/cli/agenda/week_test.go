package agenda

import (
	"context"
	"strings"
	"testing"

	"github.com/julianstephens/mydesk/internal/calendar"
	"github.com/julianstephens/mydesk/internal/cli/clitest"
	"github.com/julianstephens/mydesk/internal/storage/memory"
)

func TestWeekCmd(t *testing.T) {
	tests := []struct {
		name string
		cmd  WeekCmd
		want string
	}{
		{"current", WeekCmd{}, "Mon 12 Oct"},
		{"next", WeekCmd{Next: true}, "Mon 19 Oct"},
		{"prev", WeekCmd{Prev: true}, "Mon 05 Oct"},
		{"date", WeekCmd{Date: "2026-03-04"}, "Mon 02 Mar"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, out := clitest.New(t, "")
			if err := tt.cmd.Run(ctx); err != nil {
				t.Fatalf("Run() error = %v", err)
			}
			if !strings.Contains(out.String(), "Week of "+tt.want) {
				t.Errorf("output does not start on %s:\n%s", tt.want, out.String())
			}
		})
	}
}

func TestWeekCmdShowsOccurrences(t *testing.T) {
	ctx, out := clitest.New(t, "")
	ctx.Desk.CreateEvent(context.Background(), calendar.EventInput{
		Title:      "Standup",
		Start:      "2026-09-01T09:00",
		Duration:   "15",
		Recurrence: "daily",
	})

	if err := (&WeekCmd{}).Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if n := strings.Count(out.String(), "Standup"); n != 7 {
		t.Errorf("Standup shown %d times, want 7:\n%s", n, out.String())
	}
	if !strings.Contains(out.String(), "09:00–09:15") {
		t.Errorf("missing time range:\n%s", out.String())
	}
}

func TestWeekCmdRemembersWeek(t *testing.T) {
	cache := memory.NewCache()
	ctx, _ := clitest.Open(t, cache, "")
	if err := (&WeekCmd{Next: true}).Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if err := ctx.Close(context.Background()); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	reopened, out := clitest.Open(t, cache, "")
	if err := (&WeekCmd{}).Run(reopened); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !strings.Contains(out.String(), "Week of Mon 19 Oct") {
		t.Errorf("week not remembered:\n%s", out.String())
	}
}

func TestWeekCmdInvalidDate(t *testing.T) {
	ctx, _ := clitest.New(t, "")
	if err := (&WeekCmd{Date: "next tuesday"}).Run(ctx); err == nil {
		t.Error("Run() should reject an invalid date")
	}
}
