package system

import (
	"fmt"

	"github.com/julianstephens/mydesk/internal/cli"
	"github.com/julianstephens/mydesk/internal/recurrence"
	"github.com/julianstephens/mydesk/internal/validation"
)

// ValidateCmd reports overlapping occurrences and occurrences outside the
// configured day window.
type ValidateCmd struct {
	Week string `short:"w" help:"Any date of the week to check (YYYY-MM-DD). Defaults to the displayed week."`
}

func (c *ValidateCmd) Run(ctx *cli.Context) error {
	weekStart := ctx.Desk.State().WeekStart
	if c.Week != "" {
		date, err := ctx.ParseDate(c.Week)
		if err != nil {
			return err
		}
		weekStart = recurrence.StartOfWeek(date)
	}

	start, end := ctx.Config.DayWindow()
	result := validation.New(start, end).ValidateWeek(ctx.Desk.Store().Events(), weekStart)

	ctx.Printf("Week of %s\n", weekStart.Format("2006-01-02"))
	ctx.Println(result.FormatReport())
	if result.HasConflicts() {
		return fmt.Errorf("%d conflicts found", len(result.Conflicts))
	}
	return nil
}
