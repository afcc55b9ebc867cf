package agenda

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/mydesk/internal/cli"
	"github.com/julianstephens/mydesk/internal/tui"
)

// WeekCmd shows one week. Moving to another week is remembered for the next
// session.
type WeekCmd struct {
	Next  bool   `short:"n" help:"Show the following week." xor:"nav"`
	Prev  bool   `short:"p" help:"Show the previous week." xor:"nav"`
	Today bool   `short:"t" help:"Show the current week." xor:"nav"`
	Date  string `short:"d" help:"Show the week containing this date (YYYY-MM-DD)." xor:"nav"`

	Interactive bool `short:"i" help:"Browse weeks, resize, move and delete events interactively."`
}

func (c *WeekCmd) Run(ctx *cli.Context) error {
	bg := context.Background()
	var err error
	switch {
	case c.Next:
		err = ctx.Desk.NextWeek(bg)
	case c.Prev:
		err = ctx.Desk.PrevWeek(bg)
	case c.Today:
		err = ctx.Desk.Today(bg)
	case c.Date != "":
		date, perr := ctx.ParseDate(c.Date)
		if perr != nil {
			return perr
		}
		err = ctx.Desk.GoTo(bg, date)
	}
	if err != nil {
		return fmt.Errorf("failed to save week: %w", err)
	}

	if c.Interactive {
		start, end := ctx.Config.DayWindow()
		m := tui.NewModel(ctx.Desk, tui.Options{Now: ctx.Now, DayStart: start, DayEnd: end})
		if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
			return fmt.Errorf("interactive view failed: %w", err)
		}
		return nil
	}

	ctx.Printf("%s", cli.RenderWeek(ctx.Desk.State().WeekStart, ctx.Now(), ctx.Desk.Week()))
	return nil
}
