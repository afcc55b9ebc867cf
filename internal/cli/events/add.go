package events

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/huh"

	"github.com/julianstephens/mydesk/internal/calendar"
	"github.com/julianstephens/mydesk/internal/cli"
	"github.com/julianstephens/mydesk/internal/constants"
	"github.com/julianstephens/mydesk/internal/models"
)

type EventAddCmd struct {
	Title       string `arg:"" optional:"" help:"Event title."`
	Start       string `short:"s" help:"Start (YYYY-MM-DDTHH:MM). Defaults to the current hour."`
	Duration    string `short:"d" help:"Duration in minutes." default:"60"`
	Recurrence  string `short:"r" help:"Recurrence (none|daily|weekly|monthly|yearly)." default:"none"`
	Type        string `short:"t" help:"Event type id or name."`
	Color       string `short:"c" help:"Colour override (#RRGGBB)."`
	Interactive bool   `short:"i" help:"Fill the event in with a form."`
}

func (c *EventAddCmd) Run(ctx *cli.Context) error {
	if c.Interactive {
		if err := c.runForm(ctx); err != nil {
			return err
		}
	}

	in := calendar.EventInput{
		Title:      c.Title,
		Start:      c.Start,
		Duration:   c.Duration,
		Recurrence: c.Recurrence,
		Color:      c.Color,
	}
	if c.Type != "" {
		et, err := ctx.ResolveType(c.Type)
		if err != nil {
			return err
		}
		in.TypeID = et.ID
	}

	ev, err := ctx.Desk.CreateEvent(context.Background(), in)
	if err != nil {
		return fmt.Errorf("failed to save event: %w", err)
	}
	ctx.Printf("✓ Added %s\n", cli.FormatEvent(ev, ctx.TypeName(ev.TypeID)))
	return nil
}

func (c *EventAddCmd) runForm(ctx *cli.Context) error {
	if c.Start == "" {
		c.Start = ctx.Now().Truncate(time.Hour).Format(constants.WallClockFormat)
	}
	typeOptions := []huh.Option[string]{huh.NewOption("None", "")}
	for _, et := range ctx.Desk.Store().Types() {
		typeOptions = append(typeOptions, huh.NewOption(et.Name, et.ID))
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Title").
				Value(&c.Title),
			huh.NewInput().
				Title("Start").
				Description("YYYY-MM-DDTHH:MM").
				Value(&c.Start).
				Validate(func(s string) error {
					_, err := models.ParseWallClock(s)
					return err
				}),
			huh.NewInput().
				Title("Duration (min)").
				Value(&c.Duration).
				Validate(func(s string) error {
					i, err := strconv.Atoi(strings.TrimSpace(s))
					if err != nil {
						return err
					}
					if i <= 0 {
						return fmt.Errorf("duration must be a positive number of minutes")
					}
					return nil
				}),
			huh.NewSelect[string]().
				Title("Recurrence").
				Options(
					huh.NewOption("None", string(constants.RecurrenceNone)),
					huh.NewOption("Daily", string(constants.RecurrenceDaily)),
					huh.NewOption("Weekly", string(constants.RecurrenceWeekly)),
					huh.NewOption("Monthly", string(constants.RecurrenceMonthly)),
					huh.NewOption("Yearly", string(constants.RecurrenceYearly)),
				).
				Value(&c.Recurrence),
			huh.NewSelect[string]().
				Title("Type").
				Options(typeOptions...).
				Value(&c.Type),
			huh.NewInput().
				Title("Colour").
				Description("#RRGGBB, leave empty for the type colour").
				Value(&c.Color).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return nil
					}
					if _, ok := models.NormalizeColor(s); !ok {
						return fmt.Errorf("not a #RRGGBB colour")
					}
					return nil
				}),
		),
	).WithTheme(huh.ThemeDracula())

	if err := form.Run(); err != nil {
		return fmt.Errorf("form cancelled: %w", err)
	}
	return nil
}
