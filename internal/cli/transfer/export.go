package transfer

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/julianstephens/mydesk/internal/cli"
	"github.com/julianstephens/mydesk/internal/ical"
)

// ExportCmd writes the document as JSON, or the calendar as iCalendar.
type ExportCmd struct {
	File string `arg:"" optional:"" help:"Output file. Defaults to stdout."`
	ICS  bool   `help:"Write an iCalendar file instead of the JSON document."`
}

func (c *ExportCmd) Run(ctx *cli.Context) error {
	var w io.Writer = ctx.Out
	if c.File != "" && c.File != "-" {
		f, err := os.OpenFile(c.File, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", c.File, err)
		}
		defer f.Close()
		w = f
	}

	doc := ctx.Desk.Document()
	if c.ICS {
		if err := ical.Write(w, doc.Calendar, ctx.Now()); err != nil {
			return fmt.Errorf("failed to write calendar: %w", err)
		}
	} else {
		data, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode document: %w", err)
		}
		if _, err := w.Write(append(data, '\n')); err != nil {
			return err
		}
	}

	if w != ctx.Out {
		ctx.Printf("✓ Exported %d events to %s\n", len(doc.Calendar.Events), c.File)
	}
	return nil
}
