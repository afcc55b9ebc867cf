package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/julianstephens/mydesk/internal/cli"
	"github.com/julianstephens/mydesk/internal/cli/agenda"
	"github.com/julianstephens/mydesk/internal/cli/backups"
	"github.com/julianstephens/mydesk/internal/cli/events"
	"github.com/julianstephens/mydesk/internal/cli/eventtypes"
	"github.com/julianstephens/mydesk/internal/cli/folders"
	"github.com/julianstephens/mydesk/internal/cli/scrape"
	"github.com/julianstephens/mydesk/internal/cli/system"
	"github.com/julianstephens/mydesk/internal/cli/transfer"
	"github.com/julianstephens/mydesk/internal/config"
	"github.com/julianstephens/mydesk/internal/constants"
	"github.com/julianstephens/mydesk/internal/errors"
	"github.com/julianstephens/mydesk/internal/logger"
)

var CLI struct {
	Version   kong.VersionFlag
	Config    string `help:"Config file path." type:"string" default:"~/.config/mydesk/config.yaml"`
	Debug     bool   `help:"Log debug output to stderr."`
	Ephemeral bool   `help:"Keep the local cache in memory for this run only."`

	Init     system.InitCmd     `cmd:"" help:"Write the config and create the local cache."`
	Doctor   system.DoctorCmd   `cmd:"" help:"Run health checks and diagnostics."`
	Validate system.ValidateCmd `cmd:"" help:"Report overlapping or out-of-hours occurrences for a week."`
	Week     agenda.WeekCmd     `cmd:"" help:"Show a week of events." default:"1"`
	Event    struct {
		Add    events.EventAddCmd    `cmd:"" help:"Add an event."`
		Edit   events.EventEditCmd   `cmd:"" help:"Edit an event."`
		Move   events.EventMoveCmd   `cmd:"" help:"Move an event to a new start."`
		Resize events.EventResizeCmd `cmd:"" help:"Lengthen or shorten an event."`
		Delete events.EventDeleteCmd `cmd:"" help:"Delete an event."`
		List   events.EventListCmd   `cmd:"" help:"List all events."`
		Find   events.EventFindCmd   `cmd:"" help:"Fuzzy-search event titles."`
	} `cmd:"" help:"Manage events."`
	Type struct {
		Add     eventtypes.TypeAddCmd     `cmd:"" help:"Add an event type."`
		Rename  eventtypes.TypeRenameCmd  `cmd:"" help:"Rename an event type."`
		Recolor eventtypes.TypeRecolorCmd `cmd:"" help:"Change an event type colour."`
		Delete  eventtypes.TypeDeleteCmd  `cmd:"" help:"Delete an event type."`
		List    eventtypes.TypeListCmd    `cmd:"" help:"List event types."`
	} `cmd:"" help:"Manage event types."`
	Storage struct {
		Link   folders.StorageLinkCmd   `cmd:"" help:"Keep a copy of the data in a folder."`
		Unlink folders.StorageUnlinkCmd `cmd:"" help:"Stop writing to the linked folder."`
		Status folders.StorageStatusCmd `cmd:"" help:"Show where data is stored." default:"1"`
	} `cmd:"" help:"Manage the external data folder."`
	Import transfer.ImportCmd `cmd:"" help:"Import a JSON document."`
	Export transfer.ExportCmd `cmd:"" help:"Export the document as JSON or iCalendar."`
	Scrape scrape.ScrapeCmd   `cmd:"" help:"Fetch the class timetable from the academic portal."`
	Backup struct {
		Create  backups.BackupCreateCmd  `cmd:"" help:"Create a manual backup." default:"1"`
		List    backups.BackupListCmd    `cmd:"" help:"List available backups."`
		Restore backups.BackupRestoreCmd `cmd:"" help:"Restore from a backup."`
	} `cmd:"" help:"Manage document backups."`
	Credentials struct {
		Set   system.CredentialsSetCmd   `cmd:"" help:"Store the portal password in the OS keyring."`
		SetDB system.CredentialsSetDBCmd `cmd:"" name:"set-db" help:"Store a PostgreSQL connection string in the OS keyring."`
	} `cmd:"" help:"Manage stored credentials."`
}

// standalone commands run without loading the document.
var standalone = map[string]bool{
	"init":        true,
	"doctor":      true,
	"credentials": true,
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name(constants.AppName),
		kong.Description("Week calendar with a local cache and a folder-backed copy"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{"version": constants.Version},
	)

	cfg, err := config.Load(CLI.Config)
	if err != nil {
		errors.Fatal(err)
	}

	appCtx := cli.NewContext(cfg, CLI.Config, nil)
	if err := logger.Init(logger.Config{Debug: CLI.Debug, ConfigDir: appCtx.ConfigDir()}); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to initialize logger: %v\n", err)
	}
	defer logger.Close()

	cache, err := cli.OpenCache(cfg, CLI.Ephemeral)
	if err != nil {
		errors.Fatal(err)
	}
	appCtx.Cache = cache

	bg := context.Background()
	command := strings.Fields(ctx.Command())
	if len(command) > 0 && !standalone[command[0]] {
		if err := appCtx.Open(bg); err != nil {
			_ = appCtx.Close(bg)
			errors.Fatal(err)
		}
	}

	runErr := ctx.Run(appCtx)
	closeErr := appCtx.Close(bg)
	if runErr != nil {
		errors.Fatal(runErr)
	}
	if closeErr != nil {
		errors.Fatal(fmt.Errorf("failed to save: %w", closeErr))
	}
}
