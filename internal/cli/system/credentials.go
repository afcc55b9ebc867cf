package system

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/julianstephens/mydesk/internal/cli"
	"github.com/julianstephens/mydesk/internal/keyring"
	"github.com/julianstephens/mydesk/internal/storage/postgres"
)

// CredentialsSetCmd stores the portal password in the OS keyring.
type CredentialsSetCmd struct {
	Username string `short:"u" help:"Portal login. Defaults to scraper.username from the config."`
	Password string `short:"p" help:"Password. Prompted for when omitted." env:"MYDESK_PORTAL_PASSWORD"`
}

func (c *CredentialsSetCmd) Run(ctx *cli.Context) error {
	user := strings.TrimSpace(c.Username)
	if user == "" {
		user = ctx.Config.Scraper.Username
	}
	if user == "" {
		return fmt.Errorf("no portal login: pass --username or set scraper.username in the config")
	}

	password := c.Password
	if password == "" {
		err := huh.NewInput().
			Title("Portal password for " + user).
			EchoMode(huh.EchoModePassword).
			Value(&password).
			Run()
		if err != nil {
			return fmt.Errorf("prompt cancelled: %w", err)
		}
	}

	if err := keyring.SetPortalPassword(user, password); err != nil {
		return err
	}
	if ctx.Config.Scraper.Username != user {
		ctx.Config.Scraper.Username = user
		if err := ctx.Config.Save(ctx.ConfigPath); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}
	}
	ctx.Printf("✓ Stored the portal password for %s in the OS keyring\n", user)
	return nil
}

// CredentialsSetDBCmd stores a full PostgreSQL connection string, password
// included, in the OS keyring and points the cache at it.
type CredentialsSetDBCmd struct {
	ConnString string `arg:"" help:"PostgreSQL connection string."`
}

func (c *CredentialsSetDBCmd) Run(ctx *cli.Context) error {
	if !postgres.IsConnString(c.ConnString) && !strings.Contains(c.ConnString, "dbname=") {
		return fmt.Errorf("not a PostgreSQL connection string")
	}
	if err := keyring.SetConnectionString(c.ConnString); err != nil {
		return err
	}
	ctx.Config.Cache = "keyring"
	if err := ctx.Config.Save(ctx.ConfigPath); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	ctx.Println("✓ Stored the connection string in the OS keyring; run 'mydesk init' to create the schema.")
	return nil
}
