package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"syscall"
	"text/tabwriter"

	"golang.org/x/term"

	"github.com/fiberdesk/fiberdesk/internal/adapter/postgres"
	"github.com/fiberdesk/fiberdesk/internal/config"
	"github.com/fiberdesk/fiberdesk/internal/domain/tenant"
	"github.com/fiberdesk/fiberdesk/internal/service"
)

// runAdmin dispatches admin subcommands (provision-tenant, list-tenants,
// deactivate-tenant).
func runAdmin(args []string) error {
	if len(args) == 0 || args[0] == "help" || args[0] == "--help" {
		printAdminHelp()
		return nil
	}

	switch args[0] {
	case "provision-tenant":
		return runAdminProvisionTenant(args[1:])
	case "list-tenants":
		return runAdminListTenants(args[1:])
	case "deactivate-tenant":
		return runAdminDeactivateTenant(args[1:])
	default:
		printAdminHelp()
		return fmt.Errorf("unknown admin command: %s", args[0])
	}
}

func printAdminHelp() {
	fmt.Fprintf(os.Stderr, `Usage: fiberdesk admin <command> [options]

Commands:
  provision-tenant    Create a new tenant database and directory entry
  list-tenants        List all tenants in the master directory
  deactivate-tenant   Mark a tenant inactive (its database is kept)
  help                Show this help message

Examples:
  fiberdesk admin provision-tenant --username admin@acme --company "Acme Fiber"
  fiberdesk admin list-tenants
  fiberdesk admin deactivate-tenant --username admin@acme
`)
}

type adminDeps struct {
	dir         *postgres.Directory
	provisioner *service.Provisioner
	cleanup     func()
}

func loadAdminDeps() (*adminDeps, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	ctx := context.Background()
	if err := postgres.EnsureMasterDatabase(ctx, cfg.Postgres); err != nil {
		return nil, fmt.Errorf("master database: %w", err)
	}
	masterPool, err := postgres.NewPool(ctx, cfg.Postgres, cfg.Postgres.MasterDB)
	if err != nil {
		return nil, fmt.Errorf("connect to master database: %w", err)
	}

	registry := postgres.NewRegistry(cfg.Postgres)
	dir := postgres.NewDirectory(masterPool)
	provisioner := service.NewProvisioner(dir, postgres.NewSchemaManager(cfg.Postgres),
		registry, postgres.NewStore(), nil)

	cleanup := func() {
		registry.CloseAll()
		masterPool.Close()
	}
	return &adminDeps{dir: dir, provisioner: provisioner, cleanup: cleanup}, nil
}

func runAdminProvisionTenant(args []string) error {
	fs := flag.NewFlagSet("provision-tenant", flag.ContinueOnError)
	username := fs.String("username", "", "tenant admin username, admin@<domain> (required)")
	password := fs.String("password", "", "admin password (prompted if not provided)") //nolint:gosec // CLI flag
	agentName := fs.String("agent", "", "agent display name")
	company := fs.String("company", "", "company name")
	region := fs.String("region", "", "service region")
	phone := fs.String("phone", "", "contact phone")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *username == "" {
		return fmt.Errorf("--username is required")
	}

	pass := *password
	if pass == "" {
		var err error
		pass, err = promptPassword("Admin password: ")
		if err != nil {
			return fmt.Errorf("read password: %w", err)
		}
		confirm, err := promptPassword("Confirm password: ")
		if err != nil {
			return fmt.Errorf("read password: %w", err)
		}
		if pass != confirm {
			return fmt.Errorf("passwords do not match")
		}
	}

	deps, err := loadAdminDeps()
	if err != nil {
		return err
	}
	defer deps.cleanup()

	databaseName, err := deps.provisioner.Provision(context.Background(), tenant.ProvisionRequest{
		Username:      *username,
		AdminPassword: pass,
		AgentName:     *agentName,
		Company:       *company,
		Region:        *region,
		Phone:         *phone,
	})
	if err != nil {
		return fmt.Errorf("provision tenant: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Tenant provisioned: %s (database=%s)\n", *username, databaseName)
	return nil
}

func runAdminListTenants(args []string) error {
	fs := flag.NewFlagSet("list-tenants", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	deps, err := loadAdminDeps()
	if err != nil {
		return err
	}
	defer deps.cleanup()

	tenants, err := deps.dir.ListActive(context.Background())
	if err != nil {
		return fmt.Errorf("list tenants: %w", err)
	}

	if len(tenants) == 0 {
		fmt.Println("No tenants found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "USERNAME\tDOMAIN\tDATABASE\tCOMPANY\tREGION\tCREATED")
	for i := range tenants {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			tenants[i].Username, tenants[i].Domain, tenants[i].DatabaseName,
			tenants[i].Company, tenants[i].Region,
			tenants[i].CreatedAt.Format("2006-01-02"))
	}
	return w.Flush()
}

func runAdminDeactivateTenant(args []string) error {
	fs := flag.NewFlagSet("deactivate-tenant", flag.ContinueOnError)
	username := fs.String("username", "", "tenant admin username (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *username == "" {
		return fmt.Errorf("--username is required")
	}

	deps, err := loadAdminDeps()
	if err != nil {
		return err
	}
	defer deps.cleanup()

	if err := deps.dir.Deactivate(context.Background(), *username); err != nil {
		return fmt.Errorf("deactivate tenant: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Tenant deactivated: %s\n", *username)
	return nil
}

// promptPassword reads a password from the terminal without echoing.
func promptPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(int(syscall.Stdin)) //nolint:unconvert // int conversion needed on some platforms
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
