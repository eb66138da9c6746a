// cmd/tools/landing-registry/main.go
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"leadcapture/internal/common/config"
	"leadcapture/internal/common/database"
	"leadcapture/pkg/registry"
)

const upsertPageQuery = `INSERT INTO landing_pages
	(slug, company_name, headline, subheadline, industry, cta_label, cta_target, logo_url, active, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
	ON CONFLICT (slug) DO UPDATE SET
		company_name = EXCLUDED.company_name,
		headline = EXCLUDED.headline,
		subheadline = EXCLUDED.subheadline,
		industry = EXCLUDED.industry,
		cta_label = EXCLUDED.cta_label,
		cta_target = EXCLUDED.cta_target,
		logo_url = EXCLUDED.logo_url,
		active = EXCLUDED.active,
		updated_at = NOW()`

func main() {
	addCmd := flag.NewFlagSet("add", flag.ExitOnError)
	updateCmd := flag.NewFlagSet("update", flag.ExitOnError)
	validateCmd := flag.NewFlagSet("validate", flag.ExitOnError)
	listCmd := flag.NewFlagSet("list", flag.ExitOnError)
	syncCmd := flag.NewFlagSet("sync", flag.ExitOnError)

	var registryPath string
	for _, fs := range []*flag.FlagSet{addCmd, updateCmd, validateCmd, listCmd, syncCmd} {
		fs.StringVar(&registryPath, "path", "configs/landing-pages.json", "Path to registry file")
	}

	// Add command flags
	slugAdd := addCmd.String("slug", "", "Page slug (e.g., acme-dental)")
	company := addCmd.String("company", "", "Company name")
	headline := addCmd.String("headline", "", "Headline")
	subheadline := addCmd.String("subheadline", "", "Subheadline")
	industry := addCmd.String("industry", "", "Industry")
	ctaLabel := addCmd.String("ctaLabel", "Book a demo", "Call-to-action label")
	ctaTarget := addCmd.String("ctaTarget", "/demo", "Call-to-action target")
	logoURL := addCmd.String("logo", "", "Logo URL")
	inactive := addCmd.Bool("inactive", false, "Add the page disabled")

	// Update command flags
	slugUpdate := updateCmd.String("slug", "", "Page slug to update")
	field := updateCmd.String("field", "", "Field to update (headline, active, ...)")
	value := updateCmd.String("value", "", "New value for the field")

	if len(os.Args) < 2 {
		help(os.Stdout)
		os.Exit(1)
	}

	switch os.Args[1] {
	case "add":
		addCmd.Parse(os.Args[2:])
		if *slugAdd == "" || *company == "" || *headline == "" {
			fmt.Println("Error: slug, company, and headline are required for add.")
			addCmd.Usage()
			os.Exit(1)
		}
		page := registry.Page{
			Slug:        *slugAdd,
			CompanyName: *company,
			Headline:    *headline,
			Subheadline: *subheadline,
			Industry:    *industry,
			CTALabel:    *ctaLabel,
			CTATarget:   *ctaTarget,
			LogoURL:     *logoURL,
			Active:      !*inactive,
		}
		if err := addPage(registryPath, page); err != nil {
			fmt.Printf("Error adding page: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Added page: /%s\n", page.Slug)

	case "update":
		updateCmd.Parse(os.Args[2:])
		if *slugUpdate == "" || *field == "" {
			fmt.Println("Error: slug and field are required for update.")
			updateCmd.Usage()
			os.Exit(1)
		}
		if err := updatePage(registryPath, *slugUpdate, *field, *value); err != nil {
			fmt.Printf("Error updating page: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Updated page %s, field %s to %q\n", *slugUpdate, *field, *value)

	case "validate":
		validateCmd.Parse(os.Args[2:])
		reg, err := registry.LoadRegistry(registryPath)
		if err == nil {
			err = reg.Validate()
		}
		if err != nil {
			fmt.Printf("Registry validation failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Registry validation passed. Found %d pages.\n", len(reg.Pages))

	case "list":
		listCmd.Parse(os.Args[2:])
		if err := listPages(os.Stdout, registryPath); err != nil {
			fmt.Printf("Error listing pages: %v\n", err)
			os.Exit(1)
		}

	case "sync":
		syncCmd.Parse(os.Args[2:])
		n, err := syncPages(registryPath)
		if err != nil {
			fmt.Printf("Sync failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Synced %d pages to PostgreSQL.\n", n)

	case "help":
		fallthrough
	default:
		help(os.Stdout)
	}
}

func addPage(path string, page registry.Page) error {
	if !registry.ValidSlug(page.Slug) {
		return fmt.Errorf("invalid slug %q: use lowercase letters, digits and dashes", page.Slug)
	}

	reg, err := registry.LoadRegistry(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to load registry: %w", err)
		}
		reg = registry.New()
	}

	if _, exists := reg.Find(page.Slug); exists {
		return fmt.Errorf("page with slug %s already exists", page.Slug)
	}
	reg.Upsert(page)
	return registry.SaveRegistry(reg, path)
}

func updatePage(path, slug, field, value string) error {
	reg, err := registry.LoadRegistry(path)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}

	page, found := reg.Find(slug)
	if !found {
		return fmt.Errorf("page with slug %s not found", slug)
	}

	switch field {
	case "company":
		page.CompanyName = value
	case "headline":
		page.Headline = value
	case "subheadline":
		page.Subheadline = value
	case "industry":
		page.Industry = value
	case "ctaLabel":
		page.CTALabel = value
	case "ctaTarget":
		page.CTATarget = value
	case "logo":
		page.LogoURL = value
	case "active":
		active, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid active value: %w", err)
		}
		page.Active = active
	default:
		return fmt.Errorf("unknown field: %s", field)
	}

	reg.Upsert(page)
	return registry.SaveRegistry(reg, path)
}

func listPages(w io.Writer, path string) error {
	reg, err := registry.LoadRegistry(path)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SLUG\tCOMPANY\tACTIVE\tHEADLINE")
	for _, p := range reg.Pages {
		fmt.Fprintf(tw, "%s\t%s\t%t\t%s\n", p.Slug, p.CompanyName, p.Active, p.Headline)
	}
	return tw.Flush()
}

// syncPages upserts every registry page into the landing_pages table in one
// transaction, using the database settings from the site config.
func syncPages(path string) (int, error) {
	reg, err := registry.LoadRegistry(path)
	if err != nil {
		return 0, fmt.Errorf("failed to load registry: %w", err)
	}
	if err := reg.Validate(); err != nil {
		return 0, err
	}

	cfg, err := config.Load()
	if err != nil {
		return 0, fmt.Errorf("failed to load config: %w", err)
	}
	if !cfg.Database.Postgres.Enabled {
		return 0, fmt.Errorf("database.postgres is disabled")
	}

	pg, err := database.NewPostgres(cfg.Database.Postgres)
	if err != nil {
		return 0, err
	}
	defer pg.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	err = pg.InTx(ctx, func(tx *sql.Tx) error {
		for _, p := range reg.Pages {
			_, err := tx.ExecContext(ctx, upsertPageQuery,
				p.Slug, p.CompanyName, p.Headline, p.Subheadline, p.Industry,
				p.CTALabel, p.CTATarget, p.LogoURL, p.Active,
			)
			if err != nil {
				return fmt.Errorf("upsert %s: %w", p.Slug, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(reg.Pages), nil
}

const usage = `Usage: landing-registry <command> [flags]

Commands:
  add      Add a new landing page to the registry
  update   Update an existing page's field
  validate Validate the registry file
  list     List registered pages
  sync     Upsert the registry into PostgreSQL
  help     Show this help message

Examples:
  landing-registry add -slug acme-dental -company "Acme Dental" -headline "Never miss a new-patient call"
  landing-registry update -slug acme-dental -field active -value false
  landing-registry validate -path configs/landing-pages.json
  landing-registry sync

Use 'landing-registry <command> -h' for more information about a command.
`

func help(w io.Writer) {
	fmt.Fprint(w, usage)
}
