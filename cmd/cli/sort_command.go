package main

import (
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"mediasort/pkg/camera"
	"mediasort/pkg/config"
	"mediasort/pkg/imports"
	"mediasort/pkg/layout"
	"mediasort/pkg/metadata"
	"mediasort/pkg/storage"
)

type sortFlags struct {
	output       string
	dryRun       bool
	duplicates   string
	onCollision  string
	units        string
	flat         bool
	includeOther bool
	workers      int
}

func newSortCommand(ctx *commandContext) *cobra.Command {
	var flags sortFlags

	cmd := &cobra.Command{
		Use:   "sort [dir]",
		Short: "Move photos and videos into a dated folder tree",
		Long: "Move every photo and video directly inside dir (default: the current directory)\n" +
			"into <output>/<year>/<month>/ using the capture date from EXIF, the video\n" +
			"container, XMP or, failing those, the filesystem.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := dirArg(args, "")
			if err != nil {
				return err
			}
			opts, err := flags.apply(cmd, ctx.config, source)
			if err != nil {
				return err
			}
			return runSort(cmd, ctx, opts)
		},
	}

	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "Output directory (default <dir>/Years)")
	cmd.Flags().BoolVarP(&flags.dryRun, "dry-run", "n", false, "Print the plan without moving or deleting anything")
	cmd.Flags().StringVar(&flags.duplicates, "duplicates", "", "Duplicate handling: off, delete or quarantine")
	cmd.Flags().StringVar(&flags.onCollision, "on-collision", "", "When a destination exists: suffix or reject")
	cmd.Flags().StringVar(&flags.units, "units", "", "Comma separated date units, e.g. year,month,day")
	cmd.Flags().BoolVar(&flags.flat, "flat", false, "Prefix file names with the date instead of nesting folders")
	cmd.Flags().BoolVar(&flags.includeOther, "include-other", false, "Also sort files that are neither photos nor videos")
	cmd.Flags().IntVarP(&flags.workers, "workers", "w", 0, "Metadata extraction workers")
	return cmd
}

type sortOptions struct {
	source  string
	output  string
	layout  layout.Layout
	policy  storage.CollisionPolicy
	catalog bool
	service imports.Options
}

// apply merges the flags that were set over the configuration.
func (f *sortFlags) apply(cmd *cobra.Command, cfg *config.Config, source string) (sortOptions, error) {
	opts := sortOptions{
		source:  source,
		output:  cfg.OutputFor(source),
		layout:  cfg.DateLayout(),
		policy:  cfg.CollisionPolicy(),
		catalog: cfg.Catalog.Enabled,
		service: imports.Options{
			Duplicates:   cfg.DuplicateMode(),
			IncludeOther: cfg.Move.IncludeOther,
			Workers:      cfg.Extract.Workers,
		},
	}

	changed := cmd.Flags().Changed
	if changed("output") {
		out, err := config.ExpandPath(f.output)
		if err != nil {
			return opts, err
		}
		opts.output = out
	}
	if changed("units") {
		l, err := parseUnits(f.units)
		if err != nil {
			return opts, err
		}
		l.Nested = opts.layout.Nested
		opts.layout = l
	}
	if changed("flat") {
		opts.layout.Nested = !f.flat
	}
	if changed("duplicates") {
		mode := imports.DuplicateMode(strings.ToLower(f.duplicates))
		switch mode {
		case imports.DuplicatesOff, imports.DuplicatesDelete, imports.DuplicatesQuarantine:
		default:
			return opts, fmt.Errorf("--duplicates must be off, delete or quarantine, got %q", f.duplicates)
		}
		opts.service.Duplicates = mode
	}
	if changed("on-collision") {
		opts.policy = storage.CollisionPolicy(strings.ToLower(f.onCollision))
	}
	if changed("include-other") {
		opts.service.IncludeOther = f.includeOther
	}
	if changed("workers") {
		if f.workers < 1 {
			return opts, fmt.Errorf("--workers must be positive")
		}
		opts.service.Workers = f.workers
	}
	opts.service.DryRun = f.dryRun
	opts.service.Layout = opts.layout
	return opts, nil
}

func parseUnits(value string) (layout.Layout, error) {
	var l layout.Layout
	for _, unit := range strings.Split(value, ",") {
		switch strings.ToLower(strings.TrimSpace(unit)) {
		case "year":
			l.Year = true
		case "month":
			l.Month = true
		case "day":
			l.Day = true
		case "":
		default:
			return l, fmt.Errorf("unknown date unit %q (want year, month or day)", unit)
		}
	}
	return l, nil
}

func runSort(cmd *cobra.Command, ctx *commandContext, opts sortOptions) error {
	// Reject a bad layout before the lock or catalog create anything.
	if err := opts.layout.Validate(); err != nil {
		return err
	}

	sfr, err := storage.NewSourceFileStorage(opts.source, opts.output)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	dfr, err := storage.NewDestinationFileStorage(opts.output, opts.policy)
	if err != nil {
		return err
	}

	var catalog imports.CatalogDbRepository
	if !opts.service.DryRun {
		lock, err := storage.AcquireRunLock(opts.output)
		if err != nil {
			return err
		}
		defer lock.Release()

		if opts.catalog {
			db, err := storage.NewCatalogDbStorage(filepath.Join(opts.output, storage.CatalogFile))
			if err != nil {
				return err
			}
			defer db.CloseDb()
			catalog = db
		}
	}

	opts.service.Logger = ctx.logger
	opts.service.Observer = newProgressObserver(cmd.ErrOrStderr())
	svc := imports.NewService(sfr, dfr, catalog, metadata.NewExtractor(ctx.logger), opts.service)

	report, err := svc.Run(cmd.Context())
	if report != nil {
		printReport(cmd.OutOrStdout(), report)
	}
	if err != nil {
		return err
	}
	if n := report.Summary.Failed; n > 0 {
		return fmt.Errorf("%d file(s) could not be sorted", n)
	}
	return nil
}

func printReport(w io.Writer, r *imports.Report) {
	s := r.Summary
	placed := strconv.Itoa(s.Moved)
	label := "Moved"
	if r.DryRun {
		placed = strconv.Itoa(s.Planned)
		label = "Planned"
	}
	fmt.Fprintln(w, renderTable(
		[]string{"Result", "Files"},
		[][]string{
			{label, placed},
			{"Without date", strconv.Itoa(s.NoDate)},
			{"Duplicates", strconv.Itoa(s.Duplicates)},
			{"Skipped", strconv.Itoa(s.Skipped)},
			{"Failed", strconv.Itoa(s.Failed)},
		},
		[]columnAlignment{alignLeft, alignRight},
	))

	if r.DryRun {
		var rows [][]string
		for _, it := range r.Items {
			if it.Status == imports.StatusPlanned || (it.Status == imports.StatusDuplicate && it.Destination != "") {
				rows = append(rows, []string{it.Name, relTo(r.OutputDir, it.Destination), string(it.Taken.Source)})
			}
			if it.Status == imports.StatusDuplicate && it.Destination == "" {
				rows = append(rows, []string{it.Name, "(delete, copy of " + it.DuplicateOf + ")", ""})
			}
		}
		if len(rows) > 0 {
			fmt.Fprintln(w, renderTable([]string{"File", "Destination", "Date from"}, rows, nil))
		}
	}

	if failed := r.Failed(); len(failed) > 0 {
		rows := make([][]string, 0, len(failed))
		for _, it := range failed {
			rows = append(rows, []string{it.Name, it.Err.Error()})
		}
		fmt.Fprintln(w, renderTable([]string{"Failed file", "Error"}, rows, nil))
	}

	if len(r.Cameras) > 0 {
		fmt.Fprintln(w, renderCameras(r.Cameras))
	}
}

func renderCameras(counts camera.Counts) string {
	var rows [][]string
	for _, e := range counts.Sorted() {
		rows = append(rows, []string{e.Camera, strconv.Itoa(e.Files)})
	}
	return renderTable(
		[]string{"Camera", "Files"},
		rows,
		[]columnAlignment{alignLeft, alignRight},
		"Total", strconv.Itoa(counts.Total()),
	)
}

func relTo(base, path string) string {
	if rel, err := filepath.Rel(base, path); err == nil {
		return filepath.ToSlash(rel)
	}
	return path
}
