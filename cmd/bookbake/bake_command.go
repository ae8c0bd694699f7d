package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/bookbakeapp/bookbake/internal/export"
	"github.com/bookbakeapp/bookbake/internal/pipeline"
)

// errPartFailures signals that the run completed but some parts failed.
var errPartFailures = errors.New("some parts could not be written")

func newBakeCommand(state *appState) *cobra.Command {
	var (
		workers          int
		tolerance        time.Duration
		minChapterLength time.Duration
		coverMaxEdge     int
		skipTagging      bool
		skipExports      bool
		dryRun           bool
	)

	cmd := &cobra.Command{
		Use:   "bake <dir>",
		Short: "Embed tags and chapter tables into the export's part files",
		Long: `Bake reads <dir>/metadata/metadata.json and the Part N audio files,
reconciles the declared chapter timeline against the actual part durations,
embeds tags, cover art, and per-part chapter tables, and writes chapter
listing files next to the parts.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := pipeline.Options{
				Workers:           state.cfg.Pipeline.Workers,
				DurationTolerance: state.cfg.Pipeline.DurationTolerance,
				MinChapterLength:  state.cfg.Pipeline.MinChapterLength,
				CoverMaxEdge:      state.cfg.Pipeline.CoverMaxEdge,
				SkipTagging:       skipTagging,
				SkipExports:       skipExports,
				DryRun:            dryRun,
			}
			if cmd.Flags().Changed("workers") {
				opts.Workers = workers
			}
			if cmd.Flags().Changed("duration-tolerance") {
				opts.DurationTolerance = tolerance
			}
			if cmd.Flags().Changed("min-chapter-length") {
				opts.MinChapterLength = minChapterLength
			}
			if cmd.Flags().Changed("cover-max-edge") {
				opts.CoverMaxEdge = coverMaxEdge
			}

			report, err := pipeline.New(state.log).Run(cmd.Context(), args[0], opts)
			if err != nil {
				return err
			}

			printReport(cmd, report, dryRun)

			if report.FailedParts() > 0 {
				return errPartFailures
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&workers, "workers", 0, "Concurrent part writers (default: number of CPUs)")
	cmd.Flags().DurationVar(&tolerance, "duration-tolerance", 0, "Allowed drift between declared and actual total duration")
	cmd.Flags().DurationVar(&minChapterLength, "min-chapter-length", 0, "Merge chapter entries shorter than this into a neighbor")
	cmd.Flags().IntVar(&coverMaxEdge, "cover-max-edge", 0, "Downscale covers whose longest edge exceeds this many pixels (0 disables)")
	cmd.Flags().BoolVar(&skipTagging, "skip-tagging", false, "Do not modify the part files")
	cmd.Flags().BoolVar(&skipExports, "skip-exports", false, "Do not write chapter listing files")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Compute the chapter layout but write nothing")

	return cmd
}

// printReport renders the per-part summary table and any warnings.
func printReport(cmd *cobra.Command, report *pipeline.Report, dryRun bool) {
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "%s by %s: %d chapters across %d parts (%s)\n",
		report.Book.Title, report.Book.Author(),
		len(report.Book.Chapters), len(report.Parts),
		export.FormatTimestamp(report.Book.TotalDuration))

	rows := make([][]string, 0, len(report.Parts))
	for i, part := range report.Parts {
		status := "ok"
		if dryRun {
			status = "planned"
		}
		var detail string
		if i < len(report.PartResults) {
			res := report.PartResults[i]
			if res.Err != nil {
				status = "failed"
				detail = res.Err.Error()
			} else if len(res.Warnings) > 0 {
				detail = fmt.Sprintf("%d warning(s)", len(res.Warnings))
			}
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", part.Index),
			export.FormatTimestamp(part.Duration),
			fmt.Sprintf("%d", len(report.Entries[i])),
			status,
			detail,
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Part", "Duration", "Chapters", "Status", "Detail"},
		rows,
		[]columnAlignment{alignRight, alignRight, alignRight, alignLeft, alignLeft},
	))

	for _, w := range report.Warnings {
		fmt.Fprintln(os.Stderr, "warning:", w)
	}
	for _, path := range report.SidecarPaths {
		fmt.Fprintln(out, "wrote", path)
	}
	if len(report.SidecarPaths) > 0 {
		fmt.Fprintf(out, "to merge into a single file:\n  ffmpeg -f concat -safe 0 -i %s -i %s -map_metadata 1 -c copy %q\n",
			export.ConcatFileName, export.FFMetadataFileName,
			export.SafeTitle(report.Book.Title)+".m4b")
	}
	fmt.Fprintln(out, "status:", report.Status)
}
