package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bookbakeapp/bookbake/internal/export"
	"github.com/bookbakeapp/bookbake/internal/loader"
)

func newChaptersCommand(state *appState) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "chapters <dir>",
		Short: "Print the logical chapter timeline without touching any files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			book, warnings, err := loader.New(state.log).Load(args[0])
			if err != nil {
				return err
			}
			for _, w := range warnings {
				fmt.Fprintln(cmd.ErrOrStderr(), "warning:", w)
			}

			switch format {
			case "txt":
				fmt.Fprint(cmd.OutOrStdout(), export.ChaptersTxt(book.Chapters))
			case "ffmetadata":
				fmt.Fprint(cmd.OutOrStdout(), export.FFMetadata(book))
			default:
				return fmt.Errorf("unknown format %q (want txt or ffmetadata)", format)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "txt", "Output format (txt, ffmetadata)")
	return cmd
}
