package main

import (
	"fmt"

	"github.com/mrsinham/shanoirimport/cmd/shanoirimport/wizard"
	"github.com/mrsinham/shanoirimport/cmd/shanoirimport/wizard/screens"
	"github.com/mrsinham/shanoirimport/internal/importer"
	"github.com/spf13/cobra"
)

func (a *app) wizardCmd() *cobra.Command {
	var (
		archive   string
		importJob string
		output    string
	)

	cmd := &cobra.Command{
		Use:   "wizard",
		Short: "Select the series of a Bruker upload interactively",
		Long: `Open the import wizard: load a Bruker archive or an import job, browse
its patients, studies and series, preview images and save the selection as
an import job.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := wizard.Options{
				Config:     a.config,
				Logger:     a.logger,
				Downloader: importer.NewService(a.restClient(), a.logger),
				Output:     output,
			}
			switch {
			case archive != "":
				opts.Source, opts.Path = screens.SourceArchive, archive
			case importJob != "":
				opts.Source, opts.Path = screens.SourceImportJob, importJob
			}

			saved, err := wizard.Run(cmd.Context(), opts)
			if err != nil {
				return err
			}
			if saved != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Import job saved to %s\n", saved)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&archive, "archive", "", "Bruker zip archive to open")
	cmd.Flags().StringVar(&importJob, "import-job", "", "Import job JSON to open, images are fetched from the server")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Import job file to write (default <work folder>_import.json)")
	cmd.MarkFlagsMutuallyExclusive("archive", "import-job")
	return cmd
}
