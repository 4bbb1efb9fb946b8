package main

import (
	"fmt"
	"os"

	"github.com/mrsinham/shanoirimport/internal/dicom"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func (a *app) fixtureCmd() *cobra.Command {
	var (
		output string
		quirks string
		opts   dicom.FixtureOptions
	)

	cmd := &cobra.Command{
		Use:   "fixture",
		Short: "Write a synthetic preclinical Bruker archive",
		Long: `Write a zip of synthetic MR series for small animals. The same seed
always produces the same archive, UIDs included.

Quirks reproduce exports seen in the field:
  special-chars     accented subject names, UTF-8 encoded
  missing-tags      no descriptions, protocol or sequence names
  no-series-number  series without SeriesNumber
  sidecar-files     ParaVision acqp and method files next to the images`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed, err := dicom.ParseQuirks(quirks)
			if err != nil {
				return err
			}
			opts.Quirks = parsed

			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("create %s: %w", output, err)
			}

			summary, err := dicom.WriteSampleArchive(f, opts)
			if closeErr := f.Close(); err == nil && closeErr != nil {
				err = fmt.Errorf("close %s: %w", output, closeErr)
			}
			if err != nil {
				_ = os.Remove(output)
				return err
			}

			a.logger.Info("fixture written",
				zap.String("output", output),
				zap.Int("patients", summary.Patients),
				zap.Int("series", summary.Series),
				zap.Int("images", summary.Images),
				zap.Any("quirks", opts.Quirks))
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s: %d patients, %d series, %d images\n",
				output, summary.Patients, summary.Series, summary.Images)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "bruker_sample.zip", "Output zip file")
	cmd.Flags().IntVar(&opts.Subjects, "subjects", 1, "Number of animals")
	cmd.Flags().IntVar(&opts.StudiesPerSubject, "studies", 1, "Studies per animal")
	cmd.Flags().IntVar(&opts.SeriesPerStudy, "series", 2, "Series per study")
	cmd.Flags().IntVar(&opts.ImagesPerSeries, "images", 3, "Images per series")
	cmd.Flags().IntVar(&opts.Width, "width", 64, "Image width in pixels")
	cmd.Flags().IntVar(&opts.Height, "height", 64, "Image height in pixels")
	cmd.Flags().Uint64Var(&opts.Seed, "seed", 1, "Seed for reproducibility")
	cmd.Flags().StringVar(&quirks, "quirks", "", "Comma-separated quirks, or 'all'")
	return cmd
}
