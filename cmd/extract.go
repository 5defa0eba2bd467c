package cmd

import (
	"github.com/Ahmed-Sermani/webrank/wat"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/xerrors"
)

func newExtractLinksCommand(logger *logrus.Entry) *cobra.Command {
	var (
		input, output string
		keepAssets    bool
	)
	cmd := &cobra.Command{
		Use:   "extract-links",
		Short: "Extract the links of a WAT file into an edge dump.",
		Long: `Extract the links of a WAT file into an edge dump.

Every JSON record of the input contributes one src,dst line per absolute
http(s) link. Inputs and outputs ending in .gz or .zst are compressed.
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if input == "" || output == "" {
				return xerrors.New("both --input and --output must be specified")
			}

			ex := wat.NewExtractor(wat.Config{
				KeepAssets: keepAssets,
				Logger:     logger.WithField("component", "wat-extractor"),
			})
			stats, err := ex.ExtractFile(cmd.Context(), input, output)
			if err != nil {
				return err
			}
			logger.WithFields(logrus.Fields{
				"records":   stats.Records,
				"links":     stats.Links,
				"skipped":   stats.Skipped,
				"malformed": stats.Malformed,
			}).Info("extracted links")
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&input, "input", "", "The WAT file to read (plain, .gz or .zst)")
	flags.StringVar(&output, "output", "", "The edge dump to write (plain, .gz or .zst)")
	flags.BoolVar(&keepAssets, "keep-assets", false, "Keep links to images, scripts and other non-page assets")
	return cmd
}
