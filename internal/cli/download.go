package cli

import (
	"fmt"
	"path"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/jarflow/pkg/download"
	"github.com/matzehuels/jarflow/pkg/transport"
)

// downloadCommand creates the download command, which exposes the range
// downloader on its own.
func (c *CLI) downloadCommand() *cobra.Command {
	var (
		parallelism int
		keepParts   bool
	)
	cmd := &cobra.Command{
		Use:   "download <url> [dest]",
		Short: "Download one file with parallel range requests",
		Long: `Download probes the URL with HEAD, splits the file into contiguous byte ranges,
fetches them concurrently and merges the parts in order. Servers without range
support are read sequentially.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			url := args[0]
			dest := path.Base(url)
			if len(args) == 2 {
				dest = args[1]
			}

			if parallelism == 0 {
				parallelism = c.cfg.Parallelism
			}
			d := download.New(transport.New(transport.Options{}), download.Options{
				BatchTimeout: c.cfg.BatchTimeout,
				KeepParts:    keepParts,
				Logger:       loggerFromContext(ctx),
			})

			spinner := newSpinner(ctx, "Downloading "+dest+"...")
			spinner.Start()
			res, err := d.Download(ctx, url, dest, parallelism)
			if err != nil {
				spinner.StopWithError("Download of %s failed", dest)
				if res != nil {
					for _, f := range res.Failed {
						printDetail("chunk %d: %s", f.Index, f.Error)
					}
				}
				return err
			}

			mode := fmt.Sprintf("%d ranges", res.Parallelism)
			if !res.Ranged {
				mode = "sequential"
			}
			spinner.StopWithSuccess("Downloaded %s %s", download.FormatSize(res.Size), StyleDim.Render("("+mode+", "+res.Duration.Round(time.Millisecond).String()+")"))
			abs, _ := filepath.Abs(dest)
			printFile(abs)
			return nil
		},
	}
	cmd.Flags().IntVarP(&parallelism, "parallelism", "p", 0, "number of range requests")
	cmd.Flags().BoolVar(&keepParts, "keep-parts", false, "keep part files when a chunk fails")
	return cmd
}
