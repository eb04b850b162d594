package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/jarflow/pkg/errors"
	"github.com/matzehuels/jarflow/pkg/render"
)

// Output formats of the graph command.
const (
	formatDOT = "dot"
	formatSVG = "svg"
	formatPDF = "pdf"
	formatPNG = "png"
)

type graphFlags struct {
	rootFlags
	output   string
	format   string
	detailed bool
	drawTo   int
	scale    float64
}

// graphCommand creates the graph command.
func (c *CLI) graphCommand() *cobra.Command {
	var f graphFlags
	cmd := &cobra.Command{
		Use:   "graph [group:artifact:version...]",
		Short: "Render the dependency tree as a graph",
		Long: `Graph resolves the roots and draws every distinct coordinate once, with an edge
from each dependent. Unresolved nodes are dashed, conflicting ones highlighted.`,
		Example: `  jarflow graph com.google.guava:guava:32.1.3-jre -o guava.svg
  jarflow graph org.slf4j:slf4j-api:2.0.9 --format dot > slf4j.dot`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runGraph(cmd, args, f)
		},
	}
	f.register(cmd)
	flags := cmd.Flags()
	flags.StringVarP(&f.output, "output", "o", "", "output file (default: stdout for dot, <artifact>.<format> otherwise)")
	flags.StringVarP(&f.format, "format", "f", "", "dot, svg, pdf or png (default: from the output extension, else svg)")
	flags.BoolVarP(&f.detailed, "detailed", "d", false, "add repository, packaging and errors to labels")
	flags.IntVar(&f.drawTo, "draw-depth", 0, "only draw nodes up to this depth")
	flags.Float64Var(&f.scale, "scale", 2, "PNG scale factor")
	return cmd
}

func (f graphFlags) resolveFormat() (string, error) {
	format := strings.ToLower(f.format)
	if format == "" && f.output != "" {
		format = strings.TrimPrefix(strings.ToLower(filepath.Ext(f.output)), ".")
	}
	if format == "" {
		format = formatSVG
	}
	switch format {
	case formatDOT, formatSVG, formatPDF, formatPNG:
		return format, nil
	}
	return "", errors.New(errors.ErrCodeInvalidInput, "unsupported format %q (want dot, svg, pdf or png)", format)
}

func (c *CLI) runGraph(cmd *cobra.Command, args []string, f graphFlags) error {
	ctx := cmd.Context()
	format, err := f.resolveFormat()
	if err != nil {
		return err
	}
	cfg, err := f.apply(c.cfg, args)
	if err != nil {
		return err
	}
	w, err := c.open(ctx, cfg, nil)
	if err != nil {
		return err
	}
	defer w.Close()

	roots, err := cfg.Roots()
	if err != nil {
		return err
	}
	res, _, err := c.resolveWithSpinner(cmd, w, roots)
	if err != nil {
		return err
	}

	dot := render.ToDOT(res.Tree, render.Options{Detailed: f.detailed, MaxDepth: f.drawTo})
	if format == formatDOT && f.output == "" {
		fmt.Print(dot)
		return nil
	}

	var data []byte
	switch format {
	case formatDOT:
		data = []byte(dot)
	default:
		svg, err := render.RenderSVG(ctx, dot)
		if err != nil {
			return err
		}
		switch format {
		case formatSVG:
			data = svg
		case formatPDF:
			data, err = render.ToPDF(ctx, svg)
		case formatPNG:
			data, err = render.ToPNG(ctx, svg, f.scale)
		}
		if err != nil {
			return err
		}
	}

	out := f.output
	if out == "" {
		out = roots[0].Artifact + "." + format
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return err
	}
	printSuccess("Rendered %d nodes", res.Tree.Len())
	printFile(out)
	return nil
}
