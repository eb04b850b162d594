package render

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/jarflow/pkg/deps"
	"github.com/matzehuels/jarflow/pkg/errors"
)

// Options configures DOT generation.
type Options struct {
	// Detailed adds repository, packaging and failure details to labels.
	// When false, only the coordinate is shown.
	Detailed bool

	// MaxDepth drops nodes deeper than this. Zero draws the whole tree.
	MaxDepth int
}

// ToDOT converts a resolution tree to Graphviz DOT format.
func ToDOT(tree *deps.Tree, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  ranksep=0.5;\n")
	buf.WriteString("  nodesep=0.3;\n")
	buf.WriteString("\n")

	if tree == nil {
		buf.WriteString("}\n")
		return buf.String()
	}

	var (
		nodes []string
		edges []string
		seen  = make(map[string]bool)
		drawn = make(map[[2]string]bool)
	)
	tree.Walk(func(n *deps.Node) bool {
		if opts.MaxDepth > 0 && n.Depth > opts.MaxDepth {
			return false
		}
		id := n.Location()
		if !seen[id] {
			seen[id] = true
			attrs := fmtAttrs(n, fmtLabel(n, opts.Detailed))
			nodes = append(nodes, fmt.Sprintf("  %q [%s];\n", id, strings.Join(attrs, ", ")))
		}
		if p, ok := tree.Parent(n); ok {
			e := [2]string{p.Location(), id}
			if !drawn[e] && e[0] != e[1] {
				drawn[e] = true
				edges = append(edges, fmt.Sprintf("  %q -> %q;\n", e[0], e[1]))
			}
		}
		return true
	})

	for _, s := range nodes {
		buf.WriteString(s)
	}
	buf.WriteString("\n")
	for _, s := range edges {
		buf.WriteString(s)
	}
	buf.WriteString("}\n")
	return buf.String()
}

func fmtLabel(n *deps.Node, detailed bool) string {
	label := n.Location()
	if n.NewVersion != "" {
		label += "\n-> " + n.NewVersion
	}
	if !detailed {
		return label
	}

	var parts []string
	if n.Repository != "" {
		parts = append(parts, "repo: "+n.Repository)
	}
	if n.Packaging != "" {
		parts = append(parts, "packaging: "+n.Packaging)
	}
	if n.Dependency.HasRelocations() {
		parts = append(parts, fmt.Sprintf("relocations: %d", len(n.Dependency.Relocations)))
	}
	if n.Err != nil {
		parts = append(parts, "error: "+string(errors.GetCode(n.Err)))
	}
	if len(parts) == 0 {
		return label
	}
	return label + "\n" + strings.Join(parts, "\n")
}

func fmtAttrs(n *deps.Node, label string) []string {
	attrs := []string{fmt.Sprintf("label=%q", label)}
	switch {
	case n.Err != nil:
		attrs = append(attrs, "style=\"rounded,filled,dashed\"", "color=red", "fillcolor=mistyrose")
	case n.NewVersion != "":
		attrs = append(attrs, "fillcolor=lightyellow")
	case !n.HasArchive():
		attrs = append(attrs, "fillcolor=lightgrey")
	}
	return attrs
}

// RenderSVG renders a DOT graph to SVG using the embedded Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "init graphviz")
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "parse DOT")
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "render")
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox replaces Graphviz's point-based root element with one
// that scales to its container.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	root := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(root))
}
