// Package render draws resolved dependency trees.
//
// [ToDOT] turns a [deps.Tree] into Graphviz DOT text. Every distinct
// coordinate becomes one node, so an artifact reached along several paths
// is drawn once with several incoming edges. Unresolved nodes are drawn
// dashed and red; conflict-tagged nodes carry the newer version found
// elsewhere in the tree.
//
// [RenderSVG] lays the DOT out with the embedded Graphviz (no external
// binary needed). [ToPDF] and [ToPNG] convert the SVG with rsvg-convert
// when it is installed.
//
//	dot := render.ToDOT(result.Tree, render.Options{Detailed: true})
//	svg, err := render.RenderSVG(ctx, dot)
package render
