package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/jarflow/pkg/deps"
)

type resolveFlags struct {
	rootFlags
	json      bool
	noHistory bool
}

// resolveCommand creates the resolve command.
func (c *CLI) resolveCommand() *cobra.Command {
	var f resolveFlags
	cmd := &cobra.Command{
		Use:   "resolve [group:artifact:version...]",
		Short: "Resolve the transitive dependency tree",
		Long: `Resolve downloads each root's descriptor and walks its dependencies depth-first,
applying exclusions, parent inheritance and dependency management. Versions of the
same artifact that differ across the tree are reported as conflicts.`,
		Example: `  jarflow resolve com.google.guava:guava:32.1.3-jre
  jarflow resolve org.slf4j:slf4j-api:2.0.9 -x org.slf4j:slf4j-simple --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runResolve(cmd, args, f)
		},
	}
	f.register(cmd)
	cmd.Flags().BoolVar(&f.json, "json", false, "print the tree as JSON")
	cmd.Flags().BoolVar(&f.noHistory, "no-history", false, "do not record this resolution")
	return cmd
}

func (c *CLI) runResolve(cmd *cobra.Command, args []string, f resolveFlags) error {
	ctx := cmd.Context()
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

	res, took, err := c.resolveWithSpinner(cmd, w, roots)
	if err != nil {
		return err
	}

	var id string
	if !f.noHistory {
		id = c.record(ctx, w, roots, res, took)
	}

	if f.json {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(resolveOutput{
			ID:        id,
			Roots:     res.Tree.Roots,
			Conflicts: res.Conflicts,
			Failures:  failureViews(res.Failures),
		})
	}

	printSuccess("Resolved %s", StyleHighlight.Render(rootNames(roots)))
	printStats(res)
	printNewline()
	fmt.Print(renderTree(res.Tree))
	printConflicts(res.Conflicts)
	printFailures(res.Failures)
	if id != "" {
		printNewline()
		printNextStep("Saved as", "jarflow history show "+id)
	}
	return nil
}

// resolveWithSpinner resolves roots while showing a spinner.
func (c *CLI) resolveWithSpinner(cmd *cobra.Command, w *workspace, roots []deps.Dependency) (*deps.Result, time.Duration, error) {
	ctx := cmd.Context()
	prog := newProgress(loggerFromContext(ctx))

	spinner := newSpinner(ctx, "Resolving "+rootNames(roots)+"...")
	spinner.Start()
	res, err := w.session.Resolve(ctx, roots...)
	spinner.Stop()
	if err != nil {
		return nil, 0, err
	}
	prog.done("resolved", "nodes", res.Tree.Len(), "conflicts", len(res.Conflicts), "failures", len(res.Failures))
	return res, prog.elapsed(), nil
}

type resolveOutput struct {
	ID        string          `json:"id,omitempty"`
	Roots     []*deps.Node    `json:"roots"`
	Conflicts []deps.Conflict `json:"conflicts,omitempty"`
	Failures  []failureView   `json:"failures,omitempty"`
}

type failureView struct {
	Location string   `json:"location"`
	Path     []string `json:"path"`
	Code     string   `json:"code"`
	Error    string   `json:"error"`
}

func failureViews(in []deps.Failure) []failureView {
	out := make([]failureView, len(in))
	for i, f := range in {
		out[i] = failureView{Location: f.Location, Path: f.Path, Code: string(f.Code()), Error: f.Err.Error()}
	}
	return out
}

func rootNames(roots []deps.Dependency) string {
	switch len(roots) {
	case 0:
		return ""
	case 1:
		return roots[0].Location()
	}
	return roots[0].Location() + " +" + strconv.Itoa(len(roots)-1)
}
