package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/jarflow/internal/config"
	"github.com/matzehuels/jarflow/pkg/deps"
	"github.com/matzehuels/jarflow/pkg/errors"
	"github.com/matzehuels/jarflow/pkg/repository"
)

// rootFlags are the flags shared by every command that resolves
// coordinates.
type rootFlags struct {
	excludes  []string
	relocates []string
	repos     []string
	policy    string
	maxDepth  int
}

func (f *rootFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringArrayVarP(&f.excludes, "exclude", "x", nil, "exclude group[:artifact[:version]] from every root (repeatable)")
	flags.StringArrayVar(&f.relocates, "relocate", nil, "relocate package prefix from=to in every root (repeatable)")
	flags.StringArrayVarP(&f.repos, "repo", "r", nil, "repository URL or name (central, jcenter, sonatype, jitpack), searched first")
	flags.StringVar(&f.policy, "policy", "", "exclusion match policy: any or all")
	flags.IntVar(&f.maxDepth, "max-depth", 0, "maximum tree depth")
}

// apply folds the flags into cfg. Coordinates given as arguments replace
// the roots declared in the config file.
func (f *rootFlags) apply(cfg config.Config, args []string) (config.Config, error) {
	cfg = cfg.Merge(config.Config{ExclusionPolicy: f.policy, MaxDepth: f.maxDepth})

	var repos []repository.Repository
	for _, s := range f.repos {
		r, err := config.ParseRepository(s)
		if err != nil {
			return cfg, err
		}
		repos = append(repos, r)
	}
	if len(repos) > 0 {
		cfg.Repositories = append(repos, cfg.Repositories...)
	}

	var relocs []deps.Relocation
	for _, s := range f.relocates {
		r, err := config.ParseRelocation(s)
		if err != nil {
			return cfg, err
		}
		relocs = append(relocs, r)
	}

	var roots []config.Dependency
	if len(args) > 0 {
		for _, a := range args {
			roots = append(roots, config.Dependency{Coordinate: strings.TrimSpace(a)})
		}
	} else {
		roots = append(roots, cfg.Dependencies...)
	}
	for i := range roots {
		d := &roots[i]
		d.Exclude = append(append([]string(nil), d.Exclude...), f.excludes...)
		d.Relocate = append(append([]deps.Relocation(nil), d.Relocate...), relocs...)
	}
	cfg.Dependencies = roots

	if len(roots) == 0 {
		return cfg, errors.New(errors.ErrCodeInvalidInput, "no coordinates given (pass group:artifact:version or declare [[dependency]] in the config)")
	}
	return cfg, nil
}
