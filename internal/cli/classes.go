package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/jarflow/pkg/jar"
)

// classesCommand creates the classes command.
func (c *CLI) classesCommand() *cobra.Command {
	var (
		f       fetchFlags
		archive string
	)
	cmd := &cobra.Command{
		Use:   "classes <prefix> [group:artifact:version...]",
		Short: "List class names starting with a prefix",
		Long: `Classes installs the roots (reusing archives already in the library) and lists
every class whose fully qualified name starts with prefix, in load order. Relocated
copies are searched when the plain archive is missing. With --jar, a single archive
is listed instead.`,
		Example: `  jarflow classes com.google.common.collect com.google.guava:guava:32.1.3-jre
  jarflow classes org.objectweb --jar libs/org.ow2.asm/asm/9.6/asm-9.6.jar`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prefix := args[0]
			if archive != "" {
				classes, err := jar.Classes(archive, prefix)
				if err != nil {
					return err
				}
				printClasses(classes)
				return nil
			}

			ctx := cmd.Context()
			cfg, err := f.config(c.cfg, args[1:])
			if err != nil {
				return err
			}
			roots, err := cfg.Roots()
			if err != nil {
				return err
			}
			res, w, err := c.install(ctx, cfg, roots)
			if w != nil {
				defer w.Close()
			}
			if err != nil {
				return err
			}
			for _, a := range res.Failed() {
				printWarning("%s not loaded: %v", a.Location, a.Err)
			}

			classes, err := w.session.SearchClasses(prefix)
			if err != nil {
				return err
			}
			printClasses(classes)
			return nil
		},
	}
	f.rootFlags.register(cmd)
	cmd.Flags().StringVarP(&f.libDir, "lib-dir", "o", "", "library directory")
	cmd.Flags().StringVar(&archive, "jar", "", "list a single archive instead of installing roots")
	return cmd
}

func printClasses(classes []string) {
	for _, name := range classes {
		fmt.Println(name)
	}
	printDetail("%d classes", len(classes))
}
