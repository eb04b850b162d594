package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/jarflow/internal/config"
	"github.com/matzehuels/jarflow/pkg/jar"
	"github.com/matzehuels/jarflow/pkg/server"
)

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr   string
		libDir string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the library directory as a Maven repository",
		Long: `Serve exposes every archive in the library directory under its Maven repository
path, with HEAD and byte-range support, so other jarflow instances can use it as a
repository. GET /api/artifacts lists the library.`,
		Example: `  jarflow serve --addr 0.0.0.0:8808
  jarflow fetch org.ow2.asm:asm:9.6 -r http://build-cache:8808`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := c.cfg.Merge(config.Config{LibDir: libDir})

			srv := server.New(jar.NewLibrary(cfg.LibDir), server.Options{
				Addr:   addr,
				Logger: loggerFromContext(ctx),
			})
			printInfo("Serving %s on %s", StyleHighlight.Render(cfg.LibDir), StyleLink.Render("http://"+addr))
			return srv.ListenAndServe(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", server.DefaultAddr, "listen address")
	cmd.Flags().StringVarP(&libDir, "lib-dir", "o", "", "library directory")
	return cmd
}
