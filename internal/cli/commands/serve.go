package commands

import (
	"fmt"

	"github.com/leapstack-labs/stache/internal/registry"
	"github.com/leapstack-labs/stache/internal/server"
	"github.com/spf13/cobra"
)

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	var addr string
	var watch bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve templates over HTTP",
		Long: `Start an HTTP server that renders templates on request.

Every template in the templates directory is compiled once at startup.
Request variables are layered over the loaded vars files and each
template's frontmatter defaults.

Endpoints:
  GET  /healthz                  Health check
  GET  /templates                List registered templates
  POST /templates/{name}/render  Render a registered template (body: vars object)
  POST /render                   Render an ad-hoc template (body: {"template", "vars", "delimiters"})
  GET  /events                   Server-sent reload events (with --watch)
  GET  /metrics                  Prometheus metrics

CORS origins and a per-IP rate limit are set under server: in stache.yaml
(cors_origins, rate_limit).`,
		Example: `  # Start the server on the configured address
  stache serve

  # Listen on another port and reload templates on change
  stache serve --addr :9000 --watch

  # Render a template
  curl -d '{"name":"World"}' localhost:8080/templates/hello/render`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, addr, watch)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Address to listen on (default from config: 127.0.0.1:8080)")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Reload templates when files change")

	return cmd
}

func runServe(cmd *cobra.Command, addr string, watch bool) error {
	cc := NewCommandContext(cmd)
	r := cc.Renderer

	if err := cc.Cfg.ValidateDirectories(); err != nil {
		return err
	}

	vars, err := cc.LoadVars(cmd)
	if err != nil {
		return err
	}

	opts := cc.CompileOptions()
	entries, err := registry.LoadDir(cc.Cfg.TemplatesDir, opts...)
	if err != nil {
		return fmt.Errorf("failed to load templates: %w", err)
	}
	reg := registry.NewTemplateRegistry()
	reg.Replace(entries)

	srvCfg := cc.Cfg.GetServerConfig()
	if addr == "" {
		addr = srvCfg.Addr
	}

	srv := server.NewServer(server.Config{
		Registry:          reg,
		Vars:              vars,
		CompileOptions:    opts,
		Addr:              addr,
		ReadHeaderTimeout: srvCfg.ReadHeaderTimeout,
		TemplatesDir:      cc.Cfg.TemplatesDir,
		Watch:             watch,
		CORSOrigins:       srvCfg.CORSOrigins,
		RateLimit:         srvCfg.RateLimit,
		Logger:            cc.Logger,
	})

	r.Success(fmt.Sprintf("Serving %d templates on http://%s", reg.Count(), addr))
	if watch {
		r.Muted("Watching " + cc.Cfg.TemplatesDir + " for changes")
	}
	r.Muted("Press Ctrl+C to stop")

	return srv.Serve(cmd.Context())
}
