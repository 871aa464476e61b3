package commands

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/pkg/browser"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"routedash/internal/diagnostics"
	"routedash/internal/httpapi"
)

var openBrowser bool

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the diagnostics as MCP tools over stdio",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMCP(cmd.Context())
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the read-only JSON API and Prometheus metrics",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if _, err := engine.Rebuild(ctx, diagnostics.TriggerStartup); err != nil {
			return err
		}

		srv := httpapi.NewServer(engine, registry, cfg.HTTP)
		if openBrowser {
			go openWhenListening(ctx, srv.Addr())
		}
		return srv.Start(ctx)
	},
}

// openWhenListening waits briefly for the listener and opens the index page.
func openWhenListening(ctx context.Context, addr string) {
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if ctx.Err() != nil {
			return
		}
		conn, err := net.DialTimeout("tcp", addr, 200*time.Millisecond)
		if err == nil {
			conn.Close()
			url := fmt.Sprintf("http://%s/", addr)
			if err := browser.OpenURL(url); err != nil {
				log.Warn().Err(err).Str("url", url).Msg("Could not open browser")
			}
			return
		}
		time.Sleep(100 * time.Millisecond)
	}
	log.Warn().Str("addr", addr).Msg("HTTP API did not come up in time to open a browser")
}

func init() {
	serveCmd.Flags().BoolVar(&openBrowser, "open", false, "open the API index in the default browser")
}
