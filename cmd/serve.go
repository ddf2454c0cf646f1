/*
Copyright © 2026 ソニーレベル <C7kali3@gmail.com>

*/
package cmd

import (
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/prototyp3d/prototyp3d/internal/server"
)

var serveAddr string

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Expose the prototyper over HTTP",
	Long: `Start an HTTP server with the prototyping API:

  POST /api/prototype   {"goal": "...", "name": "...", "async": false}
  POST /api/iterate     {"goal": "...", "session_id": "..." | "name": "..."}
  GET  /api/progress    ?session=<id>&after=<seq>
  GET  /api/ws          ?session=<id>  (websocket event stream)

Examples:
  p3d serve
  p3d serve --addr :5000 --debug`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cleanup := setupLogging()
		defer cleanup()

		if !verbose {
			gin.SetMode(gin.ReleaseMode)
		}

		srv := server.New(buildGateway(), buildOptions())
		return srv.Run(serveAddr)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "Listen address")
}
