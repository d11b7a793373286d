// cmd_serve.go - Server Command und Versionsanzeige
// Hauptfunktionen: RunServer, versionHandler
package cmd

import (
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/spf13/cobra"
	"golang.org/x/mod/semver"

	"github.com/quickmt/quickmt/api"
	"github.com/quickmt/quickmt/envconfig"
	"github.com/quickmt/quickmt/server"
	"github.com/quickmt/quickmt/version"
)

// RunServer - Startet den quickmt-Server
func RunServer(_ *cobra.Command, _ []string) error {
	ln, err := net.Listen("tcp", envconfig.Host().Host)
	if err != nil {
		return err
	}

	err = server.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}

	return err
}

// versionHandler - Zeigt Client- und Server-Version an
func versionHandler(cmd *cobra.Command, _ []string) {
	client, err := api.ClientFromEnvironment()
	if err != nil {
		return
	}

	serverVersion, err := client.Version(cmd.Context())
	if err != nil {
		fmt.Println("Warning: could not connect to a running quickmt instance")
	}

	if serverVersion != "" {
		fmt.Printf("quickmt version is %s\n", serverVersion)
	}

	if serverVersion != version.Version {
		fmt.Printf("Warning: client version is %s\n", version.Version)
	}

	if serverVersion != "" && semver.Compare("v"+serverVersion, "v"+version.Version) < 0 {
		fmt.Println("Warning: server is older than the client, consider updating the server")
	}
}

// newServeCmd - Erstellt den serve Command
func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "serve",
		Aliases: []string{"start"},
		Short:   "Start quickmt",
		Args:    cobra.ExactArgs(0),
		RunE:    RunServer,
	}
}

// newVersionCmd - Erstellt den version Command
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.ExactArgs(0),
		Run:   versionHandler,
	}
}
