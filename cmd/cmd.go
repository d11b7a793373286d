// cmd.go - Haupt-CLI Setup und Root Command
// Hauptfunktionen: NewCLI, appendEnvDocs
package cmd

import (
	"fmt"
	"log"
	"os"
	"runtime"

	"github.com/containerd/console"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/quickmt/quickmt/envconfig"
)

// appendEnvDocs - Fuegt Umgebungsvariablen-Dokumentation zum Command hinzu
func appendEnvDocs(cmd *cobra.Command, envs []envconfig.EnvVar) {
	if len(envs) == 0 {
		return
	}

	envUsage := `
Environment Variables:
`
	for _, e := range envs {
		envUsage += fmt.Sprintf("      %-24s   %s\n", e.Name, e.Description)
	}

	cmd.SetUsageTemplate(cmd.UsageTemplate() + envUsage)
}

// NewCLI - Erstellt das Haupt-CLI mit allen Commands
func NewCLI() *cobra.Command {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	cobra.EnableCommandSorting = false

	if runtime.GOOS == "windows" && term.IsTerminal(int(os.Stdout.Fd())) {
		console.ConsoleFromFile(os.Stdin) //nolint:errcheck
	}

	rootCmd := &cobra.Command{
		Use:           "quickmt",
		Short:         "Neural machine translation service",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		Run: func(cmd *cobra.Command, args []string) {
			if version, _ := cmd.Flags().GetBool("version"); version {
				versionHandler(cmd, args)
				return
			}

			cmd.Print(cmd.UsageString())
		},
	}

	rootCmd.Flags().BoolP("version", "v", false, "Show version information")

	// Commands erstellen
	serveCmd := newServeCmd()
	translateCmd := newTranslateCmd()
	identifyCmd := newIdentifyCmd()
	listCmd := newListCmd()
	languagesCmd := newLanguagesCmd()
	pullCmd := newPullCmd()
	versionCmd := newVersionCmd()

	// Environment-Dokumentation hinzufuegen
	envVars := envconfig.AsMap()
	envs := []envconfig.EnvVar{envVars["HOST"], envVars["PORT"]}

	for _, cmd := range []*cobra.Command{
		translateCmd,
		identifyCmd,
		listCmd,
		languagesCmd,
		pullCmd,
		serveCmd,
	} {
		switch cmd {
		case serveCmd:
			appendEnvDocs(cmd, []envconfig.EnvVar{
				envVars["QUICKMT_DEBUG"],
				envVars["HOST"],
				envVars["PORT"],
				envVars["DEVICE"],
				envVars["COMPUTE_TYPE"],
				envVars["INTER_THREADS"],
				envVars["INTRA_THREADS"],
				envVars["MAX_LOADED_MODELS"],
				envVars["MAX_BATCH_SIZE"],
				envVars["BATCH_TIMEOUT_MS"],
				envVars["MAX_QUEUE"],
				envVars["LANGID_MODEL_PATH"],
				envVars["LANGID_WORKERS"],
				envVars["TRANSLATION_CACHE_SIZE"],
				envVars["QUICKMT_ORIGINS"],
			})
		default:
			appendEnvDocs(cmd, envs)
		}
	}

	rootCmd.AddCommand(
		serveCmd,
		translateCmd,
		identifyCmd,
		listCmd,
		languagesCmd,
		pullCmd,
		versionCmd,
	)

	return rootCmd
}
