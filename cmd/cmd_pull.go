// cmd_pull.go - Pull Command (Artefakt-Prefetch in den lokalen Cache)
// Hauptfunktionen: PullHandler, newPullCmd
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/quickmt/quickmt/hub"
	"github.com/quickmt/quickmt/progress"
	"github.com/quickmt/quickmt/registry"
)

// PullHandler - Laedt das Modellartefakt fuer ein Sprachpaar herunter.
// Laeuft direkt gegen den Hub, ein Server muss nicht gestartet sein.
func PullHandler(cmd *cobra.Command, args []string) error {
	src, tgt := args[0], args[1]

	p := progress.NewProgress(os.Stderr)
	defer p.Stop()

	spinner := progress.NewSpinner("refreshing model catalogue")
	p.Add("catalogue", spinner)

	reg := registry.New(hub.NewClient())
	if err := reg.Refresh(cmd.Context()); err != nil {
		return err
	}
	spinner.Stop()

	desc, ok := reg.Resolve(src, tgt)
	if !ok {
		return reg.NotFound(src, tgt)
	}

	var bar *progress.Bar
	dir, err := reg.Artifact(cmd.Context(), desc, hub.WithProgress(func(downloaded, total int64) {
		if total <= 0 {
			return
		}
		if bar == nil {
			bar = progress.NewBar(fmt.Sprintf("pulling %s:", desc.Pair()), total, downloaded)
			p.Add(desc.ID, bar)
		}
		bar.Set(downloaded)
	}))
	if err != nil {
		return err
	}

	p.StopAndClear()
	fmt.Printf("pulled %s\n  %s\n", desc.ID, dir)

	return nil
}

// newPullCmd - Erstellt den pull Command
func newPullCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pull SRC TGT",
		Short: "Download a translation model into the local cache",
		Args:  cobra.ExactArgs(2),
		RunE:  PullHandler,
	}
}
