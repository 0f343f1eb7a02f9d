package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/quentinrf/kbdlightd/internal/adapters/evdev"
)

func (a *app) newKeyboardsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keyboards",
		Short: "List the keyboards the daemon would watch",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			kbds, err := evdev.ListKeyboards(a.cfg.Input.Dir)
			if err != nil {
				return err
			}
			if len(kbds) == 0 {
				return fmt.Errorf("no readable keyboards under %s (is the user in the input group?)", a.cfg.Input.Dir)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "PATH\tNAME")
			for _, k := range kbds {
				fmt.Fprintf(w, "%s\t%s\n", k.Path, k.Name)
			}
			return w.Flush()
		},
	}
}
