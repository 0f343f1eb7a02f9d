package cli

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	grpcAdapter "github.com/quentinrf/kbdlightd/internal/adapters/grpc"
	"github.com/quentinrf/kbdlightd/internal/config"
	"github.com/quentinrf/kbdlightd/internal/domain"
	"github.com/quentinrf/kbdlightd/pkg/tlsconfig"
)

const callTimeout = 5 * time.Second

// withClient dials the daemon named by the config and runs fn
func withClient(cmd *cobra.Command, cfg config.Config, fn func(ctx context.Context, c *grpcAdapter.ControlClient) error) error {
	var tlsCfg *tls.Config
	if cfg.Control.TLS().Enabled() {
		var err error
		tlsCfg, err = tlsconfig.LoadClientTLS(cfg.Control.TLS())
		if err != nil {
			return err
		}
	}

	conn, err := grpcAdapter.Dial(cfg.Control.Addr, tlsCfg)
	if err != nil {
		return fmt.Errorf("failed to reach kbdlightd at %s: %w", cfg.Control.Addr, err)
	}
	defer conn.Close()

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithTimeout(parent, callTimeout)
	defer cancel()

	return fn(ctx, grpcAdapter.NewControlClient(conn))
}

func (a *app) newToggleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "toggle",
		Short: "Toggle activity management on a running daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, a.cfg, func(ctx context.Context, c *grpcAdapter.ControlClient) error {
				enabled, err := c.Toggle(ctx)
				if err != nil {
					return err
				}
				printEnabled(cmd.OutOrStdout(), enabled)
				return nil
			})
		},
	}
}

func (a *app) newEnableCmd(enable bool) *cobra.Command {
	use, short := "enable", "Resume activity management"
	if !enable {
		use, short = "disable", "Pause activity management, leaving the backlight as it is"
	}
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, a.cfg, func(ctx context.Context, c *grpcAdapter.ControlClient) error {
				enabled, err := c.SetEnabled(ctx, enable)
				if err != nil {
					return err
				}
				printEnabled(cmd.OutOrStdout(), enabled)
				return nil
			})
		},
	}
}

func printEnabled(w io.Writer, enabled bool) {
	if enabled {
		fmt.Fprintln(w, "activity management enabled")
		return
	}
	fmt.Fprintln(w, "activity management disabled")
}

func (a *app) newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the daemon's backlight state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, a.cfg, func(ctx context.Context, c *grpcAdapter.ControlClient) error {
				st, err := c.Status(ctx)
				if err != nil {
					return err
				}
				printStatus(cmd.OutOrStdout(), st)
				return nil
			})
		},
	}
}

func printStatus(out io.Writer, st grpcAdapter.StatusView) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "STATE\t%s\n", st.State)
	fmt.Fprintf(w, "LEVEL\t%d\n", st.Level)
	fmt.Fprintf(w, "IDLE\t%s of %s\n", st.IdleFor.Truncate(time.Second), st.Timeout)
	fmt.Fprintf(w, "LAST ACTIVITY\t%s\n", st.LastActivity.Local().Format(time.DateTime))
	if st.LastCause != "" {
		fmt.Fprintf(w, "LAST CAUSE\t%s\n", st.LastCause)
	}
	fmt.Fprintf(w, "SESSION\t%s\n", st.Session)
	w.Flush()
}

func (a *app) newHistoryCmd() *cobra.Command {
	var since time.Duration

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List journaled backlight transitions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if since <= 0 {
				return fmt.Errorf("--since must be positive, got %s", since)
			}
			return withClient(cmd, a.cfg, func(ctx context.Context, c *grpcAdapter.ControlClient) error {
				end := time.Now()
				transitions, err := c.History(ctx, end.Add(-since), end)
				if err != nil {
					return err
				}
				printHistory(cmd.OutOrStdout(), transitions)
				return nil
			})
		},
	}

	cmd.Flags().DurationVar(&since, "since", time.Hour, "how far back to look")
	return cmd
}

func printHistory(out io.Writer, transitions []domain.Transition) {
	if len(transitions) == 0 {
		fmt.Fprintln(out, "no transitions")
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tSTATE\tLEVEL\tCAUSE")
	for _, t := range transitions {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n",
			t.Timestamp.Local().Format(time.DateTime), t.State(), t.Level, t.Cause)
	}
	w.Flush()
}
