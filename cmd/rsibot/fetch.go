package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func fetchCmd(logLevel *string) *cobra.Command {
	f := &paramFlags{}
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Download bars into the local archive without running a backtest",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := f.resolve(cmd)
			if err != nil {
				return err
			}
			req, err := p.BarRequest()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, *logLevel, false)
			if err != nil {
				return err
			}
			defer a.Close()
			if a.loader.Store == nil {
				return fmt.Errorf("fetch needs a bar archive; RSIBOT_BAR_STORE is %q", a.cfg.BarStore)
			}

			bars, origin, err := a.loader.Load(ctx, req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s: %d bars from %s (%s → %s)\n",
				req.Symbol, req.Interval, len(bars), origin,
				bars[0].TS.Format("2006-01-02 15:04"), bars[len(bars)-1].TS.Format("2006-01-02 15:04"))
			return nil
		},
	}
	f.register(cmd)
	return cmd
}
