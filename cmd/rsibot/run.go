package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"rsibot/config"
	"rsibot/internal/runner"
)

// paramFlags binds every tunable parameter to a flag. Only flags the user
// actually set override the file or defaults.
type paramFlags struct {
	file    string
	p       config.Params
	offline bool
	asJSON  bool
}

func (f *paramFlags) register(cmd *cobra.Command) {
	d := config.DefaultParams(time.Now())
	fl := cmd.Flags()
	fl.StringVarP(&f.file, "params", "p", "", "YAML parameter file layered over the defaults")
	fl.StringVar(&f.p.Symbol, "symbol", d.Symbol, "Yahoo Finance symbol")
	fl.StringVar(&f.p.Start, "start", d.Start, "Start date (YYYY-MM-DD, inclusive)")
	fl.StringVar(&f.p.End, "end", d.End, "End date (YYYY-MM-DD, exclusive)")
	fl.StringVar(&f.p.Interval, "interval", d.Interval, "Bar interval")
	fl.IntVar(&f.p.RSIPeriod, "period", d.RSIPeriod, "RSI period (5-30)")
	fl.Float64Var(&f.p.BuyThreshold, "buy", d.BuyThreshold, "Buy when RSI is below this (10-50)")
	fl.Float64Var(&f.p.SellThreshold, "sell", d.SellThreshold, "Sell when RSI is above this (50-90)")
	fl.Float64Var(&f.p.InitialCapital, "capital", d.InitialCapital, "Initial capital (1000-100000)")
	fl.Float64Var(&f.p.RiskPercent, "risk", d.RiskPercent, "Risk per trade in percent (0.1-5)")
	fl.Float64Var(&f.p.StopPips, "stop-pips", d.StopPips, "Stop loss distance in pips (10-200)")
	fl.BoolVar(&f.p.MarkOpenAtEnd, "mark-open", false, "Close a position still open at the last bar")
}

func (f *paramFlags) resolve(cmd *cobra.Command) (config.Params, error) {
	p := config.DefaultParams(time.Now())
	if f.file != "" {
		var err error
		if p, err = config.LoadParamsFile(f.file, time.Now()); err != nil {
			return p, err
		}
	}

	fl := cmd.Flags()
	set := func(name string, apply func()) {
		if fl.Changed(name) {
			apply()
		}
	}
	set("symbol", func() { p.Symbol = f.p.Symbol })
	set("start", func() { p.Start = f.p.Start })
	set("end", func() { p.End = f.p.End })
	set("interval", func() { p.Interval = f.p.Interval })
	set("period", func() { p.RSIPeriod = f.p.RSIPeriod })
	set("buy", func() { p.BuyThreshold = f.p.BuyThreshold })
	set("sell", func() { p.SellThreshold = f.p.SellThreshold })
	set("capital", func() { p.InitialCapital = f.p.InitialCapital })
	set("risk", func() { p.RiskPercent = f.p.RiskPercent })
	set("stop-pips", func() { p.StopPips = f.p.StopPips })
	set("mark-open", func() { p.MarkOpenAtEnd = f.p.MarkOpenAtEnd })
	return p, nil
}

func runCmd(logLevel *string) *cobra.Command {
	f := &paramFlags{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one backtest and print the summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := f.resolve(cmd)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, *logLevel, f.offline)
			if err != nil {
				return err
			}
			defer a.Close()

			rep, err := a.newRunner().Run(ctx, p)
			if err != nil {
				return err
			}
			if f.asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(rep)
			}
			printReport(cmd.OutOrStdout(), rep)
			return nil
		},
	}
	f.register(cmd)
	cmd.Flags().BoolVar(&f.offline, "offline", false, "Read bars only from the local archive")
	cmd.Flags().BoolVar(&f.asJSON, "json", false, "Print the full report as JSON")
	return cmd
}

func printReport(w io.Writer, rep *runner.Report) {
	s := rep.Summary
	fmt.Fprintln(w)
	fmt.Fprintln(w, "╔══════════════════════════════════════════╗")
	fmt.Fprintln(w, "║            BACKTEST COMPLETE             ║")
	fmt.Fprintln(w, "╠══════════════════════════════════════════╣")
	fmt.Fprintf(w, "║  Symbol:          %-22s ║\n", rep.Params.Symbol)
	fmt.Fprintf(w, "║  Window:          %-22s ║\n", rep.Params.Start+" → "+rep.Params.End)
	fmt.Fprintf(w, "║  Bars (%-8s):  %-22d ║\n", rep.Origin, rep.Bars)
	fmt.Fprintf(w, "║  RSI:             %-22s ║\n", fmt.Sprintf("%d  buy<%g  sell>%g", rep.Params.RSIPeriod, rep.Params.BuyThreshold, rep.Params.SellThreshold))
	fmt.Fprintln(w, "╠══════════════════════════════════════════╣")
	fmt.Fprintf(w, "║  Final capital:   %-22s ║\n", fmt.Sprintf("$%.2f", s.FinalCapital))
	fmt.Fprintf(w, "║  Total return:    %-22s ║\n", fmt.Sprintf("%.2f%%", s.TotalReturnPct))
	fmt.Fprintf(w, "║  Trades:          %-22d ║\n", s.TradeCount)
	fmt.Fprintf(w, "║  Win rate:        %-22s ║\n", fmt.Sprintf("%.1f%% (%d/%d)", s.WinRatePct, s.Wins, s.ClosedTrades))
	fmt.Fprintf(w, "║  Max drawdown:    %-22s ║\n", fmt.Sprintf("%.2f%%", s.MaxDrawdownPct))
	if s.OpenAtEnd {
		fmt.Fprintf(w, "║  Open position:   %-22s ║\n", fmt.Sprintf("uPnL $%.2f", s.UnrealizedPnL))
	}
	fmt.Fprintln(w, "╚══════════════════════════════════════════╝")
}
