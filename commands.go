package main

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"coinrates/internal/coinapi"
	"coinrates/internal/coordinator"
	"coinrates/internal/fetcher"
)

const fetchTimeout = 30 * time.Second

func newRatesCmd(a *app) *cobra.Command {
	var pairs []string

	cmd := &cobra.Command{
		Use:   "rates",
		Short: "Fetch the current rate of every configured pair",
		RunE: func(cmd *cobra.Command, _ []string) error {
			selected := a.cfg.Pairs
			if len(pairs) > 0 {
				selected = selected[:0:0]
				for _, raw := range pairs {
					p, err := coinapi.ParsePair(raw)
					if err != nil {
						return err
					}
					selected = append(selected, p)
				}
			}

			var fetchers []fetcher.Fetcher
			for _, p := range selected {
				fetchers = append(fetchers, coinapi.NewRateFetcher(a.client, p))
			}

			sinks := []coordinator.Sink{coordinator.NewPrintSink(cmd.OutOrStdout())}
			if a.redis != nil {
				sinks = append(sinks, a.redis)
			}

			// Add timeout to prevent hanging indefinitely
			ctx, cancel := context.WithTimeout(cmd.Context(), fetchTimeout)
			defer cancel()

			results, err := coordinator.New(fetchers, sinks...).Run(ctx)
			if err != nil {
				return fmt.Errorf("coordinator failed: %w", err)
			}

			failed := 0
			for _, r := range results {
				if r.Error != nil {
					failed++
				}
			}
			a.logger.Info("rates fetched", "total", len(results), "failed", failed)
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&pairs, "pair", nil, "pair to fetch as base/quote, repeatable (overrides PAIRS)")
	return cmd
}

func newHistoryCmd(a *app) *cobra.Command {
	var (
		pair   string
		filter string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print the OHLC history of a pair",
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := coinapi.ParsePair(pair)
			if err != nil {
				return err
			}
			f, err := coinapi.ParseTimeFilter(filter)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), fetchTimeout)
			defer cancel()

			q := f.Query(p.Base, p.Quote, time.Now())
			periods, err := a.client.ExchangePeriods(ctx, q)
			if err != nil {
				return err
			}
			periods = coinapi.FilterPeriods(periods, q.Start, q.End)

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "START\tEND\tOPEN\tHIGH\tLOW\tCLOSE")
			for _, period := range periods {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
					period.TimePeriodStart, period.TimePeriodEnd,
					coordinator.FormatRate(period.RateOpen), coordinator.FormatRate(period.RateHigh),
					coordinator.FormatRate(period.RateLow), coordinator.FormatRate(period.RateClose))
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&pair, "pair", "btc/usd", "pair as base/quote")
	cmd.Flags().StringVar(&filter, "filter", string(coinapi.FilterOneMonth), "time range: 1D, 1W, 1M, 6M, 1Y, 5Y, ALL")
	return cmd
}

func newExchangesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "exchanges",
		Short: "List exchanges with their metadata",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), fetchTimeout)
			defer cancel()

			exchanges, err := a.client.Exchanges(ctx)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "RANK\tID\tNAME\tVOLUME 1DAY USD\tWEBSITE")
			for _, e := range exchanges {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
					e.Rank, e.ExchangeID, e.Name, coordinator.FormatRate(e.Volume1DayUSD), e.Website)
			}
			return w.Flush()
		},
	}
}

func newIconsCmd(a *app) *cobra.Command {
	var size int

	cmd := &cobra.Command{
		Use:   "icons",
		Short: "List exchange icon URLs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), fetchTimeout)
			defer cancel()

			icons, err := a.client.ExchangeIcons(ctx, size)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tURL")
			for _, icon := range icons {
				fmt.Fprintf(w, "%s\t%s\n", icon.ExchangeID, icon.URL)
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVar(&size, "size", 32, "icon size in pixels")
	return cmd
}
