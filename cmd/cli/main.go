package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jeovahfialho/companies-api/internal/bootstrap"
	"github.com/jeovahfialho/companies-api/internal/config"
	"github.com/jeovahfialho/companies-api/internal/domain"
	"github.com/jeovahfialho/companies-api/internal/service"
	"github.com/jeovahfialho/companies-api/pkg/logger"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "companies",
		Short: "Companies API maintenance CLI",
		Long: `Maintenance commands for the companies API.
Uses the same configuration as the server (environment and .env).`,
		SilenceUsage: true,
	}

	warmCmd := &cobra.Command{
		Use:   "warm-cache",
		Short: "Reload the price snapshot from the database into Redis",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(cmd.Context(), func(ctx context.Context, deps *bootstrap.Deps) error {
				rows, err := deps.Prices.Refresh(ctx)
				if err != nil {
					return fmt.Errorf("warm cache: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "cached %d price rows\n", len(rows))
				return nil
			})
		},
	}

	flushCmd := &cobra.Command{
		Use:   "flush-cache",
		Short: "Delete the cached price snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(cmd.Context(), func(ctx context.Context, deps *bootstrap.Deps) error {
				if err := deps.Prices.Invalidate(ctx); err != nil {
					return fmt.Errorf("flush cache: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "price snapshot removed")
				return nil
			})
		},
	}

	companiesCmd := &cobra.Command{
		Use:   "companies",
		Short: "List companies through the same query path as the API",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := filterFromFlags(cmd)
			if err != nil {
				return err
			}
			return withDeps(cmd.Context(), func(ctx context.Context, deps *bootstrap.Deps) error {
				companies, err := deps.Companies.ListCompanies(ctx, filter)
				if err != nil {
					return err
				}
				if companies == nil {
					companies = []domain.Company{}
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(companies)
			})
		},
	}
	companiesCmd.Flags().String("sort-by", "", "score or price_fluctuation")
	companiesCmd.Flags().String("exchange", "", "exchange symbol filter")
	companiesCmd.Flags().Float64("min-score", 0, "minimum total score (inclusive)")
	companiesCmd.Flags().Bool("historical", false, "include historical prices")
	companiesCmd.Flags().IntP("limit", "l", domain.DefaultLimit, "page size")
	companiesCmd.Flags().IntP("offset", "o", domain.DefaultOffset, "rows to skip")

	healthCmd := &cobra.Command{
		Use:   "health",
		Short: "Check database and Redis connectivity",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(cmd.Context(), func(ctx context.Context, deps *bootstrap.Deps) error {
				out := cmd.OutOrStdout()

				ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
				defer cancel()

				if err := deps.DB.HealthCheck(ctx); err != nil {
					return fmt.Errorf("postgres: %w", err)
				}
				stats := deps.DB.Stats()
				fmt.Fprintf(out, "postgres: ok (total=%d idle=%d acquired=%d)\n",
					stats.TotalConns(), stats.IdleConns(), stats.AcquiredConns())

				if err := deps.Cache.HealthCheck(ctx); err != nil {
					return fmt.Errorf("redis: %w", err)
				}
				ttl, err := deps.Cache.TTL(ctx, service.PriceCacheKey)
				if err != nil {
					return fmt.Errorf("redis: %w", err)
				}
				if ttl > 0 {
					fmt.Fprintf(out, "redis: ok (price snapshot expires in %s)\n", ttl.Round(time.Second))
				} else {
					fmt.Fprintln(out, "redis: ok (price snapshot not cached)")
				}
				return nil
			})
		},
	}

	rootCmd.AddCommand(warmCmd, flushCmd, companiesCmd, healthCmd)
	return rootCmd
}

func filterFromFlags(cmd *cobra.Command) (domain.CompanyFilter, error) {
	flags := cmd.Flags()
	filter := domain.NewCompanyFilter()

	sortBy, _ := flags.GetString("sort-by")
	if sortBy != "" && domain.ParseSortBy(sortBy) == "" {
		return filter, fmt.Errorf("unknown sort %q", sortBy)
	}
	filter.SortBy = domain.ParseSortBy(sortBy)
	filter.ExchangeSymbol, _ = flags.GetString("exchange")
	filter.IncludeHistoricalData, _ = flags.GetBool("historical")
	filter.Limit, _ = flags.GetInt("limit")
	filter.Offset, _ = flags.GetInt("offset")

	if flags.Changed("min-score") {
		v, _ := flags.GetFloat64("min-score")
		filter.MinScore = &v
	}

	return filter.Normalize(), nil
}

func withDeps(ctx context.Context, fn func(context.Context, *bootstrap.Deps) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := logger.Init(cfg.LogLevel, cfg.Development()); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Close()

	if ctx == nil {
		ctx = context.Background()
	}

	deps, err := bootstrap.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer deps.Close()

	return fn(ctx, deps)
}
