package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/taskstate/tasksync/internal/config"
	"github.com/taskstate/tasksync/internal/core/services"
	"github.com/taskstate/tasksync/internal/infrastructure/dom"
	"github.com/taskstate/tasksync/internal/infrastructure/logger"
	"github.com/taskstate/tasksync/internal/infrastructure/remote"
)

var watchCmd = &cobra.Command{
	Use:   "watch [page-url]",
	Short: "Track the in-progress tasks on a page until they finish",
	Long: `Watch fetches the page, binds every task indicator on it and follows
status pushes for the tasks that are enqueued or running. It exits when the
server closes the status channel or on interrupt.

If the channels cannot be opened the page is left as loaded and watch exits
without error.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().String("cookie", "", "Cookie header sent with the page and channel requests")
	watchCmd.Flags().StringP("output", "o", "", "Write the final page HTML to this file")
	_ = viper.BindPFlag("sync.cookie", watchCmd.Flags().Lookup("cookie"))
	_ = viper.BindPFlag("sync.output", watchCmd.Flags().Lookup("output"))
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if len(args) == 1 {
		cfg.Sync.PageURL = args[0]
	}
	if cfg.Sync.PageURL == "" {
		return fmt.Errorf("no page URL: pass one as an argument or set sync.page_url")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return watch(ctx, cfg.Sync, log, cmd.OutOrStdout())
}

func watch(ctx context.Context, cfg config.SyncConfig, log *logger.Logger, out io.Writer) error {
	doc, err := dom.Fetch(ctx, cfg.PageURL, dom.FetchConfig{
		Timeout:  cfg.FetchTimeout,
		MaxBytes: cfg.MaxPageBytes,
		Cookie:   cfg.Cookie,
		Logger:   log.Named("fetch"),
	})
	if err != nil {
		return err
	}

	registry := services.NewTaskRegistry(log.Named("registry"))
	tracked, err := registry.Initialize(doc.Indicators())
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Tracking %d task(s) on %s\n", tracked.Len(), doc.URL())

	coordinator := services.NewChannelCoordinator(services.ChannelCoordinatorConfig{
		Registry: registry,
		Dialer: remote.NewWSDialer(remote.WSConfig{
			PageURL:          doc.URL(),
			Cookie:           cfg.Cookie,
			HandshakeTimeout: cfg.HandshakeTimeout,
			Logger:           log.Named("channel"),
		}),
		Logger: log.Named("coordinator"),
		OnBatch: func(b services.BatchResult) {
			for _, id := range b.Completed {
				if ind, ok := registry.Indicator(id); ok {
					fmt.Fprintf(out, "Task %s %s\n", id, ind.Status())
				}
			}
			for _, id := range b.Reentered {
				fmt.Fprintf(out, "Task %s active again\n", id)
			}
		},
	})

	runErr := coordinator.Run(ctx)
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	fmt.Fprintf(out, "%d task(s) still in progress\n", registry.Tracked().Len())

	if cfg.Output != "" {
		html, err := doc.HTML()
		if err != nil {
			return fmt.Errorf("failed to render page: %w", err)
		}
		if err := os.WriteFile(cfg.Output, []byte(html), 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", cfg.Output, err)
		}
	}
	return nil
}
