package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var serveInterval time.Duration

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the manager against the configured termini until interrupted",
	RunE: func(_ *cobra.Command, _ []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}

		ctx := context.Background()
		wg, ctx := errgroup.WithContext(ctx)

		wg.Go(func() error {
			return pollLoop(ctx, a, serveInterval)
		})
		wg.Go(func() error {
			err := waitInterrupted(ctx)
			a.log.Infow("caught signal", "err", err)
			return err
		})

		var interruptErr interrupted
		if err := wg.Wait(); err != nil && !errors.As(err, &interruptErr) {
			return err
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().DurationVar(&serveInterval, "interval", 30*time.Second, "poll interval between SyncAll passes")
	rootCmd.AddCommand(serveCmd)
}

// pollLoop runs SyncAll immediately and then every interval until ctx
// is canceled.
func pollLoop(ctx context.Context, a *app, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := a.mgr.SyncAll(ctx); err != nil {
			a.log.Errorw("sync all failed", "err", err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

type interrupted struct {
	os.Signal
}

func (m interrupted) Error() string {
	return m.String()
}

// waitInterrupted blocks until SIGINT/SIGTERM is received or ctx is
// canceled.
func waitInterrupted(ctx context.Context) error {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)

	select {
	case v := <-ch:
		return interrupted{Signal: v}
	case <-ctx.Done():
		return ctx.Err()
	}
}
