// Command reconcile scans for counter drift and orphaned media, and repairs
// them on request.
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

	"github.com/yogull/yogull-social-platform-sub001/internal/blobstore"
	"github.com/yogull/yogull-social-platform-sub001/internal/bootstrap"
	"github.com/yogull/yogull-social-platform-sub001/internal/config"
	"github.com/yogull/yogull-social-platform-sub001/internal/repository"
	"github.com/yogull/yogull-social-platform-sub001/internal/service"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

func main() {
	var (
		repair   bool
		interval time.Duration
	)
	root := &cobra.Command{
		Use:          "reconcile",
		Short:        "Check and repair denormalized counters and orphaned media",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return err
			}
			rt, err := bootstrap.InitRuntime(cmd.Context(), cfg, bootstrap.Options{SkipRedis: true})
			if err != nil {
				return err
			}
			defer rt.Close()

			integrity := newIntegrity(rt.DB, rt.Blobs, cfg)
			if interval <= 0 {
				return runOnce(cmd.Context(), integrity, repair, cmd.OutOrStdout())
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			integrity.Run(ctx, interval, repair)
			return nil
		},
	}
	root.Flags().BoolVar(&repair, "repair", false, "Recount drifted counters and delete orphaned files")
	root.Flags().DurationVar(&interval, "interval", 0, "Repeat on this interval until interrupted; zero runs once")

	if err := root.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newIntegrity(db *gorm.DB, blobs blobstore.Store, cfg *config.Config) *service.IntegrityService {
	return service.NewIntegrityService(repository.NewStore(db), blobs, cfg.OrphanGrace())
}

// runOnce writes the report as JSON to out.
func runOnce(ctx context.Context, integrity *service.IntegrityService, repair bool, out io.Writer) error {
	var (
		report *service.Report
		err    error
	)
	if repair {
		report, err = integrity.Repair(ctx)
	} else {
		report, err = integrity.Scan(ctx)
	}
	if err != nil {
		return fmt.Errorf("integrity check failed: %w", err)
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
