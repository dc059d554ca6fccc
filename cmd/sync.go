package main

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/medley-health/roster-cli/internal/config"
	"github.com/medley-health/roster-cli/internal/fetcher"
	"github.com/medley-health/roster-cli/internal/roster"
)

var syncOnly []string

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Download external roster files into the merge base path",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if len(cfg.Sync.Sources) == 0 {
			return eris.New("no sync sources configured (sync.sources)")
		}

		httpFetcher := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
			UserAgent:    cfg.Sync.UserAgent,
			Timeout:      time.Duration(cfg.Sync.TimeoutSecs) * time.Second,
			MaxRetries:   cfg.Sync.MaxRetries,
			RateLimiters: fetcher.DefaultRateLimiters(),
		})
		ftpFetcher := fetcher.NewFTPFetcher(fetcher.FTPOptions{
			Timeout: time.Duration(cfg.Sync.TimeoutSecs) * time.Second,
		})

		if err := os.MkdirAll(cfg.Merge.BasePath, 0o755); err != nil {
			return eris.Wrap(err, "create base path")
		}

		var failed int
		for _, src := range cfg.Sync.Sources {
			if len(syncOnly) > 0 && !slices.Contains(syncOnly, src.Name) {
				continue
			}
			if err := syncSource(ctx, src, httpFetcher, ftpFetcher); err != nil {
				zap.L().Error("sync source failed",
					zap.String("source", src.Name),
					zap.String("url", src.URL),
					zap.Error(err),
				)
				failed++
				continue
			}
			zap.L().Info("sync source complete", zap.String("source", src.Name))
		}

		if failed > 0 {
			return eris.Errorf("%d sync source(s) failed", failed)
		}
		return nil
	},
}

// syncSource mirrors one remote file into the base path, unwrapping archives
// and converting spreadsheets to CSV along the way.
func syncSource(ctx context.Context, src config.SyncSource, httpF *fetcher.HTTPFetcher, ftpF *fetcher.FTPFetcher) error {
	f, err := fetcher.ForURL(src.URL, httpF, ftpF)
	if err != nil {
		return err
	}

	target := src.Target
	if target == "" {
		target = src.Name
	}
	destPath := filepath.Join(cfg.Merge.BasePath, target)

	// Archives and spreadsheets land in a scratch directory first.
	needsPostProcess := src.ZipEntry != "" || src.Sheet != "" || isXLSX(src.URL)
	downloadPath := destPath
	if needsPostProcess {
		downloadPath = filepath.Join(os.TempDir(), filepath.Base(src.URL))
	}

	n, err := f.DownloadToFile(ctx, src.URL, downloadPath)
	if err != nil {
		return err
	}
	zap.L().Debug("downloaded", zap.String("url", src.URL), zap.Int64("bytes", n))

	if src.ZipEntry != "" {
		extracted, err := fetcher.ExtractZIPFile(downloadPath, src.ZipEntry, os.TempDir())
		if err != nil {
			return err
		}
		downloadPath = extracted
	}

	if src.Sheet != "" || isXLSX(downloadPath) {
		table, err := fetcher.ReadXLSXTable(downloadPath, fetcher.XLSXOptions{SheetName: src.Sheet})
		if err != nil {
			return err
		}
		return roster.WriteCSVFile(destPath, table)
	}

	if downloadPath != destPath {
		if err := os.Rename(downloadPath, destPath); err != nil {
			return eris.Wrap(err, "move downloaded file")
		}
	}
	return nil
}

func isXLSX(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".xlsx")
}

func init() {
	syncCmd.Flags().StringSliceVar(&syncOnly, "only", nil, "sync only the named sources")
	rootCmd.AddCommand(syncCmd)
}
