// Package feeder reads the account batch and fans out one harvest run per
// account, bounding concurrency and enforcing the batch deadline.
package feeder

import (
	"context"
	"sync/atomic"

	"mailharvest/internal/account"
	"mailharvest/internal/config"
	"mailharvest/internal/pipeline"
	"mailharvest/internal/storage"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Runner executes one account's harvest. Satisfied by (*pipeline.Pipeline).Run.
type Runner func(ctx context.Context, acct account.Record) (pipeline.Result, error)

type Feeder struct {
	Fetcher storage.Fetcher
	Cfg     config.Config
	Run     Runner
	Log     zerolog.Logger
}

type Summary struct {
	Accounts  int
	Succeeded int
	Failed    int
	Uploaded  int
}

// RunBatch loads the account file and runs every account. A failed account
// never blocks or fails its siblings; the batch deadline cancels whatever is
// still in flight. An absent account file is an empty batch, not an error.
func (f *Feeder) RunBatch(ctx context.Context) (Summary, error) {
	records, err := account.Load(ctx, f.Fetcher, f.Cfg.S3.Bucket, f.Cfg.S3.AccountsKey)
	if err != nil {
		return Summary{}, err
	}
	if len(records) == 0 {
		f.Log.Info().Msg("account file empty or absent, nothing to do")
		return Summary{}, nil
	}
	f.Log.Info().Int("accounts", len(records)).Msg("starting batch")

	batchCtx, cancel := context.WithTimeout(ctx, f.Cfg.Limits.BatchTimeout)
	defer cancel()

	var succeeded, failed, uploaded atomic.Int64

	g := new(errgroup.Group)
	g.SetLimit(f.Cfg.Limits.MaxConcurrent)
	for _, rec := range records {
		rec := rec
		g.Go(func() error {
			runCtx, cancelRun := context.WithTimeout(batchCtx, f.Cfg.Limits.RunTimeout)
			defer cancelRun()

			res, err := f.Run(runCtx, rec)
			if err != nil {
				f.Log.Error().Str("account", rec.OwnerID).Err(err).Msg("harvest run failed")
				failed.Add(1)
				return nil
			}

			succeeded.Add(1)
			uploaded.Add(int64(len(res.Uploaded)))
			f.Log.Info().
				Str("account", rec.OwnerID).
				Int("messages", res.Messages).
				Int("pdfs", res.PDFs).
				Int("images", res.Images).
				Int("uploaded", len(res.Uploaded)).
				Msg("harvest run complete")
			return nil
		})
	}
	_ = g.Wait()

	summary := Summary{
		Accounts:  len(records),
		Succeeded: int(succeeded.Load()),
		Failed:    int(failed.Load()),
		Uploaded:  int(uploaded.Load()),
	}
	f.Log.Info().
		Int("accounts", summary.Accounts).
		Int("succeeded", summary.Succeeded).
		Int("failed", summary.Failed).
		Msg("batch complete")
	return summary, nil
}
