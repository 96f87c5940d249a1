package cli

import (
	"fmt"

	"mailharvest/internal/config"
	"mailharvest/internal/feeder"
	"mailharvest/internal/imap"
	"mailharvest/internal/pipeline"
	"mailharvest/internal/storage"

	"github.com/spf13/cobra"
)

func newBatchCmd() *cobra.Command {
	var accountsKey string

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Harvest every account listed in the account file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if accountsKey != "" {
				cfg.S3.AccountsKey = accountsKey
			}
			if err := config.Validate(cfg); err != nil {
				return err
			}

			log := newLogger(cmd)

			store, err := storage.New(cmd.Context(), cfg.S3.Region)
			if err != nil {
				return err
			}

			p := &pipeline.Pipeline{
				Dialer:   imap.NewDialer(),
				Uploader: store,
				Cfg:      cfg,
				Log:      log,
			}
			f := &feeder.Feeder{
				Fetcher: store,
				Cfg:     cfg,
				Run:     p.Run,
				Log:     log,
			}

			summary, err := f.RunBatch(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Accounts: %d, succeeded: %d, failed: %d, archives uploaded: %d\n",
				summary.Accounts, summary.Succeeded, summary.Failed, summary.Uploaded)
			return nil
		},
	}

	cmd.Flags().StringVar(&accountsKey, "accounts-key", "", "Override the account file key in the bucket")

	return cmd
}
