package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"mailharvest/internal/account"
	"mailharvest/internal/config"
	"mailharvest/internal/imap"
	"mailharvest/internal/pipeline"
	"mailharvest/internal/secrets"
	"mailharvest/internal/storage"

	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	var (
		ownerEmail   string
		ownerID      string
		serviceEmail string
		emailKey     string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Harvest one account's inbox for yesterday's attachments",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := config.Validate(cfg); err != nil {
				return err
			}

			if emailKey == "" {
				key, err := secrets.GetPassword(serviceEmail)
				if err != nil {
					if errors.Is(err, secrets.ErrSecretNotFound) {
						return fmt.Errorf("no stored email key for %s; pass --email-key or run `mailharvest auth login`", serviceEmail)
					}
					return err
				}
				emailKey = key
			}

			acct := account.Record{
				OwnerEmail:   ownerEmail,
				OwnerID:      ownerID,
				ServiceEmail: serviceEmail,
				EmailKey:     emailKey,
			}
			if err := acct.Validate(); err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Limits.RunTimeout)
			defer cancel()

			store, err := storage.New(ctx, cfg.S3.Region)
			if err != nil {
				return err
			}

			p := &pipeline.Pipeline{
				Dialer:   imap.NewDialer(),
				Uploader: store,
				Cfg:      cfg,
				Log:      newLogger(cmd),
			}
			res, err := p.Run(ctx, acct)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Messages: %d (skipped %d)\n", res.Messages, res.SkippedMessages)
			fmt.Fprintf(out, "PDFs: %d, images: %d (dropped %d)\n", res.PDFs, res.Images, res.DroppedImages)
			if len(res.Uploaded) == 0 {
				fmt.Fprintln(out, "Nothing uploaded.")
				return nil
			}
			fmt.Fprintf(out, "Uploaded:\n  %s\n", strings.Join(res.Uploaded, "\n  "))
			return nil
		},
	}

	cmd.Flags().StringVar(&ownerEmail, "owner-email", "", "Customer's own email address")
	cmd.Flags().StringVar(&ownerID, "owner-id", "", "Customer id used in archive keys")
	cmd.Flags().StringVar(&serviceEmail, "service-email", "", "Service inbox to harvest")
	cmd.Flags().StringVar(&emailKey, "email-key", "", "IMAP app password (falls back to the keyring)")
	_ = cmd.MarkFlagRequired("owner-email")
	_ = cmd.MarkFlagRequired("owner-id")
	_ = cmd.MarkFlagRequired("service-email")

	return cmd
}
