package cli

import (
	"fmt"
	"os"

	"mailharvest/internal/config"
	"mailharvest/internal/secrets"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Credential and config setup",
	}
	cmd.AddCommand(newAuthLoginCmd())
	return cmd
}

func newAuthLoginCmd() *cobra.Command {
	var (
		imapHost     string
		imapPort     int
		imapTLS      bool
		imapInsecure bool

		serviceEmail string
		emailKey     string
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store IMAP settings and a service inbox's app password",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			if cmd.Flags().Changed("imap-host") {
				cfg.IMAP.Host = imapHost
			}
			if cmd.Flags().Changed("imap-port") {
				cfg.IMAP.Port = imapPort
			}
			if cmd.Flags().Changed("imap-tls") {
				cfg.IMAP.TLS = imapTLS
			}
			if cmd.Flags().Changed("imap-insecure") {
				cfg.IMAP.InsecureSkipVerify = imapInsecure
			}

			if err := config.ValidateIMAP(cfg); err != nil {
				return err
			}

			path, err := config.Save(cfg)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Config saved to %s\n", path)

			if serviceEmail == "" {
				return nil
			}

			if emailKey == "" {
				if !term.IsTerminal(int(os.Stdin.Fd())) {
					return fmt.Errorf("--email-key is required without a TTY")
				}
				fmt.Fprintf(cmd.OutOrStdout(), "App password for %s: ", serviceEmail)
				raw, err := term.ReadPassword(int(os.Stdin.Fd()))
				fmt.Fprintln(cmd.OutOrStdout())
				if err != nil {
					return fmt.Errorf("read password: %w", err)
				}
				emailKey = string(raw)
			}

			if err := secrets.SetPassword(serviceEmail, emailKey); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Stored email key for %s\n", serviceEmail)
			return nil
		},
	}

	cmd.Flags().StringVar(&imapHost, "imap-host", "", "IMAP host")
	cmd.Flags().IntVar(&imapPort, "imap-port", 0, "IMAP port")
	cmd.Flags().BoolVar(&imapTLS, "imap-tls", true, "Use IMAP TLS")
	cmd.Flags().BoolVar(&imapInsecure, "imap-insecure", false, "Skip IMAP TLS verification")

	cmd.Flags().StringVar(&serviceEmail, "service-email", "", "Service inbox whose app password to store")
	cmd.Flags().StringVar(&emailKey, "email-key", "", "App password (prompted when omitted)")

	return cmd
}
