package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/telekom/mailsend/pkg/credential"
)

func NewKeyringCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keyring",
		Short: "Manage the SMTP password in the OS keyring",
	}
	cmd.AddCommand(newKeyringSetCommand())
	return cmd
}

func newKeyringSetCommand() *cobra.Command {
	var service, user string

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Store the SMTP password read from stdin",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			if user == "" && rt.cfg != nil {
				user = rt.cfg.Sender.Address
			}
			if service == "" && rt.cfg != nil {
				service = rt.cfg.Sender.KeyringService
			}
			if user == "" {
				return errors.New("--user or sender.address is required")
			}

			line, err := bufio.NewReader(rt.Input()).ReadString('\n')
			if err != nil && line == "" {
				return fmt.Errorf("failed to read password from stdin: %w", err)
			}
			password := strings.TrimRight(line, "\r\n")
			if password == "" {
				return errors.New("empty password")
			}

			if err := credential.Store(service, user, credential.NewSecret(password)); err != nil {
				return err
			}
			rt.Logger().Infow("Stored SMTP password in keyring", "service", service, "user", user)
			_, _ = fmt.Fprintf(rt.Writer(), "Password for %s stored in keyring service %s\n", user, service)
			return nil
		},
	}

	cmd.Flags().StringVar(&service, "service", "", "Keyring service name")
	cmd.Flags().StringVar(&user, "user", "", "Keyring user, the sender address")

	return cmd
}
