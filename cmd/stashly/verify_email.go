package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stashly/stashly/internal/pinpad"
)

func newVerifyEmailCmd(a *app) *cobra.Command {
	var email, code string
	cmd := &cobra.Command{
		Use:   "verify-email",
		Short: "Submit the signup verification code sent by email",
		RunE: func(cmd *cobra.Command, _ []string) error {
			identity, err := pinpad.NewIdentity(email)
			if err != nil {
				return err
			}
			ack, err := a.client.VerifyEmail(cmd.Context(), identity.Email(), code)
			if err != nil {
				return errors.New(pinpad.FailureMessage(err, ""))
			}
			fmt.Fprintln(cmd.OutOrStdout(), ack.Message)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Account email address")
	cmd.Flags().StringVar(&code, "code", "", "Verification code")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("code")
	return cmd
}
