package main

import (
	"errors"
	"fmt"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/stashly/stashly/internal/keypadui"
	"github.com/stashly/stashly/internal/pinpad"
	"github.com/stashly/stashly/internal/session"
)

var errCancelled = errors.New("cancelled")

func newPinCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pin",
		Short: "Set or confirm the transaction PIN",
	}
	cmd.PersistentFlags().IntVar(&a.cfg.PINLength, "length", a.cfg.PINLength, "PIN length (PIN_LENGTH)")
	cmd.PersistentFlags().DurationVar(&a.cfg.ConfirmDelay, "confirm-delay", a.cfg.ConfirmDelay, "Delay before a confirmation resolves (CONFIRM_DELAY)")
	cmd.AddCommand(newPinSetCmd(a), newPinConfirmCmd(a))
	return cmd
}

func newPinSetCmd(a *app) *cobra.Command {
	var (
		email     string
		noConfirm bool
	)
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Choose a new PIN on the keypad and register it with the backend",
		RunE: func(cmd *cobra.Command, _ []string) error {
			identity, err := pinpad.NewIdentity(email)
			if err != nil {
				return err
			}
			out, err := a.runKeypad(cmd, "Create your transaction PIN", pinpad.Config{
				Flow:      pinpad.FlowCreate,
				Identity:  identity,
				Submitter: pinpad.NewRemoteSetter(session.AckSetter(a.client)),
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out.Message)
			if noConfirm {
				return nil
			}

			hash, err := pinpad.HashPIN(out.Handoff.PIN)
			if err != nil {
				return fmt.Errorf("hash pin: %w", err)
			}
			confirmed, err := a.runKeypad(cmd, "Confirm your transaction PIN", pinpad.Config{
				Flow:      pinpad.FlowVerify,
				Identity:  out.Handoff.Identity,
				Submitter: pinpad.LocalConfirm{Delay: a.cfg.ConfirmDelay, Expected: hash},
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), confirmed.Message)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Account email address")
	cmd.Flags().BoolVar(&noConfirm, "no-confirm", false, "Skip the confirmation keypad")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newPinConfirmCmd(a *app) *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "confirm",
		Short: "Re-enter the PIN on the confirmation keypad",
		RunE: func(cmd *cobra.Command, _ []string) error {
			identity, err := pinpad.NewIdentity(email)
			if err != nil {
				return err
			}
			out, err := a.runKeypad(cmd, "Confirm your transaction PIN", pinpad.Config{
				Flow:      pinpad.FlowVerify,
				Identity:  identity,
				Submitter: pinpad.LocalConfirm{Delay: a.cfg.ConfirmDelay},
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out.Message)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Account email address")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func (a *app) runKeypad(cmd *cobra.Command, title string, cfg pinpad.Config) (pinpad.Outcome, error) {
	cfg.Length = a.cfg.PINLength
	cfg.OnTransition = func(from, to pinpad.State) {
		a.logger.Debug("pin transition", slog.String("from", from.String()), slog.String("to", to.String()))
	}
	machine, err := pinpad.NewMachine(cfg)
	if err != nil {
		return pinpad.Outcome{}, err
	}

	program := tea.NewProgram(keypadui.New(title, machine), tea.WithContext(cmd.Context()))
	final, err := program.Run()
	if err != nil {
		return pinpad.Outcome{}, fmt.Errorf("keypad: %w", err)
	}
	out, ok := final.(keypadui.Model).Result()
	if !ok {
		return pinpad.Outcome{}, errCancelled
	}
	return out, nil
}
