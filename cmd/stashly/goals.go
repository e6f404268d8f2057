package main

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/stashly/stashly/internal/backend"
	"github.com/stashly/stashly/internal/savings"
)

func newGoalsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "goals",
		Short: "List savings plans with goal progress",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.cfg.Token == "" {
				return errors.New("an access token is required (--token or STASHLY_TOKEN)")
			}
			claims, err := backend.ParseTokenClaims(a.cfg.Token)
			if err != nil {
				return err
			}
			if claims.Expired(time.Now()) {
				return errors.New("access token has expired, sign in again")
			}

			svc := savings.NewService(a.client, nil, 0, a.logger)
			goals, err := svc.Goals(cmd.Context(), claims.Email, a.cfg.Token)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "PLAN\tKIND\tSAVED\tTARGET\tPROGRESS\tREMAINING")
			for _, g := range goals {
				status := g.Progress.Percent.StringFixed(2) + "%"
				if g.Progress.Reached {
					status += " reached"
				} else if g.Plan.LockedAt(time.Now()) {
					status += " locked"
				}
				fmt.Fprintf(w, "%s\t%s\t%s %s\t%s\t%s\t%s\n",
					g.Plan.Name, g.Plan.Kind,
					g.Plan.Currency, g.Plan.Saved.StringFixed(2),
					g.Plan.Target.StringFixed(2),
					status,
					g.Progress.Remaining.StringFixed(2))
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&a.cfg.Token, "token", a.cfg.Token, "Backend access token (STASHLY_TOKEN)")
	return cmd
}
