package main

import (
	"errors"
	"fmt"
	"strconv"

	"workshops/internal/config"
	"workshops/internal/db"
	"workshops/internal/payment"
	"workshops/internal/registration"
	"workshops/internal/webhook"

	"github.com/spf13/cobra"
)

func replayWebhookCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "replay-webhook [event-id]",
		Short: "Re-run matching for a stored webhook event",
		Long: `Re-run normalization and matching for a webhook event stored in the
audit log. Events that were already matched are reported as duplicates and
never book a second payment.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eventID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || eventID <= 0 {
				return fmt.Errorf("invalid event id %q", args[0])
			}

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			database, err := db.Connect(cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("connect: %w", err)
			}
			defer database.Close()

			registrations := registration.NewRepository(database)
			ledger := payment.NewLedger(payment.NewRepository(database), nil)
			matcher := webhook.NewMatcher(registrations, cfg.MatchWindow)
			processor := webhook.NewProcessor(matcher, ledger, webhook.NewAuditRepository(database), cfg.WebhookSource, cfg.AmountScale())

			outcome, err := processor.Replay(cmd.Context(), eventID)
			if errors.Is(err, webhook.ErrEventNotFound) {
				return fmt.Errorf("webhook event %d not found", eventID)
			}
			if err != nil {
				return fmt.Errorf("replay: %w", err)
			}

			printOutcome(cmd, outcome)
			return nil
		},
	}
}

func printOutcome(cmd *cobra.Command, o webhook.Outcome) {
	out := cmd.OutOrStdout()
	switch {
	case o.Duplicate:
		fmt.Fprintf(out, "event %d: already settled%s\n", o.EventID, registrationSuffix(o.RegistrationID))
	case o.OK:
		fmt.Fprintf(out, "event %d: matched%s\n", o.EventID, registrationSuffix(o.RegistrationID))
	default:
		fmt.Fprintf(out, "event %d: %s%s\n", o.EventID, o.Reason, registrationSuffix(o.RegistrationID))
	}
}

func registrationSuffix(id *int64) string {
	if id == nil {
		return ""
	}
	return " (registration " + strconv.FormatInt(*id, 10) + ")"
}
