package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Harshitk-cp/mindkernel/internal/domain"
)

func newListAuditsCmd(a *app) *cobra.Command {
	var objectType, objectID, eventType string
	var limit int
	cmd := &cobra.Command{
		Use:   "list-audits",
		Short: "List audit events, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			events, err := a.k.Audit.List(cmd.Context(), domain.AuditFilter{
				ObjectType: domain.ObjectType(objectType),
				ObjectID:   objectID,
				EventType:  domain.AuditEventType(eventType),
				Limit:      limit,
			})
			if err != nil {
				return err
			}
			return a.print(cmd, map[string]any{"events": events, "count": len(events)})
		},
	}
	cmd.Flags().StringVar(&objectType, "object-type", "", "Filter by object type")
	cmd.Flags().StringVar(&objectID, "object-id", "", "Filter by object id")
	cmd.Flags().StringVar(&eventType, "event-type", "", "Filter by event type")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum events")
	return cmd
}

func newReplayCmd(a *app) *cobra.Command {
	var objectType, objectID string
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Reconstruct an object's history from its audit events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := a.k.Audit.Replay(cmd.Context(), domain.ObjectType(objectType), objectID)
			if err != nil {
				return err
			}
			return a.print(cmd, r)
		},
	}
	cmd.Flags().StringVar(&objectType, "object-type", "", "Object type")
	cmd.Flags().StringVar(&objectID, "object-id", "", "Object id")
	_ = cmd.MarkFlagRequired("object-type")
	_ = cmd.MarkFlagRequired("object-id")
	return cmd
}

func newVerifyAuditCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "verify-audit",
		Short: "Recompute audit hashes and report tampered events",
		Long:  `Recompute each event's hash. Exits non-zero when any stored hash no longer matches.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.k.Audit.Verify(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if err := a.print(cmd, res); err != nil {
				return err
			}
			if len(res.Tampered) > 0 {
				return fmt.Errorf("%d of %d audit events failed verification", len(res.Tampered), res.Checked)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "Newest events to check (0 checks all)")
	return cmd
}
