package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ivankudzin/giftexchange/internal/services/assignments"
	"github.com/ivankudzin/giftexchange/internal/transport/http/dto"
)

func addCollectionFlag(cmd *cobra.Command, target *int64) {
	cmd.Flags().Int64Var(target, "collection", 0, "collection id (required)")
	_ = cmd.MarkFlagRequired("collection")
}

func NewGenerateCommand(opts *RootOptions) *cobra.Command {
	var collectionID int64

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Clear and regenerate every assignment of a collection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withService(cmd, func(ctx context.Context, svc *assignments.Service) error {
				report, err := svc.Generate(ctx, collectionID)
				if err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), opts.Format, report, func(w io.Writer) error {
					_, err := fmt.Fprintf(w,
						"generated run %s for collection %d: %d signups, %d matched, %d request placeholders, %d offer placeholders, %d skipped edges\n",
						report.RunID, report.CollectionID, report.Signups, report.Matched,
						report.RequestPlaceholders, report.OfferPlaceholders, len(report.SkippedEdges))
					return err
				})
			})
		},
	}
	addCollectionFlag(cmd, &collectionID)
	return cmd
}

func NewClearCommand(opts *RootOptions) *cobra.Command {
	var collectionID int64

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Destroy every assignment of a collection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withService(cmd, func(ctx context.Context, svc *assignments.Service) error {
				cleared, err := svc.Clear(ctx, collectionID)
				if err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), opts.Format, dto.ClearResponse{OK: true, Cleared: cleared}, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "cleared %d assignments from collection %d\n", cleared, collectionID)
					return err
				})
			})
		},
	}
	addCollectionFlag(cmd, &collectionID)
	return cmd
}

func NewReconcileCommand(opts *RootOptions) *cobra.Command {
	var collectionID int64

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Repair placeholders so every signup holds one record per role",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withService(cmd, func(ctx context.Context, svc *assignments.Service) error {
				report, err := svc.Reconcile(ctx, collectionID)
				if err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), opts.Format, report, func(w io.Writer) error {
					if _, err := fmt.Fprintf(w,
						"reconciled collection %d: %d destroyed, %d created, %d flags fixed, %d conflicts\n",
						report.CollectionID, report.Destroyed, report.Created, report.FlagsFixed, len(report.Conflicts)); err != nil {
						return err
					}
					for _, c := range report.Conflicts {
						if _, err := fmt.Fprintf(w, "  conflict: signup %d holds %d %s assignments %v, kept %d\n",
							c.SignupID, len(c.AssignmentIDs), c.Role, c.AssignmentIDs, c.KeptID); err != nil {
							return err
						}
					}
					return nil
				})
			})
		},
	}
	addCollectionFlag(cmd, &collectionID)
	return cmd
}

func NewSendOutCommand(opts *RootOptions) *cobra.Command {
	var collectionID int64

	cmd := &cobra.Command{
		Use:   "send-out",
		Short: "Stamp assignments as sent and notify every giver",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withService(cmd, func(ctx context.Context, svc *assignments.Service) error {
				report, err := svc.SendOut(ctx, collectionID)
				if err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), opts.Format, report, func(w io.Writer) error {
					_, err := fmt.Fprintf(w,
						"sent out collection %d: %d stamped, %d notified, %d unresolved, %d failed\n",
						report.CollectionID, report.Stamped, report.Notified, report.Unresolved, report.Failed)
					return err
				})
			})
		},
	}
	addCollectionFlag(cmd, &collectionID)
	return cmd
}

func NewListCommand(opts *RootOptions) *cobra.Command {
	var (
		collectionID int64
		filter       assignments.Filter
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List assignments ordered by recipient",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withService(cmd, func(ctx context.Context, svc *assignments.Service) error {
				items, err := svc.ListAssignments(ctx, collectionID, filter)
				if err != nil {
					return err
				}
				response := dto.AssignmentsResponse{Items: make([]dto.AssignmentResponse, 0, len(items)), Total: len(items)}
				for _, item := range items {
					response.Items = append(response.Items, dto.FromAssignment(item))
				}
				return render(cmd.OutOrStdout(), opts.Format, response, func(w io.Writer) error {
					return writeAssignmentTable(w, response.Items)
				})
			})
		},
	}
	addCollectionFlag(cmd, &collectionID)
	cmd.Flags().Int64Var(&filter.OfferingUserID, "offering-user", 0, "only assignments given by this user id")
	cmd.Flags().Int64Var(&filter.RequestingUserID, "requesting-user", 0, "only assignments received by this user id")
	return cmd
}

func writeAssignmentTable(w io.Writer, items []dto.AssignmentResponse) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tGIVER\tRECIPIENT\tSENT")
	for _, item := range items {
		sent := "-"
		if item.SentAt != nil {
			sent = item.SentAt.UTC().Format("2006-01-02 15:04")
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", item.ID, orDash(item.Giver), orDash(item.Recipient), sent)
	}
	return tw.Flush()
}

func orDash(value string) string {
	if value == "" {
		return "-"
	}
	return value
}
