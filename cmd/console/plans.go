package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rflorenc/vm-migration-console/internal/kube"
	"github.com/rflorenc/vm-migration-console/internal/wizard"
)

func newPlansCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plans",
		Short: "List, export and delete migration plans",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List plans with their status",
			Args:  cobra.NoArgs,
			RunE:  listPlans,
		},
		&cobra.Command{
			Use:   "export NAME",
			Short: "Print a plan as YAML",
			Args:  cobra.ExactArgs(1),
			RunE:  exportPlan,
		},
		&cobra.Command{
			Use:   "delete NAME",
			Short: "Delete a plan",
			Args:  cobra.ExactArgs(1),
			RunE:  deletePlan,
		},
	)
	return cmd
}

func listPlans(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	plans, err := a.kube.ListPlans(cmd.Context())
	if err != nil {
		return err
	}
	migrations, err := a.kube.ListMigrations(cmd.Context())
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tSTATUS\tVMS\tPROGRESS\tSOURCE\tTARGET")
	for i, st := range wizard.ComputePlanStatuses(plans, migrations) {
		p := plans[i].Spec.Provider
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d%%\t%s\t%s\n", st.Name, st.Label, st.TotalVMs, st.Percent, p.Source.Name, p.Destination.Name)
	}
	return tw.Flush()
}

func exportPlan(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	plan, err := a.kube.GetPlan(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	data, err := kube.Manifest(plan)
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}

func deletePlan(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	if err := a.kube.DeletePlan(cmd.Context(), args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "plan %s deleted\n", args[0])
	return nil
}
