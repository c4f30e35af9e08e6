package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/secuflow/secuflow-go/internal/models"
)

var contributorsBranch string

var contributorsCmd = &cobra.Command{
	Use:   "contributors",
	Short: "Inspect and adjust contributor classifications",
}

var contributorsListCmd = &cobra.Command{
	Use:   "list <project-id>",
	Short: "List contributor snapshots with roles and activity levels",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		pcs, err := store.ListProjectContributors(cmd.Context(), args[0], contributorsBranch)
		if err != nil {
			return err
		}
		if len(pcs) == 0 {
			fmt.Println("no contributor snapshots; run a mining pass first")
			return nil
		}

		fmt.Printf("%-24s %-12s %-8s %8s %8s %8s  %s\n",
			"LOGIN", "ROLE", "CONF", "FILES", "MODS", "AVG", "ACTIVITY")
		for _, pc := range pcs {
			core := ""
			if pc.IsCoreContributor {
				core = " (core)"
			}
			fmt.Printf("%-24s %-12s %-8.2f %8d %8d %8.2f  %s%s\n",
				pc.Login, pc.FunctionalRole, pc.RoleConfidence,
				pc.FilesModified, pc.TotalModifications, pc.AvgModsPerFile,
				pc.Activity(), core)
		}
		return nil
	},
}

var (
	setRoleValue string
	setRoleCore  bool
)

var contributorsSetRoleCmd = &cobra.Command{
	Use:   "set-role <project-id> <login>...",
	Short: "Override the functional role of one or more contributors",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		role := models.FunctionalRole(setRoleValue)
		if !role.Valid() {
			return fmt.Errorf("invalid role %q (coder, reviewer, unclassified)", setRoleValue)
		}

		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		var core *bool
		if cmd.Flags().Changed("core") {
			core = &setRoleCore
		}

		n, err := store.SetContributorRoles(cmd.Context(), args[0], args[1:], role, core)
		if err != nil {
			return err
		}
		fmt.Printf("✓ updated %d contributor(s)\n", n)
		return nil
	},
}

func init() {
	contributorsListCmd.Flags().StringVar(&contributorsBranch, "branch", "", "restrict to one branch's snapshot")
	contributorsSetRoleCmd.Flags().StringVar(&setRoleValue, "role", "", "functional role to assign")
	contributorsSetRoleCmd.Flags().BoolVar(&setRoleCore, "core", false, "mark as core contributor")
	contributorsSetRoleCmd.MarkFlagRequired("role")

	contributorsCmd.AddCommand(contributorsListCmd)
	contributorsCmd.AddCommand(contributorsSetRoleCmd)
}
