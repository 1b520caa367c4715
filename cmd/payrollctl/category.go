package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/warp/studio-payroll/payroll"
)

var (
	catInstructor string
	catDiscipline string
	catPeriod     string
	catSet        string
	catClear      bool
)

var categoryCmd = &cobra.Command{
	Use:   "category",
	Short: "Resolve, set or clear an instructor's category in a discipline",
	Example: `  payrollctl category -i inst-ana -d siclo -p 2026-10
  payrollctl category -i inst-ana -d siclo -p 2026-10 --set AMBASSADOR
  payrollctl category -i inst-ana -d siclo -p 2026-10 --clear`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if catSet != "" && catClear {
			return fmt.Errorf("--set and --clear are mutually exclusive")
		}

		env, err := openEnvironment()
		if err != nil {
			return err
		}
		defer env.Close()

		ctx := cmd.Context()
		instructorID := payroll.InstructorID(catInstructor)
		disciplineID := payroll.DisciplineID(catDiscipline)
		periodID := payroll.PeriodID(catPeriod)
		out := cmd.OutOrStdout()

		switch {
		case catSet != "":
			category, ok := payroll.ParseCategory(catSet)
			if !ok {
				return fmt.Errorf("unknown category %q", catSet)
			}
			err := env.store.SetManualCategory(ctx, payroll.InstructorCategory{
				ID:           uuid.NewString(),
				InstructorID: instructorID,
				DisciplineID: disciplineID,
				PeriodID:     periodID,
				TenantID:     env.tenant,
				Category:     category,
				IsManual:     true,
				UpdatedAt:    time.Now().UTC(),
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(out, okStyle.Render(fmt.Sprintf("Manual category %s set", category)))
			return nil

		case catClear:
			cleared, err := env.store.ClearManualCategory(ctx, instructorID, disciplineID, periodID, env.tenant)
			if err != nil {
				return err
			}
			if !cleared {
				fmt.Fprintln(out, warnStyle.Render("No manual category was set"))
				return nil
			}
			fmt.Fprintln(out, okStyle.Render("Manual category cleared"))
			return nil
		}

		trail := payroll.NewTrail()
		category, err := env.calc.Resolver.Resolve(ctx, instructorID, disciplineID, periodID, env.tenant, trail)
		if err != nil {
			return err
		}
		stored, err := env.store.GetCategory(ctx, instructorID, disciplineID, periodID, env.tenant)
		if err != nil {
			return err
		}

		if jsonOutput {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]any{
				"category": category,
				"stored":   stored,
				"log":      trail.Lines(),
			})
		}
		fmt.Fprint(out, renderCategory(category, stored, trail.Lines()))
		return nil
	},
}

func init() {
	categoryCmd.Flags().StringVarP(&catInstructor, "instructor", "i", "", "Instructor ID")
	categoryCmd.Flags().StringVarP(&catDiscipline, "discipline", "d", "", "Discipline ID")
	categoryCmd.Flags().StringVarP(&catPeriod, "period", "p", "", "Period ID")
	categoryCmd.Flags().StringVar(&catSet, "set", "", "Set a manual category (INSTRUCTOR|JUNIOR_AMBASSADOR|AMBASSADOR|SENIOR_AMBASSADOR)")
	categoryCmd.Flags().BoolVar(&catClear, "clear", false, "Clear the manual category")
	categoryCmd.MarkFlagRequired("instructor")
	categoryCmd.MarkFlagRequired("discipline")
	categoryCmd.MarkFlagRequired("period")
}
