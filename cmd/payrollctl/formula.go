package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/warp/studio-payroll/factory"
	"github.com/warp/studio-payroll/payroll"
)

var formulaCmd = &cobra.Command{
	Use:   "formula",
	Short: "Validate and import formula documents",
}

var formulaValidateCmd = &cobra.Command{
	Use:   "validate <file.json|file.yaml>",
	Short: "Validate a formula document without touching the database",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		formula, err := parseFormulaFile(args[0])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if jsonOutput {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(factory.ToJSON(*formula))
		}
		fmt.Fprint(out, renderFormula(formula))
		fmt.Fprintln(out, okStyle.Render("✓ formula is valid"))
		return nil
	},
}

var formulaImportCmd = &cobra.Command{
	Use:   "import <file.json|file.yaml>",
	Short: "Validate a formula document and store it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		formula, err := parseFormulaFile(args[0])
		if err != nil {
			return err
		}

		env, err := openEnvironment()
		if err != nil {
			return err
		}
		defer env.Close()

		if formula.TenantID == "" {
			formula.TenantID = env.tenant
		} else if formula.TenantID != env.tenant {
			return fmt.Errorf("formula tenant %q does not match --tenant %q", formula.TenantID, env.tenant)
		}
		if formula.ID == "" {
			formula.ID = payroll.FormulaID(uuid.NewString())
		}

		if err := env.store.SaveFormula(cmd.Context(), *formula); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), okStyle.Render(fmt.Sprintf("✓ formula %s imported for %s/%s",
			formula.ID, formula.DisciplineID, formula.PeriodID)))
		return nil
	},
}

func init() {
	formulaCmd.AddCommand(formulaValidateCmd, formulaImportCmd)
}

func parseFormulaFile(path string) (*payroll.Formula, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read formula: %w", err)
	}
	return factory.NewFormulaFactory().ParseFile(path, data)
}
