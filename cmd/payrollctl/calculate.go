package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/warp/studio-payroll/api"
	"github.com/warp/studio-payroll/payroll"
)

var (
	calcInstructor string
	calcPeriod     string
	calcSave       bool
)

var calculateCmd = &cobra.Command{
	Use:   "calculate",
	Short: "Calculate one instructor's payment for a period",
	Long: `Calculate prices every class of the instructor in the period, applies
bonuses, retention and penalty points, and prints the breakdown followed by
the calculation log.`,
	Example: `  payrollctl calculate --instructor inst-ana --period 2026-10
  payrollctl calculate --instructor inst-ana --period 2026-10 --json --save`,
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := openEnvironment()
		if err != nil {
			return err
		}
		defer env.Close()

		data, err := env.calc.CalculateInstructorPayment(cmd.Context(),
			payroll.InstructorID(calcInstructor), payroll.PeriodID(calcPeriod), env.tenant)
		if err != nil {
			return err
		}

		if calcSave {
			record, err := api.PaymentRecord(data)
			if err != nil {
				return err
			}
			if err := env.store.SavePayment(cmd.Context(), record); err != nil {
				return fmt.Errorf("save payment: %w", err)
			}
		}

		return writePayment(cmd.OutOrStdout(), data, jsonOutput)
	},
}

// writePayment prints the breakdown, or the API's JSON document when asJSON
// is set.
func writePayment(out io.Writer, data *payroll.PaymentCalculationData, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(api.ToPaymentCalculationDTO(data))
	}
	_, err := fmt.Fprint(out, renderPayment(data))
	return err
}

func init() {
	calculateCmd.Flags().StringVarP(&calcInstructor, "instructor", "i", "", "Instructor ID")
	calculateCmd.Flags().StringVarP(&calcPeriod, "period", "p", "", "Period ID")
	calculateCmd.Flags().BoolVar(&calcSave, "save", false, "Store the result in the payments table")
	calculateCmd.MarkFlagRequired("instructor")
	calculateCmd.MarkFlagRequired("period")
}
