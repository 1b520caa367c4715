// Command payrollctl calculates instructor payments and manages formulas
// and categories against a payroll SQLite database.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/warp/studio-payroll/config"
	"github.com/warp/studio-payroll/payroll"
	"github.com/warp/studio-payroll/store/sqlite"
)

var (
	configPath string
	dbPath     string
	tenant     string
	jsonOutput bool
)

var rootCmd = &cobra.Command{
	Use:   "payrollctl",
	Short: "Studio instructor payroll calculator",
	Long: `payrollctl runs the payroll engine against a payroll database.

It calculates an instructor's payment for a period with the full audit
trail, resolves or overrides instructor categories, and validates formula
documents before they are imported.`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: ./payroll.yaml if present)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite database path (overrides server.db)")
	rootCmd.PersistentFlags().StringVarP(&tenant, "tenant", "t", "default", "Tenant ID")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Print JSON instead of a formatted report")

	viper.BindPFlag("tenant", rootCmd.PersistentFlags().Lookup("tenant"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))

	rootCmd.AddCommand(calculateCmd, categoryCmd, formulaCmd)
}

// environment is what every database-backed command needs.
type environment struct {
	cfg    *config.Config
	store  *sqlite.Store
	calc   *payroll.Calculator
	tenant payroll.TenantID
}

func openEnvironment() (*environment, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("error loading configuration: %w", err)
	}
	if dbPath != "" {
		cfg.Server.DB = dbPath
	}

	engineCfg, err := cfg.Payroll()
	if err != nil {
		return nil, err
	}
	policy, err := cfg.NonPrimePolicy()
	if err != nil {
		return nil, err
	}

	store, err := sqlite.New(cfg.Server.DB)
	if err != nil {
		return nil, err
	}

	return &environment{
		cfg:    cfg,
		store:  store,
		calc:   payroll.NewCalculator(store, policy, engineCfg),
		tenant: payroll.TenantID(viper.GetString("tenant")),
	}, nil
}

func (e *environment) Close() error {
	return e.store.Close()
}
