// Package root contains the root command for the application
package root

import (
	"fmt"
	"sync"

	"fjacquet/fiscal-organizer/internal/config"
	"fjacquet/fiscal-organizer/internal/container"
	"fjacquet/fiscal-organizer/internal/logging"
	"fjacquet/fiscal-organizer/internal/models"

	"github.com/spf13/cobra"
)

// CommonFlags represents the flags that are common to multiple commands
type CommonFlags struct {
	Company string
	CNPJ    string
	Output  string
}

var (
	// Log is the shared logger instance for commands
	Log logging.Logger = logging.NewLogrusAdapter("info", "text")

	// AppContainer is built by PersistentPreRunE and closed afterwards.
	AppContainer *container.Container

	// Cmd is the root command
	Cmd = &cobra.Command{
		Use:   "fiscal-organizer",
		Short: "Classify Brazilian fiscal documents and package them by category.",
		Long: `fiscal-organizer sorts NF-e, NFC-e, CT-e, NFS-e, SPED ledgers and
spreadsheets into per-category folders for one company and packs the result
into a single ZIP archive.`,
		SilenceUsage: true,
		Run: func(cmd *cobra.Command, args []string) {
			_ = cmd.Help()
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			config.LoadEnv(Log)
			cfg, err := config.InitializeConfig()
			if err != nil {
				return err
			}
			Log = config.NewLogger(cfg)

			c, err := container.NewContainerWithLogger(cfg, Log)
			if err != nil {
				return err
			}
			AppContainer = c
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if AppContainer == nil {
				return
			}
			if err := AppContainer.Close(); err != nil {
				Log.WithError(err).Warn("Failed to close resources")
			}
			AppContainer = nil
		},
	}

	// SharedFlags are accessible to all commands
	SharedFlags = CommonFlags{}

	initOnce sync.Once
)

// Init initializes the root command and all flags. Safe to call repeatedly.
func Init() {
	initOnce.Do(func() {
		Cmd.PersistentFlags().StringVarP(&SharedFlags.Company, "company", "c", "", "Company name (output folder and archive name)")
		Cmd.PersistentFlags().StringVar(&SharedFlags.CNPJ, "cnpj", "", "Company CNPJ used to resolve entry vs exit")
		Cmd.PersistentFlags().StringVarP(&SharedFlags.Output, "output", "o", "", "Output file or directory")
	})
}

// CompanyInput returns the company flags as given. Validation and the
// directory lookup happen inside the organizer.
func CompanyInput() models.CompanyContext {
	return models.CompanyContext{Name: SharedFlags.Company, TaxID: SharedFlags.CNPJ}
}

// Container returns the initialized container or an error when the
// command ran without PersistentPreRunE.
func Container() (*container.Container, error) {
	if AppContainer == nil {
		return nil, fmt.Errorf("application not initialized")
	}
	return AppContainer, nil
}
