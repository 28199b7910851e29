package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/doeshing/shexec/internal/app"
	"github.com/doeshing/shexec/internal/application/doctor"
	"github.com/doeshing/shexec/internal/domain"
)

// NewDoctorCommand checks configuration, shell, backend, history and snapshot.
func NewDoctorCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Diagnose the execution environment",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc := &doctor.Service{
				ConfigProvider: container.ConfigLoader,
				Context:        container.Orchestrator.Context,
				History:        container.HistoryStore,
				ProbeTimeout:   container.Config.Execution.ConnectTimeoutDuration(),
			}
			if container.Snapshots != nil {
				svc.SnapshotPath = container.Snapshots.Path()
			}

			report, err := svc.Run(cmd.Context())
			for _, check := range report.Checks {
				fmt.Fprintf(cmd.OutOrStdout(), "[%s] %s: %s\n", statusTag(check.Status), check.Name, check.Details)
			}
			if err != nil {
				return err
			}
			if n := report.Failures(); n > 0 {
				return fmt.Errorf("%d check(s) failed", n)
			}
			return nil
		},
	}
}

func statusTag(status domain.HealthStatus) string {
	return strings.ToUpper(string(status))
}
