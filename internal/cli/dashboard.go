package cli

import (
	"context"
	"fmt"
	"io"

	"atsquick/internal/dashboard"
	"atsquick/internal/store"

	"github.com/spf13/cobra"
)

var dashboardWidth int

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Show the stored resume analysis",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(st store.Store) error {
			return showDashboard(cmd.Context(), st, cmd.OutOrStdout(), dashboardWidth)
		})
	},
}

func init() {
	dashboardCmd.Flags().IntVar(&dashboardWidth, "width", 80, "Dashboard width in columns")
}

// showDashboard renders the stored analysis, or the empty-state panel when none exists
func showDashboard(ctx context.Context, st store.Store, w io.Writer, width int) error {
	result, _ := st.Load(ctx)
	_, err := fmt.Fprintln(w, dashboard.Render(dashboard.BuildView(result), width))
	return err
}
