package cli

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/common-nighthawk/go-figure"
	"github.com/spf13/cobra"
)

var bannerStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("#04B575")).
	Bold(true)

// newHelpCmd returns the `help` command: an ASCII banner followed by the
// root command's own usage text, for a friendlier first impression than
// cobra's default help when run with no arguments.
func newHelpCmd(root *cobra.Command) *cobra.Command {
	return &cobra.Command{
		Use:   "help",
		Short: "Show the Miniflow banner and command overview",
		RunE: func(cmd *cobra.Command, _ []string) error {
			logo := figure.NewFigure("MINIFLOW", "standard", true)
			cmd.Println(bannerStyle.Render(logo.String()))
			cmd.Println(root.Long)
			cmd.Println()
			return root.Usage()
		},
	}
}
