package cmd

import (
	"fmt"

	"github.com/okulab/visionsim/internal/effects"
	"github.com/spf13/cobra"
)

// CreateEffectsCmd creates the effects listing command.
func CreateEffectsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "effects",
		Short: "List available vision simulations",
		Run: func(_ *cobra.Command, _ []string) {
			for _, info := range effects.List() {
				fmt.Printf("%-14s %-28s %s\n", info.ID, info.Name, info.Description)
			}
		},
	}
}
