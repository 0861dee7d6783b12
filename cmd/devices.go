package cmd

import (
	"fmt"
	"os"

	"github.com/okulab/visionsim/internal/devices"
	"github.com/spf13/cobra"
)

// CreateDevicesCmd creates the camera listing command.
func CreateDevicesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List detected capture devices",
		Run: func(_ *cobra.Command, _ []string) {
			list, err := devices.List()
			if err != nil {
				fmt.Fprintf(os.Stderr, "failed to list devices: %v\n", err)
				os.Exit(1)
			}
			if len(list) == 0 {
				fmt.Println("no capture devices found")
				return
			}
			for _, d := range list {
				fmt.Printf("%-3d %-14s %s\n", d.Index, d.Path, d.Name)
			}
		},
	}
}
