package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/obsidianstack/serialbridge/internal/serialconn"
	"github.com/obsidianstack/serialbridge/pkg/types"
)

// portsCmd lists the sources a client could connect to.
var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List serial devices",
	Long: `List the serial devices found on this host, the same list the
dashboard offers. The simulated sensor is included unless --no-mock is set.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		noMock, _ := cmd.Flags().GetBool("no-mock")
		mgr := serialconn.New(serialconn.Options{MockEnabled: !noMock})
		printPorts(cmd.OutOrStdout(), mgr.ListAvailable())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(portsCmd)
	portsCmd.Flags().Bool("no-mock", false, "omit the simulated sensor")
}

func printPorts(w io.Writer, ports []types.PortInfo) {
	if len(ports) == 0 {
		fmt.Fprintln(w, "No serial ports found!")
		return
	}
	for _, p := range ports {
		if p.Manufacturer == "" {
			fmt.Fprintln(w, pathStyle.Render(p.Path))
			continue
		}
		fmt.Fprintf(w, "%s  %s\n", pathStyle.Render(p.Path), mutedStyle.Render(p.Manufacturer))
	}
}
