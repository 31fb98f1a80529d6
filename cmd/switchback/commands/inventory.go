package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/switchback-net/switchback/internal/inventory"
)

func newInventoryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inventory",
		Short: "Show the parsed device list",
		Long: `Parses the inventory directory and prints the effective device
records: name, address, group, and the local address each device pushes
back to. Community strings are masked.`,
		RunE: runInventory,
	}

	cmd.Flags().Bool("show-communities", false, "print community strings unmasked")

	return cmd
}

func runInventory(cmd *cobra.Command, args []string) error {
	loader := inventory.NewLoader(cfg.Inventory.DefaultCommunity, cfg.Inventory.DefaultInterface)
	devices, err := loader.Load(cfg.Inventory.Dir)
	if err != nil {
		return err
	}
	if len(devices) == 0 {
		fmt.Println("inventory is empty")
		return nil
	}

	showCommunities, _ := cmd.Flags().GetBool("show-communities")

	fmt.Printf("%-24s %-16s %-16s %-16s %s\n", "NAME", "IP", "GROUP", "LOCAL IP", "COMMUNITY")
	for _, d := range devices {
		community := d.Community
		if !showCommunities {
			community = maskCommunity(community)
		}
		localIP := d.LocalIP
		if localIP == "" {
			localIP = "(unresolved)"
		}
		fmt.Printf("%-24s %-16s %-16s %-16s %s\n", d.Name, d.IP, d.Group, localIP, community)
	}
	fmt.Printf("\n%d device(s)\n", len(devices))
	return nil
}

func maskCommunity(community string) string {
	if len(community) <= 2 {
		return strings.Repeat("*", len(community))
	}
	return community[:1] + strings.Repeat("*", len(community)-2) + community[len(community)-1:]
}
