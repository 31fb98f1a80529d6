package commands

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/switchback-net/switchback/internal/differ"
	"github.com/switchback-net/switchback/internal/inventory"
	"github.com/switchback-net/switchback/internal/logger"
	"github.com/switchback-net/switchback/internal/orchestrator"
	"github.com/switchback-net/switchback/internal/snmptrigger"
	"github.com/switchback-net/switchback/internal/transfer"
	"github.com/switchback-net/switchback/internal/vcs"
	"github.com/switchback-net/switchback/pkg/types"
)

const summaryRounding = 10 * time.Millisecond

func newRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Back up every device in the inventory",
		Long: `Runs one backup cycle: for each device, trigger the SNMP remote
write, wait for the TFTP push, commit the config into the group archive,
report changes, and persist changed configs to NVRAM.`,
		RunE: runBackup,
	}

	cmd.Flags().String("group", "", "restrict the run to one group")
	cmd.Flags().Bool("dry-run", false, "provision repos and inspect archives, skip SNMP and commits")

	return cmd
}

func runBackup(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	log, err := logger.NewOperational(cfg.Logging.Level, cfg.Logging.File)
	if err != nil {
		return err
	}

	loader := inventory.NewLoader(cfg.Inventory.DefaultCommunity, cfg.Inventory.DefaultInterface)
	devices, err := loader.Load(cfg.Inventory.Dir)
	if err != nil {
		return err
	}

	if group, _ := cmd.Flags().GetString("group"); group != "" {
		devices = filterGroup(devices, group)
		if len(devices) == 0 {
			return fmt.Errorf("no devices in group %q", group)
		}
	}
	if len(devices) == 0 {
		fmt.Println("inventory is empty, nothing to do")
		return nil
	}

	d, err := differ.New(cfg.Diff.HeaderLines, cfg.Diff.VolatilePatterns)
	if err != nil {
		return err
	}

	repos := vcs.NewManager(vcs.NewGitStore(cfg.Repo.Author, cfg.Repo.Email), cfg.Repo.StoreDir, cfg.Repo.WorkDir)
	snmp := snmptrigger.New(cfg.SNMP.Port, cfg.SNMP.Timeout, cfg.SNMP.Retries, log)
	watcher := transfer.NewWatcher(cfg.Transfer.DropDir, cfg.Transfer.Timeout, log)

	orch := orchestrator.New(repos, snmp, watcher, d, log)
	orch.NVRAMWrite = cfg.Run.NVRAMWrite
	orch.DryRun, _ = cmd.Flags().GetBool("dry-run")

	runner := orchestrator.NewRunner(orch, cfg.Run.GroupConcurrency)
	summary := runner.Run(context.Background(), devices)

	printSummary(summary)
	if summary.HasFailures() {
		_, _, _, failed := summary.Counts()
		return fmt.Errorf("%d device(s) failed", failed)
	}
	return nil
}

func filterGroup(devices []types.Device, group string) []types.Device {
	var kept []types.Device
	for _, d := range devices {
		if d.Group == group {
			kept = append(kept, d)
		}
	}
	return kept
}

func printSummary(summary types.RunSummary) {
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)

	for _, res := range summary.Results {
		switch {
		case res.Failed():
			red.Fprintf(os.Stderr, "FAIL %s/%s (%s): %v\n", res.Device.Group, res.Device.Name, res.Device.IP, res.Err)
		case res.Classification == types.ClassificationNew:
			green.Printf("NEW  %s/%s (%s) archived\n", res.Device.Group, res.Device.Name, res.Device.IP)
		case res.Classification == types.ClassificationChanged:
			printDiffReport(res.DiffReport)
		}
	}

	added, changed, unchanged, failed := summary.Counts()
	fmt.Printf("\n%d new, %d changed, %d unchanged, %d failed in %s\n",
		added, changed, unchanged, failed, summary.Elapsed.Round(summaryRounding))
}

func printDiffReport(report string) {
	added := color.New(color.FgGreen)
	removed := color.New(color.FgRed)
	header := color.New(color.FgCyan)

	for _, line := range strings.Split(strings.TrimRight(report, "\n"), "\n") {
		switch {
		case strings.HasPrefix(line, "===="), strings.HasPrefix(line, "@@"):
			header.Println(line)
		case strings.HasPrefix(line, "+"):
			added.Println(line)
		case strings.HasPrefix(line, "-"):
			removed.Println(line)
		default:
			fmt.Println(line)
		}
	}
}
