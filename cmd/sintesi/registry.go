package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"sintesi/internal/registry"
)

// RegistryListResponse is the payload of `registry list`.
type RegistryListResponse struct {
	Entries []registry.MapEntry `json:"entries"`
}

var registryCmd = &cobra.Command{
	Use:   "registry",
	Short: "Inspect and maintain the anchor registry",
	Long: `Commands for the doctype-map.json registry.

Examples:
  sintesi registry list
  sintesi registry remove 8b7df143
  sintesi registry export backup.zst
  sintesi registry import backup.zst`,
}

var registryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all registered anchors",
	Run:   runRegistryList,
}

var registryRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Remove an anchor entry",
	Long: `Remove one entry from the registry.

The documentation file is not modified; the anchor markers stay in
place and a later scan would re-register them.`,
	Args: cobra.ExactArgs(1),
	Run:  runRegistryRemove,
}

var registryExportCmd = &cobra.Command{
	Use:   "export <file>",
	Short: "Write a compressed registry snapshot",
	Args:  cobra.ExactArgs(1),
	Run:   runRegistryExport,
}

var registryImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Replace the registry from a snapshot",
	Args:  cobra.ExactArgs(1),
	Run:   runRegistryImport,
}

func init() {
	registryCmd.AddCommand(registryListCmd)
	registryCmd.AddCommand(registryRemoveCmd)
	registryCmd.AddCommand(registryExportCmd)
	registryCmd.AddCommand(registryImportCmd)
	rootCmd.AddCommand(registryCmd)
}

func runRegistryList(cmd *cobra.Command, args []string) {
	a, err := newApp()
	if err != nil {
		fail(err)
	}
	defer a.Close()

	resp := &RegistryListResponse{Entries: a.reg.Entries()}
	out, err := FormatResponse(resp, OutputFormat(formatFlag))
	if err != nil {
		fail(err)
	}
	fmt.Println(out)
}

func runRegistryRemove(cmd *cobra.Command, args []string) {
	a, err := newApp()
	if err != nil {
		fail(err)
	}
	defer a.Close()

	id := args[0]
	if !a.reg.Remove(id) {
		fail(fmt.Errorf("no entry with id %q", id))
	}
	if err := a.reg.Save(); err != nil {
		fail(err)
	}
	fmt.Printf("Removed entry %s\n", id)
}

func runRegistryExport(cmd *cobra.Command, args []string) {
	a, err := newApp()
	if err != nil {
		fail(err)
	}
	defer a.Close()

	if err := a.reg.ExportFile(args[0]); err != nil {
		fail(err)
	}
	fmt.Printf("Exported %d entries to %s\n", a.reg.Len(), args[0])
}

func runRegistryImport(cmd *cobra.Command, args []string) {
	a, err := newApp()
	if err != nil {
		fail(err)
	}
	defer a.Close()

	if err := a.reg.ImportFile(args[0]); err != nil {
		fail(err)
	}
	if err := a.reg.Save(); err != nil {
		fail(err)
	}
	fmt.Printf("Imported %d entries from %s\n", a.reg.Len(), args[0])
}
