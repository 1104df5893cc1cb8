package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"sintesi/internal/config"
	"sintesi/internal/registry"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize sintesi in a repository",
	Long: `Create the .sintesi directory with a default config.json and an
empty registry file. Existing files are left untouched.

Examples:
  sintesi init
  sintesi init --repo-root ../service`,
	Run: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) {
	repoRoot := repoRootFlag
	if repoRoot == "" {
		cwd, err := os.Getwd()
		if err != nil {
			fail(err)
		}
		repoRoot = cwd
	}

	cfg := config.DefaultConfig()
	configPath := filepath.Join(repoRoot, config.ConfigDirName, "config.json")
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := cfg.Save(repoRoot); err != nil {
			fail(err)
		}
		fmt.Printf("Created %s\n", configPath)
	} else {
		fmt.Printf("Config already exists at %s\n", configPath)
	}

	registryPath := filepath.Join(repoRoot, cfg.Registry.Path)
	if _, err := os.Stat(registryPath); os.IsNotExist(err) {
		reg, err := registry.Load(registry.NewFileStore(registryPath))
		if err != nil {
			fail(err)
		}
		if err := reg.Save(); err != nil {
			fail(err)
		}
		fmt.Printf("Created %s\n", registryPath)
	} else {
		fmt.Printf("Registry already exists at %s\n", registryPath)
	}
}
