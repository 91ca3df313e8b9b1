package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/4tyone/pyrethrum/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "pyrethrum",
	Short: "Exhaustive result-handling checker for annotated Python",
	Long:  "Verifies that every failure or absence case of an annotated function is explicitly handled at its call sites, from serialized ASTs or pre-extracted analysis JSON.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
}

func main() {
	err := rootCmd.Execute()
	_ = zap.L().Sync()
	if err != nil {
		os.Exit(1)
	}
}
