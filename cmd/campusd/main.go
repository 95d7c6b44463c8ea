package main

import (
	"errors"
	"io/fs"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:           "campusd",
		Short:         "Campus facility eligibility service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return err
			}
			if !cmd.Flags().Changed("config") {
				if p := os.Getenv("CONFIG_PATH"); p != "" {
					configPath = p
				}
			}
			return nil
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "./config/config.yaml", "path to the YAML configuration (env CONFIG_PATH)")

	root.AddCommand(newServeCmd(), newSeedCmd(), newWindowsCmd(), newHashPasswordCmd())

	if err := root.Execute(); err != nil {
		log.Fatal(err)
	}
}
