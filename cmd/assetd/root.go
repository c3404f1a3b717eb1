package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// rootCmd корневая команда
var rootCmd = &cobra.Command{
	Use:   "assetd",
	Short: "Asset ingestion service",
	Long: `assetd принимает файлы чанками, склеивает их, сжимает и хранит ассеты.

Конфигурация читается из переменных окружения (и .env в рабочем каталоге).`,
	SilenceUsage: true,
}

// Execute выполняет корневую команду
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(serveCmd, sweepCmd, tokenCmd)
}
