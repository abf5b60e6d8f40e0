/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: logs.go
Description: Logs command for the Evogene Fuzzer. Reports log file statistics
and analyzes past fuzzing-run logs for event counts and level distribution.
*/

package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kleascm/evogene-fuzzer/pkg/logging"
)

// AnalyzeLogs reports statistics and event counts from past run logs
func AnalyzeLogs(cmd *cobra.Command, args []string) error {
	if err := LoadConfig(); err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logDir := viper.GetString("log_dir")

	manager := logging.NewLogManager(
		logDir,
		viper.GetInt("log_max_files"),
		viper.GetInt64("log_max_size"),
		viper.GetBool("log_compress"),
	)

	stats, err := manager.GetLogStats()
	if err != nil {
		return fmt.Errorf("failed to collect log statistics: %w", err)
	}

	fmt.Println("📄 Log File Statistics")
	fmt.Println("======================")
	fmt.Printf("  Directory:    %s\n", logDir)
	fmt.Printf("  Total files:  %d (%d compressed)\n", stats.TotalFiles, stats.CompressedFiles)
	fmt.Printf("  Total size:   %d bytes\n", stats.TotalSize)
	if stats.TotalFiles > 0 {
		fmt.Printf("  Oldest file:  %s\n", stats.OldestFile.Format("2006-01-02 15:04:05"))
		fmt.Printf("  Newest file:  %s\n", stats.NewestFile.Format("2006-01-02 15:04:05"))
	}
	fmt.Println()

	analyzer := logging.NewLogAnalyzer(logDir)
	analysis, err := analyzer.AnalyzeLogs()
	if err != nil {
		return fmt.Errorf("failed to analyze logs: %w", err)
	}

	fmt.Println(analysis.GetLogSummary())
	return nil
}
