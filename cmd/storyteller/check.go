package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abdulachik/storyteller/internal/app"
	"github.com/abdulachik/storyteller/internal/config"
)

var checkCmd = &cobra.Command{
	Use:   "check <plot>",
	Short: "Check whether a plot repeats a stored one",
	Long: `Run plot deduplication for a one-sentence plot against every stored story
and print the verdict. Nothing is stored.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	plot := strings.Join(args, " ")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := cfg.ValidateForGeneration(); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}

	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.Checker == nil {
		return fmt.Errorf("create llm client: %w", a.GeneratorErr)
	}

	report := a.Checker.CheckSource(ctx, plot, a.Store.ListPlots)

	fmt.Printf("Verdict: %s\n", report.Verdict)
	fmt.Printf("Strategy: %s", report.Strategy)
	if report.Fallback {
		fmt.Print(" (index unavailable, scanned stored plots)")
	}
	fmt.Println()
	fmt.Printf("Compared: %d (failed %d)\n", report.Compared, report.Failed)
	if report.Match != nil {
		if report.Match.StoryID > 0 {
			fmt.Printf("Matches story #%d", report.Match.StoryID)
			if report.Match.Score > 0 {
				fmt.Printf(" (score %.3f)", report.Match.Score)
			}
			fmt.Println()
		}
		fmt.Printf("Matched plot: %s\n", report.Match.Plot)
	}
	if report.Err != nil {
		fmt.Printf("Error: %v\n", report.Err)
	}
	return nil
}
