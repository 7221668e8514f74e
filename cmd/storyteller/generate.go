package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/abdulachik/storyteller/internal/app"
	"github.com/abdulachik/storyteller/internal/catalog"
	"github.com/abdulachik/storyteller/internal/config"
	"github.com/abdulachik/storyteller/internal/story"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate one story",
	Long: `Generate a story from a seed quote, print its ten screens and store it.

Examples:
  storyteller generate --quote "Мясо горько от того, что оно мертво"
  storyteller generate --random
  storyteller generate --quote "..." --book-file books/red-dragon.txt`,
	RunE: runGenerate,
}

var (
	genQuote        string
	genBook         string
	genBookFile     string
	genInspiration  string
	genRandom       bool
	genJSON         bool
	genExcerptWords int
)

func init() {
	generateCmd.Flags().StringVarP(&genQuote, "quote", "q", "", "Seed quote")
	generateCmd.Flags().StringVarP(&genBook, "book", "b", "", "Literary source the story draws on")
	generateCmd.Flags().StringVar(&genBookFile, "book-file", "", "Plain-text book whose opening is used as the literary source")
	generateCmd.Flags().IntVar(&genExcerptWords, "excerpt-words", 300, "Words taken from --book-file")
	generateCmd.Flags().StringVarP(&genInspiration, "inspiration", "i", "", "Stylistic inspiration (default Hannibal Lecter)")
	generateCmd.Flags().BoolVar(&genRandom, "random", false, "Draw quote, book and inspiration from the catalog")
	generateCmd.Flags().BoolVar(&genJSON, "json", false, "Print the raw result as JSON")
	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	if !genRandom && genQuote == "" {
		return errors.New("either --quote or --random is required")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := cfg.ValidateForGeneration(); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}

	shutdownTracing := setupTracing(ctx, cfg)
	defer shutdownTracing()

	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	var res story.Result
	if genRandom {
		var seed catalog.Seed
		seed, res = a.Stories.Random(ctx)
		fmt.Fprintf(os.Stderr, "Quote: %s\nBook: %s\nInspiration: %s\n\n", seed.Quote, seed.Book, seed.Inspiration)
	} else {
		book := genBook
		if genBookFile != "" {
			book, err = catalog.LoadExcerpt(genBookFile, genExcerptWords)
			if err != nil {
				return err
			}
		}
		res = a.Stories.Generate(ctx, story.Request{
			Quote:       genQuote,
			Book:        book,
			Inspiration: genInspiration,
		})
	}

	if genJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			return fmt.Errorf("encode result: %w", err)
		}
	} else {
		printResult(res)
	}

	if !res.Success {
		return fmt.Errorf("generation failed: %w", res.Err)
	}
	return nil
}

func printResult(res story.Result) {
	for i, part := range res.StoryParts {
		if part == "" {
			continue
		}
		fmt.Printf("[%d] %s\n\n", i+1, part)
	}

	if !res.Success {
		return
	}

	fmt.Printf("Plot: %s\n", res.Plot)
	fmt.Printf("Attempts: %d\n", res.Attempts)
	switch {
	case res.StoryID != nil:
		fmt.Printf("Saved as story #%d\n", *res.StoryID)
	case res.Exhausted:
		fmt.Println("Not saved: every attempt repeated a stored plot")
	case res.DBError != "":
		fmt.Printf("Not saved: %s\n", res.DBError)
	}
	if res.Dedup != nil {
		fmt.Printf("Dedup: %s (%s, %d compared)\n", res.Dedup.Verdict, res.Dedup.Strategy, res.Dedup.Compared)
	}
}
