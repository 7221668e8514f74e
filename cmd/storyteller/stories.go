package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/abdulachik/storyteller/internal/app"
	"github.com/abdulachik/storyteller/internal/config"
	"github.com/abdulachik/storyteller/internal/db"
	"github.com/abdulachik/storyteller/internal/pager"
)

var storiesCmd = &cobra.Command{
	Use:   "stories",
	Short: "Browse stored stories",
}

var storiesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored stories, newest first",
	RunE:  runStoriesList,
}

var storiesShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print one stored story screen by screen",
	Args:  cobra.ExactArgs(1),
	RunE:  runStoriesShow,
}

var listLimit int

func init() {
	storiesListCmd.Flags().IntVarP(&listLimit, "limit", "n", 20, "Maximum stories to print (0 for all)")
	storiesCmd.AddCommand(storiesListCmd, storiesShowCmd)
	rootCmd.AddCommand(storiesCmd)
}

// openStore opens and migrates the configured store.
func openStore(ctx context.Context, cfg *config.Config) (app.Store, error) {
	if err := cfg.ValidateForStore(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	store, err := app.OpenStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return store, nil
}

func runStoriesList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	stories, err := store.ListStories(ctx)
	if err != nil {
		return fmt.Errorf("list stories: %w", err)
	}

	if len(stories) == 0 {
		fmt.Println("No stories yet.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCREATED\tINSPIRATION\tPLOT")
	for i, s := range stories {
		if listLimit > 0 && i >= listLimit {
			break
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n",
			s.ID,
			s.CreatedAt.Format("2006-01-02 15:04"),
			s.Inspiration,
			truncate(s.Plot, 80),
		)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if listLimit > 0 && len(stories) > listLimit {
		fmt.Printf("\n%d of %d stories shown\n", listLimit, len(stories))
	}
	return nil
}

func runStoriesShow(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid story id %q", args[0])
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	s, err := store.GetStory(ctx, id)
	if errors.Is(err, db.ErrNotFound) {
		return fmt.Errorf("story %d not found", id)
	}
	if err != nil {
		return fmt.Errorf("get story: %w", err)
	}

	fmt.Printf("Story #%d\n", s.ID)
	fmt.Printf("Plot: %s\n", s.Plot)
	fmt.Printf("Inspiration: %s\n", s.Inspiration)
	if s.SeedQuote != "" {
		fmt.Printf("Quote: %s\n", s.SeedQuote)
	}
	if s.BookBasedStory != s.Text() {
		fmt.Printf("Book: %s\n", truncate(s.BookBasedStory, 120))
	}
	fmt.Printf("Created: %s\n\n", s.CreatedAt.Format("January 2, 2006 15:04"))

	for i, page := range pager.NonEmpty(pager.Paginate(s.Text())) {
		fmt.Printf("[%d] %s\n\n", i+1, page)
	}
	return nil
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n-1]) + "…"
}
