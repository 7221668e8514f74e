package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// DBTX is satisfied by both *sqlx.DB and *sqlx.Tx.
type DBTX interface {
	sqlx.ExtContext
}

// Queries runs the story queries against a connection or transaction.
type Queries struct {
	db DBTX
}

// New creates Queries bound to db.
func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// WithTx returns Queries bound to tx.
func (q *Queries) WithTx(tx *sqlx.Tx) *Queries {
	return &Queries{db: tx}
}

const nextSequence = `UPDATE sequences SET value = value + 1 WHERE name = ? RETURNING value`

// NextSequence atomically increments and returns the named counter.
func (q *Queries) NextSequence(ctx context.Context, name string) (int64, error) {
	var v int64
	if err := sqlx.GetContext(ctx, q.db, &v, nextSequence, name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("sequence %q: %w", name, ErrNotFound)
		}
		return 0, err
	}
	return v, nil
}

const insertStory = `
INSERT INTO stories (
    story_id, book_based_story, story_text, plot,
    story_telling_inspiration, seed_quote, created_at, updated_at
) VALUES (
    :story_id, :book_based_story, :story_text, :plot,
    :story_telling_inspiration, :seed_quote, :created_at, :updated_at
)`

// InsertStory writes a story row with an already assigned id.
func (q *Queries) InsertStory(ctx context.Context, id int64, arg CreateStoryParams, now time.Time) (*Story, error) {
	row := storyRow{
		ID:             id,
		BookBasedStory: arg.BookBasedStory,
		StoryText:      arg.StoryText,
		Plot:           arg.Plot,
		Inspiration:    arg.Inspiration,
		SeedQuote:      arg.SeedQuote,
		CreatedAt:      formatTime(now),
		UpdatedAt:      formatTime(now),
	}
	if _, err := sqlx.NamedExecContext(ctx, q.db, insertStory, row); err != nil {
		return nil, err
	}
	return row.toStory(), nil
}

const listPlots = `SELECT plot FROM stories ORDER BY story_id DESC`

// ListPlots returns every stored plot, newest first.
func (q *Queries) ListPlots(ctx context.Context) ([]string, error) {
	plots := []string{}
	if err := sqlx.SelectContext(ctx, q.db, &plots, listPlots); err != nil {
		return nil, err
	}
	return plots, nil
}

const listStories = `
SELECT story_id, book_based_story, story_text, plot,
       story_telling_inspiration, seed_quote, created_at, updated_at
FROM stories
ORDER BY story_id DESC`

// ListStories returns every stored story, newest first.
func (q *Queries) ListStories(ctx context.Context) ([]*Story, error) {
	var rows []storyRow
	if err := sqlx.SelectContext(ctx, q.db, &rows, listStories); err != nil {
		return nil, err
	}
	stories := make([]*Story, 0, len(rows))
	for _, r := range rows {
		stories = append(stories, r.toStory())
	}
	return stories, nil
}

const getStory = `
SELECT story_id, book_based_story, story_text, plot,
       story_telling_inspiration, seed_quote, created_at, updated_at
FROM stories
WHERE story_id = ?`

// GetStory returns the story with the given id or ErrNotFound.
func (q *Queries) GetStory(ctx context.Context, id int64) (*Story, error) {
	var r storyRow
	if err := sqlx.GetContext(ctx, q.db, &r, getStory, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return r.toStory(), nil
}

const countStories = `SELECT COUNT(*) FROM stories`

// CountStories returns the number of stored stories.
func (q *Queries) CountStories(ctx context.Context) (int64, error) {
	var n int64
	err := sqlx.GetContext(ctx, q.db, &n, countStories)
	return n, err
}
