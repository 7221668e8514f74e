package db

import "time"

// Story is a persisted generated story.
type Story struct {
	ID int64 `json:"story_id"`
	// BookBasedStory is the literary source the story was seeded with, or
	// the story text itself when no source was given.
	BookBasedStory string    `json:"book_based_story"`
	StoryText      string    `json:"story_text"`
	Plot           string    `json:"plot"`
	Inspiration    string    `json:"story_telling_inspiration"`
	SeedQuote      string    `json:"seed_quote,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// CreateStoryParams are the caller-supplied fields of a new story.
type CreateStoryParams struct {
	BookBasedStory string
	StoryText      string
	Plot           string
	Inspiration    string
	SeedQuote      string
}

// Text returns the full story text for pagination.
func (s *Story) Text() string {
	if s.StoryText != "" {
		return s.StoryText
	}
	return s.BookBasedStory
}

// storyRow mirrors the stories table. Timestamps are stored as RFC 3339 text.
type storyRow struct {
	ID             int64  `db:"story_id"`
	BookBasedStory string `db:"book_based_story"`
	StoryText      string `db:"story_text"`
	Plot           string `db:"plot"`
	Inspiration    string `db:"story_telling_inspiration"`
	SeedQuote      string `db:"seed_quote"`
	CreatedAt      string `db:"created_at"`
	UpdatedAt      string `db:"updated_at"`
}

func (r storyRow) toStory() *Story {
	return &Story{
		ID:             r.ID,
		BookBasedStory: r.BookBasedStory,
		StoryText:      r.StoryText,
		Plot:           r.Plot,
		Inspiration:    r.Inspiration,
		SeedQuote:      r.SeedQuote,
		CreatedAt:      parseTime(r.CreatedAt),
		UpdatedAt:      parseTime(r.UpdatedAt),
	}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
