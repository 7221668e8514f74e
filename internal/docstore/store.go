// Package docstore persists stories in MongoDB.
package docstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/avast/retry-go/v4"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/abdulachik/storyteller/internal/db"
)

const (
	storiesCollection  = "stories"
	countersCollection = "counters"
	storyIDCounter     = "story_id"
)

// Config holds MongoDB connection settings.
type Config struct {
	URI      string
	Database string
	// Attempts is the number of pings tried before Connect gives up.
	Attempts  int
	RetryWait time.Duration
}

// Store keeps stories in a MongoDB database.
type Store struct {
	client   *mongo.Client
	stories  *mongo.Collection
	counters *mongo.Collection
}

type storyDoc struct {
	ObjectID       primitive.ObjectID `bson:"_id,omitempty"`
	StoryID        int64              `bson:"story_id"`
	BookBasedStory string             `bson:"book_based_story"`
	StoryText      string             `bson:"story_text"`
	Plot           string             `bson:"plot"`
	Inspiration    string             `bson:"story_telling_inspiration"`
	SeedQuote      string             `bson:"seed_quote,omitempty"`
	CreatedAt      time.Time          `bson:"createdAt"`
	UpdatedAt      time.Time          `bson:"updatedAt"`
}

func (d storyDoc) toStory() *db.Story {
	return &db.Story{
		ID:             d.StoryID,
		BookBasedStory: d.BookBasedStory,
		StoryText:      d.StoryText,
		Plot:           d.Plot,
		Inspiration:    d.Inspiration,
		SeedQuote:      d.SeedQuote,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}
}

// Connect dials MongoDB and waits until the server answers a ping.
func Connect(ctx context.Context, cfg Config) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}

	attempts := cfg.Attempts
	if attempts < 1 {
		attempts = 1
	}
	err = retry.Do(
		func() error {
			return client.Ping(ctx, readpref.Primary())
		},
		retry.Context(ctx),
		retry.Attempts(uint(attempts)),
		retry.Delay(cfg.RetryWait),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			slog.Warn("mongodb not ready", "attempt", n+1, "error", err)
		}),
	)
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	s := New(client.Database(cfg.Database))
	s.client = client
	return s, nil
}

// New wraps an existing database handle.
func New(database *mongo.Database) *Store {
	return &Store{
		stories:  database.Collection(storiesCollection),
		counters: database.Collection(countersCollection),
	}
}

// EnsureIndexes creates the unique story_id index.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.stories.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "story_id", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("story_id_unique"),
	})
	if err != nil {
		return fmt.Errorf("create story_id index: %w", err)
	}
	return nil
}

// Migrate prepares the collections. It mirrors the SQLite store's schema step.
func (s *Store) Migrate(ctx context.Context) error {
	return s.EnsureIndexes(ctx)
}

// nextStoryID bumps the counter document atomically. A failed insert after
// this call leaves a gap in the sequence but never reuses an id.
func (s *Store) nextStoryID(ctx context.Context) (int64, error) {
	var counter struct {
		Seq int64 `bson:"seq"`
	}
	err := s.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": storyIDCounter},
		bson.M{"$inc": bson.M{"seq": 1}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&counter)
	if err != nil {
		return 0, err
	}
	return counter.Seq, nil
}

// CreateStory assigns the next story_id and inserts the story.
func (s *Store) CreateStory(ctx context.Context, arg db.CreateStoryParams) (*db.Story, error) {
	id, err := s.nextStoryID(ctx)
	if err != nil {
		return nil, fmt.Errorf("next story id: %w", err)
	}

	now := time.Now().UTC().Truncate(time.Millisecond)
	doc := storyDoc{
		StoryID:        id,
		BookBasedStory: arg.BookBasedStory,
		StoryText:      arg.StoryText,
		Plot:           arg.Plot,
		Inspiration:    arg.Inspiration,
		SeedQuote:      arg.SeedQuote,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if _, err := s.stories.InsertOne(ctx, doc); err != nil {
		return nil, fmt.Errorf("insert story: %w", err)
	}
	return doc.toStory(), nil
}

// ListPlots returns every stored plot, newest first.
func (s *Store) ListPlots(ctx context.Context) ([]string, error) {
	opts := options.Find().
		SetProjection(bson.M{"plot": 1, "_id": 0}).
		SetSort(bson.D{{Key: "story_id", Value: -1}})
	cur, err := s.stories.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("find plots: %w", err)
	}
	defer cur.Close(ctx)

	plots := []string{}
	for cur.Next(ctx) {
		var doc struct {
			Plot string `bson:"plot"`
		}
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode plot: %w", err)
		}
		plots = append(plots, doc.Plot)
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("iterate plots: %w", err)
	}
	return plots, nil
}

// ListStories returns every stored story, newest first.
func (s *Store) ListStories(ctx context.Context) ([]*db.Story, error) {
	opts := options.Find().SetSort(bson.D{{Key: "story_id", Value: -1}})
	cur, err := s.stories.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("find stories: %w", err)
	}

	var docs []storyDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode stories: %w", err)
	}

	stories := make([]*db.Story, 0, len(docs))
	for _, d := range docs {
		stories = append(stories, d.toStory())
	}
	return stories, nil
}

// GetStory returns the story with the given id or db.ErrNotFound.
func (s *Store) GetStory(ctx context.Context, id int64) (*db.Story, error) {
	var doc storyDoc
	err := s.stories.FindOne(ctx, bson.M{"story_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, db.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find story %d: %w", id, err)
	}
	return doc.toStory(), nil
}

// CountStories returns the number of stored stories.
func (s *Store) CountStories(ctx context.Context) (int64, error) {
	return s.stories.CountDocuments(ctx, bson.M{})
}

// Ping checks the server is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.stories.Database().Client().Ping(ctx, readpref.Primary())
}

// Close disconnects the client if Connect created it.
func (s *Store) Close() error {
	if s.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}
