// Package catalog holds the seed material random stories are drawn from.
package catalog

import (
	"fmt"
	"math/rand/v2"
	"os"

	"gopkg.in/yaml.v3"
)

// Catalog lists seed quotes, literary sources and stylistic inspirations.
type Catalog struct {
	Quotes       []string `yaml:"quotes" json:"quotes"`
	Books        []string `yaml:"books" json:"books"`
	Inspirations []string `yaml:"inspirations" json:"inspirations"`
}

// Seed is one random draw from the catalog.
type Seed struct {
	Quote       string `json:"quote"`
	Book        string `json:"book"`
	Inspiration string `json:"inspiration"`
}

// Default returns the built-in catalog.
func Default() *Catalog {
	return &Catalog{
		Quotes: []string{
			"Порой думаешь, что всё хорошо, — а уже кто-то роет тебе могилу",
			"Шрамы имеют власть над людьми, они напоминают нам, что прошлое реально",
			"Ненормальная реакция на нестандартную ситуацию — это нормально",
			"Мясо горько от того, что оно мертво",
			"Психопаты не безумны. Они прекрасно знают, что делают и какие от этого будут последствия",
			"Мне не интересно понимать овец. Только есть их",
			"Знаете, кого вы напоминаете мне в этих дешевых туфлях и с дорогой сумкой? Обыкновенную деревенщину.",
		},
		Books: []string{
			"Red Dragon (1981)",
			"The Silence of the Lambs (1988)",
			"Hannibal (1999)",
			"Hannibal: The Rising",
		},
		Inspirations: []string{"Thomas Harris"},
	}
}

// Load reads a YAML catalog. Lists missing from the file keep their
// built-in values. An empty path returns Default.
func Load(path string) (*Catalog, error) {
	c := Default()
	if path == "" {
		return c, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	var file Catalog
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}

	if len(file.Quotes) > 0 {
		c.Quotes = file.Quotes
	}
	if len(file.Books) > 0 {
		c.Books = file.Books
	}
	if len(file.Inspirations) > 0 {
		c.Inspirations = file.Inspirations
	}
	return c, nil
}

// Pick draws a quote, a book and an inspiration independently.
func (c *Catalog) Pick(rng *rand.Rand) Seed {
	return Seed{
		Quote:       pick(rng, c.Quotes),
		Book:        pick(rng, c.Books),
		Inspiration: pick(rng, c.Inspirations),
	}
}

func pick(rng *rand.Rand, items []string) string {
	if len(items) == 0 {
		return ""
	}
	if rng == nil {
		return items[rand.IntN(len(items))]
	}
	return items[rng.IntN(len(items))]
}
