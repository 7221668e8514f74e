package story

import (
	"fmt"
	"strings"
)

// DefaultInspiration is the persona used when the request names none.
const DefaultInspiration = "Hannibal Lecter"

// StorySystemPrompt sets the voice for story generation.
const StorySystemPrompt = `You are a master of psychological horror fiction. You write elegantly unsettling, sophisticated yet deeply menacing prose with a refined but chilling tone. You never add introductory text, titles, commentary or quotation marks around the story.`

// storyPrompt is the user prompt template for story generation.
// Arguments: inspiration, quote, word limit, language.
const storyPrompt = `You are writing a disturbing short story in the style of %s.
The story should be inspired by this quote: "%s"
Make it elegantly unsettling, sophisticated yet deeply menacing.
Keep it within %d words, maintaining a refined but chilling tone.
Do not include any introductory text or quotation marks. Just provide the raw story text.
Write in %s language. Here is the backstory: Sasha, an agent of the FBI, is secretly an admirer
of Hannibal and tries to help him in every possible way with his crimes. Outwardly sociable and
friendly, she shares Hannibal's ideas and dreams of meeting him. She leads a double life and
suffers from the fact that she can tell no one but German, because she came to him for a
psychology session. German is a serial killer hiding under the disguise of a psychologist. He
secretly kills his clients, cold but pragmatic, notices small details, is closed in himself, but
after Sasha comes to the session he falls in love with her and can't decide to kill her. He tries
in every possible way to prolong the sessions with her and begins to show that he is madly in
love with her.`

// bookSection is appended when the request carries a literary source.
const bookSection = `

Draw atmosphere and motifs from this literary source: %s`

// avoidSection introduces the list of plots already told.
const avoidSection = `

These plots have already been told. Your story must not repeat any of them:
`

// UniquenessSuffix is appended to the seed quote when a story is retried
// after being judged a duplicate.
const UniquenessSuffix = " (Create a completely unique story with a plot unlike any told before.)"

// SummarySystemPrompt frames the plot summarizer.
const SummarySystemPrompt = `You summarize short stories. Reply with exactly one sentence in English that captures the central plot: who does what to whom and how it ends. No preamble, no quotation marks.`

// summaryPrompt is the user prompt template for summarizing a story.
const summaryPrompt = `Summarize this story in one sentence:

%s`

// DefaultSummary replaces the plot when summarization fails.
const DefaultSummary = "A dark and unsettling tale."

// PromptParams are the inputs of a story prompt.
type PromptParams struct {
	Quote       string
	Book        string
	Inspiration string
	WordLimit   int
	Language    string
	Avoid       []string
}

// BuildStoryPrompt renders the generation prompt.
func BuildStoryPrompt(p PromptParams) string {
	inspiration := strings.TrimSpace(p.Inspiration)
	if inspiration == "" {
		inspiration = DefaultInspiration
	}
	wordLimit := p.WordLimit
	if wordLimit <= 0 {
		wordLimit = 200
	}
	language := p.Language
	if language == "" {
		language = "Russian"
	}

	var b strings.Builder
	fmt.Fprintf(&b, storyPrompt, inspiration, p.Quote, wordLimit, language)

	if book := strings.TrimSpace(p.Book); book != "" {
		fmt.Fprintf(&b, bookSection, book)
	}

	if len(p.Avoid) > 0 {
		b.WriteString(avoidSection)
		for _, plot := range p.Avoid {
			b.WriteString("- ")
			b.WriteString(plot)
			b.WriteString("\n")
		}
	}

	return strings.TrimSpace(b.String())
}

// BuildSummaryPrompt renders the summarization prompt.
func BuildSummaryPrompt(text string) string {
	return fmt.Sprintf(summaryPrompt, text)
}

// cleanSummary keeps the first non-empty line and strips wrapping quotes.
func cleanSummary(s string) string {
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		return strings.TrimSpace(strings.Trim(line, `"'«»`))
	}
	return ""
}
