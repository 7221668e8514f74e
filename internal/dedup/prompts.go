package dedup

// Affirmative is the answer that marks two plots as the same story.
const Affirmative = "yes"

// ComparisonSystemPrompt frames the pairwise plot judgement.
const ComparisonSystemPrompt = `You compare plot summaries of short stories. Two summaries describe the same story when they share the central situation, the characters' roles and the outcome, even if the wording, names or setting details differ. Different events involving the same characters are different stories.

Answer with exactly one lowercase word: yes or no.`

// ComparisonPrompt is the user prompt template for comparing two plots.
const ComparisonPrompt = `Do these two one-sentence summaries describe essentially the same story?

SUMMARY A:
%s

SUMMARY B:
%s

Answer "yes" or "no" only.`
