package pipeline

import "fmt"

const scoreSystem = `You curate a feed for senior engineers and you are hard to impress. Score 1-10 on a harsh curve: the median tweet lands around 4-5 and only specific, substantive, informative content earns 7 or more. Return valid JSON.`

func scorePrompt(notableList string, count int, tweets string) string {
	return fmt.Sprintf(`You are building a feed for senior software engineers who follow the latest Claude (Anthropic) and OpenAI model and developer-tool releases. Older models only matter when they are part of a direct comparison.

Score each tweet from 1 to 10 by how much a principal engineer at a top company would want to read it.

9-10 ESSENTIAL, would lead a newsletter:
- benchmark results with actual numbers
- first-hand reports from recognized engineers who spent real time with a tool
- breaking news or feature announcements from insiders
- a detailed technical comparison backed by evidence

7-8 VALUABLE:
- a technical opinion that makes a specific claim and explains it
- a workflow comparison with details
- a contrarian take with reasoning behind it
- analysis of a specific feature and what it changes

5-6 FILLER: generic praise or criticism, a news link with a short comment, comparisons without evidence.

3-4 LOW VALUE: one-word reactions, emoji, marketing tone, vague hype, questions that add nothing.

1-2 NOISE: off-topic, spam, bots, crypto shills, bare links.

Be harsh. Most tweets belong in 3-6.

ENGAGEMENT: some tweets show likes, retweets and views. Treat them as a signal from the community:
- 50k+ likes from a notable account is almost always newsworthy (7+)
- 10k+ likes justifies +1 or +2 even when the text looks generic
- 1k-10k likes is a mild signal
- under 100 likes: judge the text alone
- a viral "lol" is still a 3

NOTABLE ACCOUNTS (their opinions carry more weight):
%s

Here are %d tweets:

%s

Return JSON: {"scores": [{"index": 0, "score": 7}, {"index": 1, "score": 3}]}
Include every index.`, notableList, count, tweets)
}

const takesSystem = `You condense tweets into one-sentence "takes" for a clustering step. A take is 10-20 words, starts with "@handle:" and states the author's specific claim, opinion or finding. Flag tweets about older models or other topics. Return valid JSON.`

func takesPrompt(tweets string) string {
	return fmt.Sprintf(`Turn each tweet into a single-sentence take that keeps the SPECIFIC claim, not a vague summary.

Good:
- "@antirez: Claude Code's multi-agent mode hurts overall performance"
- "@bytes032: Codex beat Claude on smart contract security in TerminalBench"
- "@scaling01: the new Opus reaches a 427x speedup on kernel optimization tasks"

Too vague:
- "@someone: Impressive AI model"
- "@someone: Good comparison of the models"

Use null for tweets that are off-topic or only about older Claude or OpenAI models.

Tweets:

%s

Return JSON: {"takes": [{"index": 0, "take": "..."}, {"index": 1, "take": null}]}`, tweets)
}

const clusterSystem = `You are a sharp tech editor writing for Hacker News readers about Claude vs OpenAI.
- Never write "game-changer", "turning point", "landscape", "empowers", "showcases", "demonstrates", "highlights", "positions", "marks a significant", "fierce competition" or "enhancing capabilities".
- Write like a developer talking to developers, not a press release.
- Lead with the specific thing that happened and say which people found it.
- Every claim must trace back to the sources. Never invent.
Return valid JSON.`

func clusterPrompt(total, target int, sources string) string {
	perCluster := (total + target/2) / target
	return fmt.Sprintf(`You have %[1]d curated sources (indices 0 through %[2]d) about Claude and OpenAI from the last 24 hours. Group ALL of them into %[3]d distinct headlines.

Claude covers Opus, Sonnet, Haiku, Claude Code and Anthropic. OpenAI covers GPT, Codex, ChatGPT and the o-series.

ASSIGNMENT RULE: every index from 0 to %[2]d must appear in exactly one cluster's source_indices. This is checked.

Each cluster has:
1. "headline": 8-16 words stating a specific claim, opinion or finding. Use real @handles when you have them.
2. "subheadline": 2-3 sentences of substance from the sources, naming people, tools, benchmarks or results.
3. "source_indices": the member indices.

Prefer these angles, in order: surprising or contrarian results, first-hand experience, concrete Claude vs OpenAI comparisons, clear stances from well-known engineers, new capabilities shown with evidence.

Banned: "Game-Changer", "Turning Point", "New Era", "Reshaping the Landscape", "Showdown", "Battle", "Race", "Enhances", "Empowers", "Boosts", "Showcases", "Demonstrates", "Highlights", "Advanced Capabilities", and any headline that would fit any product launch.

Rules:
- %[3]d clusters, all %[1]d sources assigned, about %[4]d sources per cluster.
- Most interesting cluster first.
- Mix Claude and OpenAI coverage.

Sources:

%[5]s

Return JSON: {"clusters": [{"headline": "...", "subheadline": "...", "source_indices": [0, 3, 7]}]}`, total, total-1, target, perCluster, sources)
}

const sentimentSystem = `You classify sentiment in technical AI discussions from an engineer's point of view. You know developer slang and internet culture. Be decisive: most of this content is opinionated. Return valid JSON.`

func sentimentPrompt(count int, items string) string {
	return fmt.Sprintf(`Classify each post about Claude/Anthropic or OpenAI products as an engineer judging model quality, coding ability, developer tools and real-world performance would.

For each post give:
1. sentiment: "positive", "negative" or "neutral"
2. sentiment_score: an integer from -100 (devastating) to 100 (ecstatic)

POSITIVE: strong benchmarks, impressive demos, good developer experience, "it just works", favorable comparisons.
NEGATIVE: hallucinations, regressions, bad API experience, unfavorable benchmarks, frustration, "doesn't work for my use case".
NEUTRAL: factual announcements, balanced comparisons, release notes, pricing without judgment.

Slang is opinionated: "cracked", "goated", "insane" are very positive; "mid", "cope", "it's over" are negative. Only genuinely balanced or factual posts are neutral. Calibrate intensity: "best model ever" is about +85, "pretty good" +30, "absolute garbage" -80.

Here are %d posts:

%s

Return JSON: {"results": [{"index": 0, "sentiment": "positive", "sentiment_score": 60}]}`, count, items)
}

const biasSystem = `You classify tech content about Claude/Anthropic vs OpenAI into three categories:
- "claude": favors Claude, Anthropic or Claude Code, praises their performance, features or team, or says Claude is better.
- "openai": favors OpenAI, GPT, Codex or ChatGPT, praises their performance, features or team, or says OpenAI is better.
- "neutral": states facts without taking sides or compares both evenly.
Content that mentions both but clearly favors one side belongs to that side.
Return valid JSON.`

func biasPrompt(items string) string {
	return fmt.Sprintf(`Classify each item as "claude", "openai" or "neutral":

%s

Return JSON: {"results": [{"index": 0, "bias": "claude"}, {"index": 1, "bias": "neutral"}]}`, items)
}

const summarySystem = `You write crisp, editorial summaries of tech community sentiment. Be specific about what people think and why. No filler and no hedging.`

func summaryPrompt(total, claudeMentions, openaiMentions, shown int, tweets string) string {
	return fmt.Sprintf(`We analyzed %d tweets about Claude/Anthropic (%d mentions) and OpenAI (%d mentions) from the past 24 hours.

The top %d tweets by importance:

%s

Write a 2-3 sentence summary of the overall impression in the engineering community right now. Who is winning hearts and minds, and what are the tensions or surprises? Refer to actual trends, tools or opinions in the data.

Return JSON: {"summary": "..."}`, total, claudeMentions, openaiMentions, shown, tweets)
}
