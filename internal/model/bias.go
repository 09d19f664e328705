package model

const (
	BiasClaude  = "claude"
	BiasOpenAI  = "openai"
	BiasNeutral = "neutral"
)

type BiasInput struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

type BiasLabel struct {
	ID   string `json:"id"`
	Bias string `json:"bias"`
}

type BiasTally struct {
	Claude  int `json:"claude"`
	OpenAI  int `json:"openai"`
	Neutral int `json:"neutral"`
}

type BiasResult struct {
	Items   []BiasLabel `json:"items"`
	Summary BiasTally   `json:"summary"`
}
