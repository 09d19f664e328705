package notable

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed accounts.yaml
var accountsYAML []byte

type Account struct {
	Handle string `yaml:"handle"`
	Name   string `yaml:"name"`
	Tier   int    `yaml:"tier"`
}

// Boost is the importance bonus for the account's tier.
func (a Account) Boost() int {
	switch a.Tier {
	case 1:
		return 4
	case 2:
		return 3
	case 3:
		return 2
	}
	return 0
}

type Table struct {
	accounts []Account
	byHandle map[string]Account
}

// Default parses the embedded account list.
func Default() (*Table, error) {
	return Parse(accountsYAML)
}

func Parse(data []byte) (*Table, error) {
	var doc struct {
		Accounts []Account `yaml:"accounts"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse notable accounts: %w", err)
	}
	return New(doc.Accounts)
}

func New(accounts []Account) (*Table, error) {
	t := &Table{byHandle: make(map[string]Account, len(accounts))}
	for _, a := range accounts {
		if a.Tier < 1 || a.Tier > 3 {
			return nil, fmt.Errorf("notable account %q: invalid tier %d", a.Handle, a.Tier)
		}
		key := normalize(a.Handle)
		if key == "" {
			continue
		}
		t.accounts = append(t.accounts, a)
		t.byHandle[key] = a
	}
	return t, nil
}

// Lookup matches handles case-insensitively, with or without a leading @.
func (t *Table) Lookup(handle string) (Account, bool) {
	if t == nil {
		return Account{}, false
	}
	a, ok := t.byHandle[normalize(handle)]
	return a, ok
}

// BoostFor returns the boost for handle, or 0 when it is not notable.
func (t *Table) BoostFor(handle string) int {
	a, ok := t.Lookup(handle)
	if !ok {
		return 0
	}
	return a.Boost()
}

func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.accounts)
}

// PromptList renders tier 1 and tier 2 accounts for scoring prompts.
func (t *Table) PromptList() string {
	if t == nil {
		return ""
	}
	var tier1, tier2 []string
	for _, a := range t.accounts {
		entry := fmt.Sprintf("@%s (%s)", a.Handle, a.Name)
		switch a.Tier {
		case 1:
			tier1 = append(tier1, entry)
		case 2:
			tier2 = append(tier2, entry)
		}
	}
	return fmt.Sprintf("TIER 1 (major figures): %s\nTIER 2 (well-known): %s",
		strings.Join(tier1, ", "), strings.Join(tier2, ", "))
}

func normalize(handle string) string {
	return strings.ToLower(strings.TrimLeft(strings.TrimSpace(handle), "@"))
}
