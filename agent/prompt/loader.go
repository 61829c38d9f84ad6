package prompt

import (
	_ "embed"
	"strings"

	"github.com/cloudwego/eino/schema"
)

var (
	//go:embed template/system.txt
	systemRaw string
)

// PromptSet holds loaded prompt content.
type PromptSet struct {
	System string
}

// LoadPromptSet returns a PromptSet with trimmed prompt strings.
func LoadPromptSet() PromptSet {
	return PromptSet{
		System: strings.TrimSpace(systemRaw),
	}
}

// SeedHistory starts a conversation with the system instruction.
func SeedHistory() []*schema.Message {
	return []*schema.Message{schema.SystemMessage(LoadPromptSet().System)}
}
