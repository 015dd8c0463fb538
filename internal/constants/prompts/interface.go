package prompts

import (
	"fmt"
	"os"
	"strings"

	"github.com/xpanvictor/interm/pkg/assistant/adapters"
)

type PromptDefinition struct {
	Content string
	Version float32
}

type SYS_PROMPT struct {
	Intent         string
	CurrentVersion float32
	Items          map[float32]PromptDefinition // version-content
}

func (sp *SYS_PROMPT) GetVersion(version float32) (PromptDefinition, bool) {
	i, ok := sp.Items[version]
	return i, ok
}

func (sp *SYS_PROMPT) GetCurrentPrompt() PromptDefinition {
	return sp.Items[sp.CurrentVersion]
}

// Text is the current prompt content.
func (sp *SYS_PROMPT) Text() string {
	return sp.GetCurrentPrompt().Content
}

// Format fills the current prompt's verbs with args.
func (sp *SYS_PROMPT) Format(args ...any) string {
	return fmt.Sprintf(sp.Text(), args...)
}

func (pd PromptDefinition) ToMessage() adapters.ContractMessage {
	return adapters.ContractMessage{
		Role:    adapters.SYSTEM,
		Content: pd.Content,
	}
}

// ContextHeader renders a context blob for a system instruction. Empty
// blobs render nothing.
func ContextHeader(blob string) string {
	if blob == "" {
		return ""
	}
	return "### Context Information:\n" + blob + "\n\n"
}

// LoadBasePrompt reads the interview system prompt from path, falling back
// to the built-in one when the file is missing or empty.
func LoadBasePrompt(path string) string {
	if path != "" {
		if b, err := os.ReadFile(path); err == nil && strings.TrimSpace(string(b)) != "" {
			return string(b)
		}
	}
	return INTERVIEW_PROMPT.Text()
}
