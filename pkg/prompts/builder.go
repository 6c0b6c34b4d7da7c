package prompts

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/knakagawa/parody-engine/pkg/chat"
	"github.com/knakagawa/parody-engine/pkg/session"
)

// BuildError reports invalid inputs to prompt assembly. It is recoverable;
// the caller should re-prompt for valid input.
type BuildError struct {
	Reason string
}

func (e *BuildError) Error() string {
	return "cannot build prompt: " + e.Reason
}

// Payload is the system/user message pair sent to the LLM. It is built
// fresh per request and never persisted.
type Payload struct {
	System string
	User   string
}

// Messages returns the payload in provider wire order.
func (p Payload) Messages() []chat.ChatMessage {
	return []chat.ChatMessage{
		{Role: chat.ChatRoleSystem, Content: p.System},
		{Role: chat.ChatRoleUser, Content: p.User},
	}
}

var titleCaser = cases.Title(language.English)

// Builder constructs the generation prompt using a fluent interface. It
// separates prompt assembly from session state management.
type Builder struct {
	setting       string
	characters    []string
	contextLines  []string
	tags          []string
	characterTags map[string][]string
	vibes         []string
	cfg           session.GenerationConfig
}

// New creates a prompt builder with default generation settings.
func New() *Builder {
	return &Builder{
		cfg:           session.DefaultConfig(),
		characterTags: make(map[string][]string),
	}
}

// WithSetting sets the scene location or situation.
func (b *Builder) WithSetting(setting string) *Builder {
	b.setting = strings.TrimSpace(setting)
	return b
}

// WithCharacters sets the characters appearing in the scene.
func (b *Builder) WithCharacters(characters []string) *Builder {
	b.characters = characters
	return b
}

// WithContext sets the windowed context lines, oldest-first.
func (b *Builder) WithContext(lines []string) *Builder {
	b.contextLines = lines
	return b
}

// WithTags sets the merged tag hints for the scene.
func (b *Builder) WithTags(tags []string) *Builder {
	b.tags = tags
	return b
}

// WithCharacterTags sets the per-character tags used for profile lines.
func (b *Builder) WithCharacterTags(name string, tags []string) *Builder {
	b.characterTags[strings.ToUpper(name)] = tags
	return b
}

// WithVibes sets the overall tone tags from the general bucket.
func (b *Builder) WithVibes(vibes []string) *Builder {
	b.vibes = vibes
	return b
}

// WithConfig sets the generation config controlling style constraints.
func (b *Builder) WithConfig(cfg session.GenerationConfig) *Builder {
	b.cfg = cfg
	return b
}

// Build assembles the final payload. The setting string appears verbatim in
// the user message.
func (b *Builder) Build() (Payload, error) {
	if len(b.characters) == 0 {
		return Payload{}, &BuildError{Reason: "characters list is empty"}
	}
	if b.setting == "" {
		return Payload{}, &BuildError{Reason: "setting is blank"}
	}

	scenario := fmt.Sprintf("%s in %s", strings.Join(b.characters, ", "), b.setting)

	vibes := "(none)"
	if len(b.vibes) > 0 {
		vibes = strings.Join(b.vibes, ", ")
	}

	contextText := "(No direct context found)"
	if len(b.contextLines) > 0 {
		contextText = strings.Join(b.contextLines, "\n")
	}

	example := ""
	if b.cfg.UseExamples {
		example = fmt.Sprintf("\nExample Scene Structure:\n%s\n", ExampleFor(scenario+contextText))
	}

	user := fmt.Sprintf(scenePromptTemplate,
		scenario,
		vibes,
		b.inspiration(),
		b.profiles(),
		contextText,
		example,
	)

	return Payload{System: SystemPrompt, User: user}, nil
}

// profiles renders one "Name: tags" line per character.
func (b *Builder) profiles() string {
	lines := make([]string, 0, len(b.characters))
	for _, c := range b.characters {
		tags := b.characterTags[strings.ToUpper(c)]
		if len(tags) == 0 && len(b.tags) > 0 {
			tags = b.tags
		}
		lines = append(lines, fmt.Sprintf("%s: %s", strings.ToUpper(c), strings.Join(tags, ", ")))
	}
	return strings.Join(lines, "\n")
}

// inspiration renders a per-character reference suggestion from the first
// couple of resolved tags.
func (b *Builder) inspiration() string {
	var lines []string
	for _, c := range b.characters {
		tags := b.characterTags[strings.ToUpper(c)]
		if len(tags) == 0 {
			continue
		}
		if len(tags) > 2 {
			tags = tags[:2]
		}
		lines = append(lines, fmt.Sprintf("- %s: Might reference concepts like %s",
			titleCaser.String(strings.ToLower(c)), strings.Join(tags, ", ")))
	}
	return strings.Join(lines, "\n")
}

// BuildScenePrompt is a convenience function for the common case.
func BuildScenePrompt(
	setting string,
	characters []string,
	contextLines []string,
	mergedTags []string,
	cfg session.GenerationConfig,
) (Payload, error) {
	return New().
		WithSetting(setting).
		WithCharacters(characters).
		WithContext(contextLines).
		WithTags(mergedTags).
		WithConfig(cfg).
		Build()
}
