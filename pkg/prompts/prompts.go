package prompts

import (
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/knakagawa/parody-engine/pkg/chat"
)

// SystemPrompt is the static persona of the generator.
const SystemPrompt = `You are an expert parody writer creating funny dialogue scenes. You stay true to each character's established personality while taking full parody freedoms.`

// scenePromptTemplate is the user message skeleton. Slots, in order:
// scenario input, vibes, inspiration lines, character profiles, story
// context, example scene.
const scenePromptTemplate = `Create a highly detailed and elaborate parody scene based on this scenario: %s

Style Suggestions:
Character vibes: %s
%s
Tone: Satirical, absurdist, with dark or dry humor
Humor Style: Irreverent, exaggerated, and often politically incorrect

Instructions for Extended Lines:
- Dialogue Lines: Each dialogue line should be comprehensive, including detailed expressions, emotions, and actions. Avoid brevity; flesh out character personalities through their speech.
- Scene Descriptions: Elaborate on the setting and character movements. Use vivid imagery.
- Character Actions: Incorporate detailed actions and reactions that reflect the characters' emotions and intentions.

Comedic Techniques:
- Exaggeration, rule of three, misdirection
- Ironic contrasts, incongruity
- Unexpected juxtaposition, deadpan delivery
- Sarcasm and verbal irony, callbacks
- Pun and wordplay
- Over/understatement
- Meta-humor, parody and allusion
- Absurd logic

Each scene should escalate tension and conclude with a comedic reversal or punchline. Each line should be detailed, but not overly verbose.

Character Backgrounds:
%s

Story Context:
%s

Guidelines:
1. Incorporate character quirks naturally
2. Use physical and situational comedy when appropriate
3. Maintain established personalities with parody freedoms
4. Build comedic tension: setup, escalating absurdity, punchline
5. Reference real-world or source-material elements for meta-humor

Scene Flow:
1. Setup: Introduce location, characters, minor conflict
2. Escalation: Characters make increasingly absurd decisions
3. Climax: Tension peaks with chaos or comedic reveal
4. Resolution: Surprising twist or comedic payoff
%s
Format output as:
[CHARACTER]: [Dialogue]
END SCENE`

// refinementSystemTemplate folds the previous scene and notes into the
// system message, keeping the original scenario as the user message.
const refinementSystemTemplate = `%s
Here is the previous scene:

%s

Please refine this scene based on these notes: %s
Keep the same characters and basic scenario but adjust according to the refinement notes.`

// StyleExamples are worked scene-structure examples appended to the prompt
// when examples are enabled. One is chosen deterministically per request.
var StyleExamples = []string{
	`YUKARI: Wait. You walked past all of us without saying a single word?!
MAKOTO: I'm tired. Check my status.
MITSURU: That is not an acceptable greeting and you know it. Sit down.
MAKOTO: I needed to max out your social links so I could fuse stronger personas.
YUKARI: We are NOT in Tartarus, you dumbass! What are you even talking about?!
MAKOTO: [PAUSE]
MITSURU: ...I don't buy a word of this, but let's hear him out one more time.
END SCENE`,
	`AIGIS: [Monotone] Incoming call. Analyzing caller... Initiating conversation protocol.
SHUJI: Ah, just the android I wanted to speak to! Could you come to the camera room? Alone...
AIGIS: I must remind you not to refer to me as an "android." I am a Highly Advanced Anti-Shadow Suppression Weapon.
SHUJI: My apologies! I promise to refrain from any further... micro-chip-aggressions.
AIGIS: Your compliance has been noted. Proceeding to the camera room as requested.
END SCENE`,
}

// ExampleFor picks a style example deterministically from the request seed,
// so identical inputs produce identical prompts.
func ExampleFor(seed string) string {
	if len(StyleExamples) == 0 {
		return ""
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(seed))
	return StyleExamples[int(h.Sum32())%len(StyleExamples)]
}

// RefinementMessages builds the message pair for a scene revision.
func RefinementMessages(originalInput, previousScene, notes string) []chat.ChatMessage {
	return []chat.ChatMessage{
		{
			Role:    chat.ChatRoleSystem,
			Content: fmt.Sprintf(refinementSystemTemplate, SystemPrompt, previousScene, notes),
		},
		{
			Role:    chat.ChatRoleUser,
			Content: originalInput,
		},
	}
}

// CleanScene normalizes generated output. Everything after the END SCENE
// marker is dropped, then the text is trimmed back to its last complete
// sentence so a token-limited cutoff never leaves a dangling fragment.
func CleanScene(text string) string {
	if idx := strings.Index(text, "END SCENE"); idx >= 0 {
		text = text[:idx]
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return text
	}

	lastPunct := -1
	for _, p := range []string{".", "!", "?"} {
		if idx := strings.LastIndex(text, p); idx > lastPunct {
			lastPunct = idx
		}
	}
	if lastPunct >= 0 {
		return text[:lastPunct+1]
	}

	lines := strings.Split(text, "\n")
	for len(lines) > 0 {
		last := strings.TrimSpace(lines[len(lines)-1])
		if strings.HasSuffix(last, ".") || strings.HasSuffix(last, "!") || strings.HasSuffix(last, "?") {
			break
		}
		lines = lines[:len(lines)-1]
	}
	return strings.Join(lines, "\n")
}
