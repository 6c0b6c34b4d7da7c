package main

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/muesli/reflow/wordwrap"

	"github.com/knakagawa/parody-engine/pkg/chat"
)

const PlaceHolderText = "YUKARI, JUNPEI in the dorm lounge"

// uiMode tracks which screen the console is showing. The scene loop is
// input -> generating -> display, with refine looping back to generating.
type uiMode int

const (
	modeInput uiMode = iota
	modeGenerating
	modeDisplay
	modeRefine
)

// ConsoleUI is the BubbleTea model that runs the UI.
// https://github.com/charmbracelet/bubbletea
type ConsoleUI struct {
	config        *ConsoleConfig
	client        *http.Client
	sceneViewport viewport.Model
	textarea      textarea.Model
	mode          uiMode
	ready         bool
	width         int
	height        int
	err           error

	sessionID  uuid.UUID
	scene      string
	tags       []string
	cached     bool
	characters []string
	statusLine string

	// Quit confirmation state
	showQuitModal bool

	// Progress bar state
	progressTick int
}

type scenarioMsg struct {
	response *chat.ScenarioResponse
	err      error
}

type charactersMsg struct {
	characters []string
	err        error
}

type clipboardMsg struct {
	err error
}

type progressTickMsg struct{}

var (
	scenePanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(1).
			PaddingLeft(3).
			PaddingRight(0)

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")). // pink
			Bold(true)

	speakerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")). // purple
			Bold(true)

	sceneStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")) // green

	tagStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")) // teal

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")) // red

	loadingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")) // yellow

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2).
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("255"))

	modalTitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true).
			Align(lipgloss.Center)

	separatorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey
)

func NewConsoleUI(cfg *ConsoleConfig, client *http.Client) ConsoleUI {
	ta := textarea.New()
	ta.Placeholder = PlaceHolderText
	ta.Focus()
	ta.Prompt = promptStyle.Render(":: ")
	ta.CharLimit = 500
	ta.SetWidth(50)
	ta.SetHeight(3)
	ta.ShowLineNumbers = false

	vp := viewport.New(50, 20)
	vp.MouseWheelEnabled = true

	return ConsoleUI{
		config:        cfg,
		client:        client,
		textarea:      ta,
		sceneViewport: vp,
		mode:          modeInput,
	}
}

// parseScenarioInput splits "YUKARI, JUNPEI in the dorm lounge" into
// characters and setting. The last " in " wins, so character names
// containing "in" stay intact.
func parseScenarioInput(input string) ([]string, string, error) {
	idx := strings.LastIndex(strings.ToLower(input), " in ")
	if idx < 0 {
		return nil, "", fmt.Errorf("expected format: CHARACTERS in SETTING")
	}

	var characters []string
	for _, c := range strings.Split(input[:idx], ",") {
		c = strings.TrimSpace(c)
		if c != "" {
			characters = append(characters, c)
		}
	}
	setting := strings.TrimSpace(input[idx+4:])

	if len(characters) == 0 {
		return nil, "", fmt.Errorf("at least one character is required")
	}
	if setting == "" {
		return nil, "", fmt.Errorf("setting cannot be empty")
	}
	return characters, setting, nil
}

func (m ConsoleUI) Init() tea.Cmd {
	return tea.Batch(m.loadCharacters(), textarea.Blink)
}

func (m ConsoleUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.showQuitModal {
		return m.updateQuitModal(msg)
	}

	var (
		tiCmd tea.Cmd
		vpCmd tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.MouseMsg:
		m.sceneViewport, vpCmd = m.sceneViewport.Update(msg)
		return m, vpCmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		m.sceneViewport.Width = m.width - 8
		m.sceneViewport.Height = m.height - 9
		m.textarea.SetWidth(m.width - 12)
		m.ready = true
		m.writeSceneContent()

	case charactersMsg:
		if msg.err == nil {
			m.characters = msg.characters
		}

	case scenarioMsg:
		m.progressTick = 0
		if msg.err != nil {
			m.err = msg.err
			// Back to wherever the user can act on the failure.
			if m.sessionID == uuid.Nil {
				m.mode = modeInput
			} else {
				m.mode = modeDisplay
			}
			m.textarea.Focus()
			m.writeSceneContent()
			return m, textarea.Blink
		}

		m.err = nil
		if msg.response.SessionID != uuid.Nil {
			m.sessionID = msg.response.SessionID
		}
		m.scene = msg.response.Scene
		if len(msg.response.Tags) > 0 {
			m.tags = msg.response.Tags
		}
		m.cached = msg.response.Cached
		m.mode = modeDisplay
		m.statusLine = ""
		m.textarea.Blur()
		m.writeSceneContent()
		return m, nil

	case clipboardMsg:
		if msg.err != nil {
			m.statusLine = errorStyle.Render("Copy failed: " + msg.err.Error())
		} else {
			m.statusLine = loadingStyle.Render("Scene copied to clipboard")
		}
		m.writeSceneContent()
		return m, nil

	case progressTickMsg:
		if m.mode == modeGenerating {
			m.progressTick++
			m.writeSceneContent()
			return m, progressTick()
		}

	case tea.KeyMsg:
		switch m.mode {
		case modeInput, modeRefine:
			switch msg.Type {
			case tea.KeyCtrlC, tea.KeyEsc:
				if m.mode == modeRefine {
					m.mode = modeDisplay
					m.textarea.Reset()
					m.textarea.Blur()
					m.writeSceneContent()
					return m, nil
				}
				m.showQuitModal = true
				return m, nil
			case tea.KeyEnter:
				input := strings.TrimSpace(m.textarea.Value())
				if input == "" {
					return m, nil
				}
				if m.mode == modeRefine {
					m.textarea.Reset()
					m.mode = modeGenerating
					m.writeSceneContent()
					return m, tea.Batch(m.refineScene(input), progressTick())
				}

				characters, setting, err := parseScenarioInput(input)
				if err != nil {
					m.err = err
					m.writeSceneContent()
					return m, nil
				}
				m.err = nil
				m.textarea.Reset()
				m.sessionID = uuid.Nil
				m.tags = nil
				m.mode = modeGenerating
				m.writeSceneContent()
				return m, tea.Batch(m.generateScene(characters, setting), progressTick())
			}

		case modeDisplay:
			switch msg.Type {
			case tea.KeyCtrlC, tea.KeyEsc:
				m.showQuitModal = true
				return m, nil
			}
			switch msg.String() {
			case "r", "R":
				m.mode = modeRefine
				m.statusLine = ""
				m.textarea.Placeholder = "Make it sillier, add a misunderstanding..."
				m.textarea.Reset()
				m.textarea.Focus()
				m.writeSceneContent()
				return m, textarea.Blink
			case "n", "N":
				m.mode = modeInput
				m.statusLine = ""
				m.scene = ""
				m.tags = nil
				m.textarea.Placeholder = PlaceHolderText
				m.textarea.Reset()
				m.textarea.Focus()
				oldSession := m.sessionID
				m.sessionID = uuid.Nil
				m.writeSceneContent()
				return m, tea.Batch(m.endSession(oldSession), textarea.Blink)
			case "c", "C":
				return m, m.copyScene()
			case "e", "E", "q", "Q":
				m.showQuitModal = true
				return m, nil
			}

		case modeGenerating:
			if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyEsc {
				m.showQuitModal = true
				return m, nil
			}
			return m, nil
		}
	}

	m.textarea, tiCmd = m.textarea.Update(msg)
	m.sceneViewport, vpCmd = m.sceneViewport.Update(msg)

	return m, tea.Batch(tiCmd, vpCmd)
}

// formatScene colorizes "SPEAKER:" prefixes and wraps dialogue lines.
func formatScene(scene string, width int) string {
	wrapped := wordwrap.String(scene, width)
	lines := strings.Split(wrapped, "\n")
	var formatted []string

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			formatted = append(formatted, "")
			continue
		}

		if idx := strings.Index(trimmed, ":"); idx > 0 && idx <= 20 {
			speaker := trimmed[:idx]
			rest := trimmed[idx+1:]
			if len(strings.Fields(speaker)) <= 2 {
				formatted = append(formatted, speakerStyle.Render(speaker+":")+sceneStyle.Render(rest))
				continue
			}
		}

		formatted = append(formatted, sceneStyle.Render(line))
	}

	return strings.Join(formatted, "\n")
}

func (m *ConsoleUI) writeSceneContent() {
	width := m.sceneViewport.Width - 6
	if width < 20 {
		width = 20
	}

	var content strings.Builder
	content.WriteString(titleStyle.Render("PARODY ENGINE") + "\n\n")

	switch m.mode {
	case modeInput:
		content.WriteString("Describe a scenario to generate a parody scene.\n")
		content.WriteString("Format: CHARACTERS in SETTING\n\n")
		if len(m.characters) > 0 {
			content.WriteString(promptStyle.Render("Known characters: "+strings.Join(m.characters, ", ")) + "\n\n")
		}

	case modeGenerating:
		content.WriteString(loadingStyle.Render("Generating scene...") + "\n\n")
		content.WriteString(m.renderProgressBar() + "\n")

	case modeDisplay, modeRefine:
		content.WriteString(separatorStyle.Render(strings.Repeat("─", width)) + "\n\n")
		content.WriteString(formatScene(m.scene, width) + "\n\n")
		content.WriteString(separatorStyle.Render(strings.Repeat("─", width)) + "\n\n")
		if len(m.tags) > 0 {
			content.WriteString(tagStyle.Render("Tags: "+strings.Join(m.tags, " ")) + "\n")
		}
		if m.cached {
			content.WriteString(promptStyle.Render("(served from cache)") + "\n")
		}
		if m.statusLine != "" {
			content.WriteString(m.statusLine + "\n")
		}
	}

	if m.err != nil {
		content.WriteString("\n" + errorStyle.Render("Error: "+m.err.Error()) + "\n")
	}

	m.sceneViewport.SetContent(content.String())
	m.sceneViewport.GotoBottom()
}

func (m ConsoleUI) generateScene(characters []string, setting string) tea.Cmd {
	return func() tea.Msg {
		resp, err := createScenario(m.client, m.config.APIBaseURL, chat.ScenarioRequest{
			Setting:    setting,
			Characters: characters,
		})
		return scenarioMsg{resp, err}
	}
}

func (m ConsoleUI) refineScene(notes string) tea.Cmd {
	return func() tea.Msg {
		resp, err := refineScenario(m.client, m.config.APIBaseURL, m.sessionID, notes)
		return scenarioMsg{resp, err}
	}
}

func (m ConsoleUI) endSession(sessionID uuid.UUID) tea.Cmd {
	if sessionID == uuid.Nil {
		return nil
	}
	return func() tea.Msg {
		// Best effort; the server expires sessions on its own anyway.
		_ = deleteScenario(m.client, m.config.APIBaseURL, sessionID)
		return nil
	}
}

func (m ConsoleUI) copyScene() tea.Cmd {
	scene := m.scene
	return func() tea.Msg {
		return clipboardMsg{err: clipboard.WriteAll(scene)}
	}
}

func (m ConsoleUI) loadCharacters() tea.Cmd {
	return func() tea.Msg {
		characters, err := listCharacters(m.client, m.config.APIBaseURL)
		return charactersMsg{characters, err}
	}
}

func (m ConsoleUI) updateQuitModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEnter:
			return m, tea.Quit
		default:
			switch msg.String() {
			case "y", "Y":
				return m, tea.Quit
			case "n", "N":
				m.showQuitModal = false
				if m.mode == modeInput || m.mode == modeRefine {
					m.textarea.Focus()
					return m, textarea.Blink
				}
				return m, nil
			}
		}
	}

	return m, nil
}

func (m ConsoleUI) renderQuitModal() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var content strings.Builder
	content.WriteString(modalTitleStyle.Render("Exit Parody Engine?"))
	content.WriteString("\n\n")
	content.WriteString("Generated scenes are archived on the server.")
	content.WriteString("\n\n")
	content.WriteString(promptStyle.Render("Press Y to exit, N to keep going"))

	modal := modalStyle.Width(50).Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) View() string {
	if m.showQuitModal {
		return m.renderQuitModal()
	}

	if !m.ready {
		return "\n  Initializing..."
	}

	var footer string
	switch m.mode {
	case modeInput:
		footer = lipgloss.JoinVertical(lipgloss.Left,
			separatorStyle.Render(strings.Repeat("─", m.width-10)),
			m.textarea.View(),
			promptStyle.Render("Enter: generate • Ctrl+C: exit"),
		)
	case modeRefine:
		footer = lipgloss.JoinVertical(lipgloss.Left,
			separatorStyle.Render(strings.Repeat("─", m.width-10)),
			m.textarea.View(),
			promptStyle.Render("Enter: refine • Esc: back"),
		)
	case modeDisplay:
		footer = promptStyle.Render("R: refine • N: new scenario • C: copy • E: exit")
	case modeGenerating:
		footer = promptStyle.Render("Generating... • Ctrl+C: exit")
	}

	return scenePanelStyle.Width(m.width - 4).Height(m.height - 2).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			m.sceneViewport.View(),
			"",
			footer,
		),
	)
}

// renderProgressBar creates an animated progress bar for loading states
func (m ConsoleUI) renderProgressBar() string {
	usable := m.sceneViewport.Width - 6
	if usable <= 0 {
		usable = 30 // fallback before sizing
	}

	if usable > 80 {
		usable = 80
	} else if usable < 10 {
		usable = 10
	}

	const totalFrames = 40
	frame := m.progressTick % totalFrames
	filled := (frame * usable) / totalFrames

	var bar strings.Builder
	for i := 0; i < usable; i++ {
		if i < filled {
			bar.WriteString("█")
		} else if i == filled && frame%4 < 2 {
			bar.WriteString("▓") // Blinking effect at the progress point
		} else {
			bar.WriteString("░")
		}
	}
	return separatorStyle.Render(bar.String())
}

// progressTick creates a command that sends a progress tick message
func progressTick() tea.Cmd {
	return tea.Tick(time.Millisecond*200, func(time.Time) tea.Msg {
		return progressTickMsg{}
	})
}
