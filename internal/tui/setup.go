// ABOUTME: Interactive TUI wizard for connecting a FutureFeed session.
// ABOUTME: Walks a table of input fields (API URL, cookie name, cookie value) and validates against /api/user/myInfo.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/2389-research/futurefeed/internal/config"
	"github.com/2389-research/futurefeed/internal/models"
)

// DefaultAPIURL is the default FutureFeed backend.
const DefaultAPIURL = "http://localhost:8080"

// Step is the wizard position. Input steps index into fields.
type Step int

const (
	StepAPIURL Step = iota
	StepCookieName
	StepSession
	StepValidating
	StepDone
	StepFailed
)

// field describes one input step.
type field struct {
	title       string
	label       string
	placeholder string
	fallback    string // applied when Enter is pressed on an empty input; empty means required
	secret      bool
}

var fields = [3]field{
	{title: "API URL", label: "API URL", placeholder: DefaultAPIURL, fallback: DefaultAPIURL},
	{title: "Session Cookie Name", label: "Cookie", placeholder: config.DefaultCookieName, fallback: config.DefaultCookieName},
	{title: "Session Cookie Value", label: "Session", placeholder: "paste the cookie value from your browser", secret: true},
}

type validationResultMsg struct {
	user *models.User
	err  error
}

// ValidateFn checks a session and returns the account it belongs to.
type ValidateFn func(ctx context.Context, apiURL, cookieName, session string) (*models.User, error)

// inflight holds the cancel func of the running validation. Shared by pointer
// because tea.Model methods take value receivers.
type inflight struct {
	cancel context.CancelFunc
}

func (f *inflight) stop() {
	if f.cancel != nil {
		f.cancel()
		f.cancel = nil
	}
}

// SetupModel is the bubbletea model for the setup wizard.
type SetupModel struct {
	step          Step
	inputs        [3]textinput.Model
	spinner       spinner.Model
	validateFn    ValidateFn
	running       *inflight
	user          *models.User
	validationErr error
	quitting      bool
}

var (
	brandStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF6B6B"))
	headStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#4ECDC4"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#666666"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#2ECC71"))
	failStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4444"))
)

// NewSetupModel builds the wizard pre-filled with the current config values.
func NewSetupModel(apiURL, cookieName, session string) SetupModel {
	var inputs [3]textinput.Model
	for i, value := range []string{apiURL, cookieName, session} {
		in := textinput.New()
		in.Placeholder = fields[i].placeholder
		in.Width = 50
		if fields[i].secret {
			in.EchoMode = textinput.EchoPassword
		}
		in.SetValue(value)
		inputs[i] = in
	}
	inputs[0].Focus()

	s := spinner.New()
	s.Spinner = spinner.MiniDot

	return SetupModel{
		step:       StepAPIURL,
		inputs:     inputs,
		spinner:    s,
		validateFn: ValidateConnection,
		running:    &inflight{},
	}
}

// Init implements tea.Model.
func (m SetupModel) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m SetupModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyEscape {
			return m.abort()
		}
		if m.step <= StepSession {
			if msg.Type == tea.KeyEnter {
				return m.submit()
			}
			var cmd tea.Cmd
			m.inputs[m.step], cmd = m.inputs[m.step].Update(msg)
			return m, cmd
		}
		if m.step == StepFailed && msg.Type == tea.KeyRunes {
			return m.choose(msg.Runes[0])
		}

	case validationResultMsg:
		m.running.cancel = nil
		if msg.err != nil {
			m.validationErr = msg.err
			m.step = StepFailed
			return m, nil
		}
		m.user = msg.user
		m.step = StepDone
		return m, tea.Quit

	case spinner.TickMsg:
		if m.step == StepValidating {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
	}
	return m, nil
}

func (m SetupModel) abort() (tea.Model, tea.Cmd) {
	m.quitting = true
	m.running.stop()
	return m, tea.Quit
}

// submit applies the field default or normalisation, then advances.
func (m SetupModel) submit() (tea.Model, tea.Cmd) {
	f := fields[m.step]
	in := &m.inputs[m.step]
	val := strings.TrimSpace(in.Value())
	switch {
	case val == "" && f.fallback == "":
		return m, nil
	case val == "":
		val = f.fallback
	case m.step == StepAPIURL:
		val = NormalizeURL(val)
	}
	in.SetValue(val)
	in.Blur()

	m.step++
	if m.step == StepValidating {
		return m, m.validate()
	}
	m.inputs[m.step].Focus()
	return m, textinput.Blink
}

func (m SetupModel) choose(r rune) (tea.Model, tea.Cmd) {
	switch r {
	case 'r':
		m.step = StepValidating
		m.validationErr = nil
		return m, m.validate()
	case 's':
		m.step = StepDone
		return m, tea.Quit
	case 'q':
		m.quitting = true
		return m, tea.Quit
	}
	return m, nil
}

// validate starts the async check alongside the spinner. The check is the
// first command in the batch.
func (m SetupModel) validate() tea.Cmd {
	ctx, cancel := context.WithCancel(context.Background())
	m.running.cancel = cancel
	apiURL, cookieName, session := m.Result()
	check := m.validateFn
	return tea.Batch(func() tea.Msg {
		user, err := check(ctx, apiURL, cookieName, session)
		return validationResultMsg{user: user, err: err}
	}, m.spinner.Tick)
}

// View implements tea.Model.
func (m SetupModel) View() string {
	var b strings.Builder
	b.WriteString("\n" + brandStyle.Render("  FUTUREFEED") + headStyle.Render("  connect a session") + "\n\n")

	switch m.step {
	case StepAPIURL, StepCookieName, StepSession:
		m.writeEntered(&b, int(m.step))
		f := fields[m.step]
		b.WriteString(headStyle.Render(fmt.Sprintf("Step %d of %d: %s", m.step+1, len(fields), f.title)) + "\n")
		if f.fallback != "" {
			b.WriteString(dimStyle.Render("(press Enter for default)") + "\n")
		}
		b.WriteString(m.inputs[m.step].View() + "\n")

	case StepValidating:
		m.writeEntered(&b, len(fields))
		b.WriteString(m.spinner.View() + " Validating session...\n")

	case StepDone:
		if m.user != nil {
			b.WriteString(okStyle.Render(fmt.Sprintf("✓ Connected as %s (%s)", m.user.DisplayName, models.Handle(m.user.Username))))
		} else {
			b.WriteString(okStyle.Render("✓ Saved"))
		}
		b.WriteString("\n")

	case StepFailed:
		reason := "unknown error"
		if m.validationErr != nil {
			reason = m.validationErr.Error()
		}
		b.WriteString(failStyle.Render("✗ Validation failed: "+reason) + "\n\n")
		b.WriteString(dimStyle.Render("[r]etry  [s]ave anyway  [q]uit") + "\n")
	}
	return b.String()
}

// writeEntered lists the values of the first n fields, masking secrets.
func (m SetupModel) writeEntered(b *strings.Builder, n int) {
	for i := 0; i < n; i++ {
		val := m.inputs[i].Value()
		if fields[i].secret {
			val = strings.Repeat("*", len(val))
		}
		fmt.Fprintf(b, "  %-8s %s\n", fields[i].label+":", val)
	}
	if n > 0 {
		b.WriteString("\n")
	}
}

// Result returns the entered values.
func (m SetupModel) Result() (apiURL, cookieName, session string) {
	return m.inputs[0].Value(), m.inputs[1].Value(), m.inputs[2].Value()
}

// User returns the account the session validated as, or nil.
func (m SetupModel) User() *models.User {
	return m.user
}

// ShouldSave reports whether the wizard finished by validating or by "save
// anyway" without being cancelled.
func (m SetupModel) ShouldSave() bool {
	return m.step == StepDone && !m.quitting
}
