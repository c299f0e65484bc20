// Package tui renders the onboarding wizard in a terminal.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fazosimples/botfut/internal/activation"
	"github.com/fazosimples/botfut/internal/onboarding"
)

// ErrAborted is reported when the user closes the program without finishing.
var ErrAborted = errors.New("onboarding aborted")

type field int

const (
	fieldName field = iota
	fieldSlug
)

type (
	profileSavedMsg     struct{ err error }
	workspaceCreatedMsg struct{ err error }
	finishedMsg         struct{ exit onboarding.Exit }
	confirmFailedMsg    struct{ err error }
	copiedExpiredMsg    struct{}
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	commandStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1).Border(lipgloss.RoundedBorder())
	noticeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	helpStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// Model is the bubbletea model of the onboarding wizard.
type Model struct {
	ctx        context.Context
	wizard     *onboarding.Wizard
	copier     *activation.Copier
	botContact string

	profile textinput.Model
	name    textinput.Model
	slug    textinput.Model
	focus   field

	pending bool
	exit    *onboarding.Exit
}

// New builds the model around a running wizard.
func New(ctx context.Context, wizard *onboarding.Wizard, copier *activation.Copier, botContact string) Model {
	profile := textinput.New()
	profile.Placeholder = "Seu nome"
	profile.CharLimit = 80

	name := textinput.New()
	name.Placeholder = "Pelada de Sábado"

	slug := textinput.New()
	slug.Placeholder = "pelada-de-sabado"

	m := Model{
		ctx:        ctx,
		wizard:     wizard,
		copier:     copier,
		botContact: botContact,
		profile:    profile,
		name:       name,
		slug:       slug,
	}
	m.focusStep()
	return m
}

// Exit returns where the user went once the program quits, if anywhere.
func (m Model) Exit() (onboarding.Exit, bool) {
	if m.exit == nil {
		return onboarding.Exit{}, false
	}
	return *m.exit, true
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case profileSavedMsg, workspaceCreatedMsg:
		m.pending = false
		m.focusStep()
		return m, nil
	case confirmFailedMsg:
		m.pending = false
		return m, nil
	case finishedMsg:
		exit := msg.exit
		m.exit = &exit
		return m, tea.Quit
	case copiedExpiredMsg:
		return m, nil
	}

	var cmd tea.Cmd
	switch m.wizard.Step() {
	case onboarding.StepProfile:
		m.profile, cmd = m.profile.Update(msg)
	case onboarding.StepForm:
		if m.focus == fieldName {
			m.name, cmd = m.name.Update(msg)
		} else {
			m.slug, cmd = m.slug.Update(msg)
		}
	}
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "ctrl+o":
		return m, m.signOut()
	}

	step := m.wizard.Step()
	if m.pending && step != onboarding.StepSuccess {
		return m, nil
	}

	switch step {
	case onboarding.StepProfile:
		if msg.Type == tea.KeyEnter {
			if err := m.wizard.SetProfileName(m.profile.Value()); err != nil {
				return m, nil
			}
			m.pending = true
			return m, m.submitProfile()
		}
		var cmd tea.Cmd
		m.profile, cmd = m.profile.Update(msg)
		return m, cmd

	case onboarding.StepForm:
		switch msg.Type {
		case tea.KeyEnter:
			m.pending = true
			return m, m.submitWorkspace()
		case tea.KeyTab, tea.KeyShiftTab:
			m.toggleField()
			return m, nil
		}
		return m, m.editForm(msg)

	case onboarding.StepSuccess:
		switch {
		case msg.Type == tea.KeyEnter:
			if m.pending {
				return m, nil
			}
			m.pending = true
			return m, m.confirm()
		case msg.String() == "c":
			command, ok := m.wizard.Command()
			if !ok || !m.copier.Copy(command) {
				return m, nil
			}
			return m, tea.Tick(activation.CopiedFor, func(_ time.Time) tea.Msg { return copiedExpiredMsg{} })
		}
	}
	return m, nil
}

// editForm forwards a key to the focused input and mirrors the result into
// the wizard draft. The slug input follows the draft while it is derived.
func (m *Model) editForm(msg tea.KeyMsg) tea.Cmd {
	var cmd tea.Cmd
	if m.focus == fieldName {
		before := m.name.Value()
		m.name, cmd = m.name.Update(msg)
		if m.name.Value() != before {
			_ = m.wizard.SetWorkspaceName(m.name.Value())
			m.slug.SetValue(m.wizard.View().Draft.Slug)
			m.slug.CursorEnd()
		}
		return cmd
	}
	before := m.slug.Value()
	m.slug, cmd = m.slug.Update(msg)
	if m.slug.Value() != before {
		_ = m.wizard.SetWorkspaceSlug(m.slug.Value())
	}
	return cmd
}

func (m *Model) toggleField() {
	if m.focus == fieldName {
		m.focus = fieldSlug
	} else {
		m.focus = fieldName
	}
	m.focusStep()
}

func (m *Model) focusStep() {
	m.profile.Blur()
	m.name.Blur()
	m.slug.Blur()
	switch m.wizard.Step() {
	case onboarding.StepProfile:
		m.profile.Focus()
	case onboarding.StepForm:
		if m.focus == fieldName {
			m.name.Focus()
		} else {
			m.slug.Focus()
		}
	}
}

func (m Model) submitProfile() tea.Cmd {
	ctx, wizard := m.ctx, m.wizard
	return func() tea.Msg {
		return profileSavedMsg{err: wizard.SubmitProfile(ctx)}
	}
}

func (m Model) submitWorkspace() tea.Cmd {
	ctx, wizard := m.ctx, m.wizard
	return func() tea.Msg {
		return workspaceCreatedMsg{err: wizard.SubmitWorkspace(ctx)}
	}
}

func (m Model) confirm() tea.Cmd {
	ctx, wizard := m.ctx, m.wizard
	return func() tea.Msg {
		exit, err := wizard.Confirm(ctx)
		if err != nil {
			return confirmFailedMsg{err: err}
		}
		return finishedMsg{exit: exit}
	}
}

func (m Model) signOut() tea.Cmd {
	ctx, wizard := m.ctx, m.wizard
	return func() tea.Msg {
		return finishedMsg{exit: wizard.SignOut(ctx)}
	}
}

// View implements tea.Model.
func (m Model) View() string {
	if m.exit != nil {
		return ""
	}
	v := m.wizard.View()
	var b strings.Builder

	switch v.Step {
	case onboarding.StepProfile:
		b.WriteString(titleStyle.Render("Como podemos te chamar?") + "\n\n")
		b.WriteString(labelStyle.Render("Nome") + "\n")
		b.WriteString(m.profile.View() + "\n")
	case onboarding.StepForm:
		greeting := "Crie seu workspace"
		if name := strings.TrimSpace(v.Identity.Name); name != "" {
			greeting = fmt.Sprintf("Olá, %s! Crie seu workspace", name)
		}
		b.WriteString(titleStyle.Render(greeting) + "\n\n")
		b.WriteString(labelStyle.Render("Nome do workspace") + "\n")
		b.WriteString(m.name.View() + "\n\n")
		b.WriteString(labelStyle.Render("Identificador") + "\n")
		b.WriteString(m.slug.View() + "\n")
	case onboarding.StepSuccess:
		b.WriteString(titleStyle.Render("Workspace criado!") + "\n\n")
		if v.Workspace != nil {
			for _, step := range activation.Instructions(*v.Workspace, m.botContact) {
				fmt.Fprintf(&b, "%d. %s\n   %s\n", step.Number, step.Title, step.Detail)
			}
		}
		b.WriteString("\n" + commandStyle.Render(v.Command) + "\n")
		if m.copier.Copied() {
			b.WriteString(noticeStyle.Render("Copiado!") + "\n")
		}
	}

	if v.Error != "" {
		b.WriteString("\n" + errorStyle.Render(v.Error) + "\n")
	}
	if m.pending || v.Submitting {
		b.WriteString("\n" + labelStyle.Render("Enviando...") + "\n")
	}
	b.WriteString("\n" + helpStyle.Render(m.help(v.Step)) + "\n")
	return b.String()
}

func (m Model) help(step onboarding.Step) string {
	switch step {
	case onboarding.StepProfile:
		return "enter salvar • ctrl+o sair da conta • ctrl+c fechar"
	case onboarding.StepForm:
		return "tab alternar campo • enter criar • ctrl+o sair da conta • ctrl+c fechar"
	default:
		return "c copiar comando • enter já enviei o comando • ctrl+o sair da conta"
	}
}
