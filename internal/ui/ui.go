package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/mwx/internal/formatter"
	"github.com/desertthunder/mwx/internal/models"
	"github.com/desertthunder/mwx/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	PreviewView ViewState = iota
	ConfirmView
	RunView
	ResultView
)

// maxLogLines caps the progress log shown while the workflow runs.
const maxLogLines = 20

// Model represents the TUI application state.
type Model struct {
	ctx            context.Context
	cancel         context.CancelFunc
	canceling      bool
	view           ViewState
	workflow       tasks.Workflow
	settings       tasks.Settings
	subscribers    []models.Subscriber
	width          int
	height         int
	subscriberList list.Model
	progressChan   <-chan tasks.ProgressUpdate
	done           <-chan runCompleteMsg
	updates        []tasks.ProgressUpdate
	result         *tasks.RunResult
	err            error
	help           help.Model
	keys           keyMap
}

type progressUpdateMsg tasks.ProgressUpdate

type runCompleteMsg struct {
	result *tasks.RunResult
	err    error
}

// NewModel creates a TUI model that previews subscribers and runs workflow on confirmation.
func NewModel(ctx context.Context, workflow tasks.Workflow, settings tasks.Settings, subscribers []models.Subscriber) *Model {
	items := make([]list.Item, len(subscribers))
	for i, s := range subscribers {
		items[i] = subscriberItem{subscriber: s, key: settings.DuplicateCriteria}
	}
	subscriberList := list.New(items, list.NewDefaultDelegate(), 0, 0)
	subscriberList.Title = fmt.Sprintf("Subscribers to import (%d)", len(subscribers))

	return &Model{
		ctx:            ctx,
		view:           PreviewView,
		workflow:       workflow,
		settings:       settings,
		subscribers:    subscribers,
		subscriberList: subscriberList,
		help:           help.New(),
		keys:           newKeyMap(),
	}
}

// Result returns the outcome of the run once the workflow finished. Both values are nil if it never started.
func (m *Model) Result() (*tasks.RunResult, error) {
	return m.result, m.err
}

// Init implements [tea.Model]. Nothing happens until the run is confirmed.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.subscriberList.SetSize(msg.Width-4, msg.Height-8)
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case PreviewView:
			return m.handlePreviewKeys(msg)
		case ConfirmView:
			return m.handleConfirmKeys(msg)
		case RunView:
			return m.handleRunKeys(msg)
		case ResultView:
			if key.Matches(msg, m.keys.quit) {
				return m, tea.Quit
			}
			return m, nil
		}

	case progressUpdateMsg:
		m.updates = append(m.updates, tasks.ProgressUpdate(msg))
		return m, waitForProgress(m.progressChan, m.done)

	case runCompleteMsg:
		m.result = msg.result
		m.err = msg.err
		m.view = ResultView
		if m.cancel != nil {
			m.cancel()
		}
		m.progressChan = nil
		m.done = nil
		return m, nil
	}

	var cmd tea.Cmd
	if m.view == PreviewView {
		m.subscriberList, cmd = m.subscriberList.Update(msg)
	}
	return m, cmd
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case PreviewView:
		return m.renderPreview()
	case ConfirmView:
		return m.renderConfirm()
	case RunView:
		return m.renderRun()
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}

func (m *Model) handlePreviewKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.subscriberList.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.subscriberList, cmd = m.subscriberList.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.enter):
		if len(m.subscribers) > 0 {
			m.view = ConfirmView
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.subscriberList, cmd = m.subscriberList.Update(msg)
	return m, cmd
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.yes):
		m.view = RunView
		return m, m.startRun()
	case key.Matches(msg, m.keys.no), key.Matches(msg, m.keys.back):
		m.view = PreviewView
		return m, nil
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	}
	return m, nil
}

// handleRunKeys cancels the running workflow on quit and waits for it to stop. A second quit exits immediately.
func (m *Model) handleRunKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if !key.Matches(msg, m.keys.quit) {
		return m, nil
	}
	if m.canceling || m.cancel == nil {
		return m, tea.Quit
	}
	m.canceling = true
	m.cancel()
	return m, nil
}

func (m *Model) startRun() tea.Cmd {
	progress := make(chan tasks.ProgressUpdate, 50)
	done := make(chan runCompleteMsg, 1)
	m.progressChan = progress
	m.done = done

	ctx, cancel := context.WithCancel(m.ctx)
	m.cancel = cancel

	go func() {
		result, err := m.workflow.Run(ctx, m.subscribers, progress)
		close(progress)
		done <- runCompleteMsg{result: result, err: err}
	}()

	return waitForProgress(progress, done)
}

// waitForProgress delivers the next update, then the outcome once the workflow closed the channel.
func waitForProgress(progress <-chan tasks.ProgressUpdate, done <-chan runCompleteMsg) tea.Cmd {
	return func() tea.Msg {
		if update, ok := <-progress; ok {
			return progressUpdateMsg(update)
		}
		return <-done
	}
}

func (m *Model) renderPreview() string {
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.enter, m.keys.quit})
	return fmt.Sprintf("%s\n\n%s", m.subscriberList.View(), helpView)
}

func (m *Model) renderConfirm() string {
	title := styles.title.Render("Run the campaign workflow?")
	info := fmt.Sprintf(
		"\nSubscribers: %d\nProfile: %s\nCampaign: %s (copied from %q)\nSubject: %s\n",
		len(m.subscribers),
		m.settings.ProfileName,
		m.settings.CampaignName,
		m.settings.TemplateCampaignName,
		m.settings.Subject,
	)
	warning := styles.warning.Render("The campaign is sent immediately once its sections are created.")
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.yes, m.keys.no, m.keys.quit})

	return fmt.Sprintf("%s\n%s\n%s\n\n%s", title, info, warning, helpView)
}

func (m *Model) renderRun() string {
	title := styles.title.Render("Running workflow")

	var phase string
	if n := len(m.updates); n > 0 {
		current := m.updates[n-1]
		phase = fmt.Sprintf("Stage: %s", current.Phase)
		if current.Total > 0 {
			phase += fmt.Sprintf(" (%d/%d)", current.Step, current.Total)
		}
	} else {
		phase = "Starting..."
	}

	footer := m.help.ShortHelpView([]key.Binding{m.keys.quit})
	if m.canceling {
		footer = styles.warning.Render("Canceling, waiting for the current call to return...")
	}

	return fmt.Sprintf("%s\n\n%s\n\n%s\n\n%s", title, phase, m.renderLog(), footer)
}

func (m *Model) renderLog() string {
	start := max(0, len(m.updates)-maxLogLines)
	lines := make([]string, 0, len(m.updates)-start)
	for _, u := range m.updates[start:] {
		line := fmt.Sprintf("[%s] %s", u.Phase, strings.TrimSpace(u.Message))
		if u.Failure {
			line = styles.error.Render(line)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderResult() string {
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.quit})

	if m.err != nil {
		return styles.error.Render(fmt.Sprintf("Workflow failed: %v", m.err)) + "\n\n" + m.renderLog() + "\n\n" + helpView
	}
	if m.result == nil {
		return styles.error.Render("No result available") + "\n\n" + helpView
	}

	title := styles.success.Render("✓ Campaign sent!")
	if !m.result.Completed() {
		title = styles.warning.Render("Workflow halted")
	}

	return fmt.Sprintf("%s\n\n%s\n%s", title, formatter.RunSummary(m.result), helpView)
}
