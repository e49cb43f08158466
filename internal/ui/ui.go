package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/hubtwin/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	RunView ViewState = iota
	ResultView
)

const recentLines = 8

// SyncRunner runs a sync and reports progress.
type SyncRunner interface {
	Run(ctx context.Context, progress chan<- tasks.ProgressUpdate, opts tasks.RunOpts) (*tasks.SyncResult, error)
}

// Model represents the TUI application state.
type Model struct {
	ctx          context.Context
	cancel       context.CancelFunc
	view         ViewState
	engine       SyncRunner
	opts         tasks.RunOpts
	width        int
	height       int
	spinner      spinner.Model
	invoiceList  list.Model
	progressChan chan tasks.ProgressUpdate
	progress     tasks.ProgressUpdate
	recent       []string
	result       *tasks.SyncResult
	err          error
	help         help.Model
	keys         keyMap
}

// NewModel creates a new TUI model that runs the sync when started.
func NewModel(ctx context.Context, engine SyncRunner, opts tasks.RunOpts) *Model {
	ctx, cancel := context.WithCancel(ctx)
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = styles.title.UnsetMarginBottom()

	return &Model{
		ctx:     ctx,
		cancel:  cancel,
		view:    RunView,
		engine:  engine,
		opts:    opts,
		spinner: s,
		help:    help.New(),
		keys:    newKeyMap(),
	}
}

// Init starts the spinner and the sync.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.startSync())
}

// Result returns the finished sync result and error once the sync completed.
func (m *Model) Result() (*tasks.SyncResult, error) {
	return m.result, m.err
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.view == ResultView {
			m.invoiceList.SetSize(msg.Width-4, msg.Height-8)
		}
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "q" || msg.String() == "ctrl+c" {
			m.cancel()
			return m, tea.Quit
		}
		if m.view == ResultView {
			var cmd tea.Cmd
			m.invoiceList, cmd = m.invoiceList.Update(msg)
			return m, cmd
		}
		return m, nil

	case spinner.TickMsg:
		if m.view != RunView {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case Msg:
		switch msg.kind {
		case MsgProgressUpdate:
			update := msg.data.(tasks.ProgressUpdate)
			m.progress = update
			if update.Phase == tasks.ProcessInvoices {
				m.recent = append(m.recent, update.Message)
				if len(m.recent) > recentLines {
					m.recent = m.recent[len(m.recent)-recentLines:]
				}
			}
			return m, m.waitForProgress()

		case MsgSyncComplete:
			done := msg.data.(syncComplete)
			m.result = done.result
			m.err = done.err
			m.view = ResultView
			m.progressChan = nil
			m.buildList()
			return m, nil
		}
	}

	return m, nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case RunView:
		return m.renderRun()
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}

func (m *Model) startSync() tea.Cmd {
	ch := make(chan tasks.ProgressUpdate, 50)
	m.progressChan = ch

	go func() {
		result, err := m.engine.Run(m.ctx, ch, m.opts)
		m.result = result
		m.err = err
		close(ch)
	}()

	return m.waitForProgress()
}

func (m *Model) waitForProgress() tea.Cmd {
	ch := m.progressChan
	return func() tea.Msg {
		if ch == nil {
			return syncCompleteMsg(m.result, m.err)
		}

		update, ok := <-ch
		if !ok {
			return syncCompleteMsg(m.result, m.err)
		}
		return progressUpdateMsg(update)
	}
}

func (m *Model) buildList() {
	var items []list.Item
	if m.result != nil {
		items = make([]list.Item, len(m.result.Invoices))
		for i, res := range m.result.Invoices {
			items[i] = invoiceItem{res: res}
		}
	}

	m.invoiceList = list.New(items, list.NewDefaultDelegate(), 0, 0)
	m.invoiceList.Title = "Invoices"
	m.invoiceList.SetShowHelp(false)
	m.invoiceList.SetSize(max(m.width-4, 20), max(m.height-8, 10))
}

func (m *Model) renderRun() string {
	title := "Syncing invoices"
	if m.opts.DryRun {
		title += " (dry run)"
	}

	var phase string
	switch m.progress.Phase {
	case tasks.FetchInvoices:
		phase = m.progress.Message
	case tasks.ProcessInvoices:
		phase = fmt.Sprintf("Processing invoices (%d/%d)", m.progress.Step, m.progress.Total)
	}
	if phase == "" {
		phase = "Starting..."
	}

	var b strings.Builder
	b.WriteString(styles.title.Render(title))
	b.WriteString("\n")
	fmt.Fprintf(&b, "%s %s\n\n", m.spinner.View(), phase)
	for _, line := range m.recent {
		b.WriteString(styles.help.Render(line))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m *Model) renderResult() string {
	helpView := m.help.FullHelpView(m.keys.FullHelp())

	if m.err != nil {
		return fmt.Sprintf("%s\n\n%s", styles.err.Render(fmt.Sprintf("Sync failed: %v", m.err)), helpView)
	}
	if m.result == nil {
		return fmt.Sprintf("%s\n\n%s", styles.err.Render("No result available"), helpView)
	}

	var title string
	switch {
	case m.result.Failed > 0:
		title = styles.warn.Render("! " + m.result.Summary())
	default:
		title = styles.ok.Render("✓ " + m.result.Summary())
	}

	return fmt.Sprintf("%s\n\n%s\n\n%s", title, m.invoiceList.View(), helpView)
}
