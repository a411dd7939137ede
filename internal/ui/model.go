package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/five82/marina/internal/binding"
	"github.com/five82/marina/internal/catalog"
	"github.com/five82/marina/internal/logtail"
	"github.com/five82/marina/internal/notify"
	"github.com/five82/marina/internal/prefs"
	"github.com/five82/marina/internal/records"
	"github.com/five82/marina/internal/save"
)

// Grid is the controller surface the UI drives. *grid.Controller
// satisfies it.
type Grid interface {
	Search(ctx context.Context, key records.FilterKey) *binding.Resolution
	Refresh(ctx context.Context) error
	OnRowSelected(recordID string)
	OnCellsEdited(edits ...records.DraftEdit)
	OnSaveTriggered(ctx context.Context, edits ...records.DraftEdit) save.Outcome
	ResultSet() records.ResultSet
	FilterKey() records.FilterKey
	Drafts() []records.DraftEdit
	Draft(recordID string, field records.Field) (records.Value, bool)
	DiscardDrafts()
	Busy() bool
	Selected() string
}

// BoatTypeLister lists the filter keys offered by `f`.
type BoatTypeLister func(ctx context.Context) ([]catalog.BoatType, error)

type mode int

const (
	modeBrowse mode = iota
	modeFilter
	modeEdit
	modeLogs
)

const (
	toastDuration = 4 * time.Second
	logTailLines  = 400
	chromeLines   = 5 // header, prompt/toast, command bar, table header + border
)

// Model is the bubbletea model of the grid screen.
type Model struct {
	ctx       context.Context
	grid      Grid
	events    *Events
	boatTypes BoatTypeLister
	logPath   string
	prefsPath string
	logger    *zap.Logger

	theme   Theme
	keys    keyMap
	help    help.Model
	table   table.Model
	input   textinput.Model
	spinner spinner.Model
	logs    viewport.Model

	mode   mode
	col    int
	rowIDs []string
	types  []catalog.BoatType

	busy     bool
	toast    *notify.Notification
	toastSeq int

	width  int
	height int
}

type (
	boatTypesMsg struct {
		types []catalog.BoatType
		err   error
	}
	refreshDoneMsg struct{ err error }
	saveDoneMsg    struct{ outcome save.Outcome }
	clearToastMsg  struct{ seq int }
	logsLoadedMsg  struct {
		lines []string
		err   error
	}
)

// NewModel builds the grid screen.
func NewModel(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	events := opts.Events
	if events == nil {
		events = NewEvents()
	}
	theme := GetTheme(opts.ThemeName)

	tbl := table.New(
		table.WithColumns(buildColumns(0, 0)),
		table.WithFocused(true),
		table.WithHeight(10),
		table.WithKeyMap(tableKeyMap()),
	)
	tbl.SetStyles(theme.TableStyles())

	input := textinput.New()
	input.CharLimit = 256

	sp := spinner.New(spinner.WithSpinner(spinner.Dot))

	m := Model{
		ctx:       ctx,
		grid:      opts.Grid,
		events:    events,
		boatTypes: opts.BoatTypes,
		logPath:   opts.LogPath,
		prefsPath: opts.PrefsPath,
		logger:    logger,
		theme:     theme,
		keys:      defaultKeyMap(),
		help:      help.New(),
		table:     tbl,
		input:     input,
		spinner:   sp,
		logs:      viewport.New(80, 10),
	}
	m.busy = m.grid.Busy()
	m.syncRows()
	return m
}

// Init starts listening for controller events.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.events.wait(), m.loadBoatTypes(), m.spinner.Tick)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case loadingMsg:
		m.busy = m.grid.Busy()
		return m, m.events.wait()

	case resultMsg:
		m.syncRows()
		return m, m.events.wait()

	case toastMsg:
		cmd := m.showToast(msg.note)
		return m, tea.Batch(cmd, m.events.wait())

	case clearToastMsg:
		if msg.seq == m.toastSeq {
			m.toast = nil
		}
		return m, nil

	case boatTypesMsg:
		if msg.err != nil {
			m.logger.Warn("load boat types failed", zap.Error(msg.err))
			return m, nil
		}
		m.types = msg.types
		return m, nil

	case refreshDoneMsg:
		if msg.err != nil {
			return m, m.showToast(notify.Notification{
				Title:    "Refresh failed",
				Message:  records.MessageOf(msg.err),
				Severity: notify.SeverityError,
			})
		}
		return m, nil

	case saveDoneMsg:
		m.syncRows()
		if errors.Is(msg.outcome.Err, save.ErrCommitInFlight) {
			return m, m.showToast(notify.Notification{
				Title:    "Busy",
				Message:  "a save is already in progress",
				Severity: notify.SeverityError,
			})
		}
		return m, nil

	case logsLoadedMsg:
		if msg.err != nil {
			m.logs.SetContent(fmt.Sprintf("read %s: %v", m.logPath, msg.err))
		} else {
			m.logs.SetContent(strings.Join(msg.lines, "\n"))
			m.logs.GotoBottom()
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		switch m.mode {
		case modeFilter:
			return m.handlePromptKey(msg, Model.applyFilter)
		case modeEdit:
			return m.handlePromptKey(msg, Model.applyEdit)
		case modeLogs:
			return m.handleLogsKey(msg)
		default:
			return m.handleBrowseKey(msg)
		}
	}
	return m, nil
}

func (m Model) handleBrowseKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil

	case key.Matches(msg, m.keys.Left):
		m.moveColumn(-1)
		return m, nil

	case key.Matches(msg, m.keys.Right):
		m.moveColumn(1)
		return m, nil

	case key.Matches(msg, m.keys.Select):
		if id := m.currentID(); id != "" {
			m.grid.OnRowSelected(id)
		}
		return m, nil

	case key.Matches(msg, m.keys.Edit):
		return m.startEdit()

	case key.Matches(msg, m.keys.Save):
		return m, m.saveCmd()

	case key.Matches(msg, m.keys.Discard):
		m.grid.DiscardDrafts()
		m.syncRows()
		return m, nil

	case key.Matches(msg, m.keys.Refresh):
		return m, m.refreshCmd()

	case key.Matches(msg, m.keys.Filter):
		m.mode = modeFilter
		m.input.Prompt = "filter> "
		m.input.Placeholder = "boat type id (empty for all)"
		m.input.SetValue(string(m.grid.FilterKey()))
		m.input.CursorEnd()
		return m, m.input.Focus()

	case key.Matches(msg, m.keys.NextType):
		m.search(m.nextTypeKey())
		return m, nil

	case key.Matches(msg, m.keys.Logs):
		m.mode = modeLogs
		return m, m.loadLogs()

	case key.Matches(msg, m.keys.Theme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		m.table.SetStyles(m.theme.TableStyles())
		return m, m.saveTheme(m.theme.Name)
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m Model) handlePromptKey(msg tea.KeyMsg, apply func(Model, string) (Model, tea.Cmd)) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Cancel):
		m.closePrompt()
		return m, nil
	case key.Matches(msg, m.keys.Confirm):
		value := m.input.Value()
		m.closePrompt()
		return apply(m, value)
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleLogsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Cancel), key.Matches(msg, m.keys.Logs):
		m.mode = modeBrowse
		return m, nil
	case key.Matches(msg, m.keys.Refresh):
		return m, m.loadLogs()
	}
	var cmd tea.Cmd
	m.logs, cmd = m.logs.Update(msg)
	return m, cmd
}

func (m *Model) closePrompt() {
	m.mode = modeBrowse
	m.input.Blur()
	m.input.Reset()
}

func (m Model) applyFilter(value string) (Model, tea.Cmd) {
	m.search(records.FilterKey(strings.TrimSpace(value)))
	return m, nil
}

func (m Model) startEdit() (tea.Model, tea.Cmd) {
	id := m.currentID()
	if id == "" {
		return m, nil
	}
	column := records.BoatColumns[m.col]
	if !column.Editable {
		return m, nil
	}
	current := ""
	if v, ok := m.grid.Draft(id, column.Field); ok {
		current = v.String()
	} else if rec, ok := recordByID(m.grid.ResultSet(), id); ok {
		if v, ok := rec.Get(column.Field); ok {
			current = v.String()
		}
	}
	m.mode = modeEdit
	m.input.Prompt = column.Label + "> "
	m.input.Placeholder = column.Kind.String()
	m.input.SetValue(current)
	m.input.CursorEnd()
	return m, m.input.Focus()
}

func (m Model) applyEdit(value string) (Model, tea.Cmd) {
	id := m.currentID()
	if id == "" {
		return m, nil
	}
	column := records.BoatColumns[m.col]
	v, err := records.ParseValue(column.Kind, value)
	if err != nil {
		return m, m.showToast(notify.Notification{
			Title:    "Invalid " + strings.ToLower(column.Label),
			Message:  err.Error(),
			Severity: notify.SeverityError,
		})
	}
	m.grid.OnCellsEdited(records.DraftEdit{RecordID: id, Field: column.Field, Value: v})
	m.syncRows()
	return m, nil
}

func (m *Model) search(key records.FilterKey) {
	m.grid.Search(m.ctx, key)
	m.table.SetCursor(0)
}

// nextTypeKey cycles through all boats followed by each boat type.
func (m Model) nextTypeKey() records.FilterKey {
	keys := make([]records.FilterKey, 0, len(m.types)+1)
	keys = append(keys, "")
	for _, bt := range m.types {
		keys = append(keys, records.FilterKey(bt.ID))
	}
	current := m.grid.FilterKey()
	for i, k := range keys {
		if k == current {
			return keys[(i+1)%len(keys)]
		}
	}
	return keys[0]
}

func (m *Model) moveColumn(delta int) {
	n := len(records.BoatColumns)
	m.col = ((m.col+delta)%n + n) % n
	m.table.SetColumns(buildColumns(m.tableWidth(), m.col))
}

func (m Model) currentID() string {
	cursor := m.table.Cursor()
	if cursor < 0 || cursor >= len(m.rowIDs) {
		return ""
	}
	return m.rowIDs[cursor]
}

// syncRows redraws the table from controller state, keeping the cursor on
// the same record when it is still present.
func (m *Model) syncRows() {
	selected := m.currentID()
	rows, ids := buildRows(m.grid.ResultSet(), m.grid.Draft)
	m.table.SetColumns(buildColumns(m.tableWidth(), m.col))
	m.table.SetRows(rows)
	m.rowIDs = ids
	for i, id := range ids {
		if id == selected {
			m.table.SetCursor(i)
			return
		}
	}
	if m.table.Cursor() >= len(rows) {
		m.table.SetCursor(max(len(rows)-1, 0))
	}
}

func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height
	m.help.Width = width
	bodyHeight := max(height-chromeLines, 3)
	m.table.SetWidth(width)
	m.table.SetHeight(bodyHeight)
	m.table.SetColumns(buildColumns(m.tableWidth(), m.col))
	m.logs.Width = width
	m.logs.Height = bodyHeight
}

func (m Model) tableWidth() int {
	if m.width <= 0 {
		return 80
	}
	return m.width
}

func (m *Model) showToast(n notify.Notification) tea.Cmd {
	m.toastSeq++
	seq := m.toastSeq
	m.toast = &n
	return tea.Tick(toastDuration, func(time.Time) tea.Msg {
		return clearToastMsg{seq: seq}
	})
}

func (m Model) refreshCmd() tea.Cmd {
	grid, ctx := m.grid, m.ctx
	return func() tea.Msg {
		return refreshDoneMsg{err: grid.Refresh(ctx)}
	}
}

func (m Model) saveCmd() tea.Cmd {
	grid, ctx := m.grid, m.ctx
	return func() tea.Msg {
		return saveDoneMsg{outcome: grid.OnSaveTriggered(ctx)}
	}
}

func (m Model) loadBoatTypes() tea.Cmd {
	if m.boatTypes == nil {
		return nil
	}
	list, ctx := m.boatTypes, m.ctx
	return func() tea.Msg {
		types, err := list(ctx)
		return boatTypesMsg{types: types, err: err}
	}
}

func (m Model) loadLogs() tea.Cmd {
	path := m.logPath
	if path == "" {
		return func() tea.Msg { return logsLoadedMsg{lines: []string{"logging to stderr"}} }
	}
	return func() tea.Msg {
		entries, err := logtail.Tail(path, logTailLines)
		if err != nil {
			return logsLoadedMsg{err: err}
		}
		lines := make([]string, len(entries))
		for i, e := range entries {
			lines[i] = logtail.Format(e)
		}
		return logsLoadedMsg{lines: lines}
	}
}

func (m Model) saveTheme(name string) tea.Cmd {
	path, logger := m.prefsPath, m.logger
	return func() tea.Msg {
		p, _ := prefs.Load(path)
		p.Theme = name
		if err := prefs.Save(path, p); err != nil {
			logger.Warn("save theme failed", zap.Error(err))
		}
		return nil
	}
}
