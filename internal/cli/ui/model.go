package ui

import (
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/MaterialsRealm/vasp-workflows/internal/cli/hooks"
	"github.com/MaterialsRealm/vasp-workflows/pkg/scanner"
)

const listHeightMargin = 4 // Header, footer, padding

// Model represents the state of the TUI application. It holds the UI
// components (list, spinner), layout dimensions, the aggregated run summary,
// and the list of work directories being classified.
type Model struct {
	// list displays the scrollable list of work directories.
	list list.Model
	// spinner indicates background activity while the scan is running.
	spinner spinner.Model
	// width and height are the current terminal dimensions.
	width  int
	height int
	// initialized tracks whether the model has received initial dimensions.
	initialized bool
	// dirItems holds the internal data for each list entry.
	// Access MUST be protected by listLock.
	dirItems []listItem
	// summary tracks aggregated counts and timing for the current run.
	summary Summary
	// phaseMessage displays the current overall stage (Scanning, Complete).
	phaseMessage string
	// quitting indicates the user initiated shutdown via 'q' or Ctrl+C.
	quitting bool
	// itemMap maps directory paths to their index in dirItems.
	// Access MUST be protected by listLock.
	itemMap map[string]int
	// listLock synchronizes access to dirItems and itemMap; hook messages
	// arrive from the scanner's worker pool.
	listLock sync.Mutex
	// debounceTimer coalesces list refreshes during rapid status updates.
	debounceTimer *time.Timer
}

// listItem represents a single work directory in the TUI list.
type listItem struct {
	path     string
	status   scanner.Status
	reason   string
	duration time.Duration
}

// Summary holds the aggregated statistics displayed in the TUI footer.
type Summary struct {
	TotalDirsScanned  int
	DoneCount         int
	NotConvergedCount int
	PendingCount      int
	StartTime         time.Time
}

// Init starts the spinner animation.
func (m *Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update handles incoming messages (user input, hook events) and updates the
// model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	var listCmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		listHeight := m.height - listHeightMargin
		if listHeight < 1 {
			listHeight = 1
		}
		m.list.SetSize(m.width, listHeight)
		m.initialized = true

	case tea.KeyMsg:
		if m.quitting {
			return m, nil
		}
		switch msg.String() {
		case "ctrl+c", "q":
			m.quitting = true
			return m, tea.Quit
		}
		// Other keys go to the list component for navigation.
		m.list, listCmd = m.list.Update(msg)
		cmds = append(cmds, listCmd)

	case spinner.TickMsg:
		if m.quitting {
			return m, nil
		}
		var spinnerCmd tea.Cmd
		m.spinner, spinnerCmd = m.spinner.Update(msg)
		cmds = append(cmds, spinnerCmd)

	case hooks.DirDiscoveredMsg:
		m.listLock.Lock()
		if _, exists := m.itemMap[msg.Path]; !exists {
			newItem := listItem{path: msg.Path, status: scanner.StatusPending}
			m.dirItems = append(m.dirItems, newItem)
			m.itemMap[msg.Path] = len(m.dirItems) - 1
			m.summary.TotalDirsScanned++
			cmds = append(cmds, m.debounceListUpdate())
		}
		m.listLock.Unlock()
		if !m.quitting && (m.phaseMessage == "" || m.phaseMessage == "Initializing...") {
			m.phaseMessage = "Scanning..."
		}

	case hooks.DirStatusUpdateMsg:
		m.listLock.Lock()
		if idx, ok := m.itemMap[msg.Path]; ok && idx < len(m.dirItems) {
			currentItem := &m.dirItems[idx]
			m.decrementSummaryCount(currentItem.status)
			currentItem.status = msg.Status
			currentItem.reason = msg.Reason
			currentItem.duration = msg.Duration
			m.incrementSummaryCount(msg.Status)
			cmds = append(cmds, m.debounceListUpdate())
		} else {
			// Discovery message may have been missed; add the item directly.
			newItem := listItem{path: msg.Path, status: msg.Status, reason: msg.Reason, duration: msg.Duration}
			m.dirItems = append(m.dirItems, newItem)
			m.itemMap[msg.Path] = len(m.dirItems) - 1
			m.summary.TotalDirsScanned++
			m.incrementSummaryCount(msg.Status)
			cmds = append(cmds, m.debounceListUpdate())
		}
		m.listLock.Unlock()

		if !m.quitting && m.phaseMessage != "Classifying..." {
			m.phaseMessage = "Classifying..."
		}

	case hooks.RunCompleteMsg:
		m.phaseMessage = "Complete"
		// Authoritative counts from the final report.
		m.summary.TotalDirsScanned = msg.Report.Summary.TotalDirsScanned
		m.summary.DoneCount = msg.Report.Summary.DoneCount
		m.summary.NotConvergedCount = msg.Report.Summary.NotConvergedCount
		m.summary.PendingCount = msg.Report.Summary.PendingCount
		// Stay open so the user can inspect results; q/Ctrl+C quits.

	case UpdateListMsg:
		m.listLock.Lock()
		items := make([]list.Item, len(m.dirItems))
		for i, item := range m.dirItems {
			items[i] = item
		}
		m.listLock.Unlock()
		cmds = append(cmds, m.list.SetItems(items))
	}

	if listCmd != nil {
		cmds = append(cmds, listCmd)
	}

	return m, tea.Batch(cmds...)
}

// View renders the current state of the TUI model.
func (m *Model) View() string {
	if m.quitting {
		return "Exiting...\n"
	}
	if !m.initialized {
		return "Initializing..."
	}

	headerLeft := "vaspscan"
	headerRight := m.phaseMessage
	if m.phaseMessage != "Complete" && m.phaseMessage != "Initializing..." {
		headerRight = m.spinner.View() + " " + m.phaseMessage
	}
	headerCenter := ""
	headerWidth := m.width - lipgloss.Width(headerLeft) - lipgloss.Width(headerRight)
	if headerWidth > 0 {
		headerCenter = lipgloss.PlaceHorizontal(headerWidth, lipgloss.Center, " ")
	}
	header := HeaderStyle.Width(m.width).Render(lipgloss.JoinHorizontal(lipgloss.Top, headerLeft, headerCenter, headerRight))

	elapsed := time.Since(m.summary.StartTime).Round(time.Millisecond)
	summaryText := fmt.Sprintf(
		"Done: %d | Not converged: %d | Pending: %d | Total: %d | Elapsed: %s",
		m.summary.DoneCount,
		m.summary.NotConvergedCount,
		m.summary.PendingCount,
		m.summary.TotalDirsScanned,
		elapsed,
	)
	footerLeft := summaryText
	footerRight := "q: quit"
	footerWidth := m.width - lipgloss.Width(footerLeft) - lipgloss.Width(footerRight)
	footerCenter := ""
	if footerWidth > 0 {
		footerCenter = lipgloss.PlaceHorizontal(footerWidth, lipgloss.Center, " ")
	}
	footer := FooterStyle.Width(m.width).Render(lipgloss.JoinHorizontal(lipgloss.Bottom, footerLeft, footerCenter, footerRight))

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		m.list.View(),
		footer,
	)
}

// NewModel creates the initial model for the TUI.
func NewModel() Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	delegate := list.NewDefaultDelegate()
	delegate.SetSpacing(0)
	delegate.ShowDescription = true
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.
		Foreground(ColorSelectedFg).
		Background(ColorSelectedBg).
		Bold(true).
		Padding(0, 0, 0, 1)
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.
		Foreground(ColorSelectedDescFg).
		Background(ColorSelectedBg).
		Padding(0, 0, 0, 1)
	delegate.Styles.NormalTitle = delegate.Styles.NormalTitle.
		Foreground(ColorNormalFg).Padding(0, 0, 0, 1)
	delegate.Styles.NormalDesc = delegate.Styles.NormalDesc.
		Foreground(ColorNormalDescFg).Padding(0, 0, 0, 1)

	l := list.New([]list.Item{}, delegate, 0, 0)
	l.SetShowHelp(false)
	l.SetShowStatusBar(false)
	l.SetShowTitle(false)
	l.SetShowFilter(false)
	l.SetFilteringEnabled(false)
	l.DisableQuitKeybindings()

	return Model{
		list:         l,
		spinner:      s,
		summary:      Summary{StartTime: time.Now()},
		phaseMessage: "Initializing...",
		dirItems:     make([]listItem, 0, 256),
		itemMap:      make(map[string]int),
	}
}

// incrementSummaryCount updates footer counts for a newly reported status.
// MUST be called with listLock held.
func (m *Model) incrementSummaryCount(status scanner.Status) {
	switch status {
	case scanner.StatusDone:
		m.summary.DoneCount++
	case scanner.StatusNotConverged:
		m.summary.NotConvergedCount++
	case scanner.StatusPending:
		m.summary.PendingCount++
	}
}

// decrementSummaryCount reverses a count when an item's status changes.
// MUST be called with listLock held.
func (m *Model) decrementSummaryCount(status scanner.Status) {
	switch status {
	case scanner.StatusDone:
		m.summary.DoneCount--
	case scanner.StatusNotConverged:
		m.summary.NotConvergedCount--
	case scanner.StatusPending:
		m.summary.PendingCount--
	}
}

// FilterValue implements the list.Item interface.
func (i listItem) FilterValue() string { return i.path }

// Title implements the list.Item interface.
func (i listItem) Title() string { return i.path }

// Description implements the list.Item interface.
func (i listItem) Description() string {
	var statusStyle lipgloss.Style
	statusIcon := " "
	switch i.status {
	case scanner.StatusDone:
		statusStyle = StatusStyleDone
		statusIcon = "✓"
	case scanner.StatusNotConverged:
		statusStyle = StatusStyleNotConverged
		statusIcon = "✗"
	case scanner.StatusPending:
		fallthrough
	default:
		statusStyle = StatusStylePending
		statusIcon = "…"
	}

	statusStr := statusStyle.Render(fmt.Sprintf("[%s]", statusIcon))
	details := i.reason
	if i.status == scanner.StatusDone && i.duration > 0 {
		details = formatDuration(i.duration)
	}
	return fmt.Sprintf("%s %s", statusStr, details)
}

// formatDuration formats a duration for the list description.
func formatDuration(d time.Duration) string {
	if d < time.Millisecond {
		if d == 0 {
			return ""
		}
		return fmt.Sprintf("%dµs", d.Microseconds())
	}
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.2fs", d.Seconds())
}

// UpdateListMsg signals that the list component should refresh its items.
type UpdateListMsg struct{}

const listUpdateDebounceDuration = 50 * time.Millisecond

// debounceListUpdate coalesces rapid status changes into a single list
// refresh. MUST be called with listLock held.
func (m *Model) debounceListUpdate() tea.Cmd {
	if m.debounceTimer != nil {
		m.debounceTimer.Stop()
	}
	m.debounceTimer = time.NewTimer(listUpdateDebounceDuration)
	return func() tea.Msg {
		<-m.debounceTimer.C
		return UpdateListMsg{}
	}
}

// --- Styles ---

const (
	ColorHeaderFg = lipgloss.Color("252")
	ColorHeaderBg = lipgloss.Color("62")

	ColorFooterFg = lipgloss.Color("252")
	ColorFooterBg = lipgloss.Color("56")

	ColorNormalFg     = lipgloss.Color("250")
	ColorNormalDescFg = lipgloss.Color("244")

	ColorSelectedFg     = lipgloss.Color("255")
	ColorSelectedBg     = lipgloss.Color("56")
	ColorSelectedDescFg = lipgloss.Color("248")

	ColorStatusDone         = lipgloss.Color("40")
	ColorStatusNotConverged = lipgloss.Color("196")
	ColorStatusPending      = lipgloss.Color("244")
)

var (
	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorHeaderFg).
			Background(ColorHeaderBg).
			Padding(0, 1)

	FooterStyle = lipgloss.NewStyle().
			Foreground(ColorFooterFg).
			Background(ColorFooterBg).
			Padding(0, 1)

	StatusStyleDone         = lipgloss.NewStyle().Foreground(ColorStatusDone)
	StatusStyleNotConverged = lipgloss.NewStyle().Foreground(ColorStatusNotConverged)
	StatusStylePending      = lipgloss.NewStyle().Foreground(ColorStatusPending)
)
