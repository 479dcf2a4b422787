// Package tui provides the interactive terminal dashboard for harmonyctl.
// It is built on the bubbletea/lipgloss stack and renders a live table of
// gateway events as they arrive on the connection.
package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/AdaptChat/harmony/pkg/wire"
)

// ---------------------------------------------------------------------------
// Shared styles
// ---------------------------------------------------------------------------

var (
	// titleStyle renders the application title bar.
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("57")).
			Padding(0, 1)

	// headerCellStyle is used for table column headers.
	headerCellStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("12")).
			PaddingRight(1)

	// rowStyle is used for odd-numbered table rows.
	rowStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			PaddingRight(1)

	// altRowStyle is used for even-numbered table rows (zebra striping).
	altRowStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Background(lipgloss.Color("236")).
			PaddingRight(1)

	// dimStyle is used for "no data" messages.
	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Italic(true)

	// statusBarStyle renders the bottom status bar.
	statusBarStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			PaddingLeft(1)

	// errorStyle renders error messages.
	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("1")).
			Bold(true).
			PaddingLeft(1)
)

// opColor returns a foreground colour representing the event op.
func opColor(op string) lipgloss.Color {
	switch op {
	case wire.OpReady, wire.OpHello:
		return lipgloss.Color("2") // green: lifecycle
	case wire.OpMessageCreate:
		return lipgloss.Color("4") // blue: chat traffic
	case wire.OpPresenceUpdate:
		return lipgloss.Color("3") // yellow: presence
	case wire.OpGuildCreate, wire.OpGuildRemove:
		return lipgloss.Color("5") // magenta: membership
	case wire.OpPong:
		return lipgloss.Color("8") // grey: keepalive
	default:
		return lipgloss.Color("6")
	}
}

// ---------------------------------------------------------------------------
// Tea messages
// ---------------------------------------------------------------------------

// EventMsg carries one gateway event into the dashboard.
type EventMsg struct {
	Event *wire.Outbound
}

// ConnStateMsg updates the connection line in the status bar.
type ConnStateMsg struct {
	State string // "connected", "reconnecting", ...
}

// ErrMsg carries a connection error to display in the status bar.
type ErrMsg struct {
	Err error
}

// tickMsg refreshes the AGE column once per second.
type tickMsg time.Time

// ---------------------------------------------------------------------------
// Model
// ---------------------------------------------------------------------------

// maxRows is the number of most-recent events retained for display.
const maxRows = 256

// eventRow is a single row in the event table.
type eventRow struct {
	at     time.Time
	op     string
	detail string
}

// Model is the top-level bubbletea model for the dashboard.
type Model struct {
	gatewayURL string
	connState  string
	rows       []eventRow
	width      int
	height     int
	err        error
}

// New returns a Model for a dashboard connected to gatewayURL.
func New(gatewayURL string) Model {
	return Model{
		gatewayURL: gatewayURL,
		connState:  "connecting",
	}
}

// Init starts the age-refresh tick.
func (m Model) Init() tea.Cmd {
	return tick()
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update processes messages and returns an updated model plus any commands.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "c":
			m.rows = nil
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case EventMsg:
		m.rows = append(m.rows, eventRow{
			at:     time.Now(),
			op:     msg.Event.Op,
			detail: eventDetail(msg.Event),
		})
		if len(m.rows) > maxRows {
			m.rows = m.rows[len(m.rows)-maxRows:]
		}
	case ConnStateMsg:
		m.connState = msg.State
		m.err = nil
	case ErrMsg:
		m.err = msg.Err
	case tickMsg:
		return m, tick()
	}
	return m, nil
}

// View renders the dashboard.
func (m Model) View() string {
	width := m.width
	if width <= 0 {
		width = 100
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Harmony Gateway Dashboard"))
	b.WriteString("\n\n")
	b.WriteString(m.renderEvents(width))
	b.WriteString("\n")

	status := fmt.Sprintf("%s | %s | %d events | q: quit  c: clear", m.gatewayURL, m.connState, len(m.rows))
	b.WriteString(statusBarStyle.Render(status))
	if m.err != nil {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render("error: " + m.err.Error()))
	}
	return b.String()
}

// renderEvents renders the event table, newest rows last.
func (m Model) renderEvents(width int) string {
	if len(m.rows) == 0 {
		return dimStyle.Render("  Waiting for events...")
	}

	colAge := colWidth(width, 0.10)
	colOp := colWidth(width, 0.22)
	colDetail := colWidth(width, 0.60)

	header := strings.Join([]string{
		headerCellStyle.Width(colAge).Render("AGE"),
		headerCellStyle.Width(colOp).Render("OP"),
		headerCellStyle.Width(colDetail).Render("DETAIL"),
	}, "")

	visible := m.rows
	if max := m.height - 6; max > 0 && len(visible) > max {
		visible = visible[len(visible)-max:]
	}

	rows := []string{header}
	for i, r := range visible {
		style := rowStyle
		if i%2 == 0 {
			style = altRowStyle
		}
		opCell := lipgloss.NewStyle().
			Width(colOp).
			Foreground(opColor(r.op)).
			Render(truncate(r.op, colOp-1))
		row := strings.Join([]string{
			style.Width(colAge).Render(truncate(age(r.at), colAge-1)),
			opCell,
			style.Width(colDetail).Render(truncate(r.detail, colDetail-1)),
		}, "")
		rows = append(rows, row)
	}
	return strings.Join(rows, "\n")
}

// eventDetail summarises an event for the DETAIL column.
func eventDetail(m *wire.Outbound) string {
	switch {
	case m.Op == wire.OpReady:
		return fmt.Sprintf("session %s, %d guilds", m.SessionID, len(m.Guilds))
	case m.Message != nil:
		return fmt.Sprintf("#%d <%d> %s", m.Message.ChannelID, m.Message.AuthorID, m.Message.Content)
	case m.Presence != nil:
		return fmt.Sprintf("user %d is %s", m.Presence.UserID, m.Presence.Status)
	case m.Guild != nil:
		return fmt.Sprintf("guild %d (%s)", m.Guild.ID, m.Guild.Name)
	case m.GuildID != 0:
		return fmt.Sprintf("guild %d", m.GuildID)
	default:
		return ""
	}
}

// age formats the time since t, e.g. "3s" or "2m05s".
func age(t time.Time) string {
	d := time.Since(t).Round(time.Second)
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	return fmt.Sprintf("%dm%02ds", int(d.Minutes()), int(d.Seconds())%60)
}

// colWidth computes a column width as a fraction of the total width.
func colWidth(total int, frac float64) int {
	w := int(float64(total) * frac)
	if w < 4 {
		return 4
	}
	return w
}

// truncate shortens s to fit max characters, appending an ellipsis.
func truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if len(s) <= max {
		return s
	}
	if max <= 1 {
		return s[:max]
	}
	return s[:max-1] + "…"
}
