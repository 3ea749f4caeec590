package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/wricardo/lightcycle/game/engine"
	"github.com/wricardo/lightcycle/game/service"
)

var (
	flagSpectateServer string
	flagSpectateGame   string
)

var spectateCmd = &cobra.Command{
	Use:   "spectate",
	Short: "Watch a running match in the terminal, read-only",
	Long: `spectate polls a running server's read-only REST API and renders the grid
with lipgloss styling, refreshed on a fixed tick. It cannot join or steer —
this is strictly an operator's viewer onto the match an agent is already
playing.

Examples:
  lightcycle spectate --server localhost:8080
  lightcycle spectate --server localhost:8080 --game a1b2c3d4`,
	Run: runSpectate,
}

func init() {
	spectateCmd.Flags().StringVar(&flagSpectateServer, "server", "localhost:8080", "Server address (host:port) of the HTTP API")
	spectateCmd.Flags().StringVar(&flagSpectateGame, "game", "", "Game id to watch (blank watches the most recently started active game)")
}

func runSpectate(cmd *cobra.Command, args []string) {
	m := newSpectateModel(flagSpectateServer, flagSpectateGame)
	p := tea.NewProgram(m)
	if _, err := p.Run(); err != nil {
		fmt.Printf("spectate error: %v\n", err)
	}
}

type gamesResponse struct {
	Active   []service.GameSnapshot `json:"active"`
	Finished []service.GameSnapshot `json:"finished"`
}

type spectateTickMsg time.Time

type gamesFetchedMsg struct {
	resp gamesResponse
	err  error
}

// spectateModel is a read-only bubbletea viewer: it never sends a join_game
// or steer request, only GET /api/games on a fixed poll.
type spectateModel struct {
	client   *http.Client
	baseURL  string
	gameID   string
	resp     gamesResponse
	lastErr  error
	width    int
	height   int
}

func newSpectateModel(server, gameID string) spectateModel {
	return spectateModel{
		client:  &http.Client{Timeout: 3 * time.Second},
		baseURL: fmt.Sprintf("http://%s", server),
		gameID:  gameID,
	}
}

func (m spectateModel) Init() tea.Cmd {
	return tea.Batch(m.fetchCmd(), spectateTickCmd())
}

func spectateTickCmd() tea.Cmd {
	return tea.Tick(500*time.Millisecond, func(t time.Time) tea.Msg {
		return spectateTickMsg(t)
	})
}

func (m spectateModel) fetchCmd() tea.Cmd {
	return func() tea.Msg {
		resp, err := m.client.Get(m.baseURL + "/api/games")
		if err != nil {
			return gamesFetchedMsg{err: err}
		}
		defer resp.Body.Close()
		var parsed gamesResponse
		if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
			return gamesFetchedMsg{err: err}
		}
		return gamesFetchedMsg{resp: parsed}
	}
}

func (m spectateModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}
		return m, nil
	case spectateTickMsg:
		return m, tea.Batch(m.fetchCmd(), spectateTickCmd())
	case gamesFetchedMsg:
		if msg.err != nil {
			m.lastErr = msg.err
			return m, nil
		}
		m.lastErr = nil
		m.resp = msg.resp
		return m, nil
	}
	return m, nil
}

var cellStyles = map[int]lipgloss.Style{
	int(engine.CellEmpty):       lipgloss.NewStyle().Foreground(lipgloss.Color("0")),
	int(engine.CellWall):        lipgloss.NewStyle().Foreground(lipgloss.Color("7")),
	int(engine.CellObstruction): lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
}

var trailPalette = []lipgloss.Style{
	lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
	lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
	lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
	lipgloss.NewStyle().Foreground(lipgloss.Color("12")),
	lipgloss.NewStyle().Foreground(lipgloss.Color("13")),
	lipgloss.NewStyle().Foreground(lipgloss.Color("14")),
	lipgloss.NewStyle().Foreground(lipgloss.Color("208")),
	lipgloss.NewStyle().Foreground(lipgloss.Color("15")),
}

func (m spectateModel) targetGame() *service.GameSnapshot {
	if m.gameID != "" {
		for i := range m.resp.Active {
			if m.resp.Active[i].ID == m.gameID {
				return &m.resp.Active[i]
			}
		}
		for i := range m.resp.Finished {
			if m.resp.Finished[i].ID == m.gameID {
				return &m.resp.Finished[i]
			}
		}
		return nil
	}
	if len(m.resp.Active) == 0 {
		return nil
	}
	latest := &m.resp.Active[0]
	for i := range m.resp.Active {
		if m.resp.Active[i].CreatedAt.After(latest.CreatedAt) {
			latest = &m.resp.Active[i]
		}
	}
	return latest
}

func (m spectateModel) View() string {
	var b strings.Builder
	b.WriteString(lipgloss.NewStyle().Bold(true).Render("Light-Cycle Spectator"))
	b.WriteString("  (q to quit)\n\n")

	if m.lastErr != nil {
		fmt.Fprintf(&b, "error reaching %s: %v\n", m.baseURL, m.lastErr)
		return b.String()
	}

	game := m.targetGame()
	if game == nil {
		b.WriteString("No matching game. Waiting for a match to start...\n")
		return b.String()
	}

	fmt.Fprintf(&b, "Game %s — %s (level %d) — tick %d — %s\n\n",
		game.ID, game.CourseName, game.CourseLevel, game.Tick, game.Status)

	for _, row := range game.Grid {
		for _, cell := range row {
			b.WriteString(renderCell(cell))
		}
		b.WriteRune('\n')
	}

	b.WriteString("\nPlayers:\n")
	for _, p := range game.Players {
		status := "alive"
		if !p.Alive {
			status = "crashed"
		}
		fmt.Fprintf(&b, "  %d %-16s %-7s heading %-6s distance %d\n",
			p.Index, p.Name, status, p.Direction, p.Distance)
	}
	return b.String()
}

func renderCell(cell int) string {
	if style, ok := cellStyles[cell]; ok {
		return style.Render(cellGlyph(cell))
	}
	idx := cell - 3
	if idx >= 0 && idx < len(trailPalette) {
		return trailPalette[idx].Render(fmt.Sprintf("%d", idx))
	}
	return " "
}

func cellGlyph(cell int) string {
	switch cell {
	case int(engine.CellEmpty):
		return "."
	case int(engine.CellWall):
		return "#"
	case int(engine.CellObstruction):
		return "X"
	default:
		return " "
	}
}
