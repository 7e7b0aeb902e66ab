package cli

import (
	"fmt"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/flatnode/flatnode/pkg/inlined"
)

// List styles
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
)

// =============================================================================
// graphBrowserModel - Interactive graph browsing
// =============================================================================

// graphBrowserModel is the bubbletea model for browsing an inlined graph.
// The node list and the detail view share one model; enter toggles between
// them for the node under the cursor.
type graphBrowserModel struct {
	graph  *inlined.Graph
	nodes  []*inlined.Node
	cursor int
	offset int
	height int
	detail bool
}

// newGraphBrowserModel creates a browser over the given graph.
func newGraphBrowserModel(g *inlined.Graph) graphBrowserModel {
	return graphBrowserModel{
		graph:  g,
		nodes:  g.Nodes(),
		height: 15,
	}
}

func (m graphBrowserModel) Init() tea.Cmd {
	return nil
}

func (m graphBrowserModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "esc":
			if m.detail {
				m.detail = false
				return m, nil
			}
			return m, tea.Quit
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
				if m.cursor < m.offset {
					m.offset = m.cursor
				}
			}
		case "down", "j":
			if m.cursor < len(m.nodes)-1 {
				m.cursor++
				if m.cursor >= m.offset+m.height {
					m.offset = m.cursor - m.height + 1
				}
			}
		case "enter":
			m.detail = !m.detail
		}
	case tea.WindowSizeMsg:
		m.height = msg.Height - 6
		if m.height < 5 {
			m.height = 5
		}
	}
	return m, nil
}

func (m graphBrowserModel) View() string {
	if m.detail {
		return m.detailView()
	}
	return m.listView()
}

// listView renders the scrolling node table.
func (m graphBrowserModel) listView() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render(fmt.Sprintf("Graph: %s", m.graph.RootTree())))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  ⏎ details  q quit"))
	b.WriteString("\n\n")

	end := m.offset + m.height
	if end > len(m.nodes) {
		end = len(m.nodes)
	}

	rows := [][]string{}
	for i := m.offset; i < end; i++ {
		n := m.nodes[i]

		cursor := "  "
		if i == m.cursor {
			cursor = "▸ "
		}

		rows = append(rows, []string{
			cursor,
			fmt.Sprintf("%d", n.ID()),
			n.Path(),
			n.VNode().Type(),
			fmt.Sprintf("%d in / %d out", len(n.Inputs()), len(n.Outputs())),
		})
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "ID", "Node", "Type", "Sockets").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			if m.offset+row == m.cursor {
				return listSelectedStyle
			}
			return lipgloss.NewStyle().Foreground(colorWhite)
		})

	b.WriteString(t.Render())
	b.WriteString("\n\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]  %d links  %d dangling group inputs",
		m.cursor+1, len(m.nodes), m.graph.LinkCount(), len(m.graph.GroupInputs()))))

	return b.String()
}

// detailView renders the sockets and links of the selected node.
func (m graphBrowserModel) detailView() string {
	n := m.nodes[m.cursor]

	var b strings.Builder
	b.WriteString(StyleTitle.Render(n.Path()))
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  #%d %s", n.ID(), n.VNode().Type())))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("esc back  q quit"))
	b.WriteString("\n\n")

	if params := n.VNode().Params(); len(params) > 0 {
		b.WriteString(StyleValue.Render("Params"))
		b.WriteString("\n")
		keys := make([]string, 0, len(params))
		for key := range params {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			b.WriteString(fmt.Sprintf("  %s = %v\n", key, params[key]))
		}
		b.WriteString("\n")
	}

	b.WriteString(StyleValue.Render("Inputs"))
	b.WriteString("\n")
	for _, in := range n.Inputs() {
		b.WriteString(fmt.Sprintf("  [%d] %s\n", in.ID(), in.Name()))
		for _, out := range in.LinkedSockets() {
			b.WriteString(listDimStyle.Render(fmt.Sprintf("      %s %s.%s\n", iconArrow, out.Node().Path(), out.Name())))
		}
		for _, gi := range in.LinkedGroupInputs() {
			b.WriteString(StyleWarning.Render(fmt.Sprintf("      %s %s (unconnected group input)\n", iconArrow, gi.Path())))
		}
	}

	b.WriteString("\n")
	b.WriteString(StyleValue.Render("Outputs"))
	b.WriteString("\n")
	for _, out := range n.Outputs() {
		b.WriteString(fmt.Sprintf("  [%d] %s\n", out.ID(), out.Name()))
		for _, in := range out.LinkedSockets() {
			b.WriteString(listDimStyle.Render(fmt.Sprintf("      %s %s.%s\n", iconArrow, in.Node().Path(), in.Name())))
		}
	}

	return b.String()
}
