package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/strongarm/pkg/cellio"
)

// List styles
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
)

// inspectCommand creates the inspect command for browsing a cell file.
func (c *CLI) inspectCommand() *cobra.Command {
	var plain bool

	cmd := &cobra.Command{
		Use:   "inspect [cell.json]",
		Short: "Browse the instances and ports of a cell",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := cellio.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("load cell %s: %w", args[0], err)
			}
			if plain {
				printSummary(doc)
				return nil
			}
			_, err = tea.NewProgram(NewCellModel(doc), tea.WithContext(cmd.Context())).Run()
			return err
		},
	}

	cmd.Flags().BoolVar(&plain, "plain", false, "print a summary instead of the interactive view")

	return cmd
}

// printSummary prints the cell header and its pins.
func printSummary(doc *cellio.Document) {
	st := doc.Stats()
	printKeyValue("Cell", doc.Name)
	printKeyValue("Process", doc.Process)
	printKeyValue("Pitch", fmt.Sprint(doc.Pitch))
	printKeyValue("Lattice", doc.Lattice.String())
	printKeyValue("Size", fmt.Sprintf("%d x %d", st.Width, st.Height))
	printKeyValue("Instances", fmt.Sprint(st.Instances))
	printKeyValue("Tracks", fmt.Sprint(st.Tracks))
	printKeyValue("Routed", fmt.Sprint(doc.Routed()))
	printNewline()
	for _, p := range doc.Ports {
		printDetail("%-6s M%d %s", p.Name, p.Layer, p.Shape)
	}
}

// =============================================================================
// CellModel - Interactive instance browser
// =============================================================================

// CellModel is the bubbletea model for browsing a cell's instances.
type CellModel struct {
	Doc    *cellio.Document
	Cursor int
	Height int
	Offset int
}

// NewCellModel creates a new cell model.
func NewCellModel(doc *cellio.Document) CellModel {
	return CellModel{Doc: doc, Height: 15}
}

func (m CellModel) Init() tea.Cmd {
	return nil
}

func (m CellModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
				if m.Cursor < m.Offset {
					m.Offset = m.Cursor
				}
			}
		case "down", "j":
			if m.Cursor < len(m.Doc.Instances)-1 {
				m.Cursor++
				if m.Cursor >= m.Offset+m.Height {
					m.Offset = m.Cursor - m.Height + 1
				}
			}
		case "home", "g":
			m.Cursor, m.Offset = 0, 0
		}
	case tea.WindowSizeMsg:
		m.Height = msg.Height - 12
		if m.Height < 5 {
			m.Height = 5
		}
	}
	return m, nil
}

// Selected returns the instance under the cursor.
func (m CellModel) Selected() (cellio.Instance, bool) {
	if m.Cursor < 0 || m.Cursor >= len(m.Doc.Instances) {
		return cellio.Instance{}, false
	}
	return m.Doc.Instances[m.Cursor], true
}

func (m CellModel) View() string {
	var b strings.Builder

	st := m.Doc.Stats()
	b.WriteString(StyleTitle.Render(m.Doc.Name))
	b.WriteString(" ")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("%s · %d instances · %d wires", m.Doc.Process, st.Instances, st.Wires)))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  q quit"))
	b.WriteString("\n\n")

	end := m.Offset + m.Height
	if end > len(m.Doc.Instances) {
		end = len(m.Doc.Instances)
	}

	rows := [][]string{}
	for i := m.Offset; i < end; i++ {
		inst := m.Doc.Instances[i]
		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}
		rows = append(rows, []string{cursor, inst.Name, inst.Kind.String(), inst.Orientation, inst.Lattice.String()})
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "Instance", "Kind", "Orient", "Lattice").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			if m.Offset+row == m.Cursor {
				return listSelectedStyle
			}
			return lipgloss.NewStyle().Foreground(colorWhite)
		})

	b.WriteString(t.Render())
	b.WriteString("\n")

	if inst, ok := m.Selected(); ok {
		b.WriteString(StyleHighlight.Render(inst.Tile))
		b.WriteString(" ")
		b.WriteString(listDimStyle.Render(inst.Bounds.String()))
		b.WriteString("\n")
		for _, p := range inst.Ports {
			b.WriteString(fmt.Sprintf("  %-4s %s %s\n", p.Name, StyleNumber.Render(fmt.Sprintf("M%d", p.Layer)), listDimStyle.Render(p.Shape.String())))
		}
	}

	b.WriteString("\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.Cursor+1, len(m.Doc.Instances))))

	return b.String()
}
