package cmd

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/v2/list"
	"github.com/charmbracelet/bubbles/v2/spinner"
	"github.com/charmbracelet/bubbles/v2/viewport"
	tea "github.com/charmbracelet/bubbletea/v2"
	"github.com/spf13/cobra"

	"armlift/internal/armlift/styles"
	"armlift/internal/config"
	"armlift/internal/logging"
	"armlift/internal/ui/colorize"
)

type viewMode int

const (
	viewListing viewMode = iota
	viewFunctions
	viewReport
)

type unitItem struct {
	index int
	unit  unit
}

func (i unitItem) Title() string       { return fmt.Sprintf("%x  %s", i.unit.addr, i.unit.name) }
func (i unitItem) Description() string { return "" }
func (i unitItem) FilterValue() string { return fmt.Sprintf("%x %s", i.unit.addr, i.unit.name) }

// Custom item delegate for the function list
type itemDelegate struct{}

func (d itemDelegate) Height() int                               { return 1 }
func (d itemDelegate) Spacing() int                              { return 0 }
func (d itemDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd { return nil }

func (d itemDelegate) Render(w io.Writer, m list.Model, index int, listItem list.Item) {
	i, ok := listItem.(unitItem)
	if !ok {
		return
	}
	indicator, addrStyle := " ", styles.Dim
	if index == m.Index() {
		indicator, addrStyle = ">", styles.Selected
	}
	fmt.Fprintf(w, " %s  %s  %s",
		indicator,
		addrStyle.Render(fmt.Sprintf("%08x", i.unit.addr)),
		styles.Symbol.Render(i.unit.name))
}

type model struct {
	listing   viewport.Model
	report    viewport.Model
	functions list.Model
	spinner   spinner.Model
	mode      viewMode

	path    string
	cfg     *config.Config
	target  *target
	results map[int]liftResult
	current int
	loading bool
	status  string

	width  int
	height int
}

// Message types
type targetMsg struct {
	target *target
	err    error
}

type liftedMsg struct {
	index  int
	result liftResult
	err    error
}

// Commands
func openViewTargetCmd(path string, cfg *config.Config) tea.Cmd {
	return func() tea.Msg {
		lg := logging.NewLoggerWithWriter(io.Discard)
		if cfg.LogFile != "" {
			if fl, err := logging.NewFileLogger(cfg.LogFile); err == nil {
				lg = fl
			}
		}
		t, err := openTarget(path, cfg, nil, true, lg.Logger)
		if err == nil && len(t.units) == 0 {
			// No sized A32 functions: fall back to .text.
			t.Close()
			t, err = openTarget(path, cfg, nil, false, lg.Logger)
		}
		return targetMsg{target: t, err: err}
	}
}

func liftUnitCmd(t *target, index int) tea.Cmd {
	return func() tea.Msg {
		res, err := liftUnit(t.units[index], t.host, liftOptions{isData: t.isData})
		return liftedMsg{index: index, result: res, err: err}
	}
}

func NewModel(path string, cfg *config.Config) model {
	lv := viewport.New()
	lv.SetWidth(80)
	lv.SetHeight(24)
	rv := viewport.New()
	rv.SetWidth(80)
	rv.SetHeight(24)

	functions := list.New([]list.Item{}, itemDelegate{}, 80, 24)
	functions.SetShowStatusBar(false)
	functions.SetFilteringEnabled(true)
	functions.Title = "Functions"
	functions.Styles.Title = styles.Title
	functions.SetShowHelp(true)

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = styles.Spinner

	return model{
		listing:   lv,
		report:    rv,
		functions: functions,
		spinner:   s,
		mode:      viewListing,
		path:      path,
		cfg:       cfg,
		results:   map[int]liftResult{},
		loading:   true,
		status:    "Opening " + path,
		width:     80,
		height:    24,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		openViewTargetCmd(m.path, m.cfg),
		m.spinner.Tick,
	)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case targetMsg:
		if msg.err != nil {
			m.loading = false
			m.status = "Error: " + msg.err.Error()
			m.listing.SetContent(styles.Warn.Render(m.status))
			return m, nil
		}
		m.target = msg.target
		if len(m.target.units) == 0 {
			m.loading = false
			m.status = "Nothing to lift in " + m.path
			m.listing.SetContent(styles.Warn.Render(m.status))
			return m, nil
		}
		items := make([]list.Item, len(m.target.units))
		for i, u := range m.target.units {
			items[i] = unitItem{index: i, unit: u}
		}
		setItems := m.functions.SetItems(items)
		m.functions.Title = fmt.Sprintf("Functions (%d total)", len(items))
		m.status = fmt.Sprintf("Lifting %s", m.target.units[0].name)
		return m, tea.Batch(setItems, liftUnitCmd(m.target, 0))

	case liftedMsg:
		m.loading = false
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
			m.listing.SetContent(styles.Warn.Render(m.status))
			return m, nil
		}
		m.results[msg.index] = msg.result
		m.show(msg.index)
		return m, nil

	case spinner.TickMsg:
		m.spinner, cmd = m.spinner.Update(msg)
		if m.loading {
			m.listing.SetContent(fmt.Sprintf("%s %s...", m.spinner.View(), m.status))
			return m, cmd
		}
		return m, nil

	case tea.WindowSizeMsg:
		if msg.Width != m.width || msg.Height != m.height {
			m.width = msg.Width
			m.height = msg.Height
			for _, vp := range []*viewport.Model{&m.listing, &m.report} {
				vp.SetWidth(msg.Width)
				vp.SetHeight(msg.Height - 2)
			}
			m.functions.SetWidth(msg.Width)
			m.functions.SetHeight(msg.Height - 2)
			if _, ok := m.results[m.current]; ok {
				m.show(m.current)
			}
		}

	case tea.KeyMsg:
		// Let the list handle keys while it is filtering.
		filtering := m.mode == viewFunctions && m.functions.FilterState() == list.Filtering
		switch msg.String() {
		case "ctrl+c":
			return m, m.quit()
		case "q":
			if !filtering {
				return m, m.quit()
			}
		}
		if !filtering {
			switch msg.String() {
			case "l":
				m.mode = viewListing
				return m, nil
			case "f":
				m.mode = viewFunctions
				return m, nil
			case "r":
				m.mode = viewReport
				return m, nil
			case "tab":
				m.mode = (m.mode + 1) % 3
				return m, nil
			case "shift+tab":
				m.mode = (m.mode + 2) % 3
				return m, nil
			case "enter":
				if m.mode == viewFunctions && m.target != nil {
					if item, ok := m.functions.SelectedItem().(unitItem); ok {
						m.mode = viewListing
						if _, done := m.results[item.index]; done {
							m.show(item.index)
							return m, nil
						}
						m.loading = true
						m.status = "Lifting " + item.unit.name
						return m, tea.Batch(liftUnitCmd(m.target, item.index), m.spinner.Tick)
					}
				}
				return m, nil
			}
		}
	}

	// Update the active view
	switch m.mode {
	case viewFunctions:
		m.functions, cmd = m.functions.Update(msg)
	case viewReport:
		m.report, cmd = m.report.Update(msg)
	default:
		m.listing, cmd = m.listing.Update(msg)
	}
	return m, cmd
}

func (m *model) quit() tea.Cmd {
	if m.target != nil {
		m.target.Close()
	}
	return tea.Quit
}

// show fills the listing and report views with the result of unit index.
func (m *model) show(index int) {
	res := m.results[index]
	m.current = index

	var buf bytes.Buffer
	color := !m.cfg.NoColor && colorize.Enabled()
	if err := writeText(&buf, res, color); err != nil {
		slog.Error("Rendering listing", "error", err)
	}
	m.listing.SetContent(strings.TrimSuffix(buf.String(), "\n"))
	m.listing.GotoTop()

	width := m.width
	if width == 0 {
		width = 80
	}
	md := m.target.report(res).Markdown()
	m.report.SetContent(strings.TrimSuffix(styles.RenderMarkdown(md, width-2), "\n"))
	m.report.GotoTop()
	m.status = fmt.Sprintf("%s: %d instructions, %d faults", res.unit.name, len(res.lifted), len(res.faults))
}

func (m model) View() string {
	var content string
	switch m.mode {
	case viewFunctions:
		content = m.functions.View()
	case viewReport:
		content = m.report.View()
	default:
		content = m.listing.View()
	}

	var menu string
	switch m.mode {
	case viewFunctions:
		menu = " Enter: lift • L: listing • R: report • Tab: cycle • Q: quit "
	case viewReport:
		menu = " L: listing • F: functions • Tab: cycle • Q: quit "
	default:
		menu = " F: functions • R: report • Tab: cycle • Q: quit "
	}
	if m.status != "" {
		menu += "│ " + m.status
	}
	return content + "\n" + styles.Menu.Width(m.width).Render(menu)
}

var viewCmd = &cobra.Command{
	Use:   "view [file]",
	Short: "Browse lifted functions interactively",
	Long: `View opens a terminal UI listing the A32 functions of an ELF image.
Selecting a function shows its lifted listing and a summary report.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		program := tea.NewProgram(
			NewModel(args[0], cfg),
			tea.WithAltScreen(),
			tea.WithContext(cmd.Context()),
		)
		if _, err := program.Run(); err != nil {
			slog.Error("TUI run error", "error", err)
			return fmt.Errorf("TUI error: %v", err)
		}
		return nil
	},
}

func init() {
	addRangeFlags(viewCmd)
	rootCmd.AddCommand(viewCmd)
}
