package cli

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/matzehuels/jarflow/internal/config"
	"github.com/matzehuels/jarflow/pkg/deps"
	"github.com/matzehuels/jarflow/pkg/download"
	"github.com/matzehuels/jarflow/pkg/session"
)

var (
	barFullStyle  = lipgloss.NewStyle().Foreground(colorCyan)
	barEmptyStyle = lipgloss.NewStyle().Foreground(colorDim)
)

const barWidth = 24

// =============================================================================
// FetchModel - live per-archive chunk progress
// =============================================================================

// eventMsg carries one downloader event into the model.
type eventMsg download.Event

// installDoneMsg ends the program once the install returns.
type installDoneMsg struct {
	res *session.InstallResult
	err error
}

// transferState is the progress of one archive.
type transferState struct {
	url    string
	chunks int
	done   int
	failed int
	bytes  int64
	total  int64 // -1 when the server did not report a size
	merged bool
}

func (t *transferState) fraction() float64 {
	switch {
	case t.merged:
		return 1
	case t.total > 0:
		return float64(t.bytes) / float64(t.total)
	case t.chunks > 0:
		return float64(t.done) / float64(t.chunks)
	}
	return 0
}

// FetchModel is the bubbletea model behind fetch --tui.
type FetchModel struct {
	title     string
	transfers map[string]*transferState
	order     []string
	cancel    context.CancelFunc

	Result *session.InstallResult
	Err    error
	Quit   bool // the user interrupted
}

// NewFetchModel creates a model. cancel is called when the user quits.
func NewFetchModel(title string, cancel context.CancelFunc) FetchModel {
	return FetchModel{
		title:     title,
		transfers: make(map[string]*transferState),
		cancel:    cancel,
	}
}

func (m FetchModel) Init() tea.Cmd {
	return nil
}

func (m FetchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.Quit = true
			if m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		}
	case eventMsg:
		m.observe(download.Event(msg))
	case installDoneMsg:
		m.Result, m.Err = msg.res, msg.err
		return m, tea.Quit
	}
	return m, nil
}

func (m *FetchModel) observe(e download.Event) {
	t, ok := m.transfers[e.URL]
	if !ok {
		t = &transferState{url: e.URL, total: -1}
		m.transfers[e.URL] = t
		m.order = append(m.order, e.URL)
	}
	switch e.Kind {
	case download.EventStart:
		t.chunks, t.total = e.Chunks, e.Bytes
	case download.EventChunkDone:
		t.done++
		t.bytes += e.Bytes
	case download.EventChunkFailed:
		t.failed++
	case download.EventMerged:
		t.merged = true
		t.bytes = e.Bytes
	}
}

func (m FetchModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render(m.title))
	b.WriteString("\n")
	b.WriteString(StyleDim.Render("q quit"))
	b.WriteString("\n\n")

	active, finished := 0, 0
	for _, url := range m.order {
		t := m.transfers[url]
		if t.merged {
			finished++
		} else {
			active++
		}
		b.WriteString(renderTransfer(t))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(StyleDim.Render(fmt.Sprintf("  %d active · %d done", active, finished)))
	b.WriteString("\n")
	return b.String()
}

func renderTransfer(t *transferState) string {
	filled := int(t.fraction() * barWidth)
	if filled > barWidth {
		filled = barWidth
	}
	bar := barFullStyle.Render(strings.Repeat("█", filled)) +
		barEmptyStyle.Render(strings.Repeat("░", barWidth-filled))

	icon := styleIconSpinner.Render("⠿")
	switch {
	case t.failed > 0:
		icon = styleIconError.Render(iconError)
	case t.merged:
		icon = styleIconSuccess.Render(iconSuccess)
	}

	size := download.FormatSize(t.total)
	chunks := fmt.Sprintf("%d/%d", t.done, t.chunks)
	return fmt.Sprintf("%s %s %s %s", icon, bar, StyleDim.Render(fmt.Sprintf("%-7s %9s", chunks, size)), fileName(t.url))
}

func fileName(url string) string {
	if i := strings.LastIndex(url, "/"); i >= 0 {
		return url[i+1:]
	}
	return url
}

// installWithTUI runs the install in the background and renders its
// downloader events until it finishes or the user quits.
func (c *CLI) installWithTUI(ctx context.Context, cfg config.Config, roots []deps.Dependency) (*session.InstallResult, *workspace, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(NewFetchModel("Fetching "+rootNames(roots), cancel))

	// Log lines would interleave with the progress view; keep only errors.
	logger := c.Logger.WithPrefix("fetch")
	logger.SetLevel(log.ErrorLevel)
	w, err := c.open(withLogger(ctx, logger), cfg, func(e download.Event) {
		p.Send(eventMsg(e))
	})
	if err != nil {
		return nil, nil, err
	}

	results := make(chan installDoneMsg, 1)
	go func() {
		res, err := w.session.Install(ctx, roots...)
		results <- installDoneMsg{res: res, err: err}
		p.Send(installDoneMsg{res: res, err: err})
	}()

	final, runErr := p.Run()
	out := <-results
	if runErr != nil {
		return nil, w, runErr
	}
	if final.(FetchModel).Quit {
		return nil, w, context.Canceled
	}
	return out.res, w, out.err
}
