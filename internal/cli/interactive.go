package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/vendra-ai/vendra/internal/analysis"
	"github.com/vendra-ai/vendra/internal/conversation"
	"github.com/vendra-ai/vendra/internal/simstore"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7D56F4"))

	clientStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#04B575"))

	sellerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA"))

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262"))

	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF5555"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262"))

	headerBorder = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#7D56F4")).
			Padding(0, 2)
)

// runPracticeCall drives one interactive session. Falls back to a
// plain line-based loop when stdout is not a terminal.
func runPracticeCall(ctx context.Context, engine *conversation.Engine, analyzer *analysis.Engine, sess *simstore.Session) error {
	out := os.Stdout
	tty := isatty.IsTerminal(out.Fd()) || isatty.IsCygwinTerminal(out.Fd())
	if !tty {
		return runPlainCall(ctx, engine, analyzer, sess)
	}

	m := newChatModel(ctx, engine, analyzer, sess)
	p := tea.NewProgram(m, tea.WithAltScreen())
	final, err := p.Run()
	if err != nil {
		return fmt.Errorf("run interactive session: %w", err)
	}

	fm, ok := final.(chatModel)
	if !ok {
		return nil
	}
	if fm.report != nil {
		printReport(fm.report)
	} else if fm.outcome != "" {
		fmt.Printf("\nSesión %s terminada (%s). Análisis con: vendra analyze -s %s -t <tabla>\n",
			sess.ID, fm.outcome, sess.ID)
	} else {
		fmt.Printf("\nSesión %s interrumpida sin cierre.\n", sess.ID)
	}
	return nil
}

type chatLine struct {
	role string // seller, client, system
	text string
}

type chatModel struct {
	ctx      context.Context
	engine   *conversation.Engine
	analyzer *analysis.Engine
	sess     *simstore.Session

	lines   []chatLine
	input   []rune
	busy    bool
	status  string
	errText string
	outcome string
	report  *simstore.Analysis
	done    bool
	width   int
}

type turnDoneMsg struct{ result *conversation.TurnResult }

type turnErrMsg struct{ err error }

type sessionEndedMsg struct {
	outcome string
	report  *simstore.Analysis
	err     error
}

func newChatModel(ctx context.Context, engine *conversation.Engine, analyzer *analysis.Engine, sess *simstore.Session) chatModel {
	clientName := "Cliente"
	if sess.Persona != nil && sess.Persona.Name != "" {
		clientName = sess.Persona.Name
	}
	return chatModel{
		ctx:      ctx,
		engine:   engine,
		analyzer: analyzer,
		sess:     sess,
		width:    80,
		lines: []chatLine{
			{role: "system", text: fmt.Sprintf("Llamando a %s...", clientName)},
		},
	}
}

func (m chatModel) Init() tea.Cmd {
	return nil
}

func (m chatModel) clientName() string {
	if m.sess.Persona != nil && m.sess.Persona.Name != "" {
		return m.sess.Persona.Name
	}
	return "Cliente"
}

func (m chatModel) speakCmd(text string) tea.Cmd {
	return func() tea.Msg {
		result, err := m.engine.ProcessTurn(m.ctx, m.sess.ID, text)
		if err != nil {
			return turnErrMsg{err: err}
		}
		return turnDoneMsg{result: result}
	}
}

func (m chatModel) endCmd(outcome string) tea.Cmd {
	return func() tea.Msg {
		if err := m.engine.End(m.ctx, m.sess.ID, outcome); err != nil {
			return sessionEndedMsg{outcome: outcome, err: err}
		}
		report, err := m.analyzer.Analyze(m.ctx, m.sess.ID)
		if errors.Is(err, simstore.ErrAnalysisExists) {
			report, err = m.analyzer.Get(m.ctx, m.sess.ID)
		}
		return sessionEndedMsg{outcome: outcome, report: report, err: err}
	}
}

func (m chatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case turnDoneMsg:
		m.busy = false
		m.errText = ""
		r := msg.result
		m.lines = append(m.lines, chatLine{role: "client", text: r.Client.ClientText})
		m.status = fmt.Sprintf("interés %d/10 · etapa %s · confianza %d",
			r.Client.Interest,
			r.State.DecisionProgression.Stage,
			r.State.DecisionProgression.Confidence)
		if r.Client.WantsToEnd {
			m.lines = append(m.lines, chatLine{role: "system",
				text: "El cliente quiere terminar la llamada. Cierra con /end accepted, /end rejected o /end abandoned."})
		}
		return m, nil

	case turnErrMsg:
		m.busy = false
		m.errText = msg.err.Error()
		return m, nil

	case sessionEndedMsg:
		m.busy = false
		m.outcome = msg.outcome
		if msg.err != nil {
			m.errText = msg.err.Error()
		}
		m.report = msg.report
		m.done = true
		return m, tea.Quit

	case tea.KeyMsg:
		if m.busy {
			if msg.Type == tea.KeyCtrlC {
				return m, tea.Quit
			}
			return m, nil
		}
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			text := strings.TrimSpace(string(m.input))
			if text == "" {
				return m, nil
			}
			m.input = nil
			if strings.HasPrefix(text, "/end") {
				outcome := strings.TrimSpace(strings.TrimPrefix(text, "/end"))
				if outcome == "" {
					outcome = conversation.OutcomeAbandoned
				}
				switch outcome {
				case conversation.OutcomeAccepted, conversation.OutcomeRejected, conversation.OutcomeAbandoned:
					m.busy = true
					m.lines = append(m.lines, chatLine{role: "system", text: "Terminando la llamada y generando el análisis..."})
					return m, m.endCmd(outcome)
				default:
					m.errText = fmt.Sprintf("resultado inválido %q: usa accepted, rejected o abandoned", outcome)
					return m, nil
				}
			}
			m.lines = append(m.lines, chatLine{role: "seller", text: text})
			m.busy = true
			m.errText = ""
			return m, m.speakCmd(text)
		case tea.KeyBackspace:
			if len(m.input) > 0 {
				m.input = m.input[:len(m.input)-1]
			}
			return m, nil
		case tea.KeyCtrlU:
			m.input = nil
			return m, nil
		case tea.KeySpace:
			m.input = append(m.input, ' ')
			return m, nil
		case tea.KeyRunes:
			m.input = append(m.input, msg.Runes...)
			return m, nil
		}
	}

	return m, nil
}

func (m chatModel) View() string {
	var b strings.Builder

	header := fmt.Sprintf("%s\n%s · %s · %s",
		titleStyle.Render("VENDRA · llamada de práctica"),
		m.sess.Scenario.ProductName,
		m.sess.Scenario.ContactType,
		m.sess.Scenario.SimulationPreferences.ClientIntensity)
	b.WriteString(headerBorder.Render(header))
	b.WriteString("\n\n")

	// Keep only the tail of the transcript on screen.
	lines := m.lines
	if len(lines) > 14 {
		lines = lines[len(lines)-14:]
	}
	for _, line := range lines {
		switch line.role {
		case "seller":
			b.WriteString(sellerStyle.Render("Tú: "))
			b.WriteString(line.text)
		case "client":
			b.WriteString(clientStyle.Render(m.clientName() + ": "))
			b.WriteString(line.text)
		default:
			b.WriteString(statusStyle.Render(line.text))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if m.status != "" {
		b.WriteString(statusStyle.Render(m.status))
		b.WriteString("\n")
	}
	if m.errText != "" {
		b.WriteString(errorStyle.Render("Error: " + m.errText))
		b.WriteString("\n")
	}

	if m.busy {
		b.WriteString(statusStyle.Render(m.clientName() + " está respondiendo..."))
	} else {
		b.WriteString(sellerStyle.Render("> "))
		b.WriteString(string(m.input))
		b.WriteString("█")
	}
	b.WriteString("\n\n")
	b.WriteString(helpStyle.Render("enter: hablar · /end accepted|rejected|abandoned: cerrar · esc: salir"))
	b.WriteString("\n")

	return b.String()
}

// runPlainCall is the non-TTY fallback: read seller lines from stdin,
// print client replies to stdout.
func runPlainCall(ctx context.Context, engine *conversation.Engine, analyzer *analysis.Engine, sess *simstore.Session) error {
	clientName := "Cliente"
	if sess.Persona != nil && sess.Persona.Name != "" {
		clientName = sess.Persona.Name
	}
	fmt.Printf("Sesión %s · llamando a %s (%s)\n", sess.ID, clientName, sess.Scenario.ContactType)
	fmt.Println("Escribe tu turno y presiona enter. /end accepted|rejected|abandoned para cerrar.")

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 64*1024)
	for {
		fmt.Print("\nTú: ")
		if !scanner.Scan() {
			break
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		if strings.HasPrefix(text, "/end") {
			outcome := strings.TrimSpace(strings.TrimPrefix(text, "/end"))
			if outcome == "" {
				outcome = conversation.OutcomeAbandoned
			}
			if err := engine.End(ctx, sess.ID, outcome); err != nil {
				return err
			}
			report, err := analyzer.Analyze(ctx, sess.ID)
			if errors.Is(err, simstore.ErrAnalysisExists) {
				report, err = analyzer.Get(ctx, sess.ID)
			}
			if err != nil {
				return err
			}
			printReport(report)
			return nil
		}

		result, err := engine.ProcessTurn(ctx, sess.ID, text)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			continue
		}
		fmt.Printf("%s: %s\n", clientName, result.Client.ClientText)
		fmt.Printf("  [interés %d/10 · etapa %s · confianza %d]\n",
			result.Client.Interest,
			result.State.DecisionProgression.Stage,
			result.State.DecisionProgression.Confidence)
		if result.Client.WantsToEnd {
			fmt.Println("  El cliente quiere terminar la llamada.")
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	return nil
}
