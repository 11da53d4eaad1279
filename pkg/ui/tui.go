// Package ui provides the Bubble Tea TUI for the pricing-aggregation core:
// a live dashboard over the coordinator's quote output, replacing the
// teacher's arbitrage-opportunity feed with a per-venue quote table and a
// diagnostics stream (spec.md §4.5, §4.7).
package ui

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/kbaldwin/dexquote/pkg/ui/components"
)

// Phase represents the current UI phase.
type Phase string

const (
	PhaseWelcome   Phase = "welcome"   // Initial welcome screen
	PhaseStartup   Phase = "startup"   // Loading/connecting
	PhaseDashboard Phase = "dashboard" // Main dashboard
)

// WelcomeDuration is how long the welcome screen shows before auto-advancing.
const WelcomeDuration = 2 * time.Second

// ErrorEntry represents an error with timestamp.
type ErrorEntry struct {
	Message   string
	Timestamp time.Time
}

// Model is the main Bubble Tea model for the TUI.
type Model struct {
	status      *components.StatusComponent
	stats       *components.StatsComponent
	quotes      *components.QuotesComponent
	diagnostics *components.DiagnosticsComponent

	phase        Phase
	welcomeStart time.Time

	ready        bool
	quitting     bool
	paused       bool
	width        int
	height       int
	currentBlock uint64
	gasPrice     float64
	lastUpdate   time.Time
	errors       []ErrorEntry // persistent error panel (last 3)
	logs         []string     // recent log messages

	startupComplete bool
	startupSteps    map[string]*StartupStepState
	startupTime     time.Time

	blocksProcessed int64
	quoteCount      int64
	diagnosticCount int64
	errorCount      int64
}

// StartupStepState tracks one named step shown on the startup screen.
type StartupStepState struct {
	Name   string
	Status string // "pending", "connecting", "connected", "done", "failed"
}

// New creates a new TUI model.
func New() Model {
	now := time.Now()
	return Model{
		status:      components.NewStatusComponent(),
		stats:       components.NewStatsComponent(),
		quotes:      components.NewQuotesComponent(),
		diagnostics: components.NewDiagnosticsComponent(50),

		phase:        PhaseWelcome,
		welcomeStart: now,
		logs:         make([]string, 0, 10),
		errors:       make([]ErrorEntry, 0, 3),
		startupSteps: map[string]*StartupStepState{
			"config":    {Name: "Loading configuration", Status: "pending"},
			"ethereum":  {Name: "Connecting to Ethereum", Status: "pending"},
			"pricing":   {Name: "Initializing pricing adapters", Status: "pending"},
		},
		startupTime: now,
	}
}

// Init initializes the TUI model.
func (m Model) Init() tea.Cmd {
	return tickCmd()
}

func tickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg{}
	})
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}
		if m.phase == PhaseWelcome {
			m.phase = PhaseStartup
			m.startupTime = time.Now()
			if OnStartModules != nil {
				go OnStartModules()
			}
			return m, tickCmd()
		}
		switch msg.String() {
		case "c":
			m.diagnostics.Clear()
			return m, nil
		case "p":
			m.paused = !m.paused
			return m, nil
		case "up", "k":
			m.diagnostics.ScrollUp()
			return m, nil
		case "down", "j":
			m.diagnostics.ScrollDown()
			return m, nil
		case "e":
			m.errors = make([]ErrorEntry, 0, 3)
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true

	case TickMsg:
		if m.phase == PhaseWelcome && time.Since(m.welcomeStart) >= WelcomeDuration {
			m.phase = PhaseStartup
			m.startupTime = time.Now()
			if OnStartModules != nil {
				go OnStartModules()
			}
		}
		return m, tickCmd()

	case RateMsg:
		if m.paused {
			return m, nil
		}
		m.applyRate(msg)
		m.lastUpdate = time.Now()

	case AdapterStatusMsg:
		errText := ""
		if msg.Err != "" {
			errText = msg.Err
		}
		m.status.Update(components.ConnectionStatus{
			Name:       msg.Key,
			Connected:  msg.Initialized,
			LastUpdate: time.Now(),
		})
		if errText != "" {
			m.pushError(errText)
		}
		if step, ok := m.startupSteps["pricing"]; ok && msg.Initialized {
			step.Status = "connected"
		}

	case ConnectionStatusMsg:
		m.status.Update(components.ConnectionStatus{
			Name:       msg.Name,
			Connected:  msg.Connected,
			Latency:    msg.Latency,
			LastUpdate: time.Now(),
		})
		stepKey := strings.ToLower(msg.Name)
		if step, ok := m.startupSteps[stepKey]; ok {
			if msg.Connected {
				step.Status = "connected"
			} else {
				step.Status = "connecting"
			}
		}
		if step, ok := m.startupSteps["config"]; ok {
			step.Status = "done"
		}

	case BlockMsg:
		m.currentBlock = msg.Number
		m.blocksProcessed++
		m.lastUpdate = time.Now()

	case GasPriceMsg:
		m.gasPrice = msg.GweiPrice
		m.lastUpdate = time.Now()

	case ErrorMsg:
		m.pushError(msg.Error.Error())
		m.logs = addLog(m.logs, "error", msg.Error.Error())

	case LogMsg:
		m.logs = addLog(m.logs, msg.Level, msg.Message)

	case StartupMsg:
		if step, ok := m.startupSteps[msg.Step]; ok {
			step.Status = msg.Status
		}
		allDone := true
		for _, step := range m.startupSteps {
			if step.Status != "connected" && step.Status != "done" {
				allDone = false
				break
			}
		}
		if allDone {
			m.startupComplete = true
		}
	}

	return m, nil
}

// applyRate folds one route optimizer pipeline result (spec.md §4.8's
// output) into the quotes table and diagnostics feed.
func (m *Model) applyRate(msg RateMsg) {
	rate := msg.Rate
	m.quotes.SetQuery(rate.From.String()+" -> "+rate.To.String(), string(rate.Side))

	rows := make([]components.QuoteRow, 0, len(rate.Envelopes))
	now := time.Now().Format("15:04:05")
	for _, env := range rate.Envelopes {
		q := env.Quote
		if q.Prices == nil {
			m.diagnosticCount++
			m.diagnostics.Add(components.DiagnosticRow{
				Timestamp: now,
				DexKey:    q.DexKey,
				Reason:    string(q.PoolID),
			})
			continue
		}
		m.quoteCount++
		row := components.QuoteRow{
			DexKey: q.DexKey,
			PoolID: string(q.PoolID),
			Unit:   formatUnit(q.Prices.Unit, rate.To.Decimals()),
		}
		if env.Cost != nil {
			row.GasETH = env.Cost.ETH.StringFixed(6)
			row.GasUSD = "$" + env.Cost.USD.StringFixed(2)
		}
		rows = append(rows, row)
	}
	m.quotes.Update(rows)
}

// formatUnit renders a raw per-unit quote in the token's fixed-decimal
// representation, e.g. 1234000000000000000 wei at 18 decimals -> "1.23400000".
func formatUnit(amount *big.Int, decimals uint8) string {
	if amount == nil {
		return "-"
	}
	d := decimal.NewFromBigInt(amount, 0)
	scale := decimal.New(1, int32(decimals))
	return d.DivRound(scale, 8).StringFixed(8)
}

func (m *Model) pushError(message string) {
	m.errorCount++
	m.errors = append(m.errors, ErrorEntry{Message: message, Timestamp: time.Now()})
	if len(m.errors) > 3 {
		m.errors = m.errors[len(m.errors)-3:]
	}
}

func addLog(logs []string, level, message string) []string {
	timestamp := time.Now().Format("15:04:05")
	logs = append(logs, fmt.Sprintf("[%s] %s: %s", timestamp, level, message))
	if len(logs) > 5 {
		logs = logs[len(logs)-5:]
	}
	return logs
}

// View renders the TUI.
func (m Model) View() string {
	if m.quitting {
		return "\n  Goodbye!\n\n"
	}

	switch m.phase {
	case PhaseWelcome:
		return m.renderWelcomeScreen()
	case PhaseStartup:
		if m.currentBlock == 0 && !m.startupComplete {
			return m.renderStartupScreen()
		}
		m.phase = PhaseDashboard
		fallthrough
	case PhaseDashboard:
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render(" DEX Pricing-Aggregation Core "))
	b.WriteString("\n\n")
	b.WriteString(m.renderStatusBar())
	b.WriteString("\n\n")

	leftCol := m.quotes.View()
	rightCol := m.diagnostics.View() + "\n\n" + m.stats.View()

	if m.width > 100 {
		left := BoxStyle.Width(m.width/2 - 2).Render(leftCol)
		right := BoxStyle.Width(m.width/2 - 2).Render(rightCol)
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, left, right))
	} else {
		b.WriteString(BoxStyle.Width(m.width - 4).Render(leftCol))
		b.WriteString("\n")
		b.WriteString(BoxStyle.Width(m.width - 4).Render(rightCol))
	}
	b.WriteString("\n\n")

	if len(m.errors) > 0 {
		errorStyle := lipgloss.NewStyle().Foreground(ColorDanger)
		errorHeader := lipgloss.NewStyle().Bold(true).Foreground(ColorDanger)
		mutedError := lipgloss.NewStyle().Foreground(lipgloss.Color("#9CA3AF"))

		b.WriteString(errorHeader.Render("ERRORS"))
		b.WriteString(mutedError.Render(" (e: clear)"))
		b.WriteString("\n")
		for _, err := range m.errors {
			ago := time.Since(err.Timestamp).Round(time.Second)
			b.WriteString(errorStyle.Render(fmt.Sprintf("  • %s ", err.Message)))
			b.WriteString(mutedError.Render(fmt.Sprintf("(%s ago)", ago)))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	helpText := "q: quit • c: clear diagnostics • p: pause • ↑↓: scroll"
	if m.paused {
		pauseStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#F59E0B"))
		b.WriteString(pauseStyle.Render("⏸ PAUSED"))
		b.WriteString(" • ")
	}
	b.WriteString(HelpStyle.Render(helpText))

	return b.String()
}

func (m Model) renderWelcomeScreen() string {
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	mutedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	greenStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))

	elapsed := time.Since(m.welcomeStart)
	dotCount := int(elapsed.Milliseconds()/300) % 4
	dots := strings.Repeat(".", dotCount)

	var sb strings.Builder
	sb.WriteString("\n\n\n\n")
	logo := `
   ██████╗ ███████╗██╗  ██╗ ██████╗ ██╗   ██╗ ██████╗ ████████╗███████╗
   ██╔══██╗██╔════╝╚██╗██╔╝██╔═══██╗██║   ██║██╔═══██╗╚══██╔══╝██╔════╝
   ██║  ██║█████╗   ╚███╔╝ ██║   ██║██║   ██║██║   ██║   ██║   █████╗
   ██║  ██║██╔══╝   ██╔██╗ ██║▄▄ ██║██║   ██║██║   ██║   ██║   ██╔══╝
   ██████╔╝███████╗██╔╝ ██╗╚██████╔╝╚██████╔╝╚██████╔╝   ██║   ███████╗
   ╚═════╝ ╚══════╝╚═╝  ╚═╝ ╚══▀▀═╝  ╚═════╝  ╚═════╝    ╚═╝   ╚══════╝
`
	sb.WriteString(titleStyle.Render(logo))
	sb.WriteString("\n")
	sb.WriteString(mutedStyle.Render("            P R I C I N G   A G G R E G A T I O N   C O R E"))
	sb.WriteString("\n\n\n")
	sb.WriteString(greenStyle.Render(fmt.Sprintf("                  Initializing%s", dots)))
	sb.WriteString("\n\n")
	sb.WriteString(mutedStyle.Render("            Press any key to skip, or wait..."))
	sb.WriteString("\n")
	return sb.String()
}

func (m Model) renderStartupScreen() string {
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED")).MarginBottom(1)
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFFFFF"))
	mutedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	successStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
	connectingStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B"))
	failedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))

	var sb strings.Builder
	sb.WriteString("\n\n")
	sb.WriteString(titleStyle.Render("  DEX Pricing-Aggregation Core"))
	sb.WriteString("\n\n")
	sb.WriteString(headerStyle.Render("  Starting up..."))
	sb.WriteString("\n\n")

	stepOrder := []string{"config", "ethereum", "pricing"}
	for _, key := range stepOrder {
		step, ok := m.startupSteps[key]
		if !ok {
			continue
		}
		var icon, statusText string
		var style lipgloss.Style
		switch step.Status {
		case "connected", "done":
			icon, statusText, style = "✓", "Ready", successStyle
		case "connecting":
			spinners := []string{"◐", "◓", "◑", "◒"}
			idx := int(time.Since(m.startupTime).Milliseconds()/200) % len(spinners)
			icon, statusText, style = spinners[idx], "Connecting...", connectingStyle
		case "failed":
			icon, statusText, style = "✗", "Failed", failedStyle
		default:
			icon, statusText, style = "○", "Pending", mutedStyle
		}
		sb.WriteString(fmt.Sprintf("  %s %s %s\n", style.Render(icon), mutedStyle.Render(step.Name), style.Render(statusText)))
	}

	sb.WriteString("\n")
	elapsed := time.Since(m.startupTime).Round(time.Second)
	sb.WriteString(mutedStyle.Render(fmt.Sprintf("  Elapsed: %s", elapsed)))
	sb.WriteString("\n\n")
	sb.WriteString(mutedStyle.Render("  Waiting for first Ethereum block..."))
	sb.WriteString("\n")
	return sb.String()
}

func (m Model) renderStatusBar() string {
	var parts []string

	blockStr := fmt.Sprintf("Block: #%d", m.currentBlock)
	parts = append(parts, blockStr)

	if m.gasPrice > 0 {
		parts = append(parts, fmt.Sprintf("Gas: %.1f gwei", m.gasPrice))
	}

	if m.quoteCount > 0 {
		scanStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
		parts = append(parts, scanStyle.Render(fmt.Sprintf("Quotes: %d", m.quoteCount)))
	}

	if !m.lastUpdate.IsZero() {
		ago := time.Since(m.lastUpdate).Round(time.Second)
		parts = append(parts, MutedValue.Render(fmt.Sprintf("Updated: %s ago", ago)))
	}

	m.stats.Update(components.Stats{
		BlocksProcessed: m.blocksProcessed,
		Quotes:          m.quoteCount,
		Diagnostics:     m.diagnosticCount,
		Errors:          m.errorCount,
	})

	return strings.Join(parts, "  │  ")
}

// Program holds the Bubble Tea program instance for external access.
var Program *tea.Program

// OnStartModules is called when the welcome screen completes and modules
// should start. Set by main.go.
var OnStartModules func()

// Run starts the Bubble Tea program.
func Run() error {
	Program = tea.NewProgram(New(), tea.WithAltScreen())
	_, err := Program.Run()
	return err
}

// Send sends a message to the running program.
func Send(msg tea.Msg) {
	if Program != nil {
		Program.Send(msg)
	}
	if _, ok := msg.(StartModulesMsg); ok && OnStartModules != nil {
		OnStartModules()
	}
}
