// Package ui renders the store table and probe log in a terminal UI. It
// only ever reads repository snapshots; edits go through the repository's
// CRUD operations and are persisted via the OnMutate callback.
package ui

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"go.uber.org/zap"

	"storewatch/internal/model"
	"storewatch/internal/monitor"
	"storewatch/internal/notify"
	"storewatch/internal/repo"
)

const (
	fallbackRedraw = 2 * time.Second
	maxLogLines    = 1000
	logPanelHeight = 8
)

// Options wires the UI to its collaborators.
type Options struct {
	Repo              *repo.Repository
	Notifier          *notify.Notifier
	OnMutate          func() // invoked after any UI-driven CRUD, persists the list
	HelpdeskURLPrefix string
	Logger            *zap.Logger
}

// UI is the interactive terminal front end.
type UI struct {
	repo           *repo.Repository
	notifier       *notify.Notifier
	onMutate       func()
	helpdeskPrefix string
	openURL        func(string) error
	logger         *zap.Logger

	refreshCh chan struct{}

	logMu sync.Mutex
	logs  []string

	selected int
	prompt   *prompt
}

type prompt struct {
	label string
	input []rune
	apply func(string) error
	errs  string
}

// New builds the UI.
func New(opts Options) *UI {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UI{
		repo:           opts.Repo,
		notifier:       opts.Notifier,
		onMutate:       opts.OnMutate,
		helpdeskPrefix: opts.HelpdeskURLPrefix,
		openURL:        openBrowser,
		logger:         logger,
		refreshCh:      make(chan struct{}, 1),
	}
}

// Refresh requests a redraw. Safe from any goroutine; redundant calls
// coalesce on the buffered channel.
func (u *UI) Refresh() {
	select {
	case u.refreshCh <- struct{}{}:
	default:
	}
}

// Observe appends a probe event to the log panel. Used as the monitor sink.
func (u *UI) Observe(ev monitor.Event) {
	line := formatEvent(time.Now(), ev)
	u.logMu.Lock()
	u.logs = append(u.logs, line)
	if len(u.logs) > maxLogLines {
		u.logs = u.logs[len(u.logs)-maxLogLines:]
	}
	u.logMu.Unlock()
	u.Refresh()
}

func formatEvent(at time.Time, ev monitor.Event) string {
	status := "OFFLINE"
	if ev.Verdict.Online {
		status = "ONLINE"
	}
	latency := "timeout"
	if ev.Verdict.HasLatency() {
		latency = formatLatency(ev.Verdict.AvgLatency)
	}
	return fmt.Sprintf("%s  store %s  %s  %s  %s  (%d ok)",
		at.Format("15:04:05"), ev.Number, ev.Addr, status, latency, ev.Verdict.SuccessCount)
}

// Run drives the event loop until quit or context cancellation.
func (u *UI) Run(ctx context.Context) error {
	screen, err := tcell.NewScreen()
	if err != nil {
		return err
	}
	if err := screen.Init(); err != nil {
		return err
	}
	screen.HideCursor()
	defer screen.Fini()

	eventCh := make(chan tcell.Event, 1)
	go func() {
		for {
			ev := screen.PollEvent()
			if ev == nil {
				return
			}
			select {
			case eventCh <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	ticker := time.NewTicker(fallbackRedraw)
	defer ticker.Stop()

	u.render(screen)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-u.refreshCh:
			u.render(screen)
		case <-ticker.C:
			u.render(screen)
		case ev := <-eventCh:
			switch ev := ev.(type) {
			case *tcell.EventKey:
				if quit := u.handleKey(ev); quit {
					return context.Canceled
				}
				u.render(screen)
			case *tcell.EventResize:
				screen.Sync()
				u.render(screen)
			}
		}
	}
}

func (u *UI) handleKey(ev *tcell.EventKey) (quit bool) {
	if u.prompt != nil {
		u.handlePromptKey(ev)
		return false
	}

	switch {
	case ev.Key() == tcell.KeyCtrlC || ev.Rune() == 'q':
		return true
	case ev.Key() == tcell.KeyUp || ev.Rune() == 'k':
		if u.selected > 0 {
			u.selected--
		}
	case ev.Key() == tcell.KeyDown || ev.Rune() == 'j':
		u.selected++
	case ev.Rune() == 'n':
		if u.notifier != nil {
			u.notifier.Toggle()
		}
	case ev.Rune() == 'a':
		u.openStorePrompt("add store (number ip [isp] [ticket]): ", "")
	case ev.Rune() == 'e':
		if store, ok := u.selectedStore(); ok {
			seed := strings.TrimSpace(fmt.Sprintf("%s %s %s %s",
				store.Number, store.IP, store.ISP, strings.TrimPrefix(store.Ticket, model.TicketPrefix)))
			u.openStorePrompt("edit store (number ip [isp] [ticket]): ", seed)
		}
	case ev.Rune() == 'd':
		if store, ok := u.selectedStore(); ok {
			u.repo.Remove(store.Number)
			u.mutated()
		}
	case ev.Rune() == 't':
		if store, ok := u.selectedStore(); ok {
			u.openTicket(store)
		}
	}
	return false
}

// openTicket opens the selected store's helpdesk ticket in the browser.
// Stores without a ticket are a no-op.
func (u *UI) openTicket(store model.Store) {
	url := model.HelpdeskURL(u.helpdeskPrefix, store.Ticket)
	if url == "" {
		return
	}
	if err := u.openURL(url); err != nil {
		u.logger.Warn("failed to open helpdesk ticket",
			zap.String("store", store.Number),
			zap.String("url", url),
			zap.Error(err))
	}
}

func openBrowser(url string) error {
	switch runtime.GOOS {
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start()
	case "darwin":
		return exec.Command("open", url).Start()
	default:
		return exec.Command("xdg-open", url).Start()
	}
}

func (u *UI) handlePromptKey(ev *tcell.EventKey) {
	p := u.prompt
	switch ev.Key() {
	case tcell.KeyEscape:
		u.prompt = nil
	case tcell.KeyEnter:
		if err := p.apply(string(p.input)); err != nil {
			p.errs = err.Error()
			return
		}
		u.prompt = nil
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		if len(p.input) > 0 {
			p.input = p.input[:len(p.input)-1]
		}
	default:
		if r := ev.Rune(); r != 0 {
			p.input = append(p.input, r)
		}
	}
}

func (u *UI) openStorePrompt(label, seed string) {
	u.prompt = &prompt{
		label: label,
		input: []rune(seed),
		apply: func(line string) error {
			store, err := parseStoreLine(line)
			if err != nil {
				return err
			}
			u.repo.Upsert(store)
			u.mutated()
			return nil
		},
	}
}

// parseStoreLine reads "number ip [isp] [ticket]" from a prompt line. The
// IP may be "-" to rely on the lookup table.
func parseStoreLine(line string) (model.Store, error) {
	fields := strings.Fields(line)
	if len(fields) < 1 {
		return model.Store{}, fmt.Errorf("store number required")
	}
	store := model.Store{Number: fields[0]}
	if len(fields) > 1 && fields[1] != "-" {
		store.IP = fields[1]
	}
	if len(fields) > 2 {
		store.ISP = fields[2]
	}
	if len(fields) > 3 {
		store.Ticket = fields[3]
	}
	return store.Normalize(), nil
}

func (u *UI) selectedStore() (model.Store, bool) {
	snap := u.repo.Snapshot()
	if len(snap.Stores) == 0 {
		return model.Store{}, false
	}
	if u.selected >= len(snap.Stores) {
		u.selected = len(snap.Stores) - 1
	}
	return snap.Stores[u.selected], true
}

func (u *UI) mutated() {
	if u.onMutate != nil {
		u.onMutate()
	}
	u.Refresh()
}

func (u *UI) render(screen tcell.Screen) {
	screen.Clear()
	width, height := screen.Size()
	if width < 30 || height < 8 {
		screen.Show()
		return
	}

	snap := u.repo.Snapshot()
	if u.selected >= len(snap.Stores) && len(snap.Stores) > 0 {
		u.selected = len(snap.Stores) - 1
	}

	header := fmt.Sprintf(" storewatch  %s  %d stores", time.Now().Format("2006-01-02 15:04:05"), len(snap.Stores))
	drawLine(screen, 0, width, header, tcell.StyleDefault.Bold(true))

	cols := fmt.Sprintf(" %-8s %-17s %-8s %-20s %-22s %s",
		"Store #", "IP Address", "Status", "Last Changed", "ISP", "Ticket")
	drawLine(screen, 1, width, cols, tcell.StyleDefault.Underline(true))

	tableTop := 2
	tableRows := height - tableTop - logPanelHeight - 2
	if tableRows < 1 {
		tableRows = 1
	}
	for i := 0; i < len(snap.Stores) && i < tableRows; i++ {
		store := snap.Stores[i]
		record, known := snap.Status[store.Number]
		style := rowStyle(known, record.Online)
		if i == u.selected {
			style = style.Reverse(true)
		}
		drawLine(screen, tableTop+i, width, formatRow(store, record, known), style)
	}

	logTop := height - logPanelHeight - 2
	drawLine(screen, logTop, width, " Logs", tcell.StyleDefault.Bold(true))
	for i, line := range u.tailLogs(logPanelHeight) {
		drawLine(screen, logTop+1+i, width, " "+line, tcell.StyleDefault.Foreground(tcell.ColorGray))
	}

	u.drawFooter(screen, width, height)
	screen.Show()
}

func (u *UI) drawFooter(screen tcell.Screen, width, height int) {
	if u.prompt != nil {
		line := " " + u.prompt.label + string(u.prompt.input)
		if u.prompt.errs != "" {
			line += "  [" + u.prompt.errs + "]"
		}
		drawLine(screen, height-1, width, line, tcell.StyleDefault.Bold(true))
		return
	}
	notif := "off"
	if u.notifier != nil && u.notifier.Enabled() {
		notif = "on"
	}
	help := fmt.Sprintf(" q quit  a add  e edit  d delete  t ticket  n notifications[%s]  j/k move", notif)
	drawLine(screen, height-1, width, help, tcell.StyleDefault.Foreground(tcell.ColorGray))
}

func (u *UI) tailLogs(n int) []string {
	u.logMu.Lock()
	defer u.logMu.Unlock()
	if len(u.logs) <= n {
		return append([]string(nil), u.logs...)
	}
	return append([]string(nil), u.logs[len(u.logs)-n:]...)
}

func formatRow(store model.Store, record repo.StatusRecord, known bool) string {
	status := "UNKNOWN"
	if known {
		if record.Online {
			status = "ONLINE"
		} else {
			status = "OFFLINE"
		}
	}
	lastChange := ""
	if !record.LastChange.IsZero() {
		lastChange = record.LastChange.Format("2006-01-02 15:04:05")
	}
	return fmt.Sprintf(" %-8s %-17s %-8s %-20s %-22s %s",
		store.Number, displayIP(store.IP), status, lastChange, store.ISP, store.Ticket)
}

func displayIP(ip string) string {
	if ip == "" {
		return monitor.UnresolvedAddr
	}
	return ip
}

func rowStyle(known, online bool) tcell.Style {
	switch {
	case !known:
		return tcell.StyleDefault.Foreground(tcell.ColorGray)
	case online:
		return tcell.StyleDefault.Foreground(tcell.ColorGreen)
	default:
		return tcell.StyleDefault.Foreground(tcell.ColorRed)
	}
}

func drawLine(screen tcell.Screen, y, width int, text string, style tcell.Style) {
	col := 0
	for _, r := range text {
		if col >= width {
			return
		}
		screen.SetContent(col, y, r, nil, style)
		col++
	}
	for col < width {
		screen.SetContent(col, y, ' ', nil, style)
		col++
	}
}

func formatLatency(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%dus", d.Microseconds())
	}
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}
