package output

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/tanq16/imgdl/internal/utils"
)

type status string

const (
	statusPending status = "pending"
	statusActive  status = "active"
	statusWarning status = "warning"
	statusSuccess status = "success"
	statusError   status = "error"
)

type entry struct {
	index       int
	url         string
	status      status
	message     string
	progress    string
	complete    bool
	startTime   time.Time
	lastUpdated time.Time
}

type errorReport struct {
	url  string
	kind utils.ErrorKind
	err  error
	time time.Time
}

// Manager renders per-request status to a terminal. With an interactive
// writer it redraws a live view every tick; otherwise it prints one line per
// terminal event.
type Manager struct {
	out         io.Writer
	interactive bool
	mutex       sync.Mutex
	entries     map[string]*entry
	count       int
	numLines    int
	errors      []errorReport
	succeeded   int
	failed      int
	displayTick time.Duration
	doneCh      chan struct{}
	displayWg   sync.WaitGroup
	started     bool
}

// NewManager writes to stdout, redrawing in place when stdout is a terminal.
func NewManager() *Manager {
	return NewManagerWithWriter(os.Stdout, IsTerminal(os.Stdout))
}

func NewManagerWithWriter(out io.Writer, interactive bool) *Manager {
	return &Manager{
		out:         out,
		interactive: interactive,
		entries:     make(map[string]*entry),
		displayTick: 300 * time.Millisecond,
		doneCh:      make(chan struct{}),
	}
}

func (m *Manager) OnQueued(req utils.DownloadRequest) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if _, exists := m.entries[req.ID]; exists {
		return
	}
	m.count++
	m.entries[req.ID] = &entry{
		index:       m.count,
		url:         req.URL,
		status:      statusPending,
		startTime:   time.Now(),
		lastUpdated: time.Now(),
	}
}

func (m *Manager) OnAttempt(req utils.DownloadRequest, attempt, maxAttempts int, err error) {
	if err == nil {
		return
	}
	m.update(req.ID, func(e *entry) {
		e.status = statusWarning
		e.progress = ""
		e.message = fmt.Sprintf("Attempt %d/%d failed for %s: %v", attempt, maxAttempts, e.url, err)
	})
	if !m.interactive {
		m.printLine(statusWarning, fmt.Sprintf("Attempt %d/%d failed for %s: %v", attempt, maxAttempts, req.URL, err))
	}
}

func (m *Manager) OnProgress(req utils.DownloadRequest, downloaded, total int64) {
	m.update(req.ID, func(e *entry) {
		e.status = statusActive
		if e.message == "" || strings.HasPrefix(e.message, "Attempt") {
			e.message = "Downloading " + e.url
		}
		elapsed := time.Since(e.startTime).Seconds()
		e.progress = fmt.Sprintf("%s %s %s/%s %s %s", ProgressBar(downloaded, total, 30), StyleSymbols["bullet"],
			utils.FormatBytes(uint64(downloaded)), utils.FormatBytes(uint64(total)), StyleSymbols["bullet"], FormatSpeed(downloaded, elapsed))
	})
}

func (m *Manager) OnMessage(req utils.DownloadRequest, message string) {
	m.update(req.ID, func(e *entry) {
		e.message = message
	})
}

func (m *Manager) OnSuccess(outcome utils.DownloadOutcome) {
	st := statusSuccess
	message := fmt.Sprintf("Saved %s", outcome.FinalPath)
	if outcome.ErrorKind != utils.KindNone {
		st = statusWarning
		message = fmt.Sprintf("Saved %s (%s: %v)", outcome.FinalPath, outcome.ErrorKind, outcome.Err)
	}
	m.finish(outcome, st, message)
	if !m.interactive {
		m.printLine(st, message)
	}
}

func (m *Manager) OnFailure(outcome utils.DownloadOutcome) {
	message := fmt.Sprintf("Failed %s after %d attempt(s)", outcome.Request.URL, outcome.AttemptsUsed)
	m.finish(outcome, statusError, message)
	if !m.interactive {
		m.printLine(statusError, fmt.Sprintf("%s: %v", message, outcome.Err))
	}
}

// Summary returns the number of requests that succeeded and failed so far.
func (m *Manager) Summary() (int, int) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.succeeded, m.failed
}

func (m *Manager) update(id string, fn func(e *entry)) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if e, exists := m.entries[id]; exists && !e.complete {
		fn(e)
		e.lastUpdated = time.Now()
	}
}

func (m *Manager) finish(outcome utils.DownloadOutcome, st status, message string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	e, exists := m.entries[outcome.Request.ID]
	if !exists {
		m.count++
		e = &entry{index: m.count, url: outcome.Request.URL, startTime: time.Now()}
		m.entries[outcome.Request.ID] = e
	}
	if e.complete {
		return
	}
	e.complete = true
	e.status = st
	e.message = message
	e.progress = ""
	e.lastUpdated = time.Now()
	if st == statusError {
		m.failed++
		m.errors = append(m.errors, errorReport{url: outcome.Request.URL, kind: outcome.ErrorKind, err: outcome.Err, time: time.Now()})
	} else {
		m.succeeded++
	}
}

func (m *Manager) printLine(st status, message string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	fmt.Fprintf(m.out, "%s%s %s\n", strings.Repeat(" ", 2), indicator(st), styleFor(st).Render(message))
}

func indicator(st status) string {
	switch st {
	case statusSuccess:
		return successStyle.Render(StyleSymbols["pass"])
	case statusError:
		return errorStyle.Render(StyleSymbols["fail"])
	case statusWarning:
		return warningStyle.Render(StyleSymbols["warning"])
	case statusPending:
		return pendingStyle.Render(StyleSymbols["pending"])
	default:
		return infoStyle.Render(StyleSymbols["arrow"])
	}
}

func styleFor(st status) lipgloss.Style {
	switch st {
	case statusSuccess:
		return successStyle
	case statusError:
		return errorStyle
	case statusWarning:
		return warningStyle
	default:
		return pendingStyle
	}
}

func (m *Manager) sortEntries() (active, pending, completed []*entry) {
	all := make([]*entry, 0, len(m.entries))
	for _, e := range m.entries {
		all = append(all, e)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].index < all[j].index
	})
	for _, e := range all {
		switch {
		case e.complete:
			completed = append(completed, e)
		case e.status == statusPending:
			pending = append(pending, e)
		default:
			active = append(active, e)
		}
	}
	return active, pending, completed
}

// render must be called with the mutex held.
func (m *Manager) render() {
	width, height := 80, 24
	if f, ok := m.out.(*os.File); ok {
		width, height = terminalSize(f)
	}
	available := height - 3

	if m.numLines > 0 {
		fmt.Fprintf(m.out, "\033[%dA\033[J", m.numLines)
	}
	active, pending, completed := m.sortEntries()

	needed := len(completed) + 2*len(active) + min(len(pending), 1)
	if needed > available {
		keep := max(available-(needed-len(completed)), 0)
		if len(completed) > keep {
			completed = completed[len(completed)-keep:]
		}
	}

	lines := 0
	emit := func(text string) bool {
		if lines >= available {
			return false
		}
		fmt.Fprintln(m.out, text)
		lines++
		return true
	}
	indent := strings.Repeat(" ", 2)
	for _, e := range completed {
		elapsed := e.lastUpdated.Sub(e.startTime).Round(time.Second)
		emit(fmt.Sprintf("%s%s %s %s", indent, indicator(e.status), debugStyle.Render(elapsed.String()), styleFor(e.status).Render(e.message)))
	}
	for _, e := range active {
		elapsed := time.Since(e.startTime).Round(time.Second)
		if !emit(fmt.Sprintf("%s%s %s %s", indent, indicator(e.status), debugStyle.Render(elapsed.String()), styleFor(e.status).Render(e.message))) {
			break
		}
		if e.progress != "" {
			for _, line := range wrapText(e.progress, width-8) {
				emit(indent + indent + indent + streamStyle.Render(line))
			}
		}
	}
	if len(pending) > 0 {
		emit(fmt.Sprintf("%s%s %s", indent, indicator(statusPending), pendingStyle.Render(fmt.Sprintf("%d waiting...", len(pending)))))
	}
	m.numLines = lines
}

// StartDisplay begins periodic redraws on interactive writers.
func (m *Manager) StartDisplay() {
	if !m.interactive {
		return
	}
	m.started = true
	m.displayWg.Add(1)
	go func() {
		defer m.displayWg.Done()
		ticker := time.NewTicker(m.displayTick)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.mutex.Lock()
				m.render()
				m.mutex.Unlock()
			case <-m.doneCh:
				return
			}
		}
	}()
}

// StopDisplay draws the final state and the summary.
func (m *Manager) StopDisplay() {
	if m.started {
		close(m.doneCh)
		m.displayWg.Wait()
		m.mutex.Lock()
		m.render()
		m.mutex.Unlock()
	}
	m.ShowSummary()
}

func (m *Manager) ShowSummary() {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	indent := strings.Repeat(" ", 2)
	total := len(m.entries)
	fmt.Fprintln(m.out)
	fmt.Fprintln(m.out, indent+success2Style.Render(fmt.Sprintf("Completed %d of %d", m.succeeded, total)))
	if m.failed > 0 {
		fmt.Fprintln(m.out, indent+errorStyle.Render(fmt.Sprintf("Failed %d of %d", m.failed, total)))
	}
	if len(m.errors) > 0 {
		fmt.Fprintln(m.out)
		fmt.Fprintln(m.out, indent+errorStyle.Bold(true).Render("Errors:"))
		for i, report := range m.errors {
			fmt.Fprintf(m.out, "%s%s %s %s\n", indent+indent,
				errorStyle.Render(fmt.Sprintf("%d.", i+1)),
				debugStyle.Render(fmt.Sprintf("[%s]", report.time.Format("15:04:05"))),
				errorStyle.Render(report.url))
			fmt.Fprintf(m.out, "%s%s\n", indent+indent+indent, errorStyle.Render(fmt.Sprintf("%s: %v", report.kind, report.err)))
		}
	}
	fmt.Fprintln(m.out)
}
