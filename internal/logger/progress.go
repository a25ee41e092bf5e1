// Package logger provides structured logging and a console progress
// reporter for benchmark runs.
package logger

import (
	"fmt"
	"io"
	"sync"
	"time"
)

const rule = "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━"

// Progress per-question progress reporter
type Progress struct {
	mu        sync.Mutex
	out       io.Writer
	total     int
	done      int
	startTime time.Time
	phase     string
	tasks     map[string]*TaskProgress
	failed    []string
}

// TaskProgress task progress
type TaskProgress struct {
	Name      string
	Status    string // "running", "completed", "failed"
	StartTime time.Time
	EndTime   time.Time
	Error     string
}

// NewProgress creates a reporter writing to out. A nil out discards output.
func NewProgress(out io.Writer) *Progress {
	if out == nil {
		out = io.Discard
	}
	return &Progress{
		out:       out,
		startTime: time.Now(),
		tasks:     make(map[string]*TaskProgress),
	}
}

// SetPhase starts a new phase of total tasks and resets the counters.
func (p *Progress) SetPhase(phase string, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.phase = phase
	p.total = total
	p.done = 0
	p.startTime = time.Now()
	p.tasks = make(map[string]*TaskProgress)
	p.failed = nil
	fmt.Fprintf(p.out, "\n%s\n📍 %s\n%s\n\n", rule, phase, rule)
}

// StartTask marks task as running.
func (p *Progress) StartTask(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tasks[name] = &TaskProgress{
		Name:      name,
		Status:    "running",
		StartTime: time.Now(),
	}
	fmt.Fprintf(p.out, "[%s] 🔄 Started\n", name)
}

// CompleteTask marks task as completed.
func (p *Progress) CompleteTask(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	task, ok := p.tasks[name]
	if !ok {
		return
	}
	task.Status = "completed"
	task.EndTime = time.Now()
	p.done++
	fmt.Fprintf(p.out, "[%s] ✓ Completed (%.2fs)\n", name, task.EndTime.Sub(task.StartTime).Seconds())
	p.printProgress()
}

// FailTask marks task as failed; the error is printed and kept for the summary.
func (p *Progress) FailTask(name string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	task, ok := p.tasks[name]
	if !ok {
		task = &TaskProgress{Name: name, StartTime: time.Now()}
		p.tasks[name] = task
	}
	task.Status = "failed"
	task.EndTime = time.Now()
	task.Error = err.Error()
	p.done++
	p.failed = append(p.failed, name)
	fmt.Fprintf(p.out, "[%s] ✗ Failed: %v\n", name, err)
	p.printProgress()
}

// printProgress requires p.mu.
func (p *Progress) printProgress() {
	if p.total == 0 {
		return
	}
	percentage := float64(p.done) / float64(p.total) * 100
	elapsed := time.Since(p.startTime)

	var eta time.Duration
	if p.done > 0 {
		eta = elapsed / time.Duration(p.done) * time.Duration(p.total-p.done)
	}
	fmt.Fprintf(p.out, "📊 Progress: %d/%d (%.1f%%) | Elapsed: %s | ETA: %s\n\n",
		p.done, p.total, percentage, formatDuration(elapsed), formatDuration(eta))
}

// Counts returns completed and failed task counts for the current phase.
func (p *Progress) Counts() (completed, failed int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done - len(p.failed), len(p.failed)
}

// PrintSummary prints the phase summary with failed tasks in failure order.
func (p *Progress) PrintSummary() {
	p.mu.Lock()
	defer p.mu.Unlock()

	total := time.Since(p.startTime)
	completed := p.done - len(p.failed)

	fmt.Fprintf(p.out, "\n%s\n📊 Summary: %s\n%s\n\n", rule, p.phase, rule)
	fmt.Fprintf(p.out, "Total Questions: %d\n", p.total)
	fmt.Fprintf(p.out, "✓ Evaluated: %d\n", completed)
	fmt.Fprintf(p.out, "✗ Skipped: %d\n", len(p.failed))
	fmt.Fprintf(p.out, "⏱️  Total Time: %s\n", formatDuration(total))
	if completed > 0 {
		fmt.Fprintf(p.out, "⚡ Avg Time/Question: %s\n", formatDuration(total/time.Duration(completed)))
	}
	if len(p.failed) > 0 {
		fmt.Fprintf(p.out, "\n❌ Skipped Questions:\n")
		for _, name := range p.failed {
			fmt.Fprintf(p.out, "  - %s: %s\n", name, p.tasks[name].Error)
		}
	}
	fmt.Fprintln(p.out)
}

// Info prints an informational line.
func (p *Progress) Info(format string, args ...interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, "ℹ️  "+format+"\n", args...)
}

// formatDuration formats duration
func formatDuration(d time.Duration) string {
	if d == 0 {
		return "N/A"
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}
