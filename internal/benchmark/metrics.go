package benchmark

import (
	"fmt"
	"io"
	"sort"
)

// Metric names logged per strategy run
const (
	MetricIsRunnableRatio       = "is_runnable_ratio"
	MetricCorrectResultsRatio   = "correct_results_ratio"
	MetricAverageEvaluationTime = "average_evaluation_time"
	MetricAverageTokensUsed     = "average_tokens_used"
)

var difficultyOrder = []string{"simple", "moderate", "challenging"}

// DifficultyStats correctness for one difficulty level
type DifficultyStats struct {
	Count   int
	Correct int
}

// Ratio correct / count
func (d DifficultyStats) Ratio() float64 {
	if d.Count == 0 {
		return 0
	}
	return float64(d.Correct) / float64(d.Count)
}

// Summary aggregate of one strategy's evaluations
type Summary struct {
	Count                 int
	IsRunnableRatio       float64
	CorrectResultsRatio   float64
	AverageEvaluationTime float64
	AverageTokensUsed     float64
	ByDifficulty          map[string]DifficultyStats
}

// Summarize computes the means over evals. An empty slice gives a zero Summary.
func Summarize(evals []Evaluation) Summary {
	s := Summary{ByDifficulty: make(map[string]DifficultyStats)}
	if len(evals) == 0 {
		return s
	}
	var runnable, correct, tokens int
	var elapsed float64
	for _, e := range evals {
		d := s.ByDifficulty[e.QuestionDifficulty]
		d.Count++
		if e.IsRunnable {
			runnable++
		}
		if e.ReturnsCorrectResult {
			correct++
			d.Correct++
		}
		s.ByDifficulty[e.QuestionDifficulty] = d
		elapsed += e.EvaluationTime
		tokens += e.TokensUsed
	}
	n := float64(len(evals))
	s.Count = len(evals)
	s.IsRunnableRatio = float64(runnable) / n
	s.CorrectResultsRatio = float64(correct) / n
	s.AverageEvaluationTime = elapsed / n
	s.AverageTokensUsed = float64(tokens) / n
	return s
}

// Metrics returns the tracked scalar metrics, including one
// correct_results_ratio_<difficulty> per difficulty seen.
func (s Summary) Metrics() map[string]float64 {
	m := map[string]float64{
		MetricIsRunnableRatio:       s.IsRunnableRatio,
		MetricCorrectResultsRatio:   s.CorrectResultsRatio,
		MetricAverageEvaluationTime: s.AverageEvaluationTime,
		MetricAverageTokensUsed:     s.AverageTokensUsed,
	}
	for difficulty, stats := range s.ByDifficulty {
		if difficulty == "" {
			continue
		}
		m[MetricCorrectResultsRatio+"_"+difficulty] = stats.Ratio()
	}
	return m
}

// Difficulties lists the difficulty levels seen, known levels first.
func (s Summary) Difficulties() []string {
	var out []string
	seen := make(map[string]bool)
	for _, d := range difficultyOrder {
		if _, ok := s.ByDifficulty[d]; ok {
			out = append(out, d)
			seen[d] = true
		}
	}
	var rest []string
	for d := range s.ByDifficulty {
		if !seen[d] {
			rest = append(rest, d)
		}
	}
	sort.Strings(rest)
	return append(out, rest...)
}

// PrintSummary writes a human-readable report for one strategy.
func PrintSummary(w io.Writer, strategy string, s Summary) {
	fmt.Fprintf(w, "\n========== %s ==========\n", strategy)
	fmt.Fprintf(w, "Evaluated: %d\n", s.Count)
	if s.Count == 0 {
		return
	}
	fmt.Fprintf(w, "Runnable: %.2f%%\n", s.IsRunnableRatio*100)
	fmt.Fprintf(w, "Correct: %.2f%%\n", s.CorrectResultsRatio*100)
	fmt.Fprintf(w, "Avg time: %.2fs\n", s.AverageEvaluationTime)
	fmt.Fprintf(w, "Avg tokens: %.1f\n", s.AverageTokensUsed)

	fmt.Fprintf(w, "\nBy difficulty:\n")
	for _, d := range s.Difficulties() {
		stats := s.ByDifficulty[d]
		name := d
		if name == "" {
			name = "(none)"
		}
		fmt.Fprintf(w, "  %s: %d/%d (%.2f%%)\n", name, stats.Correct, stats.Count, stats.Ratio()*100)
	}
}
