package benchmark

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
)

// DetailedMetricsFile is the per-strategy CSV artifact name.
func DetailedMetricsFile(strategy string) string {
	return strategy + "_detailed_metrics.csv"
}

// Evaluation one (strategy, question) record
type Evaluation struct {
	Agent                string
	DbID                 string
	QuestionID           int
	QuestionDifficulty   string
	Question             string
	GeneratedSQL         string
	ExpectedSQL          string
	ExpectedResult       string
	GeneratedResult      string
	IsRunnable           bool
	ReturnsCorrectResult bool
	EvaluationTime       float64 // seconds
	TokensUsed           int
}

// CSVHeader column order of the detailed metrics file
var CSVHeader = []string{
	"agent",
	"db_id",
	"question_id",
	"question_difficulty",
	"question",
	"generated_SQL",
	"expected_SQL",
	"expected_result",
	"generated_result",
	"is_runnable",
	"returns_correct_result",
	"evaluation_time",
	"tokens_used",
}

// Record returns e in CSVHeader order with booleans as 0/1.
func (e Evaluation) Record() []string {
	return []string{
		e.Agent,
		e.DbID,
		strconv.Itoa(e.QuestionID),
		e.QuestionDifficulty,
		e.Question,
		e.GeneratedSQL,
		e.ExpectedSQL,
		e.ExpectedResult,
		e.GeneratedResult,
		boolDigit(e.IsRunnable),
		boolDigit(e.ReturnsCorrectResult),
		strconv.FormatFloat(e.EvaluationTime, 'f', -1, 64),
		strconv.Itoa(e.TokensUsed),
	}
}

func boolDigit(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// WriteCSV writes the header and one row per evaluation.
func WriteCSV(w io.Writer, evals []Evaluation) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return err
	}
	for _, e := range evals {
		if err := cw.Write(e.Record()); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCSVFile writes evals to dir/<strategy>_detailed_metrics.csv and
// returns the path.
func WriteCSVFile(dir, strategy string, evals []Evaluation) (path string, err error) {
	path = filepath.Join(dir, DetailedMetricsFile(strategy))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", filepath.Base(path), err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = cerr
		}
	}()
	if err := WriteCSV(f, evals); err != nil {
		return "", fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return path, nil
}
