package dataset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeManifests(t *testing.T, tables, questions string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, TablesFile), []byte(tables), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, QuestionFile), []byte(questions), 0o644))
	return dir
}

const twoDatabases = `[{"db_id": "shop", "table_names": ["orders"]}, {"db_id": "school"}]`

const mixedQuestions = `[
  {"question_id": 0, "db_id": "school", "question": "How many students?", "evidence": "", "SQL": "SELECT COUNT(*) FROM students", "difficulty": "simple"},
  {"question_id": 1, "db_id": "shop", "question": "Total revenue?", "evidence": "revenue = sum(price)", "SQL": "SELECT SUM(price) FROM orders", "difficulty": "moderate"},
  {"question_id": 2, "db_id": "school", "question": "Oldest teacher?", "evidence": "", "SQL": "SELECT name FROM teachers ORDER BY age DESC LIMIT 1", "difficulty": "challenging"},
  {"question_id": 3, "db_id": "shop", "question": "Orders in 2020?", "evidence": "", "SQL": "SELECT COUNT(*) FROM orders WHERE year = 2020", "difficulty": "simple"}
]`

func TestLoadPartitionsByDatabase(t *testing.T) {
	dir := writeManifests(t, twoDatabases, mixedQuestions)

	datasets, err := Load(dir)
	require.NoError(t, err)
	require.Len(t, datasets, 2)

	assert.Equal(t, "shop", datasets[0].DbID)
	assert.Equal(t, "school", datasets[1].DbID)

	var shopIDs, schoolIDs []int
	for _, q := range datasets[0].Questions {
		assert.Equal(t, "shop", q.DbID)
		shopIDs = append(shopIDs, q.QuestionID)
	}
	for _, q := range datasets[1].Questions {
		assert.Equal(t, "school", q.DbID)
		schoolIDs = append(schoolIDs, q.QuestionID)
	}
	assert.Equal(t, []int{1, 3}, shopIDs)
	assert.Equal(t, []int{0, 2}, schoolIDs)

	q := datasets[0].Questions[0]
	assert.Equal(t, "revenue = sum(price)", q.Evidence)
	assert.Equal(t, "SELECT SUM(price) FROM orders", q.SQL)
	assert.Equal(t, "moderate", q.Difficulty)

	want := "sqlite:///" + filepath.ToSlash(filepath.Join(dir, "dev_databases", "shop", "shop.sqlite"))
	assert.Equal(t, want, datasets[0].DatabaseURL)
}

func TestLoadDatabaseWithoutQuestions(t *testing.T) {
	dir := writeManifests(t, `[{"db_id": "empty"}]`, mixedQuestions)

	datasets, err := Load(dir)
	require.NoError(t, err)
	require.Len(t, datasets, 1)
	assert.Empty(t, datasets[0].Questions)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(t.TempDir())
	require.Error(t, err)

	dir := writeManifests(t, twoDatabases, `{"not": "a list"}`)
	_, err = Load(dir)
	require.ErrorContains(t, err, QuestionFile)

	dir = writeManifests(t, `[{"name": "x"}]`, `[]`)
	_, err = Load(dir)
	require.ErrorContains(t, err, "db_id")
}

func TestClampQuestions(t *testing.T) {
	ds := TestDataset{DbID: "x", Questions: make([]Question, 3)}
	assert.Equal(t, 3, ClampQuestions(50, ds))
	assert.Equal(t, 2, ClampQuestions(2, ds))
	assert.Equal(t, 3, ClampQuestions(0, ds))
	assert.Len(t, ds.Head(50), 3)
	assert.Len(t, ds.Head(1), 1)
}

func TestFilter(t *testing.T) {
	dir := writeManifests(t, twoDatabases, mixedQuestions)
	datasets, err := Load(dir)
	require.NoError(t, err)

	only := Filter{DbIDs: []string{"school"}}.Apply(datasets)
	require.Len(t, only, 1)
	assert.Equal(t, "school", only[0].DbID)

	simple := Filter{Difficulty: "simple"}.Apply(datasets)
	require.Len(t, simple, 2)
	assert.Len(t, simple[0].Questions, 1)
	assert.Equal(t, 3, simple[0].Questions[0].QuestionID)

	none := Filter{Difficulty: "challenging", DbIDs: []string{"shop"}}.Apply(datasets)
	assert.Empty(t, none)

	// the input is not modified
	assert.Len(t, datasets[0].Questions, 2)
}
