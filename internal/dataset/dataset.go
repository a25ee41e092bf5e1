package dataset

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Manifest and database layout under the data directory
const (
	TablesFile   = "dev_tables.json"
	QuestionFile = "dev.json"
	DatabaseDir  = "dev_databases"
)

// Question BIRD-style dev question
type Question struct {
	QuestionID int    `json:"question_id"`
	DbID       string `json:"db_id"`
	Question   string `json:"question"`
	Evidence   string `json:"evidence"`
	SQL        string `json:"SQL"`
	Difficulty string `json:"difficulty"`
}

// TestDataset one database and the questions asked against it
type TestDataset struct {
	DbID        string
	DatabaseURL string
	Questions   []Question
}

// tableMetadata only db_id is needed from dev_tables.json
type tableMetadata struct {
	DbID string `json:"db_id"`
}

// DatabasePath returns the SQLite file for dbID under dataDir.
func DatabasePath(dataDir, dbID string) string {
	return filepath.Join(dataDir, DatabaseDir, dbID, dbID+".sqlite")
}

// DatabaseURL returns the connection string for dbID under dataDir.
func DatabaseURL(dataDir, dbID string) string {
	return "sqlite:///" + filepath.ToSlash(DatabasePath(dataDir, dbID))
}

// Load reads the manifests under dataDir and groups questions by database.
// Datasets follow dev_tables.json order; questions keep dev.json order.
func Load(dataDir string) ([]TestDataset, error) {
	var tables []tableMetadata
	if err := readJSON(filepath.Join(dataDir, TablesFile), &tables); err != nil {
		return nil, err
	}
	var questions []Question
	if err := readJSON(filepath.Join(dataDir, QuestionFile), &questions); err != nil {
		return nil, err
	}

	byDB := make(map[string][]Question)
	for _, q := range questions {
		byDB[q.DbID] = append(byDB[q.DbID], q)
	}

	datasets := make([]TestDataset, 0, len(tables))
	for _, table := range tables {
		if table.DbID == "" {
			return nil, fmt.Errorf("%s: table entry without db_id", TablesFile)
		}
		datasets = append(datasets, TestDataset{
			DbID:        table.DbID,
			DatabaseURL: DatabaseURL(dataDir, table.DbID),
			Questions:   byDB[table.DbID],
		})
	}
	return datasets, nil
}

func readJSON(path string, target interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return nil
}
