package dataset

// Filter narrows the loaded datasets. Zero values keep everything.
type Filter struct {
	DbIDs      []string
	Difficulty string
}

// Apply returns the datasets selected by f. Datasets left without questions
// by the difficulty filter are dropped.
func (f Filter) Apply(datasets []TestDataset) []TestDataset {
	wanted := make(map[string]bool, len(f.DbIDs))
	for _, id := range f.DbIDs {
		wanted[id] = true
	}

	out := make([]TestDataset, 0, len(datasets))
	for _, ds := range datasets {
		if len(wanted) > 0 && !wanted[ds.DbID] {
			continue
		}
		if f.Difficulty != "" {
			filtered := make([]Question, 0, len(ds.Questions))
			for _, q := range ds.Questions {
				if q.Difficulty == f.Difficulty {
					filtered = append(filtered, q)
				}
			}
			if len(filtered) == 0 {
				continue
			}
			ds.Questions = filtered
		}
		out = append(out, ds)
	}
	return out
}

// ClampQuestions returns how many questions of ds a run processes.
// maxQuestions <= 0 means all of them.
func ClampQuestions(maxQuestions int, ds TestDataset) int {
	if maxQuestions <= 0 || maxQuestions > len(ds.Questions) {
		return len(ds.Questions)
	}
	return maxQuestions
}

// Head returns the first ClampQuestions questions of ds.
func (ds TestDataset) Head(maxQuestions int) []Question {
	return ds.Questions[:ClampQuestions(maxQuestions, ds)]
}
