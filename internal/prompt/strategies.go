// Package prompt holds the reasoning-strategy prefixes injected into the
// translator instructions.
package prompt

import (
	"fmt"
	"strings"
)

const (
	// ZeroShotCoT is the classic zero-shot chain-of-thought trigger.
	ZeroShotCoT = "Let's think step by step."

	// PlanAndSolveCoT is the plan-and-solve trigger.
	PlanAndSolveCoT = `Let’s first understand the problem and
devise a plan to solve the problem. Then, let’s
carry out the plan and solve the problem step by
step.`

	// PlanAndSolveCoTV2 spells the plan-and-solve steps out for SQL.
	PlanAndSolveCoTV2 = `Let's approach this SQL problem using the following steps:
1. Understand the Problem:
   - Identify the question we need to answer
   - Determine the relevant tables and their relationships
   - Note any specific conditions or constraints

2. Plan the Query:
   - Outline the main components of the SQL query (SELECT, FROM, JOIN, WHERE, GROUP BY, etc.)
   - Determine the logical order of operations
   - Consider any necessary subqueries or complex joins

3. Solve Step-by-Step:
   - Write each part of the query sequentially
   - Explain the purpose and function of each clause
   - Address any potential performance considerations

4. Review and Optimize:
   - Check if the query answers the original question
   - Look for opportunities to simplify or optimize the query
   - Consider alternative approaches if applicable

5. Provide Final Query:
   - Present the complete, optimized SQL query
   - Briefly explain what the query does and how it solves the original problem
`
)

// Strategy is a named prompting approach.
type Strategy struct {
	Name   string `yaml:"name"`
	Prompt string `yaml:"prompt"`
}

// Built-in strategy names
const (
	NoCoT          = "no_cot"
	ZeroShot       = "zero_shot_cot"
	PlanAndSolve   = "plan_and_solve_cot"
	PlanAndSolveV2 = "plan_and_solve_cot_v2"
)

// Builtin returns the built-in strategies in benchmark order.
func Builtin() []Strategy {
	return []Strategy{
		{Name: NoCoT, Prompt: ""},
		{Name: ZeroShot, Prompt: ZeroShotCoT},
		{Name: PlanAndSolve, Prompt: PlanAndSolveCoT},
		{Name: PlanAndSolveV2, Prompt: PlanAndSolveCoTV2},
	}
}

// Lookup finds a built-in strategy by name.
func Lookup(name string) (Strategy, bool) {
	for _, s := range Builtin() {
		if s.Name == name {
			return s, true
		}
	}
	return Strategy{}, false
}

// Resolve builds the strategy list for a run. Names select from the
// built-ins and the custom strategies, in the given order; an empty
// selection means every built-in followed by every custom strategy.
func Resolve(names []string, custom []Strategy) ([]Strategy, error) {
	available := Builtin()
	byName := make(map[string]Strategy, len(available)+len(custom))
	for _, s := range available {
		byName[s.Name] = s
	}
	for _, s := range custom {
		if s.Name == "" {
			return nil, fmt.Errorf("custom strategy without name")
		}
		if _, ok := byName[s.Name]; ok {
			return nil, fmt.Errorf("duplicate strategy %q", s.Name)
		}
		byName[s.Name] = s
		available = append(available, s)
	}
	if len(names) == 0 {
		return available, nil
	}

	seen := make(map[string]bool)
	var out []Strategy
	for _, name := range names {
		name = strings.TrimSpace(name)
		s, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("unknown strategy %q", name)
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, s)
	}
	return out, nil
}
