// Package judge asks a language model whether two query results are
// semantically equivalent.
package judge

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/outputparser"
	"github.com/tmc/langchaingo/prompts"
)

// Rules the equivalence criteria given to the judge.
const Rules = `1. The number of rows in both results should be the same.
2. The data in each row should match, even if the column names or order are different.
3. Numerical values should be considered equal if they're within a small margin of error due to floating-point representation.
4. The results should be identical in content, ignoring any differences in column order or names.
5. If evaluated query contains a correct result but it also contains some additional columns that are not present in the ground truth, it's still a correct result.`

const comparisonPrompt = `You are an AI assistant tasked with comparing the results of two SQL queries to determine if they are equivalent, ignoring potential differences in column names.

Question: {{.question}}

Ground Truth Query:
{{.ground_truth_query}}

Evaluated Query:
{{.evaluated_query}}

Ground Truth Result:
{{.ground_truth_result}}

Evaluated Result:
{{.evaluated_result}}

Please analyze the results and determine if they are equivalent. Consider the following:
{{.rules}}

{{.format_instructions}}
`

// Comparison inputs for one equivalence decision
type Comparison struct {
	Question          string
	GroundTruthQuery  string
	EvaluatedQuery    string
	GroundTruthResult string
	EvaluatedResult   string
}

// Judge LLM-backed result equivalence judge
type Judge struct {
	model    llms.Model
	template prompts.PromptTemplate
	callOpts []llms.CallOption
}

// New creates a judge backed by model.
func New(model llms.Model, callOpts ...llms.CallOption) (*Judge, error) {
	parser, err := outputparser.NewDefined(TrueOrFalse{})
	if err != nil {
		return nil, fmt.Errorf("build output parser: %w", err)
	}
	return &Judge{
		model: model,
		template: prompts.PromptTemplate{
			Template: comparisonPrompt,
			InputVariables: []string{
				"question",
				"ground_truth_query",
				"evaluated_query",
				"ground_truth_result",
				"evaluated_result",
			},
			TemplateFormat: prompts.TemplateFormatGoTemplate,
			PartialVariables: map[string]any{
				"rules":               Rules,
				"format_instructions": parser.GetFormatInstructions(),
			},
		},
		callOpts: callOpts,
	}, nil
}

// Prompt renders the judge prompt for c.
func (j *Judge) Prompt(c Comparison) (string, error) {
	return j.template.Format(map[string]any{
		"question":            c.Question,
		"ground_truth_query":  c.GroundTruthQuery,
		"evaluated_query":     c.EvaluatedQuery,
		"ground_truth_result": c.GroundTruthResult,
		"evaluated_result":    c.EvaluatedResult,
	})
}

// Compare reports whether the evaluated result is equivalent to the ground
// truth. A response that cannot be parsed yields a *ParseError.
func (j *Judge) Compare(ctx context.Context, c Comparison) (bool, error) {
	prompt, err := j.Prompt(c)
	if err != nil {
		return false, fmt.Errorf("format judge prompt: %w", err)
	}
	response, err := llms.GenerateFromSinglePrompt(ctx, j.model, prompt, j.callOpts...)
	if err != nil {
		return false, fmt.Errorf("judge call: %w", err)
	}
	verdict, err := ParseTrueOrFalse(response)
	if err != nil {
		return false, err
	}
	return verdict.Result, nil
}
