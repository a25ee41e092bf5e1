// Package translator turns natural-language questions into SQL with a
// language model prompted with the target database schema.
package translator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/prompts"

	"sqlcotbench/internal/adapter"
	"sqlcotbench/internal/llm"
)

// SQLDelimiter surrounds the final SQL query in model output.
const SQLDelimiter = "&&&"

const systemPrompt = `__INSTRUCTIONS__
You are an AI assistant that translates natural language queries into SQL.
Given a question create a syntactically correct sqlite3 query.
Your task is to generate SQL queries based on the user's questions about the database.
Whenever you need to filter by text data make sure to use appropriate LIKE operator.
Try to avoid errors caused by case sensitivity.
{{.chain_of_thoughts_prompt}}

DON'T OVERCOMPLICATE IT. DON'T CREATE UNNECESSARY COLUMNS.

__OUTPUT_FORMAT__
At the end of the output, please include the SQL query itself surrounded by &&& without any other text.
For example: &&&SELECT * FROM users WHERE age > 20&&&`

const questionPrompt = `

__DATABASE_SCHEMA__
{{.db_schema}}

User question: {{.question}}

SQL query:
`

// Translation one translated question
type Translation struct {
	SQL        string
	Response   string
	Elapsed    time.Duration
	TokensUsed int
}

// Option configures a Translator
type Option func(*Translator)

// WithTokenCounter sets the counter applied to model responses.
func WithTokenCounter(counter llm.TokenCounter) Option {
	return func(t *Translator) { t.counter = counter }
}

// WithCallOptions sets options passed on every model call.
func WithCallOptions(opts ...llms.CallOption) Option {
	return func(t *Translator) { t.callOpts = opts }
}

// WithOpener overrides how the database connection string is opened.
func WithOpener(open func(string) (adapter.DBAdapter, error)) Option {
	return func(t *Translator) { t.open = open }
}

// Translator text-to-SQL converter bound to one database and one strategy
type Translator struct {
	model       llms.Model
	databaseURL string
	template    prompts.PromptTemplate
	counter     llm.TokenCounter
	callOpts    []llms.CallOption
	open        func(string) (adapter.DBAdapter, error)

	schema string
}

// New creates a translator for databaseURL. strategyPrompt is injected into
// the instructions and may be empty.
func New(model llms.Model, databaseURL, strategyPrompt string, opts ...Option) *Translator {
	t := &Translator{
		model:       model,
		databaseURL: databaseURL,
		template: prompts.PromptTemplate{
			Template:       systemPrompt + questionPrompt,
			InputVariables: []string{"db_schema", "question"},
			TemplateFormat: prompts.TemplateFormatGoTemplate,
			PartialVariables: map[string]any{
				"chain_of_thoughts_prompt": strategyPrompt,
			},
		},
		counter: llm.TokenCounterFunc(func(string) int { return 0 }),
		open:    adapter.Open,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Schema returns the schema description, loading it on first use.
func (t *Translator) Schema(ctx context.Context) (string, error) {
	if t.schema != "" {
		return t.schema, nil
	}
	db, err := t.open(t.databaseURL)
	if err != nil {
		return "", err
	}
	if err := db.Connect(ctx); err != nil {
		return "", fmt.Errorf("connect %s: %w", t.databaseURL, err)
	}
	defer db.Close()

	schema, err := DescribeSchema(ctx, db)
	if err != nil {
		return "", err
	}
	t.schema = schema
	return schema, nil
}

// Prompt renders the full prompt for question.
func (t *Translator) Prompt(ctx context.Context, question string) (string, error) {
	schema, err := t.Schema(ctx)
	if err != nil {
		return "", fmt.Errorf("load schema: %w", err)
	}
	prompt, err := t.template.Format(map[string]any{
		"db_schema": schema,
		"question":  question,
	})
	if err != nil {
		return "", fmt.Errorf("format prompt: %w", err)
	}
	return prompt, nil
}

// Run sends the prompt for question and returns the raw model output.
func (t *Translator) Run(ctx context.Context, question string) (string, error) {
	prompt, err := t.Prompt(ctx, question)
	if err != nil {
		return "", err
	}
	response, err := llms.GenerateFromSinglePrompt(ctx, t.model, prompt, t.callOpts...)
	if err != nil {
		return "", fmt.Errorf("generate sql: %w", err)
	}
	return response, nil
}

// Translate returns the extracted SQL with the elapsed time and the token
// count of the model response.
func (t *Translator) Translate(ctx context.Context, question string) (Translation, error) {
	start := time.Now()
	response, err := t.Run(ctx, question)
	elapsed := time.Since(start)
	if err != nil {
		return Translation{}, err
	}
	return Translation{
		SQL:        ExtractSQL(response),
		Response:   response,
		Elapsed:    elapsed,
		TokensUsed: t.counter.CountTokens(response),
	}, nil
}

// ExtractSQL returns the text between the first pair of &&& markers, trimmed.
// Output without a marker yields "".
func ExtractSQL(response string) string {
	parts := strings.Split(response, SQLDelimiter)
	if len(parts) < 2 {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
