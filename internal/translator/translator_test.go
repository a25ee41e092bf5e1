package translator

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sqlcotbench/internal/adapter"
	"sqlcotbench/internal/llm"
	"sqlcotbench/internal/prompt"
	"sqlcotbench/internal/testutil"
)

func TestExtractSQL(t *testing.T) {
	assert.Equal(t, "SELECT 1", ExtractSQL("&&&SELECT 1&&&"))
	assert.Equal(t, "SELECT 1", ExtractSQL("reasoning...\n&&&  SELECT 1 \n&&&"))
	assert.Equal(t, "SELECT a FROM t", ExtractSQL("Plan: ...\n&&&SELECT a FROM t"))
	assert.Equal(t, "", ExtractSQL("SELECT 1"))
	assert.Equal(t, "", ExtractSQL(""))
}

func shopURL(t *testing.T) string {
	return testutil.SQLiteURL(t,
		"CREATE TABLE orders (id INTEGER PRIMARY KEY, customer TEXT, price REAL)",
		"INSERT INTO orders VALUES (1, 'ann', 9.5), (2, 'bob', 20.25), (3, 'cid', 1), (4, 'dan', 2)",
		`CREATE TABLE "odd ""name""" (x TEXT)`,
	)
}

func TestDescribeSchemaSQLite(t *testing.T) {
	ctx := context.Background()
	db, err := adapter.Open(shopURL(t))
	require.NoError(t, err)
	require.NoError(t, db.Connect(ctx))
	defer db.Close()

	schema, err := DescribeSchema(ctx, db)
	require.NoError(t, err)
	assert.Contains(t, schema, "CREATE TABLE orders (id INTEGER PRIMARY KEY, customer TEXT, price REAL)")
	assert.Contains(t, schema, "3 rows from orders table:\nid\tcustomer\tprice\n1\tann\t9.5\n2\tbob\t20.25\n3\tcid\t1\n*/")
	assert.Contains(t, schema, `0 rows from odd "name" table:`)
	assert.NotContains(t, schema, "dan")
}

func TestTranslate(t *testing.T) {
	model := testutil.NewStubModel("Let me think.\n&&&SELECT COUNT(*) FROM orders&&&")
	tr := New(model, shopURL(t), prompt.ZeroShotCoT,
		WithTokenCounter(llm.TokenCounterFunc(func(s string) int { return len(strings.Fields(s)) })))

	out, err := tr.Translate(context.Background(), "How many orders are there?")
	require.NoError(t, err)
	assert.Equal(t, "SELECT COUNT(*) FROM orders", out.SQL)
	assert.Equal(t, 4, out.TokensUsed)
	assert.Greater(t, out.Elapsed.Nanoseconds(), int64(0))

	sent := model.LastPrompt()
	assert.Contains(t, sent, "Let's think step by step.")
	assert.Contains(t, sent, "__DATABASE_SCHEMA__\nCREATE TABLE ")
	assert.Contains(t, sent, "User question: How many orders are there?")
	assert.Contains(t, sent, "surrounded by &&&")
	assert.True(t, strings.HasSuffix(sent, "SQL query:\n"))
}

func TestTranslateWithoutDelimiter(t *testing.T) {
	model := testutil.NewStubModel("SELECT 1")
	tr := New(model, shopURL(t), "")

	out, err := tr.Translate(context.Background(), "anything")
	require.NoError(t, err)
	assert.Equal(t, "", out.SQL)
	assert.Equal(t, "SELECT 1", out.Response)
	assert.Equal(t, 0, out.TokensUsed)
}

func TestSchemaLoadedOnce(t *testing.T) {
	opened := 0
	tr := New(testutil.NewStubModel("&&&SELECT 1&&&"), shopURL(t), "",
		WithOpener(func(url string) (adapter.DBAdapter, error) {
			opened++
			return adapter.Open(url)
		}))

	for i := 0; i < 3; i++ {
		_, err := tr.Translate(context.Background(), "q")
		require.NoError(t, err)
	}
	assert.Equal(t, 1, opened)
}

func TestTranslateErrors(t *testing.T) {
	model := testutil.NewStubModel()
	model.Err = errors.New("rate limited")
	_, err := New(model, shopURL(t), "").Translate(context.Background(), "q")
	require.ErrorContains(t, err, "rate limited")

	_, err = New(testutil.NewStubModel("x"), "sqlite:///does/not/exist.sqlite", "").Translate(context.Background(), "q")
	require.ErrorContains(t, err, "load schema")
}
