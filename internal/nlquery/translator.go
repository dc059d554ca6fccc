package nlquery

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/medley-health/roster-cli/internal/store"
)

// schemaPrompt describes the queryable tables to the model. Kept in lockstep
// with the store migrations.
const schemaPrompt = `You translate questions about a healthcare provider roster into SQL.

Schema:

TABLE merged_roster (
  provider_id, full_name, first_name, last_name, credential,
  npi, license_number, license_state, license_expiration,
  practice_address_line1, practice_city, practice_state, practice_zip,
  practice_phone, practice_phone_standardized,
  mailing_city, mailing_zip,
  years_in_practice, accepting_new_patients, status, npi_present,
  extra  -- JSON object of columns outside the fixed schema
)
All columns except extra are TEXT. npi_present is 'true' or 'false'.

TABLE duplicates (
  i1, i2, provider_id_1, provider_id_2, name_1, name_2,
  score, name_score, npi_match, addr_score, phone_match, license_score
)

TABLE runs (
  id, source_file, status, summary, error, created_at, updated_at
)

Rules:
- Respond with a single SELECT statement and nothing else.
- Never modify data. No INSERT, UPDATE, DELETE, DROP, or ALTER.
- Cast text columns when aggregating numerically.`

// Translator turns a natural-language question into SQL and runs it.
type Translator struct {
	client Client
	store  store.Store
	model  string
}

// QueryResult carries the generated SQL alongside its result set.
type QueryResult struct {
	SQL     string           `json:"sql"`
	Results *store.ResultSet `json:"results"`
}

// NewTranslator creates a Translator using the given model.
func NewTranslator(client Client, st store.Store, model string) *Translator {
	return &Translator{client: client, store: st, model: model}
}

// Translate converts a question into a SQL SELECT without executing it.
func (t *Translator) Translate(ctx context.Context, question string) (string, error) {
	temp := 0.0
	resp, err := t.client.CreateMessage(ctx, MessageRequest{
		Model:       t.model,
		MaxTokens:   1024,
		System:      schemaPrompt,
		Messages:    []Message{{Role: "user", Content: question}},
		Temperature: &temp,
	})
	if err != nil {
		return "", err
	}
	resp.Usage.LogUsage(t.model)

	query := cleanSQL(resp.Text)
	if err := validateSelect(query); err != nil {
		return "", err
	}
	return query, nil
}

// Query translates the question and executes the resulting SELECT.
func (t *Translator) Query(ctx context.Context, question string) (*QueryResult, error) {
	query, err := t.Translate(ctx, question)
	if err != nil {
		return nil, err
	}

	zap.L().Debug("nlquery: executing generated sql", zap.String("sql", query))
	rs, err := t.store.Select(ctx, query)
	if err != nil {
		return nil, eris.Wrap(err, "nlquery: execute generated sql")
	}
	return &QueryResult{SQL: query, Results: rs}, nil
}

// cleanSQL strips markdown fences and a trailing semicolon from model output.
func cleanSQL(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```sql")
		s = strings.TrimPrefix(s, "```")
		if i := strings.LastIndex(s, "```"); i >= 0 {
			s = s[:i]
		}
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, ";")
	return strings.TrimSpace(s)
}

// forbiddenKeywords are statement types the guard rejects even inside a
// statement that starts with SELECT.
var forbiddenKeywords = []string{
	"insert", "update", "delete", "drop", "alter", "create",
	"truncate", "attach", "pragma", "grant", "revoke",
}

// validateSelect enforces the read-only contract on generated SQL.
func validateSelect(query string) error {
	lower := strings.ToLower(query)
	if query == "" {
		return eris.New("nlquery: model returned empty query")
	}
	if !strings.HasPrefix(lower, "select") && !strings.HasPrefix(lower, "with") {
		return eris.Errorf("nlquery: generated query is not a SELECT: %q", query)
	}
	if strings.Contains(query, ";") {
		return eris.New("nlquery: multiple statements are not allowed")
	}
	for _, kw := range forbiddenKeywords {
		if containsWord(lower, kw) {
			return eris.Errorf("nlquery: generated query contains forbidden keyword %q", kw)
		}
	}
	return nil
}

// containsWord reports whether s contains w as a whole word.
func containsWord(s, w string) bool {
	for i := 0; ; {
		j := strings.Index(s[i:], w)
		if j < 0 {
			return false
		}
		j += i
		before := j == 0 || !isWordByte(s[j-1])
		afterIdx := j + len(w)
		after := afterIdx >= len(s) || !isWordByte(s[afterIdx])
		if before && after {
			return true
		}
		i = j + len(w)
	}
}

func isWordByte(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= '0' && b <= '9')
}
