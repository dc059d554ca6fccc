package nlquery

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medley-health/roster-cli/internal/match"
	"github.com/medley-health/roster-cli/internal/roster"
	"github.com/medley-health/roster-cli/internal/store"
)

type stubClient struct {
	reply   string
	lastReq MessageRequest
	err     error
}

func (s *stubClient) CreateMessage(_ context.Context, req MessageRequest) (*MessageResponse, error) {
	s.lastReq = req
	if s.err != nil {
		return nil, s.err
	}
	return &MessageResponse{Text: s.reply}, nil
}

type stubStore struct {
	store.Store
	lastQuery string
	result    *store.ResultSet
}

func (s *stubStore) Select(_ context.Context, query string) (*store.ResultSet, error) {
	s.lastQuery = query
	return s.result, nil
}

func TestTranslateStripsFences(t *testing.T) {
	client := &stubClient{reply: "```sql\nSELECT count(*) FROM merged_roster;\n```"}
	tr := NewTranslator(client, nil, "claude-sonnet-4-5")

	query, err := tr.Translate(context.Background(), "how many providers are there?")
	require.NoError(t, err)
	assert.Equal(t, "SELECT count(*) FROM merged_roster", query)
	assert.Contains(t, client.lastReq.System, "merged_roster")
	require.Len(t, client.lastReq.Messages, 1)
	assert.Equal(t, "how many providers are there?", client.lastReq.Messages[0].Content)
}

func TestTranslateAllowsCTE(t *testing.T) {
	client := &stubClient{reply: "WITH dupes AS (SELECT provider_id_1 FROM duplicates) SELECT count(*) FROM dupes"}
	tr := NewTranslator(client, nil, "claude-sonnet-4-5")

	query, err := tr.Translate(context.Background(), "how many duplicate providers?")
	require.NoError(t, err)
	assert.Contains(t, query, "WITH dupes")
}

func TestTranslateRejectsMutations(t *testing.T) {
	tests := []struct {
		name  string
		reply string
	}{
		{"delete", "DELETE FROM merged_roster"},
		{"select wrapping drop", "SELECT 1; DROP TABLE runs"},
		{"update disguised", "SELECT * FROM merged_roster WHERE 1=1 UNION SELECT 1 FROM x; UPDATE runs SET status='x'"},
		{"pragma", "PRAGMA table_info('runs')"},
		{"empty", "   "},
		{"prose", "I cannot answer that question."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := NewTranslator(&stubClient{reply: tt.reply}, nil, "claude-sonnet-4-5")
			_, err := tr.Translate(context.Background(), "question")
			assert.Error(t, err)
		})
	}
}

func TestTranslateKeywordInIdentifierAllowed(t *testing.T) {
	// "updated_at" contains "update" as a substring but not as a word.
	client := &stubClient{reply: "SELECT id, updated_at FROM runs ORDER BY created_at DESC LIMIT 5"}
	tr := NewTranslator(client, nil, "claude-sonnet-4-5")

	query, err := tr.Translate(context.Background(), "recent runs")
	require.NoError(t, err)
	assert.Contains(t, query, "updated_at")
}

func TestQueryExecutesAgainstStore(t *testing.T) {
	st := &stubStore{result: &store.ResultSet{
		Columns: []string{"n"},
		Rows:    [][]any{{int64(7)}},
	}}
	client := &stubClient{reply: "SELECT count(*) AS n FROM merged_roster WHERE practice_state = 'CA'"}
	tr := NewTranslator(client, st, "claude-sonnet-4-5")

	res, err := tr.Query(context.Background(), "how many California providers?")
	require.NoError(t, err)
	assert.Equal(t, st.lastQuery, res.SQL)
	assert.Equal(t, []string{"n"}, res.Results.Columns)
}

func TestQueryAgainstSQLiteStore(t *testing.T) {
	s, err := store.NewSQLite(t.TempDir() + "/roster.db")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))

	merged := roster.NewTable(roster.ColProviderID, roster.ColPracticeState)
	merged.Append(roster.Row{roster.ColProviderID: "P001", roster.ColPracticeState: "CA"})
	merged.Append(roster.Row{roster.ColProviderID: "P002", roster.ColPracticeState: "CA"})
	merged.Append(roster.Row{roster.ColProviderID: "P003", roster.ColPracticeState: "NY"})
	require.NoError(t, s.ReplaceArtifacts(context.Background(), []match.DuplicatePair{}, merged))

	client := &stubClient{reply: "SELECT count(*) AS n FROM merged_roster WHERE practice_state = 'CA'"}
	tr := NewTranslator(client, s, "claude-sonnet-4-5")

	res, err := tr.Query(context.Background(), "how many CA providers?")
	require.NoError(t, err)
	require.Len(t, res.Results.Rows, 1)
	assert.EqualValues(t, 2, res.Results.Rows[0][0])
}
