package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"helperbot/internal/domain"
)

func TestConversationsAndFunctionCall(t *testing.T) {
	ctx := context.Background()
	s, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	defer s.Close()

	req := domain.FunctionCallRequest{ID: "call_1", Name: "get_data_from_db", RawArguments: `{"query":"sync"}`}
	call := domain.NewTurn(domain.RoleAssistant, "")
	call.FunctionCall = &req

	require.NoError(t, s.Append(ctx, "b", domain.NewTurn(domain.RoleUser, "hi")))
	require.NoError(t, s.Append(ctx, "a", call, domain.FunctionResultTurn(req, "{}")))

	ids, err := s.Conversations(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, ids)

	turns, err := s.Load(ctx, "a")
	require.NoError(t, err)
	require.Len(t, turns, 2)
	require.NotNil(t, turns[0].FunctionCall)
	assert.Equal(t, "get_data_from_db", turns[0].FunctionCall.Name)
	assert.Equal(t, domain.RoleFunction, turns[1].Role)
	assert.Equal(t, "get_data_from_db", turns[1].FunctionName)
}
