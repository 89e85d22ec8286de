package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/chachabrian/tutorlink-backend/internal/apperror"
)

type stubAssistant struct {
	history []ChatTurn
	err     error
}

func (s *stubAssistant) Reply(_ context.Context, history []ChatTurn, message string) (string, error) {
	s.history = history
	if s.err != nil {
		return "", s.err
	}
	return "echo: " + message, nil
}

func TestChatReply(t *testing.T) {
	ctx := context.Background()

	_, err := NewChatService(nil, zap.NewNop()).Reply(ctx, nil, "hi")
	assert.True(t, apperror.Is(err, apperror.KindUnavailable))

	stub := &stubAssistant{}
	svc := NewChatService(stub, zap.NewNop())

	_, err = svc.Reply(ctx, nil, "   ")
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	history := make([]ChatTurn, 30)
	for i := range history {
		history[i] = ChatTurn{Role: "user", Text: "q"}
	}
	reply, err := svc.Reply(ctx, history, " explain limits ")
	require.NoError(t, err)
	assert.Equal(t, "echo: explain limits", reply)
	assert.Len(t, stub.history, maxChatHistory)

	stub.err = errors.New("quota")
	_, err = svc.Reply(ctx, nil, "again")
	assert.True(t, apperror.Is(err, apperror.KindUnavailable))
}
