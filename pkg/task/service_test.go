package task

import (
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"
)

type payload struct {
	OrderID string `json:"orderId"`
}

func TestJSONTaskRoundTrip(t *testing.T) {
	tk, err := NewJSONTask("order:created", payload{OrderID: "42"})
	require.NoError(t, err)
	require.Equal(t, "order:created", tk.Type())

	var out payload
	require.NoError(t, DecodePayload(tk, &out))
	require.Equal(t, "42", out.OrderID)
}

func TestDecodePayloadSkipsRetry(t *testing.T) {
	var out payload
	err := DecodePayload(asynq.NewTask("order:created", []byte("{")), &out)
	require.Error(t, err)
	require.True(t, errors.Is(err, asynq.SkipRetry))
}
