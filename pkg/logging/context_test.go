package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/willynilly/action-update-cff-authors/pkg/logging"
)

func TestContextFunctions(t *testing.T) {
	t.Run("FromContext returns default without logger", func(t *testing.T) {
		logger := logging.FromContext(context.Background())
		assert.NotNil(t, logger)
		assert.Equal(t, logging.Default(), logger)
	})

	t.Run("WithLogger round-trips", func(t *testing.T) {
		buf := &bytes.Buffer{}
		custom := logging.NewJSON(buf)
		ctx := logging.WithLogger(context.Background(), &custom)

		logger := logging.FromContext(ctx)
		require.NotNil(t, logger)
		logger.Info().Msg("hello")
		assert.Contains(t, buf.String(), "hello")
	})

	t.Run("WithRunID stamps every event", func(t *testing.T) {
		buf := &bytes.Buffer{}
		custom := logging.NewJSON(buf)
		ctx := logging.WithLogger(context.Background(), &custom)
		ctx = logging.WithRunID(ctx, "run-42")

		assert.Equal(t, "run-42", logging.RunID(ctx))

		logging.FromContext(ctx).Info().Msg("stamped")

		var event map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &event))
		assert.Equal(t, "run-42", event["run_id"])
	})

	t.Run("WithContributor adds field", func(t *testing.T) {
		buf := &bytes.Buffer{}
		custom := logging.NewJSON(buf)
		ctx := logging.WithLogger(context.Background(), &custom)
		ctx = logging.WithContributor(ctx, "alice")

		logging.FromContext(ctx).Info().Msg("matched")

		var event map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &event))
		assert.Equal(t, "alice", event["contributor"])
	})

	t.Run("nil context returns default", func(t *testing.T) {
		//nolint:staticcheck // exercising the nil guard
		logger := logging.FromContext(nil)
		assert.Equal(t, logging.Default(), logger)
	})
}
