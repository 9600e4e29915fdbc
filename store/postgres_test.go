//go:build integration

package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresStore_RecordAndList(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	outcomes := []Outcome{OutcomeCompleted, OutcomeAbandoned, OutcomeCompleted, OutcomeDeadLettered}
	for i, o := range outcomes {
		err := s.Record(ctx, Execution{
			MessageID:     fmt.Sprintf("m%d", i),
			TaskID:        fmt.Sprintf("t%d", i),
			TaskType:      "file-upload",
			Outcome:       o,
			DeliveryCount: i + 1,
			StartedAt:     base.Add(time.Duration(i) * time.Minute),
			FinishedAt:    base.Add(time.Duration(i)*time.Minute + time.Second),
		})
		require.NoError(t, err)
	}

	all, err := s.List(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, "m3", all[0].MessageID)
	assert.Equal(t, OutcomeDeadLettered, all[0].Outcome)
	assert.Equal(t, 4, all[0].DeliveryCount)
	assert.True(t, all[0].FinishedAt.Equal(base.Add(3*time.Minute+time.Second)))

	completed, err := s.List(ctx, Filter{Outcome: OutcomeCompleted})
	require.NoError(t, err)
	require.Len(t, completed, 2)
	assert.Equal(t, "m2", completed[0].MessageID)
	assert.Equal(t, "m0", completed[1].MessageID)

	limited, err := s.List(ctx, Filter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestPostgresStore_RecordValidates(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	assert.Error(t, s.Record(ctx, Execution{Outcome: OutcomeCompleted}))
	assert.ErrorIs(t, s.Record(ctx, Execution{MessageID: "m1", Outcome: "exploded"}), ErrInvalidOutcome)
	assert.ErrorIs(t, s.Record(ctx, Execution{MessageID: "m1"}), ErrInvalidOutcome)
}

func TestPostgresStore_EnsureSchemaIsIdempotent(t *testing.T) {
	s := setupStore(t)

	assert.NoError(t, s.EnsureSchema(context.Background()))
}
