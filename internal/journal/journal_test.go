package journal

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/understudy-dev/understudy/internal/script"
	"github.com/understudy-dev/understudy/internal/sequencer"
	"github.com/understudy-dev/understudy/internal/store"
	"github.com/understudy-dev/understudy/internal/testutil"
	"github.com/understudy-dev/understudy/internal/value"
)

func openTestJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := OpenWithRunID(":memory:", testutil.NewFixedRunID("run-test").Generate())
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })
	return j
}

func TestRecordAndReadCalls(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()

	require.NoError(t, j.RecordCall(ctx, sequencer.CallRecord{
		Service: "payments", Method: "charge", Ordinal: 0, Outcome: sequencer.RecordError, ErrorCode: "timeout",
	}))
	require.NoError(t, j.RecordCall(ctx, sequencer.CallRecord{
		Service: "payments", Method: "charge", Ordinal: 1, Outcome: sequencer.RecordSuccess,
	}))
	require.NoError(t, j.RecordCall(ctx, sequencer.CallRecord{
		Service: "catalog", Method: "listItems", Ordinal: 0, Outcome: sequencer.RecordSuccess, Synthetic: true,
	}))

	calls, err := j.Calls(ctx, "run-test")
	require.NoError(t, err)
	require.Len(t, calls, 3)

	assert.Equal(t, int64(1), calls[0].Seq)
	assert.Equal(t, "charge", calls[0].Method)
	assert.Equal(t, "timeout", calls[0].ErrorCode)
	assert.False(t, calls[0].Synthetic)

	assert.Equal(t, int64(2), calls[1].Seq)
	assert.Equal(t, sequencer.RecordSuccess, calls[1].Outcome)

	assert.True(t, calls[2].Synthetic)

	n, err := j.CallCount(ctx, "run-test", "payments", "charge")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestRecordUpdatesBatchSharesSeq(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()

	require.NoError(t, j.RecordUpdates(ctx, "payments", value.Map{
		"status": value.Int(3),
		"banner": value.String("done"),
	}))

	updates, err := j.Updates(ctx, "run-test")
	require.NoError(t, err)
	require.Len(t, updates, 2)
	assert.Equal(t, updates[0].Seq, updates[1].Seq, "batch rows share a sequence number")
	assert.Equal(t, "banner", updates[0].Key)
	assert.Equal(t, `"done"`, updates[0].Value)
	assert.Equal(t, "3", updates[1].Value)
}

func TestRecordUpdatesEmptyBatchIsNoop(t *testing.T) {
	j := openTestJournal(t)
	require.NoError(t, j.RecordUpdates(context.Background(), "svc", nil))

	updates, err := j.Updates(context.Background(), "run-test")
	require.NoError(t, err)
	assert.Empty(t, updates)
}

func TestJournalPersistsToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	ctx := context.Background()

	j, err := OpenWithRunID(path, "run-file")
	require.NoError(t, err)
	require.NoError(t, j.RecordCall(ctx, sequencer.CallRecord{
		Service: "svc", Method: "m", Ordinal: 0, Outcome: sequencer.RecordSuccess,
	}))
	require.NoError(t, j.Close())

	reopened, err := OpenWithRunID(path, "run-file-2")
	require.NoError(t, err)
	defer reopened.Close()

	calls, err := reopened.Calls(ctx, "run-file")
	require.NoError(t, err)
	require.Len(t, calls, 1)
	assert.Equal(t, "m", calls[0].Method)

	runs, err := reopened.Runs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"run-file"}, runs)
}

func TestJournalWiredAsSequencerRecorder(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()

	st := store.New(value.Map{"status": value.Int(0)})
	seq := sequencer.New(map[string]script.MethodSpec{
		"advance": {Responses: []script.Response{{
			Outcome: script.OutcomeSuccess,
			Value:   value.Int(1),
			Updates: value.Map{"status": value.Int(1)},
		}}},
	}, sequencer.WithName("svc"), sequencer.WithStore(st), sequencer.WithRecorder(j))

	_, err := seq.CallForValue(ctx, "advance", value.KindInt)
	require.NoError(t, err)

	calls, err := j.Calls(ctx, "run-test")
	require.NoError(t, err)
	require.Len(t, calls, 1)
	assert.Equal(t, "svc", calls[0].Service)
	assert.Equal(t, 0, calls[0].Ordinal)

	updates, err := j.Updates(ctx, "run-test")
	require.NoError(t, err)
	require.Len(t, updates, 1)
	assert.Equal(t, "status", updates[0].Key)
}

func TestOpenGeneratesRunID(t *testing.T) {
	j, err := Open(":memory:")
	require.NoError(t, err)
	defer j.Close()
	assert.NotEmpty(t, j.RunID())
}
