package engine

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/transcat/internal/classification"
	"github.com/Veraticus/transcat/internal/common"
	"github.com/Veraticus/transcat/internal/model"
	"github.com/Veraticus/transcat/internal/storage"
	"github.com/Veraticus/transcat/internal/testutil"
)

type recordingEmitter struct {
	err    error
	events []model.LabelEvent
	mu     sync.Mutex
}

func (r *recordingEmitter) Emit(_ context.Context, event model.LabelEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return r.err
}

func (r *recordingEmitter) Events() []model.LabelEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.LabelEvent(nil), r.events...)
}

func setupEngine(t *testing.T, rules []classification.Rule, records ...model.CategoryRecord) (*Engine, *storage.Store, *recordingEmitter) {
	t.Helper()
	store := testutil.SetupTestStore(t, records...)
	regex, err := classification.NewRegexDetector(rules)
	require.NoError(t, err)

	analyzer := classification.NewAnalyzer([]classification.Detector{
		classification.NewExactMatchDetector(store),
		regex,
	})
	events := &recordingEmitter{}
	return New(store, analyzer, events), store, events
}

func scenarioBatch() []model.Transaction {
	return []model.Transaction{
		testutil.CardTransaction(1000, "Zabka NANO Warszawa", "-7,49"),
		testutil.CardTransaction(1001, "CARREFOUR HIPERMARKET WARSZAWA", "-120,00"),
		testutil.CardTransaction(1002, "Leroy Merlin Warszawa A Warszawa", "-89,90"),
	}
}

func TestEngine_ProcessPredictsAndSaves(t *testing.T) {
	eng, store, events := setupEngine(t, nil, testutil.FixtureGroceries.Records()...)
	ctx := context.Background()

	outcome, err := eng.Process(ctx, scenarioBatch())
	require.NoError(t, err)

	assert.Equal(t, 3, outcome.Predicted)
	assert.Equal(t, 3, outcome.Saved)
	assert.Zero(t, outcome.Found)
	require.Len(t, outcome.Responses, 1)

	resp := outcome.Responses[0]
	assert.False(t, resp.Existing())
	assert.Equal(t, []string{"1000-0", "1001-0", "1002-0"}, resp.Indexes)
	assert.Equal(t, []string{"Zabka Nano", "Carrefour", "Leroy Merlin"}, resp.Categories)
	assert.Contains(t, resp.Message, "[1000-0] -7,49 Zabka NANO Warszawa <> Zabka Nano (")

	assert.Equal(t, []model.LabelEvent{
		{ID: "1000-0", Label: "Zabka Nano", Action: model.ActionAssigned},
		{ID: "1001-0", Label: "Carrefour", Action: model.ActionAssigned},
		{ID: "1002-0", Label: "Leroy Merlin", Action: model.ActionAssigned},
	}, events.Events())

	saved, err := store.GetRecord(ctx, 1001)
	require.NoError(t, err)
	assert.Equal(t, "Carrefour", saved.Category)
	assert.Equal(t, "CARREFOUR HIPERMARKET WARSZAWA", saved.Description)
}

func TestEngine_ReplayResolvesFromStore(t *testing.T) {
	eng, store, events := setupEngine(t, nil, testutil.FixtureGroceries.Records()...)
	ctx := context.Background()

	_, err := eng.Process(ctx, scenarioBatch())
	require.NoError(t, err)
	before, err := store.LoadAll(ctx)
	require.NoError(t, err)

	outcome, err := eng.Process(ctx, scenarioBatch())
	require.NoError(t, err)

	assert.Equal(t, 3, outcome.Found)
	assert.Zero(t, outcome.Predicted)
	require.Len(t, outcome.Responses, 1)
	assert.True(t, outcome.Responses[0].Existing())
	assert.Equal(t, []string{"1000", "1001", "1002"}, outcome.Responses[0].FoundIndexes)

	after, err := store.LoadAll(ctx)
	require.NoError(t, err)
	assert.Len(t, after, len(before))
	assert.Len(t, events.Events(), 3, "replay emits nothing new")
}

func TestEngine_MixedBatch(t *testing.T) {
	rules := []classification.Rule{{Pattern: "BOLT", Category: "Taxi"}}
	eng, _, events := setupEngine(t, rules, testutil.FixtureGroceries.Records()...)

	batch := []model.Transaction{
		testutil.CardTransaction(2000, "Leroy Merlin Warszawa A Warszawa", "-10,00"),
		testutil.CardTransaction(2001, "ZABKA NANO WARSZAWA", "-3,50"),
		testutil.CardTransaction(2002, "BOLT.EU/O/2304 Warszawa", "-21,00"),
	}

	outcome, err := eng.Process(context.Background(), batch)
	require.NoError(t, err)

	assert.Equal(t, 2, outcome.Found)
	assert.Equal(t, 1, outcome.Predicted)
	require.Len(t, outcome.Responses, 2)

	predicted, existing := outcome.Responses[0], outcome.Responses[1]
	assert.Equal(t, []string{"2000-0"}, predicted.Indexes)
	assert.Equal(t, []string{"Leroy Merlin"}, predicted.Categories)

	assert.Equal(t, []string{"2001-0", "2002-0"}, existing.Indexes)
	assert.Equal(t, []string{"2", model.RegexMatchID}, existing.FoundIndexes)
	assert.Equal(t, []string{"Zabka Nano", "Taxi"}, existing.Categories)

	require.Len(t, events.Events(), 1)
	assert.Equal(t, "2000-0", events.Events()[0].ID)
}

func TestEngine_StaleIDsAreNotSaved(t *testing.T) {
	eng, store, events := setupEngine(t, nil, testutil.FixtureGroceries.Records()...)
	ctx := context.Background()

	// Fixture ids run 1..9, so id 5 is a replay of an older entry.
	outcome, err := eng.Process(ctx, []model.Transaction{
		testutil.CardTransaction(5, "Leroy Merlin Okecie", "-1,00"),
	})
	require.NoError(t, err)

	assert.Equal(t, 1, outcome.Predicted)
	assert.Zero(t, outcome.Saved)
	assert.Empty(t, events.Events())

	rec, err := store.GetRecord(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, "Carrefour", rec.Category, "existing row untouched")
}

func TestEngine_InsufficientTrainingData(t *testing.T) {
	eng, store, events := setupEngine(t, nil)
	ctx := context.Background()

	_, err := eng.Process(ctx, scenarioBatch())
	require.ErrorIs(t, err, common.ErrInsufficientTrainingData)

	all, err := store.LoadAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all, "batch not saved")
	assert.Empty(t, events.Events())
}

func TestEngine_MalformedKindFailsBatch(t *testing.T) {
	eng, store, _ := setupEngine(t, nil, testutil.FixtureGroceries.Records()...)
	ctx := context.Background()

	batch := scenarioBatch()
	batch[1].Kind = "REFUND"

	_, err := eng.Process(ctx, batch)
	require.ErrorIs(t, err, common.ErrUnsupportedKind)

	maxID, err := store.MaxID(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(9), maxID)
}

func TestEngine_SkipMalformed(t *testing.T) {
	store := testutil.SetupTestStore(t, testutil.FixtureGroceries.Records()...)
	analyzer := classification.NewAnalyzer(
		[]classification.Detector{classification.NewExactMatchDetector(store)},
		classification.WithSkipMalformed(true),
	)
	eng := New(store, analyzer, &recordingEmitter{})

	batch := scenarioBatch()
	batch[1].Kind = "REFUND"

	outcome, err := eng.Process(context.Background(), batch)
	require.NoError(t, err)
	require.Len(t, outcome.Rejected, 1)
	assert.Equal(t, "1001-0", outcome.Rejected[0].Key)
	assert.Equal(t, 2, outcome.Saved)
}

func TestEngine_EmitFailureKeepsSave(t *testing.T) {
	eng, store, events := setupEngine(t, nil, testutil.FixtureGroceries.Records()...)
	events.err = errors.New("stream down")
	ctx := context.Background()

	outcome, err := eng.Process(ctx, scenarioBatch())
	require.NoError(t, err)
	assert.Equal(t, 3, outcome.Saved)

	maxID, err := store.MaxID(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1002), maxID)
}

func TestEngine_Correct(t *testing.T) {
	eng, store, events := setupEngine(t, nil, testutil.FixtureGroceries.Records()...)
	ctx := context.Background()

	require.NoError(t, eng.Correct(ctx, "3-0", "Groceries"))

	rec, err := store.GetRecord(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, "Groceries", rec.Category)

	other, err := store.GetRecord(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "Zabka Nano", other.Category)

	assert.Equal(t, []model.LabelEvent{
		{ID: "3-0", Label: "Groceries", Action: model.ActionChanged},
	}, events.Events())
}

func TestEngine_CorrectErrors(t *testing.T) {
	eng, _, events := setupEngine(t, nil, testutil.FixtureGroceries.Records()...)
	ctx := context.Background()

	tests := []struct {
		wantErr  error
		name     string
		key      string
		category string
	}{
		{name: "unknown id", key: "999-0", category: "Food", wantErr: common.ErrNotFound},
		{name: "bad key", key: "abc", category: "Food"},
		{name: "empty category", key: "3-0", category: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := eng.Correct(ctx, tt.key, tt.category)
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
	assert.Empty(t, events.Events())
}

func TestEngine_ChosenCategory(t *testing.T) {
	eng, _, _ := setupEngine(t, nil, testutil.FixtureGroceries.Records()...)
	ctx := context.Background()

	require.NoError(t, eng.Correct(ctx, "3-0", "Groceries"))

	resp, err := eng.ChosenCategory(ctx, "3-0")
	require.NoError(t, err)
	assert.Equal(t, "[3-0] -15,00 Zabka NANO Mokotow Warszawa <> Groceries (0)", resp.Message)
	assert.Equal(t, []string{"Groceries"}, resp.Categories)

	_, err = eng.ChosenCategory(ctx, "404-0")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestEngine_ConcurrentBatchesSaveOnce(t *testing.T) {
	eng, store, events := setupEngine(t, nil, testutil.FixtureGroceries.Records()...)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = eng.Process(ctx, scenarioBatch())
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}

	all, err := store.LoadAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 12)
	assert.Len(t, events.Events(), 3)
}

func TestNewWithConfig_Defaults(t *testing.T) {
	store := testutil.SetupTestStore(t)
	eng := NewWithConfig(store, classification.NewAnalyzer(nil), nil, Config{})

	assert.IsType(t, LogEmitter{}, eng.events)
	assert.NotNil(t, eng.training)
}
