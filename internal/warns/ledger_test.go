package warns

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const chat = int64(-100)

func newLedger() (*Ledger, *memStore, *fakeModerator) {
	store := newMemStore()
	mod := &fakeModerator{admins: map[int64]bool{}}
	return NewLedger(store, store, mod), store, mod
}

func TestWarnBelowLimit(t *testing.T) {
	ctx := context.Background()
	l, _, mod := newLedger()

	out, err := l.Warn(ctx, chat, 7, "spam", SourceManual)
	require.NoError(t, err)
	assert.Equal(t, OutcomeWarned, out.Kind)
	assert.Equal(t, 1, out.Count)
	assert.Equal(t, DefaultLimit, out.Limit)

	_, err = l.Warn(ctx, chat, 7, "", SourceManual)
	require.NoError(t, err)

	rec, err := l.Warns(ctx, chat, 7)
	require.NoError(t, err)
	assert.Equal(t, 2, rec.Count)
	assert.Equal(t, []string{"spam"}, rec.Reasons)
	assert.Empty(t, mod.bans)
	assert.Empty(t, mod.kicks)
}

func TestWarnAdminImmune(t *testing.T) {
	ctx := context.Background()
	l, _, mod := newLedger()
	mod.admins[7] = true

	out, err := l.Warn(ctx, chat, 7, "spam", SourceManual)
	require.NoError(t, err)
	assert.Equal(t, OutcomeAdminImmune, out.Kind)

	rec, err := l.Warns(ctx, chat, 7)
	require.NoError(t, err)
	assert.Zero(t, rec.Count)
}

func TestWarnBansAtLimitAndResets(t *testing.T) {
	ctx := context.Background()
	l, _, mod := newLedger()

	var out Outcome
	for i := 0; i < 3; i++ {
		var err error
		out, err = l.Warn(ctx, chat, 7, "spam", SourceManual)
		require.NoError(t, err)
	}
	assert.Equal(t, OutcomeLimitReached, out.Kind)
	assert.Equal(t, "ban", out.Action())
	assert.Equal(t, []int64{7}, mod.bans)
	assert.Empty(t, mod.kicks)

	rec, err := l.Warns(ctx, chat, 7)
	require.NoError(t, err)
	assert.Zero(t, rec.Count)
	assert.Empty(t, rec.Reasons)
}

func TestWarnKicksWhenSoft(t *testing.T) {
	ctx := context.Background()
	l, _, mod := newLedger()
	require.NoError(t, l.SetStrength(ctx, chat, true))

	for i := 0; i < 3; i++ {
		_, err := l.Warn(ctx, chat, 7, "", SourceManual)
		require.NoError(t, err)
	}
	assert.Equal(t, []int64{7}, mod.kicks)
	assert.Empty(t, mod.bans)
}

func TestWarnActionFailedKeepsCount(t *testing.T) {
	ctx := context.Background()
	l, _, mod := newLedger()
	mod.failErr = errRestricted

	var out Outcome
	for i := 0; i < 3; i++ {
		var err error
		out, err = l.Warn(ctx, chat, 7, "", SourceManual)
		require.NoError(t, err)
	}
	assert.Equal(t, OutcomeActionFailed, out.Kind)
	assert.ErrorIs(t, out.Err, errRestricted)

	rec, err := l.Warns(ctx, chat, 7)
	require.NoError(t, err)
	assert.Equal(t, 3, rec.Count)
}

func TestRemoveLastWarn(t *testing.T) {
	ctx := context.Background()
	l, _, _ := newLedger()

	removed, err := l.RemoveLastWarn(ctx, chat, 7)
	require.NoError(t, err)
	assert.False(t, removed)

	_, _ = l.Warn(ctx, chat, 7, "a", SourceManual)
	_, _ = l.Warn(ctx, chat, 7, "b", SourceManual)
	removed, err = l.RemoveLastWarn(ctx, chat, 7)
	require.NoError(t, err)
	assert.True(t, removed)

	rec, _ := l.Warns(ctx, chat, 7)
	assert.Equal(t, 1, rec.Count)
	assert.Equal(t, []string{"a"}, rec.Reasons)
}

func TestResetWarnsIdempotent(t *testing.T) {
	ctx := context.Background()
	l, _, _ := newLedger()
	require.NoError(t, l.ResetWarns(ctx, chat, 7))

	_, _ = l.Warn(ctx, chat, 7, "a", SourceManual)
	require.NoError(t, l.ResetWarns(ctx, chat, 7))
	rec, _ := l.Warns(ctx, chat, 7)
	assert.Zero(t, rec.Count)
}

func TestSetLimit(t *testing.T) {
	ctx := context.Background()
	l, _, _ := newLedger()

	require.NoError(t, l.SetLimit(ctx, chat, 5))
	assert.ErrorIs(t, l.SetLimit(ctx, chat, 2), ErrLimitTooLow)

	s, err := l.Settings(ctx, chat)
	require.NoError(t, err)
	assert.Equal(t, 5, s.Limit)
}

func TestLimitChangeNotRetroactive(t *testing.T) {
	ctx := context.Background()
	l, _, mod := newLedger()
	require.NoError(t, l.SetLimit(ctx, chat, 5))
	for i := 0; i < 4; i++ {
		_, _ = l.Warn(ctx, chat, 7, "", SourceManual)
	}
	require.NoError(t, l.SetLimit(ctx, chat, 3))
	assert.Empty(t, mod.bans)

	out, err := l.Warn(ctx, chat, 7, "", SourceManual)
	require.NoError(t, err)
	assert.Equal(t, OutcomeLimitReached, out.Kind)
	assert.Equal(t, 5, out.Count)
}
