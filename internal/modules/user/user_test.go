package user

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atinyakov/appstate/internal/models"
	"github.com/atinyakov/appstate/internal/store"
)

func newStore(t *testing.T) *store.Store {
	t.Helper()
	s := store.New()
	require.NoError(t, s.Register(Module()))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestInitialState(t *testing.T) {
	s := newStore(t)
	assert.Equal(t, models.UserState{Info: map[string]any{}}, s.State().User)
}

func TestSetters(t *testing.T) {
	s := newStore(t)

	require.NoError(t, SetAccountID(s, "acc"))
	require.NoError(t, SetUserID(s, "usr"))
	require.NoError(t, SetUserInfo(s, map[string]any{"name": "Ann"}))

	assert.Equal(t, models.UserState{
		AccountID: "acc",
		UserID:    "usr",
		Info:      map[string]any{"name": "Ann"},
	}, s.State().User)

	// each setter touches one field only
	require.NoError(t, s.Commit(models.SetUserID, nil))
	got := s.State().User
	assert.Equal(t, "acc", got.AccountID)
	assert.Equal(t, "", got.UserID)
	assert.Equal(t, "Ann", got.Info["name"])
}

func TestSetters_NilDefaults(t *testing.T) {
	s := newStore(t)
	require.NoError(t, SetAccountID(s, "acc"))
	require.NoError(t, SetUserInfo(s, map[string]any{"a": 1}))

	require.NoError(t, s.Commit(models.SetAccountID, nil))
	require.NoError(t, s.Commit(models.SetUserInfo, nil))

	assert.Equal(t, "", s.State().User.AccountID)
	assert.Equal(t, map[string]any{}, s.State().User.Info)
}

func TestSetters_InvalidPayload(t *testing.T) {
	s := newStore(t)
	assert.ErrorIs(t, s.Commit(models.SetUserID, 7), store.ErrInvalidPayload)
	assert.ErrorIs(t, s.Commit(models.SetUserInfo, "x"), store.ErrInvalidPayload)
}

func TestGetPaths(t *testing.T) {
	s := newStore(t)
	require.NoError(t, SetUserID(s, "u1"))

	v, err := s.Get("user.userId")
	require.NoError(t, err)
	assert.Equal(t, "u1", v)
}
