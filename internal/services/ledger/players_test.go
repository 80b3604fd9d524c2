package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	repo "github.com/fastprodman/progression/internal/repos/ledger"
)

func TestCreatePlayer(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil, defaultConfig())

	rec, err := f.svc.CreatePlayer(t.Context(), repo.NewPlayer{DeviceID: "d1", DisplayName: "  neo ", Country: "br"})
	require.NoError(t, err)
	assert.Equal(t, "neo", rec.DisplayName)
	assert.Equal(t, "BR", rec.Country)

	again, err := f.svc.CreatePlayer(t.Context(), repo.NewPlayer{DeviceID: "d1"})
	require.NoError(t, err)
	assert.Equal(t, rec.ID, again.ID)

	id, err := f.svc.ResolveIdentity(t.Context(), "d1")
	require.NoError(t, err)
	assert.Equal(t, rec.ID, id)

	_, err = f.svc.CreatePlayer(t.Context(), repo.NewPlayer{DeviceID: "d2", Country: "Atlantis"})
	require.ErrorIs(t, err, repo.ErrInvalidInput)

	_, err = f.svc.ResolveIdentity(t.Context(), " ")
	require.ErrorIs(t, err, repo.ErrInvalidInput)
}

func TestRevokeDevice(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil, defaultConfig())

	rec, err := f.svc.CreatePlayer(t.Context(), repo.NewPlayer{DeviceID: "d1"})
	require.NoError(t, err)

	require.NoError(t, f.svc.RevokeDevice(t.Context(), "d1"))

	_, err = f.svc.ResolveIdentity(t.Context(), "d1")
	require.ErrorIs(t, err, repo.ErrNotFound)

	_, err = f.svc.GetPlayer(t.Context(), rec.ID)
	require.NoError(t, err)
}

func TestUpdateProfile_MovesLeaderboardPartition(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil, defaultConfig())
	id := f.player(t, "BR")

	_, err := f.svc.AddScore(t.Context(), ScoreRequest{Player: id, ScoreType: "crowns", Amount: 3})
	require.NoError(t, err)

	rec, err := f.svc.UpdateProfile(t.Context(), id, repo.Profile{DisplayName: "moved", Country: "pt"})
	require.NoError(t, err)
	assert.Equal(t, "PT", rec.Country)

	br, err := f.index.List("crowns", "BR", 0, 10)
	require.NoError(t, err)
	assert.Empty(t, br)

	pt, err := f.index.List("crowns", "PT", 0, 10)
	require.NoError(t, err)
	require.Len(t, pt, 1)
	assert.Equal(t, "moved", pt[0].DisplayName)

	_, err = f.svc.UpdateProfile(t.Context(), id, repo.Profile{Country: "nowhere"})
	require.ErrorIs(t, err, repo.ErrInvalidInput)
}

func TestUpdateProfile_SurvivesReconcileOfOlderRecord(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil, defaultConfig())
	id := f.player(t, "US")

	_, err := f.svc.UpdateScore(t.Context(), id, "crowns", "")
	require.NoError(t, err)

	// A reconcile that read the record before the profile change.
	stale, err := f.store.Get(t.Context(), id)
	require.NoError(t, err)

	_, err = f.svc.UpdateProfile(t.Context(), id, repo.Profile{DisplayName: "player", Country: "DE"})
	require.NoError(t, err)

	f.index.Sync(stale)

	us, err := f.index.List("crowns", "US", 0, 10)
	require.NoError(t, err)
	assert.Empty(t, us)

	de, err := f.index.List("crowns", "DE", 0, 10)
	require.NoError(t, err)
	require.Len(t, de, 1)
	assert.Equal(t, id, de[0].Player)
}

func TestMissionsView(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil, defaultConfig())
	id := f.player(t, "")

	views, err := f.svc.Missions(t.Context(), id)
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, "weekly_rounds", views[0].ID)

	_, err = f.svc.Missions(t.Context(), "missing")
	require.ErrorIs(t, err, repo.ErrNotFound)
}
