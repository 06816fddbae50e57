package domain_test

import (
	"testing"

	"github.com/Amund211/haloclient/internal/domain"
	"github.com/stretchr/testify/require"
)

func validMap() domain.CustomMap {
	return domain.CustomMap{
		MapName:  "Foundry Remix",
		GameMode: "TEAM_SLAYER",
		MapData: &domain.MapData{
			Spawns: []domain.SpawnPoint{
				{Team: "red", Position: domain.Vec3{1, 2, 3}},
				{Team: "blue", Position: domain.Vec3{-1, 2, -3}},
			},
			Settings: domain.MapSettings{MaxPlayers: 8, MinPlayers: 2},
		},
	}
}

func TestCustomMapValidate(t *testing.T) {
	t.Parallel()

	t.Run("valid", func(t *testing.T) {
		t.Parallel()

		require.NoError(t, validMap().Validate())
	})

	t.Run("missing name", func(t *testing.T) {
		t.Parallel()

		m := validMap()
		m.MapName = ""
		require.ErrorIs(t, m.Validate(), domain.ErrInvalidMap)
	})

	t.Run("missing map data", func(t *testing.T) {
		t.Parallel()

		m := validMap()
		m.MapData = nil
		require.ErrorIs(t, m.Validate(), domain.ErrInvalidMap)
	})

	t.Run("too few spawns", func(t *testing.T) {
		t.Parallel()

		m := validMap()
		m.MapData.Spawns = m.MapData.Spawns[:1]
		err := m.Validate()
		require.ErrorIs(t, err, domain.ErrInvalidMap)
		require.Contains(t, err.Error(), "at least 2 spawn points")
	})

	t.Run("fewer spawns than min players", func(t *testing.T) {
		t.Parallel()

		m := validMap()
		m.MapData.Settings.MinPlayers = 4
		err := m.Validate()
		require.ErrorIs(t, err, domain.ErrInvalidMap)
		require.Contains(t, err.Error(), "at least 4 spawn points")
	})
}
