package domain

import "fmt"

// Vec3 is an engine independent x, y, z triple
type Vec3 [3]float64

type CustomMap struct {
	ID             *int64   `json:"id,omitempty"`
	MapName        string   `json:"mapName"`
	AuthorGamertag string   `json:"authorGamertag,omitempty"`
	AuthorID       int64    `json:"authorId,omitempty"`
	BaseMap        string   `json:"baseMap,omitempty"`
	GameMode       string   `json:"gameMode,omitempty"`
	Description    string   `json:"description,omitempty"`
	Rating         *float64 `json:"rating,omitempty"`
	DownloadCount  *int     `json:"downloadCount,omitempty"`
	Tags           []string `json:"tags,omitempty"`
	CreatedAt      string   `json:"createdAt,omitempty"`
	MapData        *MapData `json:"mapData,omitempty"`
}

type MapData struct {
	Objects  []ForgeObject  `json:"objects"`
	Spawns   []SpawnPoint   `json:"spawns"`
	Weapons  []WeaponSpawn  `json:"weapons"`
	Vehicles []VehicleSpawn `json:"vehicles"`
	Settings MapSettings    `json:"settings"`
}

type ForgeObject struct {
	ObjectType string `json:"objectType"`
	Position   Vec3   `json:"position"`
	Rotation   Vec3   `json:"rotation"`
	Scale      Vec3   `json:"scale"`
	Properties string `json:"properties,omitempty"`
}

type SpawnPoint struct {
	Team     string  `json:"team"`
	Position Vec3    `json:"position"`
	Rotation float64 `json:"rotation"`
}

type WeaponSpawn struct {
	WeaponType  string  `json:"weaponType"`
	Position    Vec3    `json:"position"`
	RespawnTime float64 `json:"respawnTime"`
}

type VehicleSpawn struct {
	VehicleType string  `json:"vehicleType"`
	Position    Vec3    `json:"position"`
	Rotation    float64 `json:"rotation"`
	RespawnTime float64 `json:"respawnTime"`
}

type MapSettings struct {
	MaxPlayers    int    `json:"maxPlayers"`
	MinPlayers    int    `json:"minPlayers"`
	Symmetrical   bool   `json:"symmetrical"`
	TimeOfDay     string `json:"timeOfDay,omitempty"`
	WeatherEffect string `json:"weatherEffect,omitempty"`
}

type MapUploadResponse struct {
	MapID   int64  `json:"mapId"`
	Message string `json:"message,omitempty"`
}

// Validate checks that the map can be uploaded. The returned error wraps ErrInvalidMap.
func (m CustomMap) Validate() error {
	if m.MapName == "" {
		return fmt.Errorf("%w: map name is required", ErrInvalidMap)
	}
	if m.MapData == nil {
		return fmt.Errorf("%w: map data is missing", ErrInvalidMap)
	}

	spawns := len(m.MapData.Spawns)
	if spawns < 2 {
		return fmt.Errorf("%w: map must have at least 2 spawn points", ErrInvalidMap)
	}
	if spawns < m.MapData.Settings.MinPlayers {
		return fmt.Errorf("%w: map must have at least %d spawn points", ErrInvalidMap, m.MapData.Settings.MinPlayers)
	}

	return nil
}
