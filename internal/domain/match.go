package domain

type MatchResult struct {
	MatchID         string             `json:"matchId"`
	MapName         string             `json:"mapName"`
	GameMode        string             `json:"gameMode"`
	WinningTeam     int                `json:"winningTeam"`
	DurationSeconds int64              `json:"durationSeconds"`
	PlayerStats     []PlayerMatchStats `json:"playerStats"`
}

type PlayerMatchStats struct {
	PlayerID     int64          `json:"playerId"`
	Team         int            `json:"team"`
	Kills        int            `json:"kills"`
	Deaths       int            `json:"deaths"`
	Assists      int            `json:"assists"`
	Score        int            `json:"score"`
	MedalsEarned []string       `json:"medalsEarned,omitempty"`
	WeaponKills  map[string]int `json:"weaponKills,omitempty"`
}
