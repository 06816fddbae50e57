package domain

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token    string `json:"token"`
	Username string `json:"username"`
	Role     string `json:"role"`
	ID       int64  `json:"id"`
}

type Weapon struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Type     string  `json:"type"`
	Damage   int     `json:"damage"`
	Ammo     int     `json:"ammo"`
	FireRate float64 `json:"fireRate"`
}

type GameState struct {
	State         string         `json:"state"`
	PlayerCount   int            `json:"playerCount"`
	CurrentMap    string         `json:"currentMap"`
	GameMode      string         `json:"gameMode"`
	TimeRemaining float64        `json:"timeRemaining"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}
