package domain

const xpPerRank = 5000

type PlayerStats struct {
	PlayerID      int64          `json:"playerId"`
	Gamertag      string         `json:"gamertag"`
	TotalKills    int            `json:"totalKills"`
	TotalDeaths   int            `json:"totalDeaths"`
	TotalAssists  int            `json:"totalAssists"`
	RankLevel     int            `json:"rankLevel"`
	RankXP        int            `json:"rankXP"`
	HighestSkill  int            `json:"highestSkill"`
	MatchesPlayed int            `json:"matchesPlayed"`
	MatchesWon    int            `json:"matchesWon"`
	PerfectGames  *int           `json:"perfectGames,omitempty"`
	Medals        map[string]int `json:"medals,omitempty"`
	WeaponStats   map[string]int `json:"weaponStats,omitempty"`
}

// KDRatio is kills per death. With no deaths the kill count is returned.
func (s PlayerStats) KDRatio() float64 {
	if s.TotalDeaths > 0 {
		return float64(s.TotalKills) / float64(s.TotalDeaths)
	}
	return float64(s.TotalKills)
}

func (s PlayerStats) WinRatio() float64 {
	if s.MatchesPlayed <= 0 {
		return 0
	}
	return float64(s.MatchesWon) / float64(s.MatchesPlayed)
}

// RankProgress is the fraction [0, 1) of the way towards the next rank
func (s PlayerStats) RankProgress() float64 {
	if s.RankXP <= 0 {
		return 0
	}
	return float64(s.RankXP%xpPerRank) / xpPerRank
}

func (s PlayerStats) RankName() string {
	return RankName(s.RankLevel)
}

func (s PlayerStats) MedalCount() int {
	total := 0
	for _, count := range s.Medals {
		total += count
	}
	return total
}

var ranks = []struct {
	level int
	name  string
}{
	{50, "Brigadier"},
	{45, "Commander"},
	{40, "Major"},
	{35, "Captain"},
	{30, "Lieutenant"},
	{25, "Gunnery Sergeant"},
	{20, "Sergeant"},
	{15, "Corporal"},
	{10, "Private"},
	{5, "Apprentice"},
	{1, "Recruit"},
}

func RankName(level int) string {
	for _, rank := range ranks {
		if level >= rank.level {
			return rank.name
		}
	}
	return "Recruit"
}

type LeaderboardEntry struct {
	Rank       int     `json:"rank"`
	PlayerID   int64   `json:"playerId"`
	Gamertag   string  `json:"gamertag"`
	ServiceTag string  `json:"serviceTag,omitempty"`
	Value      float64 `json:"value"`
	StatType   string  `json:"statType,omitempty"`
}
