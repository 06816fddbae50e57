package domain

import (
	"encoding/json"
	"strings"
)

type TicketStatus string

const (
	TicketStatusQueued    TicketStatus = "queued"
	TicketStatusMatched   TicketStatus = "matched"
	TicketStatusCancelled TicketStatus = "cancelled"
	TicketStatusTimedOut  TicketStatus = "timed_out"
)

// UnmarshalJSON accepts both the client statuses and the backend's upper case variants
func (s *TicketStatus) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	switch normalized := strings.ToLower(raw); normalized {
	case "queued", "searching":
		*s = TicketStatusQueued
	case "matched", "found":
		*s = TicketStatusMatched
	case "cancelled", "canceled":
		*s = TicketStatusCancelled
	case "timed_out", "timeout":
		*s = TicketStatusTimedOut
	default:
		*s = TicketStatus(normalized)
	}
	return nil
}

type MatchmakingTicket struct {
	TicketID             string       `json:"ticketId"`
	Playlist             string       `json:"playlist"`
	Status               TicketStatus `json:"status"`
	EstimatedWaitSeconds int          `json:"estimatedWaitSeconds"`
	PlayerIDs            []int64      `json:"playerIds"`
}

const (
	PlaylistRankedSlayer     = "ranked_slayer"
	PlaylistRankedDoubles    = "ranked_doubles"
	PlaylistRankedObjective  = "ranked_objective"
	PlaylistSocialSlayer     = "social_slayer"
	PlaylistSocialBigTeam    = "social_big_team"
	PlaylistSocialActionSack = "social_action_sack"
	PlaylistCustomGames      = "custom_games"
)

// QuickMatchPlaylist picks the default playlist for a player of the given rank
func QuickMatchPlaylist(rankLevel int) string {
	if rankLevel >= 20 {
		return PlaylistRankedSlayer
	}
	return PlaylistSocialSlayer
}
