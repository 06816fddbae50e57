package apiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/Amund211/haloclient/internal/adapters/cache"
	"github.com/Amund211/haloclient/internal/decode"
	"github.com/Amund211/haloclient/internal/domain"
	"github.com/Amund211/haloclient/internal/logging"
	"github.com/Amund211/haloclient/internal/reporting"
)

const weaponsCacheKey = "weapons"

func text(body []byte) (string, error) {
	return string(body), nil
}

func marshalBody(v any) ([]byte, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request body: %w", err)
	}
	return body, nil
}

// Login authenticates against the backend. Credentials are stored only when the
// response decodes successfully, so a failed login keeps the previous credentials.
func (c *Client) Login(ctx context.Context, username, password string) Result[domain.LoginResponse] {
	start := c.nowFunc()

	body, err := marshalBody(domain.LoginRequest{Username: username, Password: password})
	if err != nil {
		return fail[domain.LoginResponse](ctx, c, "Login", start, err)
	}

	ctx = reporting.SetUserIDInContext(ctx, username)
	result := call(ctx, c, "Login", request{
		method: http.MethodPost,
		path:   "/login",
		body:   body,
	}, decode.Object[domain.LoginResponse])
	if result.OK() {
		c.auth.SetCredentials(username, password)
		logging.FromContext(ctx).InfoContext(ctx, "Logged in", "username", result.Data.Username, "role", result.Data.Role)
	}
	return result
}

func (c *Client) Logout() {
	c.auth.Clear()
}

func (c *Client) fetchWeapons(ctx context.Context) Result[[]domain.Weapon] {
	return call(ctx, c, "GetWeapons", request{
		method: http.MethodGet,
		path:   "/weapons",
	}, decode.List[domain.Weapon])
}

func (c *Client) GetWeapons(ctx context.Context) Result[[]domain.Weapon] {
	if c.weaponCache == nil {
		return c.fetchWeapons(ctx)
	}

	start := c.nowFunc()

	var fetched Result[[]domain.Weapon]
	entry, created, err := cache.GetOrCreate(ctx, c.weaponCache, weaponsCacheKey, func() (cachedWeapons, error) {
		fetched = c.fetchWeapons(ctx)
		if !fetched.OK() {
			return cachedWeapons{}, fetched.Err
		}
		return cachedWeapons{
			weapons:    fetched.Data,
			statusCode: fetched.StatusCode,
			headers:    fetched.Headers,
		}, nil
	})
	if created || fetched.Err != nil {
		return fetched
	}
	if err != nil {
		return fail[[]domain.Weapon](ctx, c, "GetWeapons", start, err)
	}

	weapons := make([]domain.Weapon, len(entry.weapons))
	copy(weapons, entry.weapons)

	ctx, span := c.tracer.Start(ctx, "Client.GetWeapons")
	defer span.End()
	return finish(ctx, c, span, "GetWeapons", Result[[]domain.Weapon]{
		Data:         weapons,
		StatusCode:   entry.statusCode,
		ResponseTime: c.nowFunc().Sub(start),
		Headers:      entry.headers.Clone(),
	})
}

func (c *Client) GetGameState(ctx context.Context) Result[domain.GameState] {
	return call(ctx, c, "GetGameState", request{
		method: http.MethodGet,
		path:   "/game-state",
	}, decode.Object[domain.GameState])
}

func (c *Client) GetPlayerStats(ctx context.Context, playerID int64) Result[domain.PlayerStats] {
	result := call(ctx, c, "GetPlayerStats", request{
		method:   http.MethodGet,
		path:     fmt.Sprintf("/halo/player/%d/stats", playerID),
		withAuth: true,
	}, decode.Object[domain.PlayerStats])
	if result.OK() {
		c.OnPlayerStats.Emit(ctx, result.Data)
	}
	return result
}

// GetMatchHistory returns the player's most recent matches, newest first
func (c *Client) GetMatchHistory(ctx context.Context, playerID int64, limit int) Result[[]domain.MatchResult] {
	query := url.Values{}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	return call(ctx, c, "GetMatchHistory", request{
		method:   http.MethodGet,
		path:     withQuery(fmt.Sprintf("/halo/player/%d/matches", playerID), query),
		withAuth: true,
	}, decode.List[domain.MatchResult])
}

func (c *Client) GetLeaderboard(ctx context.Context, stat string, limit int) Result[[]domain.LeaderboardEntry] {
	query := url.Values{}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	result := call(ctx, c, "GetLeaderboard", request{
		method: http.MethodGet,
		path:   withQuery("/halo/leaderboard/"+url.PathEscape(stat), query),
	}, decode.List[domain.LeaderboardEntry])
	if result.OK() {
		c.OnLeaderboard.Emit(ctx, result.Data)
	}
	return result
}

type BrowseOptions struct {
	// Empty means all game modes
	GameMode string
	SortBy   string
	Page     int
	PageSize int
}

func (o BrowseOptions) query() url.Values {
	sortBy := o.SortBy
	if sortBy == "" {
		sortBy = "rating"
	}
	pageSize := o.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	page := max(o.Page, 0)

	query := url.Values{}
	query.Set("sortBy", sortBy)
	query.Set("page", strconv.Itoa(page))
	query.Set("pageSize", strconv.Itoa(pageSize))
	if o.GameMode != "" {
		query.Set("gameMode", o.GameMode)
	}
	return query
}

func (c *Client) BrowseMaps(ctx context.Context, opts BrowseOptions) Result[[]domain.CustomMap] {
	result := call(ctx, c, "BrowseMaps", request{
		method: http.MethodGet,
		path:   withQuery("/halo/maps/browse", opts.query()),
	}, decode.List[domain.CustomMap])
	if result.OK() {
		c.OnMapsReceived.Emit(ctx, result.Data)
	}
	return result
}

func (c *Client) DownloadMap(ctx context.Context, mapID int64) Result[domain.CustomMap] {
	return call(ctx, c, "DownloadMap", request{
		method:   http.MethodGet,
		path:     fmt.Sprintf("/halo/maps/%d/download", mapID),
		withAuth: true,
	}, decode.Object[domain.CustomMap])
}

// UploadMap validates customMap and uploads it. On success the returned map carries the
// id assigned by the server.
func (c *Client) UploadMap(ctx context.Context, customMap domain.CustomMap) Result[domain.CustomMap] {
	start := c.nowFunc()

	if err := customMap.Validate(); err != nil {
		return fail[domain.CustomMap](ctx, c, "UploadMap", start, err)
	}

	body, err := marshalBody(customMap)
	if err != nil {
		return fail[domain.CustomMap](ctx, c, "UploadMap", start, err)
	}

	uploaded := call(ctx, c, "UploadMap", request{
		method:   http.MethodPost,
		path:     "/halo/maps/upload",
		body:     body,
		withAuth: true,
	}, decode.Object[domain.MapUploadResponse])

	result := Result[domain.CustomMap]{
		StatusCode:   uploaded.StatusCode,
		ResponseTime: uploaded.ResponseTime,
		Headers:      uploaded.Headers,
		Err:          uploaded.Err,
	}
	if !uploaded.OK() {
		return result
	}

	mapID := uploaded.Data.MapID
	customMap.ID = &mapID
	result.Data = customMap

	c.OnMapUploaded.Emit(ctx, customMap)
	return result
}

// JoinMatchmaking enqueues the party for playlist. The body is the bare JSON array of player ids.
func (c *Client) JoinMatchmaking(ctx context.Context, playlist string, playerIDs []int64) Result[domain.MatchmakingTicket] {
	start := c.nowFunc()

	if playerIDs == nil {
		playerIDs = []int64{}
	}
	body, err := marshalBody(playerIDs)
	if err != nil {
		return fail[domain.MatchmakingTicket](ctx, c, "JoinMatchmaking", start, err)
	}

	query := url.Values{}
	query.Set("playlist", playlist)
	return call(ctx, c, "JoinMatchmaking", request{
		method:   http.MethodPost,
		path:     withQuery("/halo/matchmaking/queue", query),
		body:     body,
		withAuth: true,
	}, decode.Object[domain.MatchmakingTicket])
}

func (c *Client) GetMatchmakingStatus(ctx context.Context, ticketID string) Result[domain.MatchmakingTicket] {
	return call(ctx, c, "GetMatchmakingStatus", request{
		method:   http.MethodGet,
		path:     "/halo/matchmaking/status/" + url.PathEscape(ticketID),
		withAuth: true,
	}, decode.Object[domain.MatchmakingTicket])
}

// ReportMatchComplete is used by game servers. It authenticates with serverToken instead
// of the user's credentials and returns the server's confirmation text.
func (c *Client) ReportMatchComplete(ctx context.Context, matchResult domain.MatchResult, serverToken string) Result[string] {
	start := c.nowFunc()

	body, err := marshalBody(matchResult)
	if err != nil {
		return fail[string](ctx, c, "ReportMatchComplete", start, err)
	}

	return call(ctx, c, "ReportMatchComplete", request{
		method: http.MethodPost,
		path:   "/halo/match/complete",
		body:   body,
		header: http.Header{"X-Server-Token": []string{serverToken}},
	}, text)
}

// GenericRequest sends body to endpoint and returns the raw response text.
// The Authorization header is attached when credentials are set.
func (c *Client) GenericRequest(ctx context.Context, endpoint string, method string, body string) Result[string] {
	start := c.nowFunc()

	switch method {
	case http.MethodGet, http.MethodPost:
	default:
		return fail[string](ctx, c, "GenericRequest", start, fmt.Errorf("%w: unsupported method %q", domain.ErrApplication, method))
	}

	var payload []byte
	if body != "" {
		payload = []byte(body)
	}

	if endpoint == "" || endpoint[0] != '/' {
		endpoint = "/" + endpoint
	}

	return call(ctx, c, "GenericRequest", request{
		method:   method,
		path:     endpoint,
		body:     payload,
		withAuth: true,
	}, text)
}

func withQuery(path string, query url.Values) string {
	if len(query) == 0 {
		return path
	}
	return path + "?" + query.Encode()
}
