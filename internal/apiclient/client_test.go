package apiclient_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/Amund211/haloclient/internal/apiclient"
	"github.com/Amund211/haloclient/internal/auth"
	"github.com/Amund211/haloclient/internal/domain"
	"github.com/Amund211/haloclient/internal/ratelimiting"
	"github.com/Amund211/haloclient/internal/reporting"
	"github.com/Amund211/haloclient/internal/transport"
	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	method string
	path   string
	query  string
	header http.Header
	body   string
}

type backend struct {
	t        *testing.T
	server   *httptest.Server
	handlers map[string]http.HandlerFunc

	mu       sync.Mutex
	requests []recordedRequest
}

func newBackend(t *testing.T, handlers map[string]http.HandlerFunc) *backend {
	t.Helper()

	b := &backend{t: t, handlers: handlers}
	b.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		assert.NoError(t, err)

		b.mu.Lock()
		b.requests = append(b.requests, recordedRequest{
			method: r.Method,
			path:   r.URL.Path,
			query:  r.URL.RawQuery,
			header: r.Header.Clone(),
			body:   string(body),
		})
		b.mu.Unlock()

		handler, ok := handlers[r.Method+" "+r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		handler(w, r)
	}))
	t.Cleanup(b.server.Close)
	return b
}

func (b *backend) recorded() []recordedRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]recordedRequest(nil), b.requests...)
}

func (b *backend) client(t *testing.T, timeout time.Duration, opts ...apiclient.Option) *apiclient.Client {
	t.Helper()

	tr := transport.New(b.server.Client(), ratelimiting.NewRequestLimiter(0), time.Now)
	client, err := apiclient.New(b.server.URL, tr, auth.NewManager(), timeout, opts...)
	require.NoError(t, err)
	t.Cleanup(client.Close)
	return client
}

func respond(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
}

func TestLogin(t *testing.T) {
	t.Parallel()

	t.Run("admin login", func(t *testing.T) {
		t.Parallel()

		b := newBackend(t, map[string]http.HandlerFunc{
			"POST /login":              respond(http.StatusOK, `{"token":"t","username":"admin","role":"admin","id":1}`),
			"GET /halo/player/1/stats": respond(http.StatusOK, `{"playerId":1,"gamertag":"admin"}`),
		})
		client := b.client(t, 5*time.Second)

		result := client.Login(t.Context(), "admin", "admin")
		require.NoError(t, result.Err)
		require.True(t, result.OK())
		require.Equal(t, "admin", result.Data.Role)
		require.Equal(t, int64(1), result.Data.ID)
		require.Equal(t, http.StatusOK, result.StatusCode)
		require.Positive(t, result.ResponseTime)
		require.Equal(t, "application/json", result.Headers.Get("Content-Type"))

		stats := client.GetPlayerStats(t.Context(), result.Data.ID)
		require.NoError(t, stats.Err)

		requests := b.recorded()
		require.Len(t, requests, 2)

		// Login itself is sent without credentials
		require.Empty(t, requests[0].header.Get("Authorization"))
		require.JSONEq(t, `{"username":"admin","password":"admin"}`, requests[0].body)

		require.Equal(t, "Basic YWRtaW46YWRtaW4=", requests[1].header.Get("Authorization"))
	})

	failures := []struct {
		name    string
		handler http.HandlerFunc
		kind    apiclient.ErrorKind
	}{
		{
			name:    "wrong credentials",
			handler: respond(http.StatusUnauthorized, "Invalid credentials"),
			kind:    apiclient.KindAuth,
		},
		{
			name:    "server error",
			handler: respond(http.StatusInternalServerError, ""),
			kind:    apiclient.KindApplication,
		},
		{
			name:    "malformed body",
			handler: respond(http.StatusOK, `{"token":`),
			kind:    apiclient.KindDecode,
		},
	}
	for _, tc := range failures {
		t.Run("failed login keeps credentials/"+tc.name, func(t *testing.T) {
			t.Parallel()

			b := newBackend(t, map[string]http.HandlerFunc{
				"POST /login": tc.handler,
			})
			client := b.client(t, 5*time.Second)
			client.Auth().SetCredentials("chief", "117")
			before, ok := client.Auth().HeaderValue()
			require.True(t, ok)

			result := client.Login(t.Context(), "chief", "wrong")
			require.Error(t, result.Err)
			require.Equal(t, tc.kind, result.Kind())
			require.Zero(t, result.Data)

			after, ok := client.Auth().HeaderValue()
			require.True(t, ok)
			require.Equal(t, before, after)
		})
	}

	t.Run("logout clears credentials", func(t *testing.T) {
		t.Parallel()

		b := newBackend(t, map[string]http.HandlerFunc{
			"POST /login":              respond(http.StatusOK, `{"token":"t","username":"arbiter","role":"player","id":2}`),
			"GET /halo/player/2/stats": respond(http.StatusUnauthorized, ""),
		})
		client := b.client(t, 5*time.Second)

		require.NoError(t, client.Login(t.Context(), "arbiter", "pw").Err)
		client.Logout()

		_, ok := client.Auth().HeaderValue()
		require.False(t, ok)

		result := client.GetPlayerStats(t.Context(), 2)
		require.ErrorIs(t, result.Err, domain.ErrUnauthorized)
		require.Equal(t, apiclient.KindAuth, result.Kind())

		requests := b.recorded()
		require.Empty(t, requests[len(requests)-1].header.Get("Authorization"))
	})
}

func TestTransportFailures(t *testing.T) {
	t.Parallel()

	t.Run("timeout", func(t *testing.T) {
		t.Parallel()

		release := make(chan struct{})
		b := newBackend(t, map[string]http.HandlerFunc{
			"GET /weapons": func(w http.ResponseWriter, r *http.Request) {
				select {
				case <-release:
				case <-r.Context().Done():
				}
			},
		})
		defer close(release)

		timeout := 150 * time.Millisecond
		client := b.client(t, timeout)

		result := client.GetWeapons(t.Context())
		require.Error(t, result.Err)
		require.Equal(t, apiclient.KindTransport, result.Kind())
		require.ErrorIs(t, result.Err, domain.ErrTimeout)
		require.Zero(t, result.StatusCode)
		require.Nil(t, result.Data)
		require.GreaterOrEqual(t, result.ResponseTime, timeout)
		require.Less(t, result.ResponseTime, timeout+2*time.Second)
	})

	t.Run("connection refused", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.NotFoundHandler())
		url := server.URL
		server.Close()

		tr := transport.New(http.DefaultClient, ratelimiting.NewRequestLimiter(0), time.Now)
		client, err := apiclient.New(url, tr, auth.NewManager(), 5*time.Second)
		require.NoError(t, err)

		var events []apiclient.ErrorEvent
		client.OnError.Subscribe(func(_ context.Context, event apiclient.ErrorEvent) {
			events = append(events, event)
		})

		result := client.GetGameState(t.Context())
		require.Equal(t, apiclient.KindTransport, result.Kind())
		require.Positive(t, result.ResponseTime)

		require.Len(t, events, 1)
		require.Equal(t, "GetGameState", events[0].Operation)
		require.ErrorIs(t, events[0].Err, domain.ErrTransport)
	})
}

func TestErrorReportingContext(t *testing.T) {
	t.Parallel()

	b := newBackend(t, map[string]http.HandlerFunc{
		"POST /login":              respond(http.StatusOK, `{"token":"t","username":"admin","role":"admin","id":1}`),
		"GET /halo/player/1/stats": respond(http.StatusInternalServerError, `{"error":"boom"}`),
		"GET /game-state":          respond(http.StatusServiceUnavailable, `{"error":"down"}`),
	})
	client := b.client(t, 5*time.Second)

	var contexts []context.Context
	client.OnError.Subscribe(func(ctx context.Context, _ apiclient.ErrorEvent) {
		contexts = append(contexts, ctx)
	})

	// Anonymous requests carry no user
	result := client.GetGameState(t.Context())
	require.Error(t, result.Err)
	require.Len(t, contexts, 1)

	meta := reporting.MetaFromContext(contexts[0])
	require.Equal(t, "GetGameState", meta.Tags()["operation"])
	require.Equal(t, map[string]string{"method": http.MethodGet, "path": "/game-state"}, meta.Extras())
	require.Empty(t, meta.UserID())
	require.NotNil(t, sentry.GetHubFromContext(contexts[0]))

	require.True(t, client.Login(t.Context(), "admin", "admin").OK())

	stats := client.GetPlayerStats(t.Context(), 1)
	require.Error(t, stats.Err)
	require.Len(t, contexts, 2)

	meta = reporting.MetaFromContext(contexts[1])
	require.Equal(t, "GetPlayerStats", meta.Tags()["operation"])
	require.Equal(t, "/halo/player/1/stats", meta.Extras()["path"])
	require.Equal(t, "admin", meta.UserID())

	// The caller's context is left untouched
	require.Empty(t, reporting.MetaFromContext(t.Context()).Tags())
}

func TestGetLeaderboard(t *testing.T) {
	t.Parallel()

	b := newBackend(t, map[string]http.HandlerFunc{
		"GET /halo/leaderboard/KILLS": respond(http.StatusOK, `[{"rank":1,"gamertag":"Foo","value":99}]`),
	})
	client := b.client(t, 5*time.Second)

	var received [][]domain.LeaderboardEntry
	unsubscribe := client.OnLeaderboard.Subscribe(func(_ context.Context, entries []domain.LeaderboardEntry) {
		received = append(received, entries)
	})

	result := client.GetLeaderboard(t.Context(), "KILLS", 10)
	require.NoError(t, result.Err)
	require.Equal(t, []domain.LeaderboardEntry{{Rank: 1, Gamertag: "Foo", Value: 99}}, result.Data)

	requests := b.recorded()
	require.Len(t, requests, 1)
	require.Equal(t, "limit=10", requests[0].query)
	// Leaderboards are public
	require.Empty(t, requests[0].header.Get("Authorization"))

	require.Equal(t, [][]domain.LeaderboardEntry{result.Data}, received)

	unsubscribe()
	require.NoError(t, client.GetLeaderboard(t.Context(), "KILLS", 10).Err)
	require.Len(t, received, 1)
}

func TestGetPlayerStats(t *testing.T) {
	t.Parallel()

	b := newBackend(t, map[string]http.HandlerFunc{
		"GET /halo/player/117/stats": respond(http.StatusOK, `{
			"playerId": 117,
			"gamertag": "Chief",
			"totalKills": 300,
			"totalDeaths": 100,
			"rankLevel": 35,
			"rankXP": 12500,
			"matchesPlayed": 10,
			"matchesWon": 7,
			"medals": {"Killing Spree": 3, "Double Kill": 4},
			"kdRatio": 0.1
		}`),
		"GET /halo/player/5/stats": respond(http.StatusForbidden, "You can only view your own stats"),
	})
	client := b.client(t, 5*time.Second)
	client.Auth().SetCredentials("chief", "117")

	var received []domain.PlayerStats
	client.OnPlayerStats.Subscribe(func(_ context.Context, stats domain.PlayerStats) {
		received = append(received, stats)
	})

	result := client.GetPlayerStats(t.Context(), 117)
	require.NoError(t, result.Err)
	require.Equal(t, "Chief", result.Data.Gamertag)
	require.InDelta(t, 3.0, result.Data.KDRatio(), 1e-9)
	require.InDelta(t, 0.7, result.Data.WinRatio(), 1e-9)
	require.Equal(t, "Captain", result.Data.RankName())
	require.Equal(t, 7, result.Data.MedalCount())
	require.Len(t, received, 1)

	forbidden := client.GetPlayerStats(t.Context(), 5)
	require.ErrorIs(t, forbidden.Err, domain.ErrForbidden)
	require.Equal(t, apiclient.KindAuth, forbidden.Kind())
	require.Equal(t, http.StatusForbidden, forbidden.StatusCode)
	require.Contains(t, forbidden.Err.Error(), "You can only view your own stats")

	var statusErr *apiclient.StatusError
	require.ErrorAs(t, forbidden.Err, &statusErr)
	require.Equal(t, "You can only view your own stats", statusErr.Message)
	require.Len(t, received, 1)
}

func TestGetMatchHistory(t *testing.T) {
	t.Parallel()

	b := newBackend(t, map[string]http.HandlerFunc{
		"GET /halo/player/117/matches": respond(http.StatusOK, `[
			{"matchId": "m-2", "mapName": "Guardian", "gameMode": "slayer", "winningTeam": 1, "durationSeconds": 540,
			 "playerStats": [{"playerId": 117, "team": 1, "kills": 21, "deaths": 4, "assists": 6, "score": 2100}]},
			{"matchId": "m-1", "mapName": "Lockout", "gameMode": "ctf", "winningTeam": 2, "durationSeconds": 900}
		]`),
	})
	client := b.client(t, 5*time.Second)
	client.Auth().SetCredentials("chief", "117")

	result := client.GetMatchHistory(t.Context(), 117, 2)
	require.NoError(t, result.Err)
	require.Len(t, result.Data, 2)
	require.Equal(t, "m-2", result.Data[0].MatchID)
	require.Equal(t, 21, result.Data[0].PlayerStats[0].Kills)
	require.Equal(t, "m-1", result.Data[1].MatchID)
	require.Empty(t, result.Data[1].PlayerStats)

	requests := b.recorded()
	require.Len(t, requests, 1)
	require.Equal(t, "limit=2", requests[0].query)
	require.NotEmpty(t, requests[0].header.Get("Authorization"))

	unauthenticated := b.client(t, 5*time.Second).GetMatchHistory(t.Context(), 117, 0)
	require.NoError(t, unauthenticated.Err)
	requests = b.recorded()
	require.Len(t, requests, 2)
	require.Empty(t, requests[1].query)
	require.Empty(t, requests[1].header.Get("Authorization"))
}

func TestMaps(t *testing.T) {
	t.Parallel()

	validMap := func() domain.CustomMap {
		return domain.CustomMap{
			MapName:  "Foundry Remix",
			BaseMap:  "Foundry",
			GameMode: "SLAYER",
			MapData: &domain.MapData{
				Spawns: []domain.SpawnPoint{
					{Team: "red", Position: domain.Vec3{1, 2, 3}},
					{Team: "blue", Position: domain.Vec3{-1, 2, -3}},
				},
				Settings: domain.MapSettings{MaxPlayers: 8, MinPlayers: 2},
			},
		}
	}

	t.Run("browse", func(t *testing.T) {
		t.Parallel()

		b := newBackend(t, map[string]http.HandlerFunc{
			"GET /halo/maps/browse": respond(http.StatusOK, `[
				{"id": 3, "mapName": "Cold Storage", "rating": 4.5},
				{"id": 1, "mapName": "Guardian", "rating": 4.1}
			]`),
		})
		client := b.client(t, 5*time.Second)

		var received [][]domain.CustomMap
		client.OnMapsReceived.Subscribe(func(_ context.Context, maps []domain.CustomMap) {
			received = append(received, maps)
		})

		result := client.BrowseMaps(t.Context(), apiclient.BrowseOptions{GameMode: "SLAYER", SortBy: "downloads", Page: 2, PageSize: 5})
		require.NoError(t, result.Err)
		require.Len(t, result.Data, 2)
		require.Equal(t, "Cold Storage", result.Data[0].MapName)
		require.Equal(t, int64(3), *result.Data[0].ID)
		require.Equal(t, "Guardian", result.Data[1].MapName)
		require.Len(t, received, 1)

		result = client.BrowseMaps(t.Context(), apiclient.BrowseOptions{})
		require.NoError(t, result.Err)

		requests := b.recorded()
		require.Len(t, requests, 2)
		require.Equal(t, "gameMode=SLAYER&page=2&pageSize=5&sortBy=downloads", requests[0].query)
		require.Equal(t, "page=0&pageSize=20&sortBy=rating", requests[1].query)
	})

	t.Run("upload assigns id", func(t *testing.T) {
		t.Parallel()

		b := newBackend(t, map[string]http.HandlerFunc{
			"POST /halo/maps/upload": respond(http.StatusCreated, `{"mapId":42,"message":"Map uploaded successfully"}`),
		})
		client := b.client(t, 5*time.Second)
		client.Auth().SetCredentials("forger", "pw")

		var uploaded []domain.CustomMap
		client.OnMapUploaded.Subscribe(func(_ context.Context, m domain.CustomMap) {
			uploaded = append(uploaded, m)
		})

		result := client.UploadMap(t.Context(), validMap())
		require.NoError(t, result.Err)
		require.Equal(t, http.StatusCreated, result.StatusCode)
		require.NotNil(t, result.Data.ID)
		require.Equal(t, int64(42), *result.Data.ID)
		require.Equal(t, "Foundry Remix", result.Data.MapName)
		require.Equal(t, []domain.CustomMap{result.Data}, uploaded)

		requests := b.recorded()
		require.Len(t, requests, 1)
		require.NotEmpty(t, requests[0].header.Get("Authorization"))

		var sent domain.CustomMap
		require.NoError(t, json.Unmarshal([]byte(requests[0].body), &sent))
		require.Nil(t, sent.ID)
		require.Equal(t, validMap(), sent)
	})

	t.Run("invalid map is rejected locally", func(t *testing.T) {
		t.Parallel()

		b := newBackend(t, map[string]http.HandlerFunc{})
		client := b.client(t, 5*time.Second)

		var errorEvents []apiclient.ErrorEvent
		client.OnError.Subscribe(func(_ context.Context, event apiclient.ErrorEvent) {
			errorEvents = append(errorEvents, event)
		})

		customMap := validMap()
		customMap.MapData.Spawns = customMap.MapData.Spawns[:1]

		result := client.UploadMap(t.Context(), customMap)
		require.ErrorIs(t, result.Err, domain.ErrInvalidMap)
		require.Equal(t, apiclient.KindValidation, result.Kind())
		require.Empty(t, b.recorded())
		require.Len(t, errorEvents, 1)
		require.Equal(t, "UploadMap", errorEvents[0].Operation)
	})

	t.Run("download", func(t *testing.T) {
		t.Parallel()

		b := newBackend(t, map[string]http.HandlerFunc{
			"GET /halo/maps/7/download": respond(http.StatusOK, `{
				"id": 7,
				"mapName": "Sandtrap Race",
				"mapData": {
					"objects": [{"objectType": "Crate", "position": [1, 2, 3], "rotation": [0, 90, 0], "scale": [1, 1, 1]}],
					"spawns": [],
					"settings": {"maxPlayers": 16, "minPlayers": 2}
				}
			}`),
			"GET /halo/maps/8/download": respond(http.StatusNotFound, "Map not found"),
		})
		client := b.client(t, 5*time.Second)

		result := client.DownloadMap(t.Context(), 7)
		require.NoError(t, result.Err)
		require.NotNil(t, result.Data.MapData)
		require.Equal(t, domain.Vec3{1, 2, 3}, result.Data.MapData.Objects[0].Position)
		require.Equal(t, 16, result.Data.MapData.Settings.MaxPlayers)

		missing := client.DownloadMap(t.Context(), 8)
		require.ErrorIs(t, missing.Err, domain.ErrApplication)
		require.Equal(t, http.StatusNotFound, missing.StatusCode)
		require.Contains(t, missing.Err.Error(), "Map not found")
	})
}

func TestMatchmaking(t *testing.T) {
	t.Parallel()

	b := newBackend(t, map[string]http.HandlerFunc{
		"POST /halo/matchmaking/queue": respond(http.StatusOK, `{
			"ticketId": "b7c9a8e2-7a31-4a35-9f5e-1f4f59b2c3d1",
			"playlist": "ranked_slayer",
			"status": "SEARCHING",
			"estimatedWaitSeconds": 30,
			"playerIds": [1, 2]
		}`),
		"GET /halo/matchmaking/status/b7c9a8e2-7a31-4a35-9f5e-1f4f59b2c3d1": respond(http.StatusOK, `{
			"ticketId": "b7c9a8e2-7a31-4a35-9f5e-1f4f59b2c3d1",
			"status": "FOUND"
		}`),
	})
	client := b.client(t, 5*time.Second)
	client.Auth().SetCredentials("chief", "117")

	ticket := client.JoinMatchmaking(t.Context(), domain.PlaylistRankedSlayer, []int64{1, 2})
	require.NoError(t, ticket.Err)
	require.Equal(t, domain.TicketStatusQueued, ticket.Data.Status)
	require.Equal(t, 30, ticket.Data.EstimatedWaitSeconds)
	require.Equal(t, []int64{1, 2}, ticket.Data.PlayerIDs)

	status := client.GetMatchmakingStatus(t.Context(), ticket.Data.TicketID)
	require.NoError(t, status.Err)
	require.Equal(t, domain.TicketStatusMatched, status.Data.Status)

	requests := b.recorded()
	require.Len(t, requests, 2)
	require.Equal(t, "playlist=ranked_slayer", requests[0].query)
	require.JSONEq(t, `[1,2]`, requests[0].body)
	require.NotEmpty(t, requests[0].header.Get("Authorization"))
	require.NotEmpty(t, requests[1].header.Get("Authorization"))
}

func TestReportMatchComplete(t *testing.T) {
	t.Parallel()

	b := newBackend(t, map[string]http.HandlerFunc{
		"POST /halo/match/complete": func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("X-Server-Token") != "secret-server-token" {
				respond(http.StatusUnauthorized, "Invalid server token")(w, r)
				return
			}
			_, _ = w.Write([]byte("Match results processed"))
		},
	})
	client := b.client(t, 5*time.Second)
	client.Auth().SetCredentials("chief", "117")

	matchResult := domain.MatchResult{
		MatchID:         "match-1",
		MapName:         "Valhalla",
		GameMode:        "TEAM_SLAYER",
		WinningTeam:     1,
		DurationSeconds: 600,
		PlayerStats: []domain.PlayerMatchStats{
			{PlayerID: 123, Team: 1, Kills: 15, Deaths: 8, Assists: 3, Score: 150},
		},
	}

	result := client.ReportMatchComplete(t.Context(), matchResult, "secret-server-token")
	require.NoError(t, result.Err)
	require.Equal(t, "Match results processed", result.Data)

	rejected := client.ReportMatchComplete(t.Context(), matchResult, "wrong")
	require.ErrorIs(t, rejected.Err, domain.ErrUnauthorized)
	require.Contains(t, rejected.Err.Error(), "Invalid server token")

	requests := b.recorded()
	require.Len(t, requests, 2)
	// Match reports never carry the user's credentials
	require.Empty(t, requests[0].header.Get("Authorization"))
	require.Equal(t, "secret-server-token", requests[0].header.Get("X-Server-Token"))

	var sent domain.MatchResult
	require.NoError(t, json.Unmarshal([]byte(requests[0].body), &sent))
	require.Equal(t, matchResult, sent)
}

func TestGenericRequest(t *testing.T) {
	t.Parallel()

	b := newBackend(t, map[string]http.HandlerFunc{
		"GET /health":  respond(http.StatusOK, `{"status":"UP"}`),
		"POST /custom": respond(http.StatusAccepted, "accepted"),
	})
	client := b.client(t, 5*time.Second)

	result := client.GenericRequest(t.Context(), "health", http.MethodGet, "")
	require.NoError(t, result.Err)
	require.JSONEq(t, `{"status":"UP"}`, result.Data)

	client.Auth().SetCredentials("chief", "117")
	result = client.GenericRequest(t.Context(), "/custom", http.MethodPost, `{"x":1}`)
	require.NoError(t, result.Err)
	require.Equal(t, http.StatusAccepted, result.StatusCode)
	require.Equal(t, "accepted", result.Data)

	unsupported := client.GenericRequest(t.Context(), "/custom", http.MethodDelete, "")
	require.Error(t, unsupported.Err)

	requests := b.recorded()
	require.Len(t, requests, 2)
	require.Empty(t, requests[0].header.Get("Authorization"))
	require.NotEmpty(t, requests[1].header.Get("Authorization"))
	require.JSONEq(t, `{"x":1}`, requests[1].body)
}

func TestWeaponCache(t *testing.T) {
	t.Parallel()

	const weapons = `[{"id":"br55","name":"Battle Rifle","type":"PRECISION","damage":6,"ammo":36,"fireRate":2.5},{"id":"ma5c","name":"Assault Rifle","type":"AUTOMATIC","damage":3,"ammo":32,"fireRate":10}]`

	t.Run("cached", func(t *testing.T) {
		t.Parallel()

		b := newBackend(t, map[string]http.HandlerFunc{
			"GET /weapons": respond(http.StatusOK, weapons),
		})
		client := b.client(t, 5*time.Second, apiclient.WithWeaponCacheTTL(time.Hour))

		first := client.GetWeapons(t.Context())
		require.NoError(t, first.Err)
		require.Len(t, first.Data, 2)
		require.Equal(t, "Battle Rifle", first.Data[0].Name)

		second := client.GetWeapons(t.Context())
		require.NoError(t, second.Err)
		require.Equal(t, first.Data, second.Data)
		require.Equal(t, http.StatusOK, second.StatusCode)

		require.Len(t, b.recorded(), 1)
	})

	t.Run("failures are not cached", func(t *testing.T) {
		t.Parallel()

		calls := 0
		b := newBackend(t, map[string]http.HandlerFunc{
			"GET /weapons": func(w http.ResponseWriter, r *http.Request) {
				calls++
				if calls == 1 {
					respond(http.StatusServiceUnavailable, "try later")(w, r)
					return
				}
				respond(http.StatusOK, weapons)(w, r)
			},
		})
		client := b.client(t, 5*time.Second, apiclient.WithWeaponCacheTTL(time.Hour))

		first := client.GetWeapons(t.Context())
		require.ErrorIs(t, first.Err, domain.ErrApplication)
		require.Equal(t, http.StatusServiceUnavailable, first.StatusCode)

		second := client.GetWeapons(t.Context())
		require.NoError(t, second.Err)
		require.Len(t, second.Data, 2)
	})

	t.Run("disabled", func(t *testing.T) {
		t.Parallel()

		b := newBackend(t, map[string]http.HandlerFunc{
			"GET /weapons": respond(http.StatusOK, weapons),
		})
		client := b.client(t, 5*time.Second, apiclient.WithWeaponCacheTTL(0))

		require.NoError(t, client.GetWeapons(t.Context()).Err)
		require.NoError(t, client.GetWeapons(t.Context()).Err)
		require.Len(t, b.recorded(), 2)
	})
}

func TestInjectedClock(t *testing.T) {
	t.Parallel()

	b := newBackend(t, map[string]http.HandlerFunc{
		"GET /game-state": respond(http.StatusOK, `{"state":"IN_GAME","playerCount":8,"currentMap":"Guardian","gameMode":"SLAYER","timeRemaining":312.5}`),
	})

	start := time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	calls := 0
	nowFunc := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		calls++
		return start.Add(time.Duration(calls-1) * 40 * time.Millisecond)
	}
	client := b.client(t, 5*time.Second, apiclient.WithNowFunc(nowFunc))

	result := client.GetGameState(t.Context())
	require.NoError(t, result.Err)
	require.Equal(t, 40*time.Millisecond, result.ResponseTime)
	require.Equal(t, domain.GameState{
		State:         "IN_GAME",
		PlayerCount:   8,
		CurrentMap:    "Guardian",
		GameMode:      "SLAYER",
		TimeRemaining: 312.5,
	}, result.Data)
}
