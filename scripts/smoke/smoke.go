// End-to-end smoke run against a live cat agency API. Needs a reachable
// TheCatAPI; set REDIS_URL to also check the mission event stream.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	baseURL  = getenv("API_URL", "http://localhost:8080/v1")
	redisURL = getenv("REDIS_URL", "")
	stream   = getenv("EVENT_STREAM", "catagency.missions")
)

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

type target struct {
	ID     uint64 `json:"id"`
	Status string `json:"status"`
}

type mission struct {
	ID      uint64   `json:"id"`
	AgentID *uint64  `json:"agent_id"`
	Status  string   `json:"status"`
	Targets []target `json:"targets"`
}

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	ctx := context.Background()

	var since string
	var rdb *redis.Client
	if redisURL != "" {
		rdb = mustRedis()
		defer rdb.Close()
		since = fmt.Sprintf("%d-0", time.Now().UnixMilli())
	}

	cat := createCat("Whiskers-" + uuid.NewString()[:8])
	busy := createCat("Tom-" + uuid.NewString()[:8])

	m := createMission(cat)
	expectKind("POST", "/missions", map[string]any{
		"agent_id": cat,
		"targets":  []map[string]any{{"name": "Ivan", "country": "Poland"}},
	}, http.StatusConflict, "AgentBusy")

	path := fmt.Sprintf("/missions/%d", m.ID)
	expectKind("PATCH", path, map[string]any{"status": "done"}, http.StatusForbidden, "DirectStatusChangeForbidden")

	var after mission
	doReq("PATCH", path, map[string]any{"targets": []map[string]any{
		{"id": m.Targets[0].ID, "status": "done"},
		{"id": m.Targets[1].ID, "status": "failed"},
	}}, &after, http.StatusOK)
	if after.Status != "done" {
		log.Fatal().Str("status", after.Status).Msg("mission: want done")
	}

	expectKind("PATCH", fmt.Sprintf("%s/targets/%d", path, m.Targets[0].ID),
		map[string]any{"notes": "too late"}, http.StatusConflict, "TargetLocked")

	// A finished mission no longer holds its agent.
	createMission(cat)
	doReq("DELETE", fmt.Sprintf("/cats/%d", busy), nil, nil, http.StatusNoContent)

	if rdb != nil {
		checkEvents(ctx, rdb, since, m.ID)
	}
	log.Info().Msg("all endpoints passed")
}

func createCat(name string) uint64 {
	var resp struct{ ID uint64 }
	doReq("POST", "/cats", map[string]any{
		"name":   name,
		"breed":  "Siamese",
		"salary": 1200,
	}, &resp, http.StatusCreated)
	return resp.ID
}

func createMission(agent uint64) mission {
	var m mission
	doReq("POST", "/missions", map[string]any{
		"agent_id": agent,
		"targets": []map[string]any{
			{"name": "Boris", "country": "Ukraine", "notes": "seen near the docks"},
			{"name": "Ivan", "country": "Poland"},
		},
	}, &m, http.StatusCreated)
	if m.Status != "not_started" || len(m.Targets) != 2 {
		log.Fatal().Interface("mission", m).Msg("mission: unexpected initial state")
	}
	return m
}

func checkEvents(ctx context.Context, rdb *redis.Client, since string, missionID uint64) {
	msgs, err := rdb.XRange(ctx, stream, since, "+").Result()
	if err != nil {
		log.Fatal().Err(err).Msg("xrange")
	}
	seen := map[string]bool{}
	for _, msg := range msgs {
		if msg.Values["mission_id"] == fmt.Sprint(missionID) {
			seen[fmt.Sprint(msg.Values["type"])+":"+fmt.Sprint(msg.Values["to"])] = true
		}
	}
	for _, want := range []string{"mission.status:in_progress", "mission.status:done"} {
		if !seen[want] {
			log.Fatal().Str("event", want).Msg("events: missing")
		}
	}
}

func mustRedis() *redis.Client {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("redis url")
	}
	return redis.NewClient(opt)
}

func expectKind(method, path string, body any, status int, kind string) {
	var resp struct{ Kind string }
	doReq(method, path, body, &resp, status)
	if resp.Kind != kind {
		log.Fatal().Str("path", path).Str("want", kind).Str("got", resp.Kind).Msg("wrong error kind")
	}
}

func doReq(method, path string, body, out any, want int) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			log.Fatal().Err(err).Msgf("%s %s encode", method, path)
		}
	}
	req, _ := http.NewRequest(method, baseURL+path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", "smoke-"+uuid.NewString())
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Fatal().Err(err).Msgf("%s %s", method, path)
	}
	defer res.Body.Close()
	if res.StatusCode != want {
		log.Fatal().Int("want", want).Int("got", res.StatusCode).Msgf("%s %s", method, path)
	}
	if out != nil {
		if err := json.NewDecoder(res.Body).Decode(out); err != nil {
			log.Fatal().Err(err).Msgf("%s %s decode", method, path)
		}
	}
}
