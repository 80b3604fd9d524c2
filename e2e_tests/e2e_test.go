package e2etests

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"testing"
	"time"
)

const (
	baseURLVar = "E2E_BASE_URL"
	timeout    = 5 * time.Second
	waitReady  = 20 * time.Second
)

var httpClient = &http.Client{Timeout: timeout}

type client struct {
	t       *testing.T
	baseURL string
	player  string
}

type response struct {
	code int
	body map[string]any
	raw  string
}

// newClient returns a client for the API under test. The suite only runs
// against a live deployment named by E2E_BASE_URL.
func newClient(t *testing.T) *client {
	t.Helper()

	base := os.Getenv(baseURLVar)
	if base == "" {
		t.Skipf("%s not set", baseURLVar)
	}

	waitUntilReady(t, base)

	return &client{t: t, baseURL: base}
}

func (c *client) createPlayer(country string) {
	c.t.Helper()

	device := fmt.Sprintf("e2e-%s-%d", c.t.Name(), time.Now().UnixNano())
	r := c.do(http.MethodPost, "/players", "", map[string]string{
		"deviceId":    device,
		"displayName": "e2e",
		"country":     country,
	})
	if r.code != http.StatusCreated {
		c.t.Fatalf("create player: want 201, got %d (%s)", r.code, r.raw)
	}

	c.player = r.body["id"].(string)
}

func (c *client) do(method, path, key string, body any) response {
	c.t.Helper()

	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			c.t.Fatalf("marshal: %v", err)
		}
		rd = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, rd)
	if err != nil {
		c.t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.player != "" {
		req.Header.Set("X-Player-ID", c.player)
	}
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		c.t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()

	b, _ := io.ReadAll(resp.Body)
	r := response{code: resp.StatusCode, raw: string(b)}
	_ = json.Unmarshal(b, &r.body)

	return r
}

func (c *client) balance(currency string) int64 {
	c.t.Helper()

	r := c.do(http.MethodGet, "/players/me", "", nil)
	if r.code != http.StatusOK {
		c.t.Fatalf("GET /players/me: want 200, got %d (%s)", r.code, r.raw)
	}

	cur, _ := r.body["currencies"].(map[string]any)
	v, _ := cur[currency].(float64)

	return int64(v)
}

func TestE2E_EconomyFlow(t *testing.T) {
	c := newClient(t)
	c.createPlayer("US")

	t.Run("initial_balance_zero", func(t *testing.T) {
		if got := c.balance("gems"); got != 0 {
			t.Fatalf("initial gems: want 0, got %d", got)
		}
	})

	t.Run("give_currency_replays_by_key", func(t *testing.T) {
		key := uniqKey("give")
		for range 2 {
			r := c.do(http.MethodPost, "/economy/gems/give/200", key, nil)
			if r.code != http.StatusOK {
				t.Fatalf("give: want 200, got %d (%s)", r.code, r.raw)
			}
		}
		if got := c.balance("gems"); got != 200 {
			t.Fatalf("after replayed give: want 200, got %d", got)
		}
	})

	t.Run("purchase_debits_price", func(t *testing.T) {
		r := c.do(http.MethodPost, "/economy/purchase/skin_banana", uniqKey("buy"), nil)
		if r.code != http.StatusOK {
			t.Fatalf("purchase: want 200, got %d (%s)", r.code, r.raw)
		}
		if got := c.balance("gems"); got != 50 {
			t.Fatalf("after purchase: want 50, got %d", got)
		}
	})

	t.Run("insufficient_funds_leaves_balance", func(t *testing.T) {
		r := c.do(http.MethodPost, "/economy/purchase/skin_banana", uniqKey("buy"), nil)
		if r.code != http.StatusConflict {
			t.Fatalf("insufficient funds: want 409, got %d (%s)", r.code, r.raw)
		}
		if got := c.balance("gems"); got != 50 {
			t.Fatalf("after insufficient: want 50, got %d", got)
		}
	})

	t.Run("unknown_item_not_found", func(t *testing.T) {
		r := c.do(http.MethodPost, "/economy/purchase/no_such_item", "", nil)
		if r.code != http.StatusNotFound {
			t.Fatalf("unknown item: want 404, got %d", r.code)
		}
	})
}

func TestE2E_CrownsLeaderboard(t *testing.T) {
	c := newClient(t)
	c.createPlayer("NZ")

	for range 3 {
		r := c.do(http.MethodPost, "/update-crown-score", uniqKey("crown"), nil)
		if r.code != http.StatusOK {
			t.Fatalf("update crown: want 200, got %d (%s)", r.code, r.raw)
		}
	}

	r := c.do(http.MethodGet, "/highscore/crowns/list?country=NZ&count=500", "", nil)
	if r.code != http.StatusOK {
		t.Fatalf("list: want 200, got %d (%s)", r.code, r.raw)
	}

	entries, _ := r.body["entries"].([]any)
	for _, e := range entries {
		m := e.(map[string]any)
		if m["playerId"] == c.player {
			if m["value"].(float64) != 3 {
				t.Fatalf("crowns: want 3, got %v", m["value"])
			}
			return
		}
	}
	t.Fatalf("player %s not on NZ board (%s)", c.player, r.raw)
}

func TestE2E_MissionClaim(t *testing.T) {
	c := newClient(t)
	c.createPlayer("")

	r := c.do(http.MethodPost, "/round/finish/1", uniqKey("round"), map[string]bool{"won": true})
	if r.code != http.StatusOK {
		t.Fatalf("finish round: want 200, got %d (%s)", r.code, r.raw)
	}

	path := "/missions/objective/weekly_wins/win_1/rewards/claim"
	first := c.do(http.MethodPost, path, uniqKey("claim"), nil)
	if first.code != http.StatusOK {
		t.Fatalf("claim: want 200, got %d (%s)", first.code, first.raw)
	}

	second := c.do(http.MethodPost, path, uniqKey("claim"), nil)
	if second.code != http.StatusOK || second.body["alreadyClaimed"] != true {
		t.Fatalf("second claim: want 200 alreadyClaimed, got %d (%s)", second.code, second.raw)
	}
	if got := c.balance("gems"); got != 10 {
		t.Fatalf("gems after claims: want 10, got %d", got)
	}
}

/* -------------------- helpers -------------------- */

// waitUntilReady waits until GET /healthz responds 200 or times out.
func waitUntilReady(t *testing.T, base string) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), waitReady)
	defer cancel()

	tick := time.NewTicker(200 * time.Millisecond)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			t.Fatalf("service not ready at %s within %s", base, waitReady)
		case <-tick.C:
			resp, err := httpClient.Get(base + "/healthz")
			if err != nil {
				continue
			}
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
	}
}

func uniqKey(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}
