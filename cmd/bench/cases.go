// README: Smoke cases: infrastructure reachability, the booking-to-rating journey, accept races and throughput.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

type Runner struct {
	cfg   Config
	httpc *http.Client
	db    *pgxpool.Pool
	redis *redis.Client

	// tokens by role, filled by the login cases
	tokens map[string]string
	// orderID is the order the journey cases act on
	orderID string
}

type Result struct {
	Name    string
	Status  string
	Latency time.Duration
	Note    string
}

type TestCase struct {
	Name string
	Run  func(ctx context.Context, r *Runner) Result
}

func NewRunner(cfg Config) *Runner {
	return &Runner{
		cfg:    cfg,
		httpc:  &http.Client{Timeout: 10 * time.Second},
		tokens: make(map[string]string),
	}
}

func (r *Runner) RunAll(ctx context.Context) []Result {
	if r.cfg.DSN != "" {
		if db, err := pgxpool.New(ctx, r.cfg.DSN); err == nil {
			r.db = db
		}
	}
	if r.cfg.RedisAddr != "" {
		r.redis = redis.NewClient(&redis.Options{Addr: r.cfg.RedisAddr})
	}

	tests := r.cases()
	results := make([]Result, 0, len(tests))

	for _, tc := range tests {
		res := tc.Run(ctx, r)
		res.Name = tc.Name
		results = append(results, res)
		fmt.Printf("%-7s %s", res.Status, tc.Name)
		if res.Latency > 0 {
			fmt.Printf(" (%s)", res.Latency)
		}
		if res.Note != "" {
			fmt.Printf(" - %s", res.Note)
		}
		fmt.Println()
	}

	if r.db != nil {
		r.db.Close()
	}
	if r.redis != nil {
		_ = r.redis.Close()
	}
	return results
}

func (r *Runner) cases() []TestCase {
	return []TestCase{
		{Name: "Env: Postgres connect", Run: func(ctx context.Context, r *Runner) Result {
			if r.db == nil {
				return Result{Status: "SKIP", Note: "db not configured"}
			}
			ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
			defer cancel()
			if err := r.db.Ping(ctx); err != nil {
				return Result{Status: "FAIL", Note: err.Error()}
			}
			return Result{Status: "PASS"}
		}},
		{Name: "Env: Redis connect", Run: func(ctx context.Context, r *Runner) Result {
			if r.redis == nil {
				return Result{Status: "SKIP", Note: "redis not configured"}
			}
			ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
			defer cancel()
			if err := r.redis.Ping(ctx).Err(); err != nil {
				return Result{Status: "FAIL", Note: err.Error()}
			}
			return Result{Status: "PASS"}
		}},
		{Name: "Migration: apply (optional)", Run: func(ctx context.Context, r *Runner) Result {
			if !r.cfg.ApplyMigration {
				return Result{Status: "SKIP", Note: "apply-migration=false"}
			}
			if r.db == nil {
				return Result{Status: "FAIL", Note: "db not configured"}
			}
			sql, err := os.ReadFile(r.cfg.MigrationPath)
			if err != nil {
				return Result{Status: "FAIL", Note: err.Error()}
			}
			for _, s := range splitSQL(string(sql)) {
				if _, err := r.db.Exec(ctx, s); err != nil {
					return Result{Status: "FAIL", Note: err.Error()}
				}
			}
			return Result{Status: "PASS"}
		}},
		{Name: "Migration: tables exist", Run: func(ctx context.Context, r *Runner) Result {
			if r.db == nil {
				return Result{Status: "SKIP", Note: "db not configured"}
			}
			tables, err := extractTables(r.cfg.MigrationPath)
			if err != nil {
				return Result{Status: "FAIL", Note: err.Error()}
			}
			for _, t := range tables {
				var exists bool
				err := r.db.QueryRow(ctx,
					"SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name=$1)",
					t,
				).Scan(&exists)
				if err != nil {
					return Result{Status: "FAIL", Note: err.Error()}
				}
				if !exists {
					return Result{Status: "FAIL", Note: "missing table: " + t}
				}
			}
			return Result{Status: "PASS"}
		}},
		{Name: "API: health", Run: func(ctx context.Context, r *Runner) Result {
			res, _ := r.expect(ctx, http.MethodGet, "/health", "", nil, 200)
			return res
		}},

		// Session
		r.loginCase("customer", r.cfg.CustomerEmail),
		r.loginCase("technician", r.cfg.TechEmail),
		r.loginCase("admin", r.cfg.AdminEmail),
		{Name: "Session: unknown email -> 401", Run: func(ctx context.Context, r *Runner) Result {
			res, _ := r.expect(ctx, http.MethodPost, "/api/auth/login", "", map[string]string{
				"email": "nobody@example.com", "password": r.cfg.Password,
			}, 401)
			return res
		}},
		{Name: "Session: customer blocked from job queue", Run: func(ctx context.Context, r *Runner) Result {
			res, _ := r.expect(ctx, http.MethodGet, "/api/jobs/queue", r.tokens["customer"], nil, 403)
			return res
		}},

		// Booking journey
		{Name: "Booking: declined card creates no order", Run: func(ctx context.Context, r *Runner) Result {
			res, _ := r.expect(ctx, http.MethodPost, "/api/bookings", r.tokens["customer"], bookingBody("general", "1"), 402)
			return res
		}},
		{Name: "Booking: card payment creates pending order", Run: func(ctx context.Context, r *Runner) Result {
			res, body := r.expect(ctx, http.MethodPost, "/api/bookings", r.tokens["customer"], bookingBody("termite", "123"), 201)
			if res.Status != "PASS" {
				return res
			}
			var b struct {
				Order struct {
					ID string `json:"id"`
				} `json:"order"`
			}
			if err := json.Unmarshal(body, &b); err != nil || b.Order.ID == "" {
				return Result{Status: "FAIL", Note: "no order in response"}
			}
			r.orderID = b.Order.ID
			res.Note = "order=" + r.orderID
			return res
		}},
		r.journeyCase("Journey: technician accepts", "technician", "/accept", nil, 200),
		r.journeyCase("Journey: skipping to completed -> 409", "technician", "/status", map[string]string{"status": "completed"}, 409),
		r.journeyCase("Journey: en_route", "technician", "/status", map[string]string{"status": "en_route"}, 200),
		r.journeyCase("Journey: in_progress", "technician", "/status", map[string]string{"status": "in_progress"}, 200),
		r.journeyCase("Journey: completed", "technician", "/status", map[string]string{"status": "completed"}, 200),
		{Name: "Journey: customer rates 5", Run: func(ctx context.Context, r *Runner) Result {
			if r.orderID == "" {
				return Result{Status: "SKIP", Note: "no order"}
			}
			res, _ := r.expect(ctx, http.MethodPost, "/api/orders/"+r.orderID+"/rate", r.tokens["customer"], map[string]int{"rating": 5}, 200)
			return res
		}},
		{Name: "Journey: second rating -> 409", Run: func(ctx context.Context, r *Runner) Result {
			if r.orderID == "" {
				return Result{Status: "SKIP", Note: "no order"}
			}
			res, _ := r.expect(ctx, http.MethodPost, "/api/orders/"+r.orderID+"/rate", r.tokens["customer"], map[string]int{"rating": 1}, 409)
			return res
		}},
		{Name: "Consistency: event trail matches transitions", Run: func(ctx context.Context, r *Runner) Result {
			if r.orderID == "" {
				return Result{Status: "SKIP", Note: "no order"}
			}
			res, body := r.expect(ctx, http.MethodGet, "/api/orders/"+r.orderID+"/events", r.tokens["customer"], nil, 200)
			if res.Status != "PASS" {
				return res
			}
			var out struct {
				Events []struct {
					To string `json:"toStatus"`
				} `json:"events"`
			}
			_ = json.Unmarshal(body, &out)
			var got []string
			for _, e := range out.Events {
				got = append(got, e.To)
			}
			want := "pending,accepted,en_route,in_progress,completed"
			if strings.Join(got, ",") != want {
				return Result{Status: "FAIL", Note: "events=" + strings.Join(got, ",")}
			}
			return res
		}},

		// Concurrency
		{Name: "Concurrency: many accepts, one winner", Run: concurrentAccept},

		// Performance
		{Name: "Perf: catalog reads", Run: func(ctx context.Context, r *Runner) Result {
			return perfLoad(ctx, r, http.MethodGet, "/api/services", "", nil)
		}},
		{Name: "Perf: bookings", Run: func(ctx context.Context, r *Runner) Result {
			return perfLoad(ctx, r, http.MethodPost, "/api/bookings", r.tokens["customer"], bookingBody("mosquito", "123"))
		}},
	}
}

func bookingBody(service, cvv string) map[string]any {
	return map[string]any{
		"serviceType":   service,
		"address":       "12 King Fahd Rd, Riyadh",
		"paymentMethod": "card",
		"cardDetails": map[string]string{
			"cardNumber": "4111 1111 1111 1111",
			"cardHolder": "Bench Runner",
			"expiryDate": "12/29",
			"cvv":        cvv,
		},
	}
}

func (r *Runner) loginCase(role, email string) TestCase {
	return TestCase{
		Name: "Session: login " + role,
		Run: func(ctx context.Context, r *Runner) Result {
			res, body := r.expect(ctx, http.MethodPost, "/api/auth/login", "", map[string]string{
				"email": email, "password": r.cfg.Password,
			}, 200)
			if res.Status != "PASS" {
				return res
			}
			var out struct {
				Token string `json:"token"`
			}
			if err := json.Unmarshal(body, &out); err != nil || out.Token == "" {
				return Result{Status: "FAIL", Note: "no token"}
			}
			r.tokens[role] = out.Token
			return res
		},
	}
}

func (r *Runner) journeyCase(name, role, suffix string, body any, want int) TestCase {
	return TestCase{
		Name: name,
		Run: func(ctx context.Context, r *Runner) Result {
			if r.orderID == "" {
				return Result{Status: "SKIP", Note: "no order"}
			}
			res, _ := r.expect(ctx, http.MethodPost, "/api/jobs/"+r.orderID+suffix, r.tokens[role], body, want)
			return res
		},
	}
}

func (r *Runner) do(ctx context.Context, method, path, token string, body any) (int, []byte, time.Duration, error) {
	var reader io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, r.cfg.BaseURL+path, reader)
	if err != nil {
		return 0, nil, 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	start := time.Now()
	resp, err := r.httpc.Do(req)
	if err != nil {
		return 0, nil, 0, err
	}
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	return resp.StatusCode, out, time.Since(start), err
}

func (r *Runner) expect(ctx context.Context, method, path, token string, body any, want int) (Result, []byte) {
	code, out, latency, err := r.do(ctx, method, path, token, body)
	if err != nil {
		return Result{Status: "FAIL", Note: err.Error()}, nil
	}
	note := fmt.Sprintf("status=%d", code)
	if code != want {
		return Result{Status: "FAIL", Latency: latency, Note: fmt.Sprintf("%s want=%d", note, want)}, out
	}
	return Result{Status: "PASS", Latency: latency, Note: note}, out
}

// concurrentAccept books a fresh order and fires staff accepts at it at once.
func concurrentAccept(ctx context.Context, r *Runner) Result {
	res, body := r.expect(ctx, http.MethodPost, "/api/bookings", r.tokens["customer"], bookingBody("rodent", "123"), 201)
	if res.Status != "PASS" {
		return res
	}
	var b struct {
		Order struct {
			ID string `json:"id"`
		} `json:"order"`
	}
	if err := json.Unmarshal(body, &b); err != nil || b.Order.ID == "" {
		return Result{Status: "FAIL", Note: "no order in response"}
	}

	staff := []string{r.tokens["technician"], r.tokens["admin"]}
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		succ     int
		conflict int
	)
	start := make(chan struct{})
	for i := 0; i < r.cfg.Concurrency; i++ {
		wg.Add(1)
		go func(token string) {
			defer wg.Done()
			<-start
			code, _, _, err := r.do(ctx, http.MethodPost, "/api/jobs/"+b.Order.ID+"/accept", token, nil)
			if err != nil {
				return
			}
			mu.Lock()
			defer mu.Unlock()
			switch code {
			case http.StatusOK:
				succ++
			case http.StatusConflict:
				conflict++
			}
		}(staff[i%len(staff)])
	}
	close(start)
	wg.Wait()

	note := fmt.Sprintf("success=%d conflict=%d", succ, conflict)
	if succ != 1 {
		return Result{Status: "FAIL", Note: note}
	}
	return Result{Status: "PASS", Note: note}
}

func perfLoad(ctx context.Context, r *Runner, method, path, token string, payload any) Result {
	end := time.Now().Add(r.cfg.Duration)
	var (
		count    int64
		errCount int64
		mu       sync.Mutex
		wg       sync.WaitGroup
	)
	for i := 0; i < r.cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for time.Now().Before(end) && ctx.Err() == nil {
				code, _, _, err := r.do(ctx, method, path, token, payload)
				mu.Lock()
				if err != nil || code >= 500 {
					errCount++
				} else {
					count++
				}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if count == 0 {
		return Result{Status: "FAIL", Note: "no requests completed"}
	}
	rps := float64(count) / r.cfg.Duration.Seconds()
	return Result{Status: "PASS", Note: fmt.Sprintf("rps=%.1f errors=%d", rps, errCount)}
}

func extractTables(path string) ([]string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	re := regexp.MustCompile(`(?i)create\s+table\s+if\s+not\s+exists\s+([a-zA-Z0-9_]+)`)
	matches := re.FindAllStringSubmatch(string(b), -1)
	tables := make([]string, 0, len(matches))
	for _, m := range matches {
		tables = append(tables, m[1])
	}
	return tables, nil
}

func splitSQL(sql string) []string {
	lines := strings.Split(sql, "\n")
	filtered := make([]string, 0, len(lines))
	for _, line := range lines {
		l := strings.TrimSpace(line)
		if strings.HasPrefix(l, "--") || l == "" {
			continue
		}
		filtered = append(filtered, line)
	}
	parts := strings.Split(strings.Join(filtered, "\n"), ";")
	stmts := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			stmts = append(stmts, s)
		}
	}
	return stmts
}
