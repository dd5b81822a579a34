// Command authguard-scenario runs a scripted lockout-and-recovery
// sequence against the in-process auth provider and prints the resulting
// audit trail. Useful for eyeballing the trail shape and the limiter's
// fixed-window behavior without wiring up a browser.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/postureboard/authguard"
	"github.com/postureboard/authguard/audit"
	"github.com/postureboard/authguard/provider/memory"
	"github.com/postureboard/authguard/storage"
)

func main() {
	var (
		failures = flag.Int("failures", 6, "failed login attempts to issue")
		window   = flag.Duration("window", 15*time.Minute, "rate limit window")
		limit    = flag.Int("limit", 5, "rate limit budget per window")
		verbose  = flag.Bool("v", false, "log diagnostics to stderr")
	)
	flag.Parse()

	if err := run(*failures, *limit, *window, *verbose); err != nil {
		fmt.Fprintln(os.Stderr, "scenario failed:", err)
		os.Exit(1)
	}
}

func run(failures, limit int, window time.Duration, verbose bool) error {
	log := zerolog.Nop()
	if verbose {
		log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	}

	provider, err := memory.New(memory.Config{
		SigningKey: []byte("scenario-signing-key"),
	})
	if err != nil {
		return err
	}
	if _, err := provider.Seed("alice@example.com", "correct-horse"); err != nil {
		return err
	}

	// Simulated clock: window expiry is driven by the scenario, not by
	// waiting out real minutes. Atomic because the audit dispatcher
	// stamps timestamps from its own goroutine.
	var offset atomic.Int64
	base := time.Now()
	clock := func() time.Time { return base.Add(time.Duration(offset.Load())) }

	cfg := authguard.DefaultConfig()
	cfg.RateLimit.LoginLimit = limit
	cfg.RateLimit.LoginWindow = window
	cfg.Audit.UserAgent = "authguard-scenario/1.0"

	controller, err := authguard.New().
		WithConfig(cfg).
		WithProvider(provider).
		WithAuditKV(storage.NewMemory()).
		WithIPResolver(audit.StaticResolver("192.0.2.10")).
		WithLogger(log).
		WithClock(clock).
		Build(context.Background())
	if err != nil {
		return err
	}

	ctx := context.Background()

	fmt.Printf("# %d failed logins (budget %d per %s)\n", failures, limit, window)
	for i := 1; i <= failures; i++ {
		err := controller.Login(ctx, "alice@example.com", "wrong-password")
		state := controller.State()
		fmt.Printf("attempt %2d: err=%v attempts=%d locked=%v\n", i, err, state.LoginAttempts, state.Locked)
	}

	fmt.Printf("\n# window expires\n")
	offset.Add(int64(window))

	if err := controller.Login(ctx, "alice@example.com", "correct-horse"); err != nil {
		return fmt.Errorf("recovery login: %w", err)
	}
	waitForSession(controller)
	state := controller.State()
	fmt.Printf("recovery login: attempts=%d locked=%v user=%s\n", state.LoginAttempts, state.Locked, state.User.Email)

	controller.Logout(ctx)

	// Drain the audit pipeline before dumping the trail.
	controller.Close()

	fmt.Printf("\n# audit trail\n")
	encoder := json.NewEncoder(os.Stdout)
	for _, entry := range controller.AuditTrail(ctx) {
		if err := encoder.Encode(entry); err != nil {
			return err
		}
	}

	if controller.AuditDropped() > 0 {
		fmt.Fprintf(os.Stderr, "dropped %d audit entries under backpressure\n", controller.AuditDropped())
	}
	return nil
}

func waitForSession(controller *authguard.Controller) {
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if controller.State().Session != nil {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
}
