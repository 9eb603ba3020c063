// Command goidentity-loadtest measures OTP generate and verify throughput
// against Redis (or an embedded miniredis when no address is given).
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	goIdentity "github.com/MrEthical07/goIdentity"
	"github.com/MrEthical07/goIdentity/internal/otp"
)

func main() {
	var (
		accounts    = flag.Int("accounts", 50000, "distinct emails; each gets one code")
		concurrency = flag.Int("concurrency", 256, "number of concurrent workers")
		wrongEvery  = flag.Int("wrong-every", 4, "send one wrong code before the right one on every Nth account (0 disables)")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", "lt", "OTP key prefix")
	)
	flag.Parse()

	if *accounts <= 0 || *concurrency <= 0 || *wrongEvery < 0 {
		fmt.Fprintln(os.Stderr, "accounts and concurrency must be > 0, wrong-every >= 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		client  redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		addr = mr.Addr()
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	cfg := otp.DefaultConfig()
	cfg.KeyPrefix = *prefix
	engine, err := otp.New(client, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "otp engine: %v\n", err)
		os.Exit(1)
	}

	purpose := string(goIdentity.PurposeRegister)
	emails := make([]string, *accounts)
	for i := range emails {
		emails[i] = fmt.Sprintf("user-%d@loadtest.invalid", i)
	}
	codes := make([]string, *accounts)

	generateStats := runPhase(*accounts, *concurrency, func(i int) error {
		code, err := engine.Generate(ctx, emails[i], purpose)
		if err == nil {
			codes[i] = code
		}
		return err
	})

	verifyStats := runPhase(*accounts, *concurrency, func(i int) error {
		if codes[i] == "" {
			return errors.New("no code generated")
		}
		if *wrongEvery > 0 && i%*wrongEvery == 0 {
			if err := engine.Verify(ctx, emails[i], purpose, wrongCode(codes[i])); !errors.Is(err, otp.ErrInvalidOrExpired) {
				return fmt.Errorf("wrong code: expected invalid, got %v", err)
			}
		}
		return engine.Verify(ctx, emails[i], purpose, codes[i])
	})

	fmt.Println("---- results ----")
	printStats("generate", generateStats)
	printStats("verify", verifyStats)
}

func wrongCode(code string) string {
	b := []byte(code)
	if b[0] == '9' {
		b[0] = '1'
	} else {
		b[0]++
	}
	return string(b)
}

// runPhase calls op once for every index in [0, ops) across concurrency
// workers and records each call's latency.
func runPhase(ops, concurrency int, op func(i int) error) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				t0 := time.Now()
				err := op(i)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
