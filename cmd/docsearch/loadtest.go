package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"
)

var (
	flagLoadURL         string
	flagLoadConcurrency int
	flagLoadDuration    time.Duration
	flagLoadQueries     []string
	flagLoadEntries     string
	flagLoadAPIKey      string
)

var defaultLoadQueries = []string{
	"create info", "polygon", "area", "point", "geometry shape",
	"struct", "vertices", "create-info", "signed area", "nosuchterm",
}

var loadtestCmd = &cobra.Command{
	Use:   "loadtest",
	Short: "Drive a running server with concurrent searches and report latency",
	Args:  cobra.NoArgs,
	RunE:  runLoadtest,
}

func init() {
	f := loadtestCmd.Flags()
	f.StringVar(&flagLoadURL, "url", "http://localhost:8080", "base URL of the server")
	f.IntVar(&flagLoadConcurrency, "concurrency", 10, "number of concurrent workers")
	f.DurationVar(&flagLoadDuration, "duration", 30*time.Second, "test duration")
	f.StringSliceVarP(&flagLoadQueries, "query", "q", nil, "queries to cycle through")
	f.StringVar(&flagLoadEntries, "entries", "", "take queries from the titles in this entry list")
	f.StringVar(&flagLoadAPIKey, "api-key", "", "sent as X-API-Key")
	rootCmd.AddCommand(loadtestCmd)
}

type loadStats struct {
	total     atomic.Int64
	success   atomic.Int64
	failed    atomic.Int64
	cacheHits atomic.Int64

	mu        sync.Mutex
	latencies []time.Duration
	statuses  map[int]int64
}

func newLoadStats() *loadStats {
	return &loadStats{
		latencies: make([]time.Duration, 0, 100000),
		statuses:  make(map[int]int64),
	}
}

func (s *loadStats) record(d time.Duration, status int, cacheHit bool, err error) {
	s.total.Add(1)
	if err != nil {
		s.failed.Add(1)
		return
	}
	if status >= 200 && status < 300 {
		s.success.Add(1)
	} else {
		s.failed.Add(1)
	}
	if cacheHit {
		s.cacheHits.Add(1)
	}
	s.mu.Lock()
	s.latencies = append(s.latencies, d)
	s.statuses[status]++
	s.mu.Unlock()
}

func runLoadtest(cmd *cobra.Command, _ []string) error {
	queries := flagLoadQueries
	if flagLoadEntries != "" {
		cfg, err := loadConfig(true)
		if err != nil {
			return err
		}
		entries, err := loadEntries(cmd.Context(), cfg, flagLoadEntries)
		if err != nil {
			return err
		}
		for _, e := range entries {
			if e.Title != "" {
				queries = append(queries, e.Title)
			}
		}
	}
	if len(queries) == 0 {
		queries = defaultLoadQueries
	}
	if flagLoadConcurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1")
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "target %s, %d workers for %s, %d queries\n\n",
		flagLoadURL, flagLoadConcurrency, flagLoadDuration, len(queries))

	ctx, cancel := context.WithTimeout(cmd.Context(), flagLoadDuration)
	defer cancel()
	stats := driveLoad(ctx, flagLoadURL, flagLoadAPIKey, flagLoadConcurrency, queries)
	return stats.report(out, flagLoadDuration)
}

// driveLoad runs workers against baseURL until ctx ends.
func driveLoad(ctx context.Context, baseURL, apiKey string, workers int, queries []string) *loadStats {
	stats := newLoadStats()
	client := &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        workers * 2,
			MaxIdleConnsPerHost: workers * 2,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	var wg sync.WaitGroup
	for w := range workers {
		wg.Add(1)
		go func(next int) {
			defer wg.Done()
			for ctx.Err() == nil {
				q := queries[next%len(queries)]
				next++
				target := fmt.Sprintf("%s/api/v1/search?q=%s", baseURL, url.QueryEscape(q))
				start := time.Now()
				status, hit, err := searchOnce(ctx, client, target, apiKey)
				if ctx.Err() != nil && errors.Is(err, context.DeadlineExceeded) {
					return
				}
				stats.record(time.Since(start), status, hit, err)
			}
		}(w)
	}
	wg.Wait()
	return stats
}

func searchOnce(ctx context.Context, client *http.Client, target, apiKey string) (int, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return 0, false, err
	}
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, false, err
	}
	defer resp.Body.Close()
	var body struct {
		CacheHit bool `json:"cache_hit"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&body)
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, body.CacheHit, nil
}

func (s *loadStats) report(out io.Writer, d time.Duration) error {
	total := s.total.Load()
	fmt.Fprintf(out, "requests    %d\n", total)
	fmt.Fprintf(out, "successful  %d\n", s.success.Load())
	fmt.Fprintf(out, "failed      %d\n", s.failed.Load())
	if total == 0 {
		return fmt.Errorf("no requests completed; is the server running at %s?", flagLoadURL)
	}
	fmt.Fprintf(out, "error rate  %.2f%%\n", float64(s.failed.Load())/float64(total)*100)
	fmt.Fprintf(out, "cache hits  %.2f%%\n", float64(s.cacheHits.Load())/float64(total)*100)
	fmt.Fprintf(out, "req/s       %.2f\n", float64(total)/d.Seconds())

	s.mu.Lock()
	lat := slices.Clone(s.latencies)
	codes := make([]int, 0, len(s.statuses))
	for c := range s.statuses {
		codes = append(codes, c)
	}
	statuses := s.statuses
	s.mu.Unlock()

	if len(lat) > 0 {
		slices.Sort(lat)
		var sum time.Duration
		for _, l := range lat {
			sum += l
		}
		fmt.Fprintln(out, "\nlatency")
		fmt.Fprintf(out, "  min  %s\n", lat[0])
		fmt.Fprintf(out, "  avg  %s\n", sum/time.Duration(len(lat)))
		for _, p := range []float64{50, 90, 95, 99} {
			fmt.Fprintf(out, "  p%.0f  %s\n", p, percentile(lat, p))
		}
		fmt.Fprintf(out, "  max  %s\n", lat[len(lat)-1])
	}

	slices.Sort(codes)
	fmt.Fprintln(out, "\nstatus codes")
	for _, c := range codes {
		fmt.Fprintf(out, "  %d  %d\n", c, statuses[c])
	}
	return nil
}

// percentile uses the nearest-rank method on a sorted slice.
func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	return sorted[min(max(idx, 0), len(sorted)-1)]
}
