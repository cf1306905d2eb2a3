package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net"
	"os"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/vango-dev/live/internal/config"
	"github.com/vango-dev/live/pkg/hooks"
	"github.com/vango-dev/live/pkg/protocol"
	"github.com/vango-dev/live/pkg/vdom"
	"github.com/vango-dev/live/pkg/vtest"
)

type profile struct {
	Name         string
	Clients      int
	Duration     time.Duration
	RPS          float64
	Todos        int
	PayloadBytes int
}

var profiles = map[string]profile{
	"fast": {
		Name:         "fast",
		Clients:      50,
		Duration:     10 * time.Second,
		RPS:          2,
		Todos:        20,
		PayloadBytes: 24,
	},
	"standard": {
		Name:         "standard",
		Clients:      200,
		Duration:     30 * time.Second,
		RPS:          5,
		Todos:        50,
		PayloadBytes: 24,
	},
	"stress": {
		Name:         "stress",
		Clients:      500,
		Duration:     60 * time.Second,
		RPS:          10,
		Todos:        100,
		PayloadBytes: 24,
	},
}

type benchConfig struct {
	Profile      string
	Clients      int
	Duration     time.Duration
	RPS          float64
	Todos        int
	PayloadBytes int
	MaxProcs     int
	JSONOutput   string
	EventTimeout time.Duration
}

type benchCounters struct {
	eventsSent     atomic.Uint64
	eventsComplete atomic.Uint64
	eventBytes     atomic.Uint64
	updateBytes    atomic.Uint64
	updates        atomic.Uint64
	patchesTotal   atomic.Uint64
}

type benchErrors struct {
	handshakeFailures  atomic.Uint64
	eventWriteFailures atomic.Uint64
	decodeFailures     atomic.Uint64
	applyFailures      atomic.Uint64
	serverErrors       atomic.Uint64
	tokenMissing       atomic.Uint64
	totalErrors        atomic.Uint64
}

type patchKindCounts struct {
	mu     sync.Mutex
	counts map[vdom.PatchKind]uint64
}

func (p *patchKindCounts) add(changes []vdom.Patch) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.counts == nil {
		p.counts = make(map[vdom.PatchKind]uint64)
	}
	for _, c := range changes {
		p.counts[c.Kind]++
	}
}

func (p *patchKindCounts) snapshot() map[string]uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[string]uint64, len(p.counts))
	for k, v := range p.counts {
		out[string(k)] = v
	}
	return out
}

func benchCmd() *cobra.Command {
	var (
		profileName string
		clients     int
		duration    time.Duration
		rps         float64
		todos       int
		payload     int
		maxProcs    int
		jsonOutput  string
	)

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Measure event round trips against an in-process server",
		Long: `Start the demo application on a loopback port and drive it with
concurrent WebSocket clients. Each client types a unique token into the
todo input and waits for the update that carries it back.

Profiles: fast, standard, stress. Flags override the profile.

Examples:
  vango-live bench --profile=fast
  vango-live bench --clients=20 --duration=5s --json=report.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveBenchConfig(profileName, benchOverrides{
				clients:  clients,
				duration: duration,
				rps:      rps,
				todos:    todos,
				payload:  payload,
				maxProcs: maxProcs,
				json:     jsonOutput,
			})
			if err != nil {
				return err
			}
			if cfg.MaxProcs > 0 {
				runtime.GOMAXPROCS(cfg.MaxProcs)
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			report, err := runBench(ctx, cfg)
			if err != nil {
				return err
			}
			writeSummary(cmd.ErrOrStderr(), report)
			return writeJSON(cmd.OutOrStdout(), cfg.JSONOutput, report)
		},
	}

	cmd.Flags().StringVar(&profileName, "profile", "standard", "Profile: fast|standard|stress")
	cmd.Flags().IntVar(&clients, "clients", -1, "Number of concurrent WebSocket clients")
	cmd.Flags().DurationVar(&duration, "duration", 0, "Benchmark duration, e.g. 30s")
	cmd.Flags().Float64Var(&rps, "rps", -1, "Target events per second per client")
	cmd.Flags().IntVar(&todos, "todos", -1, "Todo items rendered per session")
	cmd.Flags().IntVar(&payload, "payload-bytes", -1, "Bytes of token payload per event")
	cmd.Flags().IntVar(&maxProcs, "max-procs", 0, "GOMAXPROCS cap (0 to leave unchanged)")
	cmd.Flags().StringVar(&jsonOutput, "json", "-", "JSON report path ('-' for stdout, '' to skip)")

	return cmd
}

type benchOverrides struct {
	clients  int
	duration time.Duration
	rps      float64
	todos    int
	payload  int
	maxProcs int
	json     string
}

func resolveBenchConfig(name string, o benchOverrides) (benchConfig, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = "standard"
	}
	base, ok := profiles[name]
	if !ok {
		return benchConfig{}, fmt.Errorf("unknown profile %q", name)
	}

	cfg := benchConfig{
		Profile:      base.Name,
		Clients:      base.Clients,
		Duration:     base.Duration,
		RPS:          base.RPS,
		Todos:        base.Todos,
		PayloadBytes: base.PayloadBytes,
		MaxProcs:     o.maxProcs,
		JSONOutput:   strings.TrimSpace(o.json),
	}
	if o.clients != -1 {
		cfg.Clients = o.clients
	}
	if o.duration != 0 {
		cfg.Duration = o.duration
	}
	if o.rps != -1 {
		cfg.RPS = o.rps
	}
	if o.todos != -1 {
		cfg.Todos = o.todos
	}
	if o.payload != -1 {
		cfg.PayloadBytes = o.payload
	}

	switch {
	case cfg.Clients <= 0:
		return benchConfig{}, errors.New("--clients must be > 0")
	case cfg.Duration <= 0:
		return benchConfig{}, errors.New("--duration must be > 0")
	case cfg.RPS <= 0:
		return benchConfig{}, errors.New("--rps must be > 0")
	case cfg.Todos < 0:
		return benchConfig{}, errors.New("--todos must be >= 0")
	case cfg.PayloadBytes <= 0:
		return benchConfig{}, errors.New("--payload-bytes must be > 0")
	case cfg.MaxProcs < 0:
		return benchConfig{}, errors.New("--max-procs must be >= 0")
	}

	cfg.EventTimeout = eventTimeout(cfg.RPS)
	return cfg, nil
}

func eventTimeout(rps float64) time.Duration {
	if rps <= 0 {
		return 0
	}
	period := time.Duration(float64(time.Second) / rps)
	timeout := period * 10
	if timeout < 2*time.Second {
		timeout = 2 * time.Second
	}
	return timeout
}

// runBench serves the demo application on a loopback port and runs the
// clients against it until cfg.Duration has passed.
func runBench(ctx context.Context, cfg benchConfig) (benchReport, error) {
	appCfg := config.New()
	appCfg.Metrics.Enabled = false
	// The default limits are sized for people, not for load generators.
	appCfg.Session.EventRate = math.Max(100, cfg.RPS*10)
	appCfg.Session.EventBurst = 100

	logger := slog.New(slog.DiscardHandler)
	props := demoProps{Todos: cfg.Todos}
	srv, err := newLiveServer(appCfg, logger, func(hooks.Connection) vdom.Component {
		return demoApp.New(props)
	})
	if err != nil {
		return benchReport{}, err
	}

	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		return benchReport{}, fmt.Errorf("listen: %w", err)
	}
	serveCtx, stopServer := context.WithCancel(context.Background())
	served := make(chan error, 1)
	go func() { served <- srv.Run(serveCtx, ln) }()
	defer func() {
		stopServer()
		<-served
	}()

	wsURL := "ws://" + ln.Addr().String() + appCfg.Server.WSPath

	runCtx, cancel := context.WithTimeout(ctx, cfg.Duration)
	defer cancel()

	var (
		counters  benchCounters
		errCounts benchErrors
		kinds     patchKindCounts
		samplesMu sync.Mutex
		samples   []time.Duration
	)
	record := func(rtt time.Duration) {
		samplesMu.Lock()
		samples = append(samples, rtt)
		samplesMu.Unlock()
	}

	var before runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&before)

	start := time.Now()
	var wg sync.WaitGroup
	wg.Add(cfg.Clients)
	for i := 0; i < cfg.Clients; i++ {
		c := &benchClient{
			id:       i,
			url:      wsURL,
			cfg:      cfg,
			counters: &counters,
			errs:     &errCounts,
			kinds:    &kinds,
			record:   record,
		}
		go func() {
			defer wg.Done()
			if err := c.run(runCtx); err != nil {
				errCounts.totalErrors.Add(1)
			}
		}()
	}
	wg.Wait()
	elapsed := time.Since(start)

	var after runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&after)

	samplesMu.Lock()
	latencies := append([]time.Duration(nil), samples...)
	samplesMu.Unlock()
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	return buildReport(cfg, elapsed, latencies, &counters, &errCounts, &kinds, before, after), nil
}

// benchClient is one simulated browser.
type benchClient struct {
	id       int
	url      string
	cfg      benchConfig
	counters *benchCounters
	errs     *benchErrors
	kinds    *patchKindCounts
	record   func(time.Duration)

	conn   *websocket.Conn
	mirror *vtest.Mirror
}

func (c *benchClient) run(ctx context.Context) error {
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
	if err != nil {
		c.errs.handshakeFailures.Add(1)
		return fmt.Errorf("dial: %w", err)
	}
	resp.Body.Close()
	defer conn.Close()
	c.conn = conn
	c.mirror = vtest.NewMirror()

	// The first message is the full tree.
	if _, err := c.readUpdate(time.Now().Add(c.cfg.EventTimeout)); err != nil {
		c.errs.handshakeFailures.Add(1)
		return fmt.Errorf("initial update: %w", err)
	}
	target := c.mirror.Target("input", "oninput")
	if target == "" {
		c.errs.handshakeFailures.Add(1)
		return errors.New("no input handler in the initial tree")
	}

	period := time.Duration(float64(time.Second) / c.cfg.RPS)
	var seq uint64
	for {
		if ctx.Err() != nil {
			return nil
		}

		seq++
		token := makeToken(c.id, seq, c.cfg.PayloadBytes)
		start := time.Now()

		ev, err := protocol.NewLayoutEvent(target, map[string]string{"value": token})
		if err != nil {
			return err
		}
		data, err := protocol.EncodeEvent(ev)
		if err != nil {
			return err
		}
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.errs.eventWriteFailures.Add(1)
			return fmt.Errorf("event write: %w", err)
		}
		c.counters.eventsSent.Add(1)
		c.counters.eventBytes.Add(uint64(len(data)))

		if err := c.waitForToken(ctx, token, start.Add(c.cfg.EventTimeout)); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		rtt := time.Since(start)
		c.counters.eventsComplete.Add(1)
		c.record(rtt)

		if sleep := period - rtt; sleep > 0 {
			timer := time.NewTimer(sleep)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil
			case <-timer.C:
			}
		}
	}
}

// readUpdate reads one message and applies it to the mirror. It returns the
// raw message.
func (c *benchClient) readUpdate(deadline time.Time) ([]byte, error) {
	c.conn.SetReadDeadline(deadline)
	_, msg, err := c.conn.ReadMessage()
	if err != nil {
		return nil, err
	}

	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(msg, &head); err != nil {
		c.errs.decodeFailures.Add(1)
		return nil, err
	}
	if head.Type == protocol.TypeError {
		c.errs.serverErrors.Add(1)
		return nil, fmt.Errorf("server error: %s", msg)
	}

	u, err := protocol.DecodeUpdate(msg)
	if err != nil {
		c.errs.decodeFailures.Add(1)
		return nil, err
	}
	c.counters.updates.Add(1)
	c.counters.updateBytes.Add(uint64(len(msg)))
	c.counters.patchesTotal.Add(uint64(len(u.Changes)))
	c.kinds.add(u.Changes)

	if err := c.mirror.Apply(u); err != nil {
		c.errs.applyFailures.Add(1)
		return nil, err
	}
	return msg, nil
}

func (c *benchClient) waitForToken(ctx context.Context, token string, deadline time.Time) error {
	stop := context.AfterFunc(ctx, func() {
		c.conn.SetReadDeadline(time.Now())
	})
	defer stop()

	for {
		msg, err := c.readUpdate(deadline)
		if err != nil {
			if isTimeout(err) && ctx.Err() == nil {
				c.errs.tokenMissing.Add(1)
				return errors.New("token not observed in updates")
			}
			return err
		}
		if bytes.Contains(msg, []byte(token)) {
			return nil
		}
	}
}

func makeToken(clientID int, seq uint64, payloadBytes int) string {
	if payloadBytes <= 0 {
		return ""
	}
	seed := (uint64(clientID) << 32) ^ seq
	base := strconv.FormatUint(seed, 36)
	if len(base) >= payloadBytes {
		return base[len(base)-payloadBytes:]
	}
	return base + strings.Repeat("x", payloadBytes-len(base))
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[len(sorted)-1]
	}
	idx := int(math.Ceil(float64(len(sorted))*p)) - 1
	if idx < 0 {
		idx = 0
	}
	return sorted[idx]
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

type benchReport struct {
	Version    string         `json:"version"`
	Run        runInfo        `json:"run"`
	Workload   workloadInfo   `json:"workload"`
	LatencyMS  latencyInfo    `json:"latency_ms"`
	Throughput throughputInfo `json:"throughput"`
	GC         gcInfo         `json:"gc"`
	Protocol   protocolInfo   `json:"protocol"`
	Errors     errorInfo      `json:"errors"`
}

type runInfo struct {
	Timestamp string `json:"timestamp"`
	Go        string `json:"go"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
	CPUCount  int    `json:"cpu_count"`
	Version   string `json:"version"`
}

type workloadInfo struct {
	Profile        string  `json:"profile"`
	Clients        int     `json:"clients"`
	DurationMS     int64   `json:"duration_ms"`
	RPSPerClient   float64 `json:"rps_per_client"`
	Todos          int     `json:"todos"`
	PayloadBytes   int     `json:"payload_bytes"`
	MaxProcs       int     `json:"max_procs"`
	EventTimeoutMS int64   `json:"event_timeout_ms"`
}

type latencyInfo struct {
	Min float64 `json:"min"`
	P50 float64 `json:"p50"`
	P95 float64 `json:"p95"`
	P99 float64 `json:"p99"`
	Max float64 `json:"max"`
}

type throughputInfo struct {
	EventsTotal        uint64  `json:"events_total"`
	EventsPerSec       float64 `json:"events_per_sec"`
	EventsPerSecClient float64 `json:"events_per_sec_per_client"`
}

type gcInfo struct {
	AllocMB      float64 `json:"alloc_mb"`
	HeapLiveMB   float64 `json:"heap_live_mb"`
	NumGC        uint32  `json:"num_gc"`
	PauseTotalMS float64 `json:"pause_total_ms"`
}

type protocolInfo struct {
	EventBytesTotal  uint64            `json:"event_bytes_total"`
	UpdateBytesTotal uint64            `json:"update_bytes_total"`
	Updates          uint64            `json:"updates_total"`
	PatchesTotal     uint64            `json:"patches_total"`
	AvgEventBytes    float64           `json:"avg_event_bytes"`
	AvgUpdateBytes   float64           `json:"avg_update_bytes"`
	PatchesPerEvent  float64           `json:"patches_per_event"`
	PatchKinds       map[string]uint64 `json:"patch_kinds"`
}

type errorInfo struct {
	TotalErrors        uint64 `json:"total_errors"`
	HandshakeFailures  uint64 `json:"handshake_failures"`
	EventWriteFailures uint64 `json:"event_write_failures"`
	DecodeFailures     uint64 `json:"decode_failures"`
	ApplyFailures      uint64 `json:"apply_failures"`
	ServerErrors       uint64 `json:"server_errors"`
	TokenMissing       uint64 `json:"token_missing"`
}

func ratio(n, d uint64) float64 {
	if d == 0 {
		return 0
	}
	return float64(n) / float64(d)
}

func buildReport(
	cfg benchConfig,
	elapsed time.Duration,
	latencies []time.Duration,
	counters *benchCounters,
	errs *benchErrors,
	kinds *patchKindCounts,
	before, after runtime.MemStats,
) benchReport {
	eventsTotal := counters.eventsComplete.Load()
	eventsPerSec := float64(eventsTotal) / math.Max(0.001, elapsed.Seconds())

	latency := latencyInfo{}
	if len(latencies) > 0 {
		latency = latencyInfo{
			Min: ms(latencies[0]),
			P50: ms(percentile(latencies, 0.50)),
			P95: ms(percentile(latencies, 0.95)),
			P99: ms(percentile(latencies, 0.99)),
			Max: ms(latencies[len(latencies)-1]),
		}
	}

	return benchReport{
		Version: "1",
		Run: runInfo{
			Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
			Go:        runtime.Version(),
			OS:        runtime.GOOS,
			Arch:      runtime.GOARCH,
			CPUCount:  runtime.NumCPU(),
			Version:   version,
		},
		Workload: workloadInfo{
			Profile:        cfg.Profile,
			Clients:        cfg.Clients,
			DurationMS:     cfg.Duration.Milliseconds(),
			RPSPerClient:   cfg.RPS,
			Todos:          cfg.Todos,
			PayloadBytes:   cfg.PayloadBytes,
			MaxProcs:       cfg.MaxProcs,
			EventTimeoutMS: cfg.EventTimeout.Milliseconds(),
		},
		LatencyMS: latency,
		Throughput: throughputInfo{
			EventsTotal:        eventsTotal,
			EventsPerSec:       eventsPerSec,
			EventsPerSecClient: eventsPerSec / float64(cfg.Clients),
		},
		GC: gcInfo{
			AllocMB:      float64(after.TotalAlloc-before.TotalAlloc) / (1024 * 1024),
			HeapLiveMB:   float64(after.HeapAlloc) / (1024 * 1024),
			NumGC:        after.NumGC - before.NumGC,
			PauseTotalMS: ms(time.Duration(after.PauseTotalNs - before.PauseTotalNs)),
		},
		Protocol: protocolInfo{
			EventBytesTotal:  counters.eventBytes.Load(),
			UpdateBytesTotal: counters.updateBytes.Load(),
			Updates:          counters.updates.Load(),
			PatchesTotal:     counters.patchesTotal.Load(),
			AvgEventBytes:    ratio(counters.eventBytes.Load(), counters.eventsSent.Load()),
			AvgUpdateBytes:   ratio(counters.updateBytes.Load(), counters.updates.Load()),
			PatchesPerEvent:  ratio(counters.patchesTotal.Load(), eventsTotal),
			PatchKinds:       kinds.snapshot(),
		},
		Errors: errorInfo{
			TotalErrors:        errs.totalErrors.Load(),
			HandshakeFailures:  errs.handshakeFailures.Load(),
			EventWriteFailures: errs.eventWriteFailures.Load(),
			DecodeFailures:     errs.decodeFailures.Load(),
			ApplyFailures:      errs.applyFailures.Load(),
			ServerErrors:       errs.serverErrors.Load(),
			TokenMissing:       errs.tokenMissing.Load(),
		},
	}
}

func writeSummary(w io.Writer, r benchReport) {
	fmt.Fprintln(w, "=== vango-live benchmark ===")
	fmt.Fprintf(w, "Profile: %s\n", r.Workload.Profile)
	fmt.Fprintf(w, "Clients: %d\n", r.Workload.Clients)
	fmt.Fprintf(w, "Duration: %s\n", time.Duration(r.Workload.DurationMS)*time.Millisecond)
	fmt.Fprintf(w, "Target per-client rate: %.2f events/s\n", r.Workload.RPSPerClient)
	fmt.Fprintf(w, "Todos: %d\n", r.Workload.Todos)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Events: %d (%.1f/s, %.2f/s per client)\n",
		r.Throughput.EventsTotal, r.Throughput.EventsPerSec, r.Throughput.EventsPerSecClient)
	fmt.Fprintf(w, "Latency ms: min %.2f p50 %.2f p95 %.2f p99 %.2f max %.2f\n",
		r.LatencyMS.Min, r.LatencyMS.P50, r.LatencyMS.P95, r.LatencyMS.P99, r.LatencyMS.Max)
	fmt.Fprintf(w, "Updates: %d (avg %.0f bytes, %.2f patches per event)\n",
		r.Protocol.Updates, r.Protocol.AvgUpdateBytes, r.Protocol.PatchesPerEvent)
	fmt.Fprintf(w, "GC: %d cycles, %.1f MB allocated, %.2f ms paused\n",
		r.GC.NumGC, r.GC.AllocMB, r.GC.PauseTotalMS)
	if r.Errors.TotalErrors > 0 {
		fmt.Fprintf(w, "Errors: %d (handshake %d, write %d, decode %d, apply %d, server %d, missing %d)\n",
			r.Errors.TotalErrors, r.Errors.HandshakeFailures, r.Errors.EventWriteFailures,
			r.Errors.DecodeFailures, r.Errors.ApplyFailures, r.Errors.ServerErrors, r.Errors.TokenMissing)
	}
}

// writeJSON writes the report to path, or to stdout for "-".
func writeJSON(stdout io.Writer, path string, r benchReport) error {
	if path == "" {
		return nil
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	if path == "-" {
		_, err := stdout.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
