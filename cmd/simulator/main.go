package main

import (
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/nm-morais/go-accrual/configs"
	"github.com/nm-morais/go-accrual/pkg/detector"
	"github.com/nm-morais/go-accrual/pkg/logs"
	"github.com/nm-morais/go-accrual/pkg/telemetry"
	"github.com/panjf2000/ants"
)

// simulator drives a handful of independent failure detectors with
// jittery heartbeats and injected crash phases, reporting phi as the
// detectors react.

type simulatedPeer struct {
	name      string
	detector  *detector.PhiAccrualDetector
	downUntil time.Time
	wasUp     bool
}

func main() {
	rand.Seed(time.Now().Unix())

	var nrPeers int
	var confPath string
	var metricsAddr string
	var runFor time.Duration
	var hbInterval time.Duration
	flag.IntVar(&nrPeers, "n", 3, "number of simulated peers")
	flag.StringVar(&confPath, "conf", "", "detector config file (JSON)")
	flag.StringVar(&metricsAddr, "metrics", "", "address to serve prometheus metrics on")
	flag.DurationVar(&runFor, "d", 30*time.Second, "how long to run the simulation")
	flag.DurationVar(&hbInterval, "hb", 500*time.Millisecond, "heartbeat interval")
	flag.Parse()

	logger := logs.NewLogger("Simulator")

	cfg := configs.DefaultDetectorConfig()
	if confPath != "" {
		loaded, err := configs.ReadConfigFromFile(confPath)
		if err != nil {
			panic(err)
		}
		cfg = loaded
	}
	logger.Infof("My configs: %+v", cfg)

	peers := make([]*simulatedPeer, nrPeers)
	for i := range peers {
		name := fmt.Sprintf("peer-%d", i)
		warnings := make(chan time.Duration, 16)
		d, err := detector.NewFromConfig(cfg, warnings)
		if err != nil {
			panic(err)
		}
		peers[i] = &simulatedPeer{name: name, detector: d, wasUp: true}
		telemetry.Registry.MustRegister(telemetry.NewDetectorCollector(name, d))

		go func(name string) {
			for interval := range warnings {
				logger.Warnf("%s heartbeat interval is growing too large: %s", name, interval)
			}
		}(name)
	}

	if metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", telemetry.MetricsHandler())
			logger.Infof("Serving metrics on %s", metricsAddr)
			if err := http.ListenAndServe(metricsAddr, mux); err != nil {
				logger.Error(err)
			}
		}()
	}

	pool, err := ants.NewPool(nrPeers)
	if err != nil {
		panic(err)
	}
	defer pool.Release()

	deadline := time.Now().Add(runFor)
	var wg sync.WaitGroup
	for _, p := range peers {
		wg.Add(1)
		go func(p *simulatedPeer) {
			defer wg.Done()
			ticker := time.NewTicker(hbInterval)
			defer ticker.Stop()
			for now := range ticker.C {
				if now.After(deadline) {
					return
				}
				if now.Before(p.downUntil) {
					continue
				}
				if rand.Float64() < 0.01 {
					p.downUntil = now.Add(10 * hbInterval)
					logger.Warnf("%s stopped sending heartbeats", p.name)
					continue
				}
				jitter := time.Duration(rand.Int63n(int64(hbInterval / 10)))
				if err := pool.Submit(func() {
					time.Sleep(jitter)
					p.detector.HeartbeatNow()
				}); err != nil {
					logger.Error(err)
				}
			}
		}(p)
	}

	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for range ticker.C {
			for _, p := range peers {
				up := p.detector.IsAvailableNow()
				if up != p.wasUp {
					if up {
						logger.Infof("%s is available again", p.name)
					} else {
						logger.Warnf("%s is suspected failed (phi=%.2f)", p.name, p.detector.PhiNow())
					}
					p.wasUp = up
				}
				logger.Debugf("%s phi=%.4f available=%v", p.name, p.detector.PhiNow(), up)
			}
		}
	}()

	wg.Wait()
	for _, p := range peers {
		logger.Infof("%s final stats: %+v", p.name, p.detector.Stats())
	}
}
