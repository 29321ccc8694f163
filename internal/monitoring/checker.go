package monitoring

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/urbanhydro/abimo/internal/config"
)

// SeverityResolved marks the notification sent when a firing alert clears.
const SeverityResolved = "resolved"

// Checker collects a snapshot on every tick and notifies the webhook when an
// alert starts or stops firing. An alert that keeps firing is sent once.
type Checker struct {
	collector *Collector
	alerter   *Alerter
	cfg       config.MonitoringConfig

	firing map[AlertType]bool

	// OnSnapshot, if set, receives every collected snapshot.
	OnSnapshot func(*MetricsSnapshot)
}

// NewChecker returns a checker for the configured lookback window.
func NewChecker(collector *Collector, alerter *Alerter, cfg config.MonitoringConfig) *Checker {
	return &Checker{
		collector: collector,
		alerter:   alerter,
		cfg:       cfg,
		firing:    map[AlertType]bool{},
	}
}

func (c *Checker) interval() time.Duration {
	if c.cfg.CheckIntervalSecs <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(c.cfg.CheckIntervalSecs) * time.Second
}

// Run checks once immediately and then on every tick until ctx is
// cancelled.
func (c *Checker) Run(ctx context.Context) {
	log := zap.L().With(zap.String("component", "monitoring"))
	tick := time.NewTicker(c.interval())
	defer tick.Stop()

	log.Info("run checker started",
		zap.Duration("interval", c.interval()),
		zap.Int("lookback_hours", c.cfg.LookbackWindowHours),
	)
	for {
		c.check(ctx, log)
		select {
		case <-ctx.Done():
			log.Info("run checker stopped")
			return
		case <-tick.C:
		}
	}
}

func (c *Checker) check(ctx context.Context, log *zap.Logger) {
	snap, err := c.collector.Collect(ctx, c.cfg.LookbackWindowHours)
	if err != nil {
		log.Error("monitoring: collect failed", zap.Error(err))
		return
	}
	if c.OnSnapshot != nil {
		c.OnSnapshot(snap)
	}

	changes := c.transitions(c.alerter.Evaluate(snap), snap.CollectedAt)
	if len(changes) == 0 {
		return
	}
	sent := c.alerter.SendAlerts(ctx, changes)
	log.Info("monitoring: alert state changed",
		zap.Int("changes", len(changes)),
		zap.Int("sent", sent),
	)
}

// transitions records the alerts firing now and returns those that started
// firing plus a resolved notice for each one that stopped.
func (c *Checker) transitions(alerts []Alert, now time.Time) []Alert {
	var out []Alert
	current := make(map[AlertType]bool, len(alerts))
	for _, a := range alerts {
		current[a.Type] = true
		if !c.firing[a.Type] {
			out = append(out, a)
		}
	}

	for typ := range c.firing {
		if current[typ] {
			continue
		}
		out = append(out, Alert{
			Type:      typ,
			Severity:  SeverityResolved,
			Message:   fmt.Sprintf("%s is back below its threshold", typ),
			Timestamp: now,
		})
	}

	c.firing = current
	return out
}
