// Package metrics exposes Prometheus counters for social graph and engagement activity.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is what the services report into.
type Recorder interface {
	RecordFollow(created bool)
	RecordUnfollow(removed bool)
	RecordLike(created bool)
	RecordUnlike(removed bool)
	RecordNotification(verb string)
	RecordFeedLatency(duration time.Duration)
}

// Collector is the Prometheus-backed Recorder.
type Collector struct {
	follows       *prometheus.CounterVec
	unfollows     *prometheus.CounterVec
	likes         *prometheus.CounterVec
	unlikes       *prometheus.CounterVec
	notifications *prometheus.CounterVec
	feedLatency   prometheus.Histogram
}

// NewCollector registers every metric on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		follows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "socialfeed_follow_total",
			Help: "Follow calls by outcome (created, existing).",
		}, []string{"result"}),
		unfollows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "socialfeed_unfollow_total",
			Help: "Unfollow calls by outcome (removed, absent).",
		}, []string{"result"}),
		likes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "socialfeed_like_total",
			Help: "Like calls by outcome (created, duplicate).",
		}, []string{"result"}),
		unlikes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "socialfeed_unlike_total",
			Help: "Unlike calls by outcome (removed, absent).",
		}, []string{"result"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "socialfeed_notifications_total",
			Help: "Notifications appended, by verb.",
		}, []string{"verb"}),
		feedLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "socialfeed_feed_latency_seconds",
			Help:    "Feed assembly latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.follows,
		c.unfollows,
		c.likes,
		c.unlikes,
		c.notifications,
		c.feedLatency,
	)
	return c
}

func (c *Collector) RecordFollow(created bool) {
	c.follows.WithLabelValues(outcome(created, "created", "existing")).Inc()
}

func (c *Collector) RecordUnfollow(removed bool) {
	c.unfollows.WithLabelValues(outcome(removed, "removed", "absent")).Inc()
}

func (c *Collector) RecordLike(created bool) {
	c.likes.WithLabelValues(outcome(created, "created", "duplicate")).Inc()
}

func (c *Collector) RecordUnlike(removed bool) {
	c.unlikes.WithLabelValues(outcome(removed, "removed", "absent")).Inc()
}

func (c *Collector) RecordNotification(verb string) {
	c.notifications.WithLabelValues(verb).Inc()
}

func (c *Collector) RecordFeedLatency(duration time.Duration) {
	c.feedLatency.Observe(duration.Seconds())
}

func outcome(ok bool, yes, no string) string {
	if ok {
		return yes
	}
	return no
}

// Nop discards everything.
type Nop struct{}

func (Nop) RecordFollow(bool) {}
func (Nop) RecordUnfollow(bool) {}
func (Nop) RecordLike(bool) {}
func (Nop) RecordUnlike(bool) {}
func (Nop) RecordNotification(string) {}
func (Nop) RecordFeedLatency(time.Duration) {}

// Handler returns the scrape handler for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute serves /metrics on its own mux.
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}
