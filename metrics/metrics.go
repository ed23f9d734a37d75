// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package metrics exports queue and pool occupancy as Prometheus gauges.
//
// Values are sampled at scrape time through the Len/Cap and size accessors;
// nothing runs in the background and the hot paths are not instrumented.
//
//	c := metrics.NewCollector()
//	c.AddQueue("ingress", q)
//	c.AddPool("frames", p)
//	prometheus.MustRegister(c)
package metrics

import (
	"sort"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"code.hybscloud.com/lfkit"
)

// Namespace prefixes every metric name.
const Namespace = "lfkit"

// PoolSizer is the read side of a pool.
type PoolSizer interface {
	AllocatedSize() int
	FreeSize() int
}

var (
	queueLength = prometheus.NewDesc(
		prometheus.BuildFQName(Namespace, "queue", "length"),
		"Number of elements in the queue at scrape time.",
		[]string{"queue"}, nil,
	)
	queueCapacity = prometheus.NewDesc(
		prometheus.BuildFQName(Namespace, "queue", "capacity"),
		"Maximum number of elements the queue holds.",
		[]string{"queue"}, nil,
	)
	poolAllocated = prometheus.NewDesc(
		prometheus.BuildFQName(Namespace, "pool", "allocated"),
		"Nodes the pool has obtained from its allocator.",
		[]string{"pool"}, nil,
	)
	poolFree = prometheus.NewDesc(
		prometheus.BuildFQName(Namespace, "pool", "free"),
		"Nodes on the pool's free list.",
		[]string{"pool"}, nil,
	)
	poolInUse = prometheus.NewDesc(
		prometheus.BuildFQName(Namespace, "pool", "in_use"),
		"Nodes currently issued to callers.",
		[]string{"pool"}, nil,
	)
)

// Collector implements prometheus.Collector over a set of named queues and
// pools. It is safe for concurrent use.
type Collector struct {
	mu     sync.RWMutex
	queues map[string]lfkit.Sizer
	pools  map[string]PoolSizer
}

var _ prometheus.Collector = (*Collector)(nil)

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{
		queues: make(map[string]lfkit.Sizer),
		pools:  make(map[string]PoolSizer),
	}
}

// AddQueue starts reporting q under name, replacing any queue already
// registered with that name.
func (c *Collector) AddQueue(name string, q lfkit.Sizer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queues[name] = q
}

// AddPool starts reporting p under name, replacing any pool already
// registered with that name.
func (c *Collector) AddPool(name string, p PoolSizer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pools[name] = p
}

// Remove stops reporting the queue or pool registered under name.
func (c *Collector) Remove(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.queues, name)
	delete(c.pools, name)
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- queueLength
	ch <- queueCapacity
	ch <- poolAllocated
	ch <- poolFree
	ch <- poolInUse
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, name := range sortedKeys(c.queues) {
		q := c.queues[name]
		ch <- prometheus.MustNewConstMetric(queueLength, prometheus.GaugeValue, float64(q.Len()), name)
		ch <- prometheus.MustNewConstMetric(queueCapacity, prometheus.GaugeValue, float64(q.Cap()), name)
	}
	for _, name := range sortedKeys(c.pools) {
		p := c.pools[name]
		// Free first: the counters only guarantee free <= allocated when
		// read in this order.
		free := p.FreeSize()
		allocated := p.AllocatedSize()
		ch <- prometheus.MustNewConstMetric(poolAllocated, prometheus.GaugeValue, float64(allocated), name)
		ch <- prometheus.MustNewConstMetric(poolFree, prometheus.GaugeValue, float64(free), name)
		ch <- prometheus.MustNewConstMetric(poolInUse, prometheus.GaugeValue, float64(allocated-free), name)
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
