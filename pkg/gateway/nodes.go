package gateway

import (
	"math"
	"sort"
	"sync"
	"time"
)

const (
	// DefaultSmoothThreshold is the RSSI step in dB above which the
	// smoothed value follows quickly
	DefaultSmoothThreshold = 10.0
	// DefaultKFast is the adaptation coefficient for large RSSI steps
	DefaultKFast = 0.7
	// DefaultKSlow is the adaptation coefficient for small RSSI steps
	DefaultKSlow = 0.2
)

// RSSISmoother is an exponential moving average that adapts quickly to
// large steps, such as a node being moved, and slowly to fading
type RSSISmoother struct {
	value     float64
	primed    bool
	threshold float64
	kFast     float64
	kSlow     float64
}

// NewRSSISmoother creates a smoother with the default coefficients
func NewRSSISmoother() *RSSISmoother {
	return &RSSISmoother{threshold: DefaultSmoothThreshold, kFast: DefaultKFast, kSlow: DefaultKSlow}
}

// Update folds in a reading and returns the smoothed value. The first
// reading is taken as-is.
func (s *RSSISmoother) Update(dBm float64) float64 {
	if !s.primed {
		s.value = dBm
		s.primed = true
		return dBm
	}

	k := s.kSlow
	if math.Abs(dBm-s.value) > s.threshold {
		k = s.kFast
	}
	s.value += (dBm - s.value) * k
	return s.value
}

func (s *RSSISmoother) Value() float64 {
	return s.value
}

// NodeInfo is what the gateway knows about one sender
type NodeInfo struct {
	Address   uint8
	RSSI      float64 // smoothed, dBm
	LastRSSI  int
	MaxRSSI   int
	LQI       uint8
	FirstSeen time.Time
	LastSeen  time.Time
	Packets   uint32
}

type node struct {
	info     NodeInfo
	smoother *RSSISmoother
}

// NodeTable tracks the senders heard by the gateway
type NodeTable struct {
	mu    sync.RWMutex
	nodes map[uint8]*node

	onNew  func(NodeInfo)
	onLost func(NodeInfo)
}

func NewNodeTable() *NodeTable {
	return &NodeTable{nodes: make(map[uint8]*node)}
}

// SetCallbacks sets functions called when a sender is first heard and when
// Expire forgets it. They run on the caller's goroutine after the table
// lock is released.
func (t *NodeTable) SetCallbacks(onNew, onLost func(NodeInfo)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onNew = onNew
	t.onLost = onLost
}

// Update records a forwarded packet
func (t *NodeTable) Update(r Record) NodeInfo {
	t.mu.Lock()
	n, exists := t.nodes[r.Sender]
	if !exists {
		n = &node{
			info: NodeInfo{
				Address:   r.Sender,
				MaxRSSI:   r.RSSI,
				FirstSeen: r.Time,
			},
			smoother: NewRSSISmoother(),
		}
		t.nodes[r.Sender] = n
	}

	n.info.RSSI = n.smoother.Update(float64(r.RSSI))
	n.info.LastRSSI = r.RSSI
	n.info.LQI = r.LQI
	n.info.LastSeen = r.Time
	n.info.Packets++
	if r.RSSI > n.info.MaxRSSI {
		n.info.MaxRSSI = r.RSSI
	}
	info := n.info
	onNew := t.onNew
	t.mu.Unlock()

	if !exists && onNew != nil {
		onNew(info)
	}
	return info
}

// Get returns a copy of a sender's entry
func (t *NodeTable) Get(addr uint8) (NodeInfo, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n, ok := t.nodes[addr]
	if !ok {
		return NodeInfo{}, false
	}
	return n.info, true
}

// All returns every entry ordered by address
func (t *NodeTable) All() []NodeInfo {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]NodeInfo, 0, len(t.nodes))
	for _, n := range t.nodes {
		out = append(out, n.info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Address < out[j].Address })
	return out
}

func (t *NodeTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.nodes)
}

// Expire forgets senders not heard since the given time and returns them
func (t *NodeTable) Expire(since time.Time) []NodeInfo {
	t.mu.Lock()
	var lost []NodeInfo
	for addr, n := range t.nodes {
		if n.info.LastSeen.Before(since) {
			lost = append(lost, n.info)
			delete(t.nodes, addr)
		}
	}
	onLost := t.onLost
	t.mu.Unlock()

	sort.Slice(lost, func(i, j int) bool { return lost[i].Address < lost[j].Address })
	if onLost != nil {
		for _, info := range lost {
			onLost(info)
		}
	}
	return lost
}
