package gateway

import (
	"math"
	"testing"
	"time"
)

func TestRSSISmoother(t *testing.T) {
	s := NewRSSISmoother()
	steps := []struct {
		in, want float64
	}{
		{-60, -60},
		{-62, -60.4},  // small step, slow
		{-90, -81.12}, // large step, fast
	}
	for i, step := range steps {
		if got := s.Update(step.in); math.Abs(got-step.want) > 1e-9 {
			t.Errorf("step %d: Update(%v) = %v, want %v", i, step.in, got, step.want)
		}
	}
	if math.Abs(s.Value()-(-81.12)) > 1e-9 {
		t.Errorf("Value = %v", s.Value())
	}
}

func TestNodeTableUpdate(t *testing.T) {
	table := NewNodeTable()
	var added []uint8
	table.SetCallbacks(func(n NodeInfo) { added = append(added, n.Address) }, nil)

	t0 := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	table.Update(Record{Time: t0, Sender: 0x21, RSSI: -70, LQI: 5})
	table.Update(Record{Time: t0.Add(time.Second), Sender: 0x21, RSSI: -50, LQI: 3})
	table.Update(Record{Time: t0.Add(2 * time.Second), Sender: 0x05, RSSI: -90})

	if len(added) != 2 || added[0] != 0x21 || added[1] != 0x05 {
		t.Errorf("onNew calls %X", added)
	}

	n, ok := table.Get(0x21)
	if !ok {
		t.Fatal("0x21 not tracked")
	}
	if n.Packets != 2 || n.LastRSSI != -50 || n.MaxRSSI != -50 || n.LQI != 3 {
		t.Errorf("entry %+v", n)
	}
	if !n.FirstSeen.Equal(t0) || !n.LastSeen.Equal(t0.Add(time.Second)) {
		t.Errorf("seen %v..%v", n.FirstSeen, n.LastSeen)
	}
	// 20dB step follows fast: -70 + 20*0.7
	if math.Abs(n.RSSI-(-56)) > 1e-9 {
		t.Errorf("smoothed RSSI %v", n.RSSI)
	}

	all := table.All()
	if len(all) != 2 || all[0].Address != 0x05 || all[1].Address != 0x21 {
		t.Errorf("All %+v", all)
	}
}

func TestNodeTableExpire(t *testing.T) {
	table := NewNodeTable()
	var lost []uint8
	table.SetCallbacks(nil, func(n NodeInfo) { lost = append(lost, n.Address) })

	t0 := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	table.Update(Record{Time: t0, Sender: 0x30})
	table.Update(Record{Time: t0, Sender: 0x10})
	table.Update(Record{Time: t0.Add(time.Minute), Sender: 0x21})

	gone := table.Expire(t0.Add(30 * time.Second))
	if len(gone) != 2 || gone[0].Address != 0x10 || gone[1].Address != 0x30 {
		t.Errorf("expired %+v", gone)
	}
	if len(lost) != 2 {
		t.Errorf("onLost calls %X", lost)
	}
	if table.Len() != 1 {
		t.Errorf("Len = %d", table.Len())
	}
	if _, ok := table.Get(0x10); ok {
		t.Error("0x10 still tracked")
	}
	if gone := table.Expire(t0); len(gone) != 0 {
		t.Errorf("second expire %+v", gone)
	}
}
