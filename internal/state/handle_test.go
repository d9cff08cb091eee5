// Eden - Autonomous Farm Controller
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eden

package state

import (
	"fmt"
	"sync"
	"testing"

	"github.com/tomtom215/eden/internal/models"
)

func TestHandleEmpty(t *testing.T) {
	t.Parallel()

	h := NewHandle()
	if s, ok := h.Current(); ok || s != nil {
		t.Errorf("Current() on empty handle = %v, %v", s, ok)
	}
	h.Publish(nil)
	if _, ok := h.Current(); ok {
		t.Error("Publish(nil) should be ignored")
	}
}

func TestHandlePublishCopies(t *testing.T) {
	t.Parallel()

	h := NewHandle()
	s := &models.Snapshot{Cycle: 1, Actions: []string{"irrigate"}}
	h.Publish(s)

	s.Actions[0] = "mutated"
	s.Cycle = 99

	got, ok := h.Current()
	if !ok {
		t.Fatal("Current() ok = false after Publish")
	}
	if got.Cycle != 1 || got.Actions[0] != "irrigate" {
		t.Errorf("published snapshot was mutated through caller: %+v", got)
	}
}

// consistentSnapshot encodes the cycle number into every field so a torn
// read would show mismatched values.
func consistentSnapshot(n uint64) *models.Snapshot {
	tag := fmt.Sprintf("cycle-%d", n)
	return &models.Snapshot{
		Cycle:              n,
		Reading:            &models.SensorReading{SoilMoisture: int(n % 101), WaterLevel: int(n)},
		Livestock:          []models.LivestockEntry{{ID: int(n) + 1, Species: tag}},
		Actions:            []string{tag, tag},
		AvgSoilMoisture24h: float64(n),
		AvgTemperature24h:  float64(n),
		SoilMoistureTrend:  []models.TrendPoint{{Value: float64(n)}},
	}
}

func checkConsistent(s *models.Snapshot) error {
	n := s.Cycle
	tag := fmt.Sprintf("cycle-%d", n)
	switch {
	case s.Reading == nil || s.Reading.WaterLevel != int(n):
		return fmt.Errorf("reading from another cycle: %+v", s.Reading)
	case len(s.Livestock) != 1 || s.Livestock[0].Species != tag:
		return fmt.Errorf("livestock from another cycle: %+v", s.Livestock)
	case len(s.Actions) != 2 || s.Actions[0] != tag || s.Actions[1] != tag:
		return fmt.Errorf("actions from another cycle: %q", s.Actions)
	case s.AvgSoilMoisture24h != float64(n) || s.AvgTemperature24h != float64(n):
		return fmt.Errorf("aggregates from another cycle")
	case len(s.SoilMoistureTrend) != 1 || s.SoilMoistureTrend[0].Value != float64(n):
		return fmt.Errorf("trend from another cycle")
	}
	return nil
}

func TestHandleConcurrentReadersNeverSeeTornSnapshots(t *testing.T) {
	t.Parallel()

	const (
		cycles  = 2000
		readers = 8
	)

	h := NewHandle()
	var wg sync.WaitGroup
	done := make(chan struct{})
	errs := make(chan error, readers)

	for i := 0; i < readers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var last uint64
			for {
				select {
				case <-done:
					return
				default:
				}
				s, ok := h.Current()
				if !ok {
					continue
				}
				if err := checkConsistent(s); err != nil {
					errs <- err
					return
				}
				if s.Cycle < last {
					errs <- fmt.Errorf("cycle went backwards: %d after %d", s.Cycle, last)
					return
				}
				last = s.Cycle
			}
		}()
	}

	for n := uint64(1); n <= cycles; n++ {
		h.Publish(consistentSnapshot(n))
	}
	close(done)
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}

	final, ok := h.Current()
	if !ok || final.Cycle != cycles {
		t.Errorf("final snapshot = %+v, want cycle %d", final, cycles)
	}
}
