package service_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonny/mediq/internal/domain/model"
	"github.com/jonny/mediq/internal/domain/service"
)

func entry(id string, score int) model.HistoryEntry {
	return model.HistoryEntry{ReportID: id, HealthScore: score}
}

func TestHistoryTracker_EvictsOldestFirst(t *testing.T) {
	h := service.NewHistoryTracker(15)
	for i := 1; i <= 16; i++ {
		h.Append(entry(fmt.Sprintf("REP-%02d", i), i))
	}

	got := h.Entries()
	require.Len(t, got, 15)
	assert.Equal(t, "REP-02", got[0].ReportID)
	assert.Equal(t, "REP-16", got[14].ReportID)
	for i := 1; i < len(got); i++ {
		assert.Equal(t, got[i-1].HealthScore+1, got[i].HealthScore, "insertion order broken at %d", i)
	}
}

func TestHistoryTracker_DefaultCapacity(t *testing.T) {
	assert.Equal(t, service.DefaultHistoryCapacity, service.NewHistoryTracker(0).Capacity())
}

func TestHistoryTracker_Trend(t *testing.T) {
	tests := []struct {
		name   string
		scores []int
		want   model.Trend
	}{
		{"empty", nil, model.TrendStable},
		{"single", []int{80}, model.TrendStable},
		{"improving", []int{40, 61}, model.TrendImproving},
		{"declining", []int{90, 100, 61}, model.TrendDeclining},
		{"equal", []int{61, 61}, model.TrendStable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := service.NewHistoryTracker(15)
			for i, s := range tt.scores {
				h.Append(entry(fmt.Sprint(i), s))
			}
			assert.Equal(t, tt.want, h.Trend())
		})
	}
}

func TestHistoryTracker_SeedRespectsCapacity(t *testing.T) {
	h := service.NewHistoryTracker(3)
	h.Seed([]model.HistoryEntry{entry("a", 1), entry("b", 2), entry("c", 3), entry("d", 4)})

	got := h.Entries()
	require.Len(t, got, 3)
	assert.Equal(t, "b", got[0].ReportID)
	assert.Equal(t, model.TrendImproving, h.Trend())
}

func TestHistoryTracker_EntriesIsACopy(t *testing.T) {
	h := service.NewHistoryTracker(2)
	h.Append(entry("a", 1))
	got := h.Entries()
	got[0].ReportID = "changed"
	assert.Equal(t, "a", h.Entries()[0].ReportID)
}

func TestHistoryTracker_ConcurrentAppends(t *testing.T) {
	h := service.NewHistoryTracker(15)
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			h.Append(entry(fmt.Sprint(i), i))
			_ = h.Trend()
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 15, h.Len())
}

func TestHistoryTracker_AppendSnapshotIsConsistent(t *testing.T) {
	h := service.NewHistoryTracker(15)
	var wg sync.WaitGroup
	snaps := make([][]model.HistoryEntry, 50)
	for i := range snaps {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			snaps[i] = h.AppendSnapshot(entry(fmt.Sprint(i), i))
		}(i)
	}
	wg.Wait()

	for i, snap := range snaps {
		require.NotEmpty(t, snap)
		assert.LessOrEqual(t, len(snap), 15)
		assert.Equal(t, fmt.Sprint(i), snap[len(snap)-1].ReportID, "snapshot %d does not end with its own entry", i)
	}
}

func TestMetrics_Snapshot(t *testing.T) {
	m := service.NewMetrics()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.RecordSuccess()
			m.RecordFailure()
			m.RecordOCR()
		}()
	}
	wg.Wait()

	assert.Equal(t, model.SystemMetrics{
		TotalFilesProcessed: 50,
		SuccessfulScans:     50,
		FailedScans:         50,
		OCRExtractions:      50,
	}, m.Snapshot())
}
