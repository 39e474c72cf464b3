package service

import (
	"time"

	"github.com/Shivanand-hulikatti/lets-meet/internal/model"
)

// computeStats tallies, for every candidate time of ev, how many responses
// mark it. The most voted time wins; ties go to the earliest time. Times not
// in the candidate set are ignored, and a response counts at most once per slot.
func computeStats(ev *model.Event, responses []model.AvailabilityResponse) model.EventStats {
	index := make(map[int64]int, len(ev.PotentialDates))
	slots := make([]model.SlotCount, len(ev.PotentialDates))
	for i, d := range ev.PotentialDates {
		index[d.UnixMicro()] = i
		slots[i] = model.SlotCount{Time: d}
	}

	for _, r := range responses {
		seen := make(map[int]bool, len(r.AvailableTimes))
		for _, t := range r.AvailableTimes {
			i, ok := index[t.UnixMicro()]
			if !ok || seen[i] {
				continue
			}
			seen[i] = true
			slots[i].Count++
		}
	}

	stats := model.EventStats{
		TotalResponses: len(responses),
		Slots:          slots,
	}
	var best *model.SlotCount
	for i := range slots {
		s := &slots[i]
		if s.Count == 0 {
			continue
		}
		if best == nil || s.Count > best.Count || (s.Count == best.Count && s.Time.Before(best.Time)) {
			best = s
		}
	}
	if best != nil {
		t := best.Time
		stats.MostPopularTime = &t
		stats.AvailablePeople = best.Count
	}
	return stats
}

// normalizeTime puts t in UTC at the precision every store keeps.
func normalizeTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}
