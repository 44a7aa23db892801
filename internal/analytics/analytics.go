package analytics

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"study-tutor/internal/storage"
)

// DailyStats aggregates one day of recorded session operations.
type DailyStats struct {
	Date           string                 `json:"date"`
	TotalEvents    int                    `json:"total_events"`
	Failures       int                    `json:"failures"`
	UniqueUsers    int                    `json:"unique_users"`
	ByKind         map[storage.Kind]int   `json:"by_kind"`
	FailuresByKind map[storage.Kind]int   `json:"failures_by_kind"`
	UserStats      map[int64]UserStats    `json:"user_stats"`
	AvgLatency     map[storage.Kind]int64 `json:"avg_latency_ms,omitempty"`
}

type UserStats struct {
	UserID   int64                `json:"user_id"`
	Events   int                  `json:"events"`
	Failures int                  `json:"failures"`
	ByKind   map[storage.Kind]int `json:"by_kind"`
}

// AnalyzeDailyLogs counts the events that fall on targetDate in its location.
func AnalyzeDailyLogs(events []storage.Event, targetDate time.Time) *DailyStats {
	startOfDay := time.Date(targetDate.Year(), targetDate.Month(), targetDate.Day(), 0, 0, 0, 0, targetDate.Location())
	endOfDay := startOfDay.AddDate(0, 0, 1)

	stats := &DailyStats{
		Date:           startOfDay.Format("2006-01-02"),
		ByKind:         make(map[storage.Kind]int),
		FailuresByKind: make(map[storage.Kind]int),
		UserStats:      make(map[int64]UserStats),
		AvgLatency:     make(map[storage.Kind]int64),
	}
	latency := make(map[storage.Kind]time.Duration)
	timed := make(map[storage.Kind]int)

	for _, event := range events {
		if event.Timestamp.Before(startOfDay) || !event.Timestamp.Before(endOfDay) {
			continue
		}
		if event.Kind == "" {
			continue
		}

		stats.TotalEvents++
		stats.ByKind[event.Kind]++

		userStat, exists := stats.UserStats[event.UserID]
		if !exists {
			userStat = UserStats{UserID: event.UserID, ByKind: make(map[storage.Kind]int)}
		}
		userStat.Events++
		userStat.ByKind[event.Kind]++

		if !event.OK {
			stats.Failures++
			stats.FailuresByKind[event.Kind]++
			userStat.Failures++
		}
		if event.Duration > 0 {
			latency[event.Kind] += event.Duration
			timed[event.Kind]++
		}
		stats.UserStats[event.UserID] = userStat
	}

	for kind, total := range latency {
		stats.AvgLatency[kind] = (total / time.Duration(timed[kind])).Milliseconds()
	}
	stats.UniqueUsers = len(stats.UserStats)
	return stats
}

// GenerateReportSummary renders the plain-text daily report sent to the admin.
func (ds *DailyStats) GenerateReportSummary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Study tutor activity for %s\n\n", ds.Date)
	fmt.Fprintf(&b, "Operations: %d\n", ds.TotalEvents)
	fmt.Fprintf(&b, "Failed: %d\n", ds.Failures)
	fmt.Fprintf(&b, "Active users: %d\n", ds.UniqueUsers)

	if len(ds.ByKind) > 0 {
		b.WriteString("\nBy operation:\n")
		for _, kind := range sortedKinds(ds.ByKind) {
			fmt.Fprintf(&b, "- %s: %d", kind, ds.ByKind[kind])
			if f := ds.FailuresByKind[kind]; f > 0 {
				fmt.Fprintf(&b, " (%d failed)", f)
			}
			if ms, ok := ds.AvgLatency[kind]; ok {
				fmt.Fprintf(&b, ", avg %d ms", ms)
			}
			b.WriteString("\n")
		}
	}

	if len(ds.UserStats) > 0 {
		b.WriteString("\nBy user:\n")
		ids := make([]int64, 0, len(ds.UserStats))
		for id := range ds.UserStats {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		for _, id := range ids {
			us := ds.UserStats[id]
			fmt.Fprintf(&b, "- User %d: %d operations", id, us.Events)
			if us.Failures > 0 {
				fmt.Fprintf(&b, ", %d failed", us.Failures)
			}
			b.WriteString("\n")
		}
	}
	return b.String()
}

func (ds *DailyStats) ToJSON() (string, error) {
	data, err := json.MarshalIndent(ds, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func sortedKinds(m map[storage.Kind]int) []storage.Kind {
	out := make([]storage.Kind, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
