package httpapi

import (
	"fmt"
	"sort"
	"time"

	"github.com/arguslabs/argus-go/internal/registry"
	"github.com/arguslabs/argus-go/internal/types"
)

// StatusResponse is the GET <base_url>/status payload.
type StatusResponse struct {
	Name      string         `json:"name"`
	Timestamp string         `json:"timestamp"`
	Groups    []StatusGroup  `json:"groups"`
}

// StatusGroup mirrors one destination group inside StatusResponse.
type StatusGroup struct {
	Name     string          `json:"name"`
	Monitors []StatusMonitor `json:"monitors"`
}

// StatusMonitor mirrors one destination's current state.
type StatusMonitor struct {
	ID             string  `json:"id"`
	Service        string  `json:"service"`
	Host           string  `json:"host"`
	Status         string  `json:"status"`
	ResponseTime   string  `json:"response_time"`
	ResponseTimeMS int64   `json:"response_time_ms"`
	UptimePercent  float64 `json:"uptime_percent"`
	LastCheck      string  `json:"last_check"`
	Details        string  `json:"details"`

	sortKey int // not serialized; used to order monitors within a group
}

const statusTimeLayout = "2006-01-02 15:04:05"

// buildStatus assembles the status JSON view of the registry, groups
// ascending by sort_key, monitors inside a group ascending by their own
// sort_key.
func buildStatus(name string, reg *registry.Registry) StatusResponse {
	byGroup := make(map[string]*StatusGroup)
	groupSort := make(map[string]int)
	var groupOrder []string

	for _, e := range reg.Entries() {
		g, ok := byGroup[e.Group.GroupName]
		if !ok {
			g = &StatusGroup{Name: e.Group.GroupName}
			byGroup[e.Group.GroupName] = g
			groupSort[e.Group.GroupName] = e.Group.SortKey
			groupOrder = append(groupOrder, e.Group.GroupName)
		}
		g.Monitors = append(g.Monitors, buildMonitor(e))
	}

	sort.SliceStable(groupOrder, func(i, j int) bool {
		return groupSort[groupOrder[i]] < groupSort[groupOrder[j]]
	})

	resp := StatusResponse{
		Name:      name,
		Timestamp: time.Now().Format(statusTimeLayout),
	}
	for _, name := range groupOrder {
		g := byGroup[name]
		sort.SliceStable(g.Monitors, func(i, j int) bool {
			return g.Monitors[i].sortKey < g.Monitors[j].sortKey
		})
		resp.Groups = append(resp.Groups, *g)
	}
	return resp
}

func buildMonitor(e *registry.Entry) StatusMonitor {
	last := e.State.Last()
	lastCheck := "Never"
	responseTime := "N/A"
	if !last.At.IsZero() {
		lastCheck = last.At.Format(statusTimeLayout)
		responseTime = fmt.Sprintf("%dms", last.DurationMS)
	}

	m := StatusMonitor{
		ID:             e.TestID,
		Service:        e.Destination.Name,
		Host:           e.Destination.Test.HostValue(),
		Status:         statusName(e.State.Status()),
		ResponseTime:   responseTime,
		ResponseTimeMS: last.DurationMS,
		UptimePercent:  e.State.UptimePercent(),
		LastCheck:      lastCheck,
		Details:        e.State.TestDescription(),
	}
	m.sortKey = e.Destination.SortKey
	return m
}

func statusName(s types.Status) string {
	switch s {
	case types.StatusOK:
		return "OK"
	case types.StatusWarning:
		return "WARNING"
	case types.StatusFailure:
		return "FAILURE"
	default:
		return "PENDING"
	}
}
