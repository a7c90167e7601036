package metrics

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Simple Prometheus-style metrics for the scraping service.
// This is intentionally minimal and in-memory only.

var (
	mu             sync.RWMutex
	requestsTotal  = make(map[reqKey]int64)
	latencyMsSum   = make(map[latKey]int64)
	latencyMsCount = make(map[latKey]int64)

	extractionsTotal = make(map[extractKey]int64)
	jobsFinished     = make(map[string]int64)
	jobsReconciled   int64

	retentionJobsDeleted       int64
	retentionCandidatesDeleted int64
)

type reqKey struct {
	Method string
	Path   string
	Status int
}

type latKey struct {
	Method string
	Path   string
}

type extractKey struct {
	Platform string
	Provider string
	Success  string
}

// RecordRequest increments the request counter and records latency.
func RecordRequest(method, path string, status int, latencyMs int64) {
	mu.Lock()
	defer mu.Unlock()

	requestsTotal[reqKey{Method: method, Path: path, Status: status}]++

	lk := latKey{Method: method, Path: path}
	latencyMsSum[lk] += latencyMs
	latencyMsCount[lk]++
}

// RecordExtraction counts one provider attempt per platform and outcome.
func RecordExtraction(platform, provider string, success bool) {
	mu.Lock()
	defer mu.Unlock()
	extractionsTotal[extractKey{Platform: platform, Provider: provider, Success: boolLabel(success)}]++
}

// RecordJobFinished counts a job reaching a terminal status.
func RecordJobFinished(status string) {
	mu.Lock()
	defer mu.Unlock()
	jobsFinished[status]++
}

// RecordReconciledJobs counts jobs force-failed by the stuck-job sweep.
func RecordReconciledJobs(n int64) {
	mu.Lock()
	defer mu.Unlock()
	jobsReconciled += n
}

// RecordRetentionJobs counts terminal jobs deleted by TTL cleanup.
func RecordRetentionJobs(n int64) {
	mu.Lock()
	defer mu.Unlock()
	retentionJobsDeleted += n
}

// RecordRetentionCandidates counts stale candidates deleted by TTL cleanup.
func RecordRetentionCandidates(n int64) {
	mu.Lock()
	defer mu.Unlock()
	retentionCandidatesDeleted += n
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// Export renders all metrics in Prometheus text exposition format.
func Export() string {
	mu.RLock()
	defer mu.RUnlock()

	var sb strings.Builder

	sb.WriteString("# HELP scrapeadmin_http_requests_total Total HTTP requests.\n")
	sb.WriteString("# TYPE scrapeadmin_http_requests_total counter\n")
	reqKeys := make([]reqKey, 0, len(requestsTotal))
	for k := range requestsTotal {
		reqKeys = append(reqKeys, k)
	}
	sort.Slice(reqKeys, func(i, j int) bool {
		a, b := reqKeys[i], reqKeys[j]
		if a.Method != b.Method {
			return a.Method < b.Method
		}
		if a.Path != b.Path {
			return a.Path < b.Path
		}
		return a.Status < b.Status
	})
	for _, k := range reqKeys {
		sb.WriteString(fmt.Sprintf("scrapeadmin_http_requests_total{method=%q,path=%q,status=\"%d\"} %d\n", k.Method, k.Path, k.Status, requestsTotal[k]))
	}

	sb.WriteString("# HELP scrapeadmin_http_request_latency_ms Request latency in milliseconds.\n")
	sb.WriteString("# TYPE scrapeadmin_http_request_latency_ms summary\n")
	latKeys := make([]latKey, 0, len(latencyMsSum))
	for k := range latencyMsSum {
		latKeys = append(latKeys, k)
	}
	sort.Slice(latKeys, func(i, j int) bool {
		a, b := latKeys[i], latKeys[j]
		if a.Method != b.Method {
			return a.Method < b.Method
		}
		return a.Path < b.Path
	})
	for _, k := range latKeys {
		sb.WriteString(fmt.Sprintf("scrapeadmin_http_request_latency_ms_sum{method=%q,path=%q} %d\n", k.Method, k.Path, latencyMsSum[k]))
		sb.WriteString(fmt.Sprintf("scrapeadmin_http_request_latency_ms_count{method=%q,path=%q} %d\n", k.Method, k.Path, latencyMsCount[k]))
	}

	sb.WriteString("# HELP scrapeadmin_extractions_total Extraction provider attempts.\n")
	sb.WriteString("# TYPE scrapeadmin_extractions_total counter\n")
	extKeys := make([]extractKey, 0, len(extractionsTotal))
	for k := range extractionsTotal {
		extKeys = append(extKeys, k)
	}
	sort.Slice(extKeys, func(i, j int) bool {
		a, b := extKeys[i], extKeys[j]
		if a.Platform != b.Platform {
			return a.Platform < b.Platform
		}
		if a.Provider != b.Provider {
			return a.Provider < b.Provider
		}
		return a.Success < b.Success
	})
	for _, k := range extKeys {
		sb.WriteString(fmt.Sprintf("scrapeadmin_extractions_total{platform=%q,provider=%q,success=%q} %d\n", k.Platform, k.Provider, k.Success, extractionsTotal[k]))
	}

	sb.WriteString("# HELP scrapeadmin_jobs_finished_total Jobs reaching a terminal status.\n")
	sb.WriteString("# TYPE scrapeadmin_jobs_finished_total counter\n")
	statuses := make([]string, 0, len(jobsFinished))
	for s := range jobsFinished {
		statuses = append(statuses, s)
	}
	sort.Strings(statuses)
	for _, s := range statuses {
		sb.WriteString(fmt.Sprintf("scrapeadmin_jobs_finished_total{status=%q} %d\n", s, jobsFinished[s]))
	}

	sb.WriteString("# HELP scrapeadmin_jobs_reconciled_total Jobs force-failed by the stuck-job sweep.\n")
	sb.WriteString("# TYPE scrapeadmin_jobs_reconciled_total counter\n")
	sb.WriteString(fmt.Sprintf("scrapeadmin_jobs_reconciled_total %d\n", jobsReconciled))

	sb.WriteString("# HELP scrapeadmin_retention_deleted_total Records deleted by TTL cleanup.\n")
	sb.WriteString("# TYPE scrapeadmin_retention_deleted_total counter\n")
	sb.WriteString(fmt.Sprintf("scrapeadmin_retention_deleted_total{kind=\"jobs\"} %d\n", retentionJobsDeleted))
	sb.WriteString(fmt.Sprintf("scrapeadmin_retention_deleted_total{kind=\"candidates\"} %d\n", retentionCandidatesDeleted))

	return sb.String()
}
