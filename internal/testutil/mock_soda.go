// Package testutil provides testing utilities for the crimefetch client.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
)

// MockSODA is a configurable mock SODA resource server for testing.
//
// It serves a fixed in-memory dataset, slicing it by $limit/$offset the
// way Socrata does, and answers $select=count(*) queries with the dataset
// size. Individual offsets (or the count query) can be forced to fail.
type MockSODA struct {
	server *httptest.Server
	mu     sync.RWMutex

	dataset     []map[string]any
	failOffsets map[int]int // offset -> HTTP status to return
	failCount   int         // HTTP status for count queries, 0 = succeed
	countBody   string      // overrides the derived count response
	headers     map[string]string

	// Tracking
	RequestCount      int
	CountRequests     int
	DataRequests      int
	ConditionalCount  int
	PageOffsets       []int
	LastRequestHeader http.Header
	LastQuery         map[string]string
}

// NewMockSODA creates a mock server with an empty dataset.
func NewMockSODA() *MockSODA {
	mock := &MockSODA{
		failOffsets: make(map[int]int),
		headers:     make(map[string]string),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(mock.handle))

	return mock
}

// URL returns the mock resource URL.
func (m *MockSODA) URL() string {
	return m.server.URL + "/resource/test.json"
}

// Close shuts down the mock server.
func (m *MockSODA) Close() {
	m.server.Close()
}

// Reset clears tracking counters but keeps the dataset and failure setup.
func (m *MockSODA) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.CountRequests = 0
	m.DataRequests = 0
	m.PageOffsets = nil
	m.LastRequestHeader = nil
	m.LastQuery = nil
}

// SetDataset replaces the served rows.
func (m *MockSODA) SetDataset(rows []map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dataset = rows
}

// SetHeader adds a response header to every data response.
func (m *MockSODA) SetHeader(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.headers[key] = value
}

// FailAtOffset forces data requests at the given offset to return status.
func (m *MockSODA) FailAtOffset(offset, status int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failOffsets[offset] = status
}

// FailCount forces count queries to return status.
func (m *MockSODA) FailCount(status int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failCount = status
}

// SetCountBody overrides the count response body, for malformed-response
// tests.
func (m *MockSODA) SetCountBody(body string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.countBody = body
}

// GetRequestCount returns the total number of requests seen.
func (m *MockSODA) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// GetDataRequests returns the number of non-count requests seen.
func (m *MockSODA) GetDataRequests() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.DataRequests
}

// GetConditionalCount returns the number of conditional requests seen.
func (m *MockSODA) GetConditionalCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ConditionalCount
}

// GetPageOffsets returns the offsets of data requests in arrival order.
func (m *MockSODA) GetPageOffsets() []int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]int, len(m.PageOffsets))
	copy(out, m.PageOffsets)
	return out
}

func (m *MockSODA) handle(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	m.mu.Lock()
	m.RequestCount++
	m.LastRequestHeader = r.Header.Clone()
	m.LastQuery = make(map[string]string)
	for key := range q {
		m.LastQuery[key] = q.Get(key)
	}

	if r.Header.Get("If-None-Match") != "" || r.Header.Get("If-Modified-Since") != "" {
		m.ConditionalCount++
	}

	isCount := q.Get("$select") == "count(*)"
	if isCount {
		m.CountRequests++
	} else {
		m.DataRequests++
		offset, _ := strconv.Atoi(q.Get("$offset"))
		m.PageOffsets = append(m.PageOffsets, offset)
	}

	dataset := m.dataset
	failCount := m.failCount
	countBody := m.countBody
	failStatus := 0
	if !isCount {
		offset, _ := strconv.Atoi(q.Get("$offset"))
		failStatus = m.failOffsets[offset]
	}
	headers := make(map[string]string, len(m.headers))
	for k, v := range m.headers {
		headers[k] = v
	}
	m.mu.Unlock()

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	for k, v := range headers {
		w.Header().Set(k, v)
	}

	// Revalidation: a matching If-None-Match short-circuits to 304.
	if etag := headers["ETag"]; etag != "" && r.Header.Get("If-None-Match") == etag && failStatus == 0 && failCount == 0 {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	if isCount {
		if failCount != 0 {
			w.WriteHeader(failCount)
			fmt.Fprint(w, `{"error":"count failed"}`)
			return
		}
		if countBody != "" {
			fmt.Fprint(w, countBody)
			return
		}
		fmt.Fprintf(w, `[{"count":"%d"}]`, len(dataset))
		return
	}

	if failStatus != 0 {
		w.WriteHeader(failStatus)
		fmt.Fprint(w, `{"error":"simulated failure"}`)
		return
	}

	offset, _ := strconv.Atoi(q.Get("$offset"))
	limit := len(dataset)
	if l := q.Get("$limit"); l != "" {
		limit, _ = strconv.Atoi(l)
	}

	if offset > len(dataset) {
		offset = len(dataset)
	}
	end := offset + limit
	if end > len(dataset) {
		end = len(dataset)
	}

	page := dataset[offset:end]
	if page == nil {
		page = []map[string]any{}
	}
	if err := json.NewEncoder(w).Encode(page); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// MakeRecords generates n sequential test rows with a district and date
// column, newest first.
func MakeRecords(n int) []map[string]any {
	rows := make([]map[string]any, n)
	for i := 0; i < n; i++ {
		rows[i] = map[string]any{
			"dr_no":       fmt.Sprintf("2508%05d", n-i),
			"rpt_dist_no": "645",
			"date_occ":    "2025-08-15T00:00:00.000",
		}
	}
	return rows
}
