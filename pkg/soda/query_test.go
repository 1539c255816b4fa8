package soda

import (
	"strings"
	"testing"
)

func TestFilter_Where(t *testing.T) {
	tests := []struct {
		name   string
		filter Filter
		want   string
	}{
		{
			name: "single district",
			filter: Filter{
				Districts: []string{"645"},
				StartDate: "2025-07-26",
				EndDate:   "2025-08-25",
			},
			want: "rpt_dist_no IN ('645') AND date_occ >= '2025-07-26' AND date_occ <= '2025-08-25'",
		},
		{
			name: "multiple districts",
			filter: Filter{
				Districts: []string{"645", "646", "647"},
				StartDate: "2025-01-01",
				EndDate:   "2025-01-31",
			},
			want: "rpt_dist_no IN ('645', '646', '647') AND date_occ >= '2025-01-01' AND date_occ <= '2025-01-31'",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.filter.Where()
			if got != tt.want {
				t.Errorf("Where() = %q, want %q", got, tt.want)
			}
		})
	}
}

// Every district code must appear exactly once and both boundary dates
// must be present, for any non-empty district set.
func TestFilter_Where_Properties(t *testing.T) {
	filter := Filter{
		Districts: []string{"645", "646", "666", "676"},
		StartDate: "2025-07-26",
		EndDate:   "2025-08-25",
	}

	where := filter.Where()

	for _, district := range filter.Districts {
		if n := strings.Count(where, "'"+district+"'"); n != 1 {
			t.Errorf("district %s appears %d times, want 1", district, n)
		}
	}

	if !strings.Contains(where, filter.StartDate) {
		t.Errorf("clause %q missing start date %s", where, filter.StartDate)
	}
	if !strings.Contains(where, filter.EndDate) {
		t.Errorf("clause %q missing end date %s", where, filter.EndDate)
	}
}

func TestQuery_Values(t *testing.T) {
	tests := []struct {
		name  string
		query Query
		want  map[string]string
		omit  []string
	}{
		{
			name:  "count query",
			query: Query{Select: "count(*)", Where: "x = '1'"},
			want: map[string]string{
				"$select": "count(*)",
				"$where":  "x = '1'",
			},
			omit: []string{"$order", "$limit", "$offset"},
		},
		{
			name:  "bulk query",
			query: Query{Where: "x = '1'", Order: OrderNewestFirst, Limit: 50000},
			want: map[string]string{
				"$where": "x = '1'",
				"$order": "date_occ DESC",
				"$limit": "50000",
			},
			omit: []string{"$select", "$offset"},
		},
		{
			name:  "page query with offset",
			query: Query{Where: "x = '1'", Order: OrderNewestFirst, Limit: 1000, Offset: 2000},
			want: map[string]string{
				"$limit":  "1000",
				"$offset": "2000",
			},
		},
		{
			name:  "zero offset omitted",
			query: Query{Limit: 1000, Offset: 0},
			want:  map[string]string{"$limit": "1000"},
			omit:  []string{"$offset"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values := tt.query.Values()

			for key, want := range tt.want {
				if got := values.Get(key); got != want {
					t.Errorf("Values()[%s] = %q, want %q", key, got, want)
				}
			}
			for _, key := range tt.omit {
				if values.Has(key) {
					t.Errorf("Values() unexpectedly contains %s=%q", key, values.Get(key))
				}
			}
		})
	}
}
