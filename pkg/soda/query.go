package soda

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Column names in the LA City crime dataset.
const (
	districtColumn = "rpt_dist_no"
	dateColumn     = "date_occ"
)

// OrderNewestFirst sorts results by occurrence date descending. All data
// queries use this ordering so paginated pages line up with bulk results.
const OrderNewestFirst = dateColumn + " DESC"

// Record is a single dataset row. The shape is whatever the remote schema
// returns; no fixed schema is enforced locally.
type Record map[string]any

// RecordSet is an ordered sequence of rows in API response order.
type RecordSet []Record

// Filter restricts which dataset rows a query considers.
//
// Districts must be non-empty and StartDate/EndDate are inclusive ISO-8601
// dates with StartDate <= EndDate. Both are validated at config load, not
// here.
type Filter struct {
	Districts []string
	StartDate string
	EndDate   string
}

// Where builds the SoQL WHERE clause for the filter.
//
// District codes are interpolated verbatim. A code containing a single
// quote yields a malformed clause; codes are trusted configuration input
// and are not escaped.
func (f Filter) Where() string {
	districtList := strings.Join(f.Districts, "', '")
	return fmt.Sprintf("%s IN ('%s') AND %s >= '%s' AND %s <= '%s'",
		districtColumn, districtList, dateColumn, f.StartDate, dateColumn, f.EndDate)
}

// Query holds the SODA $-parameters for a single request.
type Query struct {
	Select string
	Where  string
	Order  string
	Limit  int
	Offset int
}

// Values encodes the query as SODA request parameters. Zero values are
// omitted; an offset of 0 is equivalent to no offset.
func (q Query) Values() url.Values {
	v := url.Values{}
	if q.Select != "" {
		v.Set("$select", q.Select)
	}
	if q.Where != "" {
		v.Set("$where", q.Where)
	}
	if q.Order != "" {
		v.Set("$order", q.Order)
	}
	if q.Limit > 0 {
		v.Set("$limit", strconv.Itoa(q.Limit))
	}
	if q.Offset > 0 {
		v.Set("$offset", strconv.Itoa(q.Offset))
	}
	return v
}
