package sheets

import (
	"sort"
	"strconv"
	"strings"
)

// Record is one leaderboard row keyed by the sheet's header. Rows
// shorter than the header get empty strings for the missing columns.
type Record struct {
	headers []string
	values  map[string]string
}

// Headers returns the column names in sheet order.
func (r Record) Headers() []string {
	return r.headers
}

// Get returns the cell under the named column, or "" when the column
// does not exist.
func (r Record) Get(key string) string {
	return r.values[key]
}

// Float parses the cell under the named column as a number. The sheet
// is edited by hand, so anything unparsable counts as zero rather than
// an error. Thousands separators are tolerated.
func (r Record) Float(key string) float64 {
	raw := strings.ReplaceAll(strings.TrimSpace(r.values[key]), ",", "")
	if raw == "" {
		return 0
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0
	}
	return f
}

// NewRecord zips one data row against the header. Missing cells become
// empty strings.
func NewRecord(header, row []string) Record {
	rec := Record{headers: header, values: make(map[string]string, len(header))}
	for i, h := range header {
		if i < len(row) {
			rec.values[h] = row[i]
		} else {
			rec.values[h] = ""
		}
	}
	return rec
}

// zipRecords turns raw sheet rows into Records, treating the first row
// as the header. Fewer than two rows means no data.
func zipRecords(rows [][]string) []Record {
	if len(rows) < 2 {
		return nil
	}
	header := rows[0]
	records := make([]Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		records = append(records, NewRecord(header, row))
	}
	return records
}

// userPointsAndRank finds the first record whose user_id column
// matches userID. The rank is whatever the sheet's rank column says;
// an unknown user gets zero points and an empty rank.
func userPointsAndRank(records []Record, userID int64) (float64, string) {
	id := strconv.FormatInt(userID, 10)
	for _, rec := range records {
		if strings.TrimSpace(rec.Get("user_id")) == id {
			return rec.Float(pointsColumn), strings.TrimSpace(rec.Get("rank"))
		}
	}
	return 0, ""
}

// topByPoints sorts records by the points column, highest first, and
// keeps at most n. The sort is stable so ties keep their sheet order.
func topByPoints(records []Record, column string, n int) []Record {
	sorted := make([]Record, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Float(column) > sorted[j].Float(column)
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}
