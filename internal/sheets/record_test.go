package sheets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordFloatPermissive(t *testing.T) {
	header := []string{"username", "total_points"}

	tests := []struct {
		name string
		cell string
		want float64
	}{
		{"plain integer", "10", 10},
		{"decimal", "7.5", 7.5},
		{"thousands separator", "1,250", 1250},
		{"whitespace", " 3 ", 3},
		{"empty", "", 0},
		{"garbage", "oops", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := NewRecord(header, []string{"someone", tt.cell})
			assert.Equal(t, tt.want, rec.Float("total_points"))
		})
	}
}

func TestZipRecordsShortRows(t *testing.T) {
	rows := [][]string{
		{"user_id", "username", "total_points"},
		{"1", "alice"},
	}

	records := zipRecords(rows)
	require.Len(t, records, 1)
	assert.Equal(t, "alice", records[0].Get("username"))
	assert.Equal(t, "", records[0].Get("total_points"), "missing cell should be empty")
}

func TestZipRecordsHeaderOnly(t *testing.T) {
	assert.Empty(t, zipRecords([][]string{{"user_id"}}))
	assert.Empty(t, zipRecords(nil))
}

func TestTopByPointsStableDescending(t *testing.T) {
	header := []string{"username", "total_points"}
	records := []Record{
		NewRecord(header, []string{"A", "10"}),
		NewRecord(header, []string{"B", "oops"}),
		NewRecord(header, []string{"C", "5"}),
	}

	top := topByPoints(records, "total_points", 10)
	require.Len(t, top, 3)
	assert.Equal(t, "A", top[0].Get("username"))
	assert.Equal(t, "C", top[1].Get("username"))
	assert.Equal(t, "B", top[2].Get("username"), "unparsable points sort as zero")
}

func TestTopByPointsTiesKeepSheetOrder(t *testing.T) {
	header := []string{"username", "total_points"}
	records := []Record{
		NewRecord(header, []string{"first", "5"}),
		NewRecord(header, []string{"second", "5"}),
		NewRecord(header, []string{"third", "5"}),
	}

	top := topByPoints(records, "total_points", 10)
	require.Len(t, top, 3)
	assert.Equal(t, "first", top[0].Get("username"))
	assert.Equal(t, "second", top[1].Get("username"))
	assert.Equal(t, "third", top[2].Get("username"))
}

func TestTopByPointsTruncates(t *testing.T) {
	header := []string{"username", "total_points"}
	var records []Record
	for i := 0; i < 15; i++ {
		records = append(records, NewRecord(header, []string{"user", "1"}))
	}

	assert.Len(t, topByPoints(records, "total_points", 10), 10)
}

func TestUserPointsAndRank(t *testing.T) {
	header := []string{"user_id", "username", "total_points", "rank"}
	records := []Record{
		NewRecord(header, []string{"100", "alice", "12", "1"}),
		NewRecord(header, []string{"200", "bob", "8.5", "2"}),
	}

	points, rank := userPointsAndRank(records, 200)
	assert.Equal(t, 8.5, points)
	assert.Equal(t, "2", rank)
}

func TestUserPointsAndRankUnknownUser(t *testing.T) {
	header := []string{"user_id", "username", "total_points", "rank"}
	records := []Record{
		NewRecord(header, []string{"100", "alice", "12", "1"}),
	}

	points, rank := userPointsAndRank(records, 999)
	assert.Equal(t, 0.0, points)
	assert.Equal(t, "", rank)
}
