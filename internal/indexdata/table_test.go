package indexdata

import (
	"encoding/json"
	"math/rand"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func simpleTable() *Table {
	return FromRecords([]string{"DAX", "SP500"}, map[string]Record{
		"20150501": {"DAX": "1", "SP500": "600"},
		"20150502": {"DAX": "2", "SP500": "1200"},
	})
}

// generateRecords returns n consecutive days starting at start, each with a
// random DAX and SP500 value.
func generateRecords(t *testing.T, n int, start string) map[string]Record {
	t.Helper()
	day, err := time.Parse(DateLayout, start)
	require.NoError(t, err)

	records := make(map[string]Record, n)
	for i := 0; i < n; i++ {
		records[day.Format(DateLayout)] = Record{
			"DAX":   strconv.Itoa(rand.Intn(1000) + 1),
			"SP500": strconv.Itoa(rand.Intn(1000) + 1),
		}
		day = day.AddDate(0, 0, 1)
	}
	return records
}

func mustParse(t *testing.T, input string) *Sheet {
	t.Helper()
	sheet, err := ParseCSV(strings.NewReader(input))
	require.NoError(t, err)
	return sheet
}

func assertSortedDescending(t *testing.T, table *Table) {
	t.Helper()
	dates := table.Dates()
	for i := 0; i+1 < len(dates); i++ {
		assert.GreaterOrEqual(t, dates[i], dates[i+1], "dates %d and %d out of order", i, i+1)
	}
}

func TestGenerateRecords(t *testing.T) {
	records := generateRecords(t, 60, "20180101")
	assert.Contains(t, records, "20180301")
	assert.NotContains(t, records, "20180302")
}

func TestLoad(t *testing.T) {
	table, err := Load(strings.NewReader("Date,DAX,SP500\n20150501,1,600\n20150503,3,1800\n20150502,2,1200\n"))
	require.NoError(t, err)

	assert.Equal(t, 3, table.Len())
	assert.Equal(t, []string{"DAX", "SP500"}, table.Indices())
	assert.Equal(t, []string{"20150503", "20150502", "20150501"}, table.Dates())
}

func TestLoad_ShortRowFails(t *testing.T) {
	table, err := Load(strings.NewReader("Date,DAX,SP500\n20150501,1\n"))
	assert.ErrorIs(t, err, ErrMalformedInput)
	assert.Nil(t, table)
}

func TestMerge(t *testing.T) {
	t.Run("inserts new dates and keeps order", func(t *testing.T) {
		base := simpleTable()
		merged := base.Merge(mustParse(t, "Date,DAX,SP500\n20211130,132345,762190\n20211129,132000,761000\n20150430,0,599\n"))

		assert.Equal(t, 5, merged.Len())
		assertSortedDescending(t, merged)
		assert.Equal(t, "20211130", merged.Dates()[0])
		assert.Equal(t, "20150430", merged.Dates()[4])
	})

	t.Run("receiver is untouched", func(t *testing.T) {
		base := simpleTable()
		before := base.Entries()

		_ = base.Merge(mustParse(t, "Date,DAX,SP500,NIKKEI\n20150501,9,9,9\n20160101,1,1,1\n"))

		assert.Equal(t, before, base.Entries())
		assert.Equal(t, []string{"DAX", "SP500"}, base.Indices())
	})

	t.Run("row replaces the whole record", func(t *testing.T) {
		merged := simpleTable().Merge(mustParse(t, "Date,DAX\n20150501,100\n"))

		rec, err := merged.Get("20150501")
		require.NoError(t, err)
		assert.Equal(t, Record{"DAX": "100"}, rec)

		_, err = merged.Value("20150501", "SP500")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("new index names are appended", func(t *testing.T) {
		merged := simpleTable().Merge(mustParse(t, "Date,NIKKEI,DAX,FTSE\n20150503,1,2,3\n"))
		assert.Equal(t, []string{"DAX", "SP500", "NIKKEI", "FTSE"}, merged.Indices())

		again := merged.Merge(mustParse(t, "Date,DAX\n20150504,5\n"))
		assert.Equal(t, []string{"DAX", "SP500", "NIKKEI", "FTSE"}, again.Indices())
	})

	t.Run("merging the same sheet twice keeps the size", func(t *testing.T) {
		sheet := mustParse(t, "Date,DAX,SP500\n20211130,132345,762190\n20211129,132000,761000\n20211128,131000,760000\n")
		once := simpleTable().Merge(sheet)
		twice := once.Merge(sheet)

		assert.Equal(t, 5, once.Len())
		assert.Equal(t, once.Len(), twice.Len())
		assert.Equal(t, once.Entries(), twice.Entries())
	})

	t.Run("later row wins within one upload", func(t *testing.T) {
		merged := New().Merge(mustParse(t, "Date,DAX\n20150501,1\n20150501,2\n"))
		assert.Equal(t, 1, merged.Len())
		v, err := merged.Value("20150501", "DAX")
		require.NoError(t, err)
		assert.Equal(t, "2", v)
	})

	t.Run("random uploads stay sorted", func(t *testing.T) {
		table := New()
		for i := 0; i < 5; i++ {
			var b strings.Builder
			b.WriteString("Date,DAX\n")
			for date, rec := range generateRecords(t, 40, time.Date(2000+i, time.Month(rand.Intn(12)+1), 1, 0, 0, 0, 0, time.UTC).Format(DateLayout)) {
				b.WriteString(date + "," + rec["DAX"] + "\n")
			}
			table = table.Merge(mustParse(t, b.String()))
			assertSortedDescending(t, table)
		}
	})
}

func TestGetAndValue(t *testing.T) {
	table := simpleTable()

	rec, err := table.Get("20150502")
	require.NoError(t, err)
	assert.Equal(t, Record{"DAX": "2", "SP500": "1200"}, rec)

	rec["DAX"] = "mutated"
	v, err := table.Value("20150502", "DAX")
	require.NoError(t, err)
	assert.Equal(t, "2", v, "returned records must be copies")

	_, err = table.Get("19990101")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = table.Value("20150502", "NIKKEI")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.True(t, table.Has("20150501"))
	assert.False(t, table.Has("20150503"))
}

func TestNilTable(t *testing.T) {
	var table *Table
	assert.Equal(t, 0, table.Len())
	assert.Empty(t, table.Dates())
	assert.Empty(t, table.Entries())
	_, err := table.Get("20150501")
	assert.ErrorIs(t, err, ErrNotFound)

	merged := table.Merge(mustParse(t, "Date,DAX\n20150501,1\n"))
	assert.Equal(t, 1, merged.Len())
}

func TestFromRecords_CollectsUnlistedIndices(t *testing.T) {
	table := FromRecords([]string{"DAX"}, map[string]Record{
		"20150501": {"DAX": "1", "SP500": "600", "CAC": "5"},
	})
	assert.Equal(t, []string{"DAX", "CAC", "SP500"}, table.Indices())
}

func TestTable_MarshalJSON(t *testing.T) {
	data, err := json.Marshal(simpleTable())
	require.NoError(t, err)
	assert.Equal(t, `{"20150502":{"DAX":"2","SP500":"1200"},"20150501":{"DAX":"1","SP500":"600"}}`, string(data))

	data, err = json.Marshal(New())
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(data))
}
