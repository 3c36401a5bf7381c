package indexdata

import (
	"encoding/json"
	"fmt"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaginate_PageCounts(t *testing.T) {
	tests := []struct {
		entries int
		pages   int
	}{
		{0, 0}, {1, 1}, {29, 1}, {30, 1}, {31, 2}, {60, 2},
		{61, 3}, {88, 3}, {89, 3}, {90, 3}, {91, 4},
		{1412, 48},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d entries", tt.entries), func(t *testing.T) {
			table := FromRecords([]string{"DAX", "SP500"}, generateRecords(t, tt.entries, "20180101"))

			for _, index := range []string{"DAX", AllIndices} {
				pages, err := Paginate(table, index)
				require.NoError(t, err)
				assert.Len(t, pages, tt.pages)
				assert.Equal(t, tt.pages, PageCount(tt.entries))

				var dates []string
				for i, page := range pages {
					assert.Equal(t, i+1, page.Number)
					assert.LessOrEqual(t, len(page.Entries), PageSize)
					if i < len(pages)-1 {
						assert.Len(t, page.Entries, PageSize)
					}
					for _, e := range page.Entries {
						dates = append(dates, e.Date)
					}
				}
				if tt.entries == 0 {
					assert.Empty(t, dates)
					continue
				}
				assert.Equal(t, table.Dates(), dates)
			}
		})
	}
}

func TestPaginate_Projection(t *testing.T) {
	table := simpleTable()

	values := func(index string) []any {
		pages, err := Paginate(table, index)
		require.NoError(t, err)
		var out []any
		for _, page := range pages {
			for _, e := range page.Entries {
				out = append(out, e.Value)
			}
		}
		return out
	}

	// table order is descending by date
	assert.Equal(t, []any{"2", "1"}, values("DAX"))
	assert.Equal(t, []any{"1200", "600"}, values("SP500"))

	ascending := values("DAX")
	slices.Reverse(ascending)
	assert.Equal(t, []any{"1", "2"}, ascending, "per-date values are not shuffled")
	assert.Equal(t, []any{
		Record{"DAX": "2", "SP500": "1200"},
		Record{"DAX": "1", "SP500": "600"},
	}, values(AllIndices))
}

func TestPaginate_ProjectionFollowsTableOrder(t *testing.T) {
	records := generateRecords(t, 20, "20180101")
	table := FromRecords([]string{"DAX", "SP500"}, records)

	pages, err := Paginate(table, "SP500")
	require.NoError(t, err)
	require.Len(t, pages, 1)

	var want []any
	for _, date := range table.Dates() {
		want = append(want, records[date]["SP500"])
	}
	var got []any
	for _, e := range pages[0].Entries {
		got = append(got, e.Value)
	}
	assert.Equal(t, want, got)
}

func TestPaginate_MissingIndexFails(t *testing.T) {
	table := simpleTable().Merge(mustParse(t, "Date,DAX\n20150503,3\n"))

	pages, err := Paginate(table, "SP500")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Nil(t, pages)

	_, err = Paginate(table, "UNKNOWN")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPaginate_DoesNotMutate(t *testing.T) {
	table := simpleTable()
	before := table.Entries()

	pages, err := Paginate(table, AllIndices)
	require.NoError(t, err)
	pages[0].Entries[0].Value.(Record)["DAX"] = "mutated"

	assert.Equal(t, before, table.Entries())
	assert.Equal(t, []string{"20150502", "20150501"}, table.Dates())
}

func TestPage_MarshalJSON(t *testing.T) {
	pages, err := Paginate(simpleTable(), "DAX")
	require.NoError(t, err)

	data, err := json.Marshal(pages)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"1":[["20150502","2"],["20150501","1"]]}]`, string(data))

	pages, err = Paginate(simpleTable(), AllIndices)
	require.NoError(t, err)
	data, err = json.Marshal(pages)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"1":[["20150502",{"DAX":"2","SP500":"1200"}],["20150501",{"DAX":"1","SP500":"600"}]]}]`, string(data))

	data, err = json.Marshal(Page{Number: 3})
	require.NoError(t, err)
	assert.JSONEq(t, `{"3":[]}`, string(data))
}

func TestPaginate_EmptyTableEncodesAsEmptyList(t *testing.T) {
	pages, err := Paginate(New(), AllIndices)
	require.NoError(t, err)

	data, err := json.Marshal(pages)
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(data))
}
