package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/go-openapi/testify/v2/assert"
	"github.com/go-openapi/testify/v2/require"
)

const sampleChart = `{
  "title": "Falls per 1000 patient days",
  "chart_type": "line",
  "x_axis_type": "date",
  "frequency": "monthly",
  "auto_crop": "true",
  "goal": 2.5,
  "labels": {"2013-01-01": "Jan 2013"},
  "series": [
    {
      "title": "Unit A",
      "color": "#ff0000",
      "show_trend": "true",
      "break_lines": true,
      "display_format": "%.2f",
      "data": [
        ["2013-01-01", {"key": "2013-01-01", "value": 1.5, "title": "January", "note": "baseline", "uri": "http://example.org/a"}],
        ["2013-02-01T00:00:00", {"key": "2013-02-01", "value": {}}],
        ["2013-03-01", {"key": "2013-03-01", "value": null}]
      ]
    },
    {
      "title": "Unit B",
      "data": []
    }
  ]
}`

func TestDecodeChartDescriptor(t *testing.T) {
	var d ChartDescriptor
	require.NoError(t, json.Unmarshal([]byte(sampleChart), &d))

	assert.Equal(t, ChartLine, d.Type())
	assert.True(t, d.IsTimeSeries())
	assert.True(t, bool(d.AutoCrop))
	require.NotNil(t, d.Goal)
	assert.InDelta(t, 2.5, *d.Goal, 1e-9)
	require.Len(t, d.Series, 2)

	s := d.Series[0]
	assert.True(t, bool(s.ShowTrend))
	assert.True(t, bool(s.BreakLines))
	require.Len(t, s.Data, 3)

	first := s.Data[0]
	assert.True(t, first.Key.IsDate())
	assert.Equal(t, time.Date(2013, time.January, 1, 0, 0, 0, 0, time.UTC), first.Key.Date)
	assert.Equal(t, Num(1.5), first.Point.Value)
	assert.Equal(t, "January", first.Point.Title)
	assert.Equal(t, "baseline", first.Point.Note)

	// {} sentinel and null both decode to null
	assert.True(t, s.Data[1].Point.Value.IsNull())
	assert.True(t, s.Data[2].Point.Value.IsNull())

	// datetime keys share identity with date keys
	assert.Equal(t, DateKey(time.Date(2013, time.February, 1, 0, 0, 0, 0, time.UTC)).Ident(), s.Data[1].Key.Ident())

	rendered := d.Rendered()
	require.Len(t, rendered, 1)
	assert.Equal(t, "Unit A", rendered[0].Title)
}

func TestValueDecoding(t *testing.T) {
	tests := []struct {
		input string
		want  Value
	}{
		{`1.25`, Num(1.25)},
		{`0`, Num(0)},
		{`null`, Null},
		{`{}`, Null},
		{`"3.5"`, Num(3.5)},
		{`"n/a"`, Null},
		{`"NaN"`, Null},
		{`[1]`, Null},
		{`true`, Null},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			var v Value
			require.NoError(t, json.Unmarshal([]byte(tt.input), &v))
			assert.Equal(t, tt.want, v)
		})
	}
}

func TestValueEncoding(t *testing.T) {
	buf, err := json.Marshal([]Value{Num(2), Null})
	require.NoError(t, err)
	assert.JSONEq(t, `[2, null]`, string(buf))

	assert.Equal(t, "null", Null.String())
	assert.Equal(t, "2.0", Num(2).String())
}

func TestFlagDecoding(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{`true`, true},
		{`false`, false},
		{`"true"`, true},
		{`"false"`, false},
		{`"maybe"`, false},
		{`1`, true},
		{`null`, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			var f Flag
			require.NoError(t, json.Unmarshal([]byte(tt.input), &f))
			assert.Equal(t, tt.want, bool(f))
		})
	}
}

func TestKeys(t *testing.T) {
	t.Run("category keys", func(t *testing.T) {
		var k Key
		require.NoError(t, json.Unmarshal([]byte(`"North wing"`), &k))
		assert.False(t, k.IsDate())
		assert.Equal(t, "North wing", k.Ident())

		require.NoError(t, json.Unmarshal([]byte(`42`), &k))
		assert.Equal(t, "42", k.Name)
		assert.False(t, k.IsDate())
	})

	t.Run("date ordering", func(t *testing.T) {
		jan := DateKey(time.Date(2013, time.January, 1, 0, 0, 0, 0, time.UTC))
		feb := DateKey(time.Date(2013, time.February, 1, 0, 0, 0, 0, time.UTC))
		assert.True(t, jan.Less(feb))
		assert.False(t, feb.Less(jan))
		assert.Equal(t, "2013-01-01", jan.Name)
	})

	t.Run("parse key", func(t *testing.T) {
		k := ParseKey("2013-02-01T00:00:00")
		require.True(t, k.IsDate())
		assert.Equal(t, DateKey(time.Date(2013, time.February, 1, 0, 0, 0, 0, time.UTC)).Ident(), k.Ident())
		assert.Equal(t, "2013-02-01T00:00:00", k.Name)

		assert.Equal(t, CategoryKey("east"), ParseKey("east"))
	})

	t.Run("round trip pair", func(t *testing.T) {
		pair := DataPair{Key: CategoryKey("a"), Point: Point{Value: Num(1), Title: "A"}}
		buf, err := json.Marshal(pair)
		require.NoError(t, err)

		var back DataPair
		require.NoError(t, json.Unmarshal(buf, &back))
		assert.Equal(t, pair, back)
	})

	t.Run("bad pair", func(t *testing.T) {
		var pair DataPair
		require.Error(t, json.Unmarshal([]byte(`["a"]`), &pair))
	})

	t.Run("missing title is derived from key", func(t *testing.T) {
		var pair DataPair
		require.NoError(t, json.Unmarshal([]byte(`["north wing", {"value": 1}]`), &pair))
		assert.Equal(t, "North Wing", pair.Point.Title)
	})
}

func TestParseDate(t *testing.T) {
	for _, input := range []string{
		"2013-04-01",
		"2013-04-01T00:00:00",
		"2013-04-01T00:00:00Z",
		"2013-04-01 00:00:00",
	} {
		d, err := ParseDate(input)
		require.NoError(t, err, input)
		assert.Equal(t, time.Date(2013, time.April, 1, 0, 0, 0, 0, time.UTC), d, input)
	}

	_, err := ParseDate("April 1st")
	require.Error(t, err)

	var d ChartDescriptor
	d.Start = "2012-12-01"
	start, ok := d.StartDate()
	assert.True(t, ok)
	assert.Equal(t, 2012, start.Year())
	_, ok = d.EndDate()
	assert.False(t, ok)
}

func TestLookup(t *testing.T) {
	var d ChartDescriptor
	require.NoError(t, json.Unmarshal([]byte(sampleChart), &d))

	p, ok := d.Series[0].Lookup(DateKey(time.Date(2013, time.January, 1, 0, 0, 0, 0, time.UTC)))
	require.True(t, ok)
	assert.Equal(t, Num(1.5), p.Value)

	_, ok = d.Series[0].Lookup(CategoryKey("missing"))
	assert.False(t, ok)
}

func TestDecodeReport(t *testing.T) {
	t.Run("keyed object keeps order", func(t *testing.T) {
		var r Report
		require.NoError(t, json.Unmarshal([]byte(`{
			"uid-2": {"title": "second", "series": []},
			"uid-1": {"title": "first", "series": []}
		}`), &r))
		require.Len(t, r, 2)
		assert.Equal(t, "uid-2", r[0].UID)
		assert.Equal(t, "second", r[0].Chart.Title)
		assert.Equal(t, "uid-1", r[1].UID)
	})

	t.Run("pairs", func(t *testing.T) {
		var r Report
		require.NoError(t, json.Unmarshal([]byte(`[["a", {"title": "A", "series": []}], ["b", {"title": "B", "series": []}]]`), &r))
		require.Len(t, r, 2)
		assert.Equal(t, "b", r[1].UID)
		assert.Equal(t, "B", r[1].Chart.Title)
	})

	t.Run("invalid", func(t *testing.T) {
		var r Report
		require.Error(t, json.Unmarshal([]byte(`"nope"`), &r))
		require.Error(t, json.Unmarshal([]byte(`[["only-uid"]]`), &r))
	})
}
