package populate

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/fredbi/chartviz/internal/pkg/client"
	"github.com/fredbi/chartviz/internal/pkg/model"

	"github.com/go-openapi/testify/v2/assert"
	"github.com/go-openapi/testify/v2/require"
)

var errOffline = errors.New("offline")

const (
	testTimeout = time.Second
	testTick    = 5 * time.Millisecond
)

type fakeLister struct {
	mu       sync.Mutex
	groups   []client.Item
	listings map[string][]client.Item // keyed by container URL + portal type
	datasets map[string][]client.Dataset
	failing  map[string]bool
	gates    map[string]chan struct{} // blocks dataset listings until closed
}

func (f *fakeLister) Finder(_ context.Context, portalType string) ([]client.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failing[portalType] {
		return nil, errOffline
	}

	return f.groups, nil
}

func (f *fakeLister) Listing(_ context.Context, containerURL, portalType string) ([]client.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failing[portalType] {
		return nil, errOffline
	}

	return f.listings[containerURL+"|"+portalType], nil
}

func (f *fakeLister) ListDatasets(ctx context.Context, measure string) ([]client.Dataset, error) {
	f.mu.Lock()
	gate := f.gates[measure]
	datasets, failing := f.datasets[measure], f.failing[measure]
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if failing {
		return nil, errOffline
	}

	return datasets, nil
}

func newFakeLister() *fakeLister {
	return &fakeLister{
		groups: []client.Item{
			{UID: "g1", Title: "Falls group", URL: "http://cms/groups/g1"},
			{UID: "g2", Title: "Empty group", URL: "http://cms/groups/g2"},
		},
		listings: map[string][]client.Item{
			"http://cms/groups/g1|" + client.MeasureType: {
				{UID: "m1", Title: "Falls", Subject: []string{"quality", "goal_value_12.5"}},
				{UID: "m2", Title: "Restraints", Subject: []string{"goal_value_n/a"}},
			},
			"http://cms/groups/g1|" + client.DatasetType: {
				{UID: "d1", Title: "All units"},
			},
		},
		datasets: map[string][]client.Dataset{
			"/m1": {{Value: "d1", Title: "All units"}, {Value: "d2", Title: "North"}},
			"/m2": {{Value: "d3", Title: "South"}},
		},
		failing: map[string]bool{},
		gates:   map[string]chan struct{}{},
	}
}

func TestLoadGroups(t *testing.T) {
	lister := newFakeLister()
	p := New(lister)

	require.NoError(t, p.LoadGroups(t.Context()))
	require.Len(t, p.Groups(), 2)

	groupURL, ok := p.GroupURL("g1")
	require.True(t, ok)
	assert.EqualT(t, "http://cms/groups/g1", groupURL)

	t.Run("failure keeps prior groups", func(t *testing.T) {
		lister.failing[client.GroupType] = true
		t.Cleanup(func() { delete(lister.failing, client.GroupType) })

		require.ErrorIs(t, p.LoadGroups(t.Context()), errOffline)
		assert.Len(t, p.Groups(), 2)
	})
}

func TestSelectGroup(t *testing.T) {
	lister := newFakeLister()
	p := New(lister)
	require.NoError(t, p.LoadGroups(t.Context()))

	t.Run("no group selected", func(t *testing.T) {
		require.NoError(t, p.SelectGroup(t.Context(), ""))
		assert.Empty(t, p.Measures())
	})

	t.Run("unknown group", func(t *testing.T) {
		require.ErrorIs(t, p.SelectGroup(t.Context(), "nope"), ErrUnknownGroup)
	})

	t.Run("measures and datasets", func(t *testing.T) {
		require.NoError(t, p.SelectGroup(t.Context(), "g1"))

		measures := p.Measures()
		require.Len(t, measures, 2)
		assert.EqualT(t, "Falls", measures[0].Title)
		assert.EqualT(t, ChartTypeRunLine, measures[0].ChartType)
		require.NotNil(t, measures[0].Goal)
		assert.InDelta(t, 12.5, *measures[0].Goal, 1e-9)
		assert.Nil(t, measures[1].Goal)

		assert.Equal(t, []DatasetRow{{UID: "d1", Title: "All units"}}, p.Datasets())
	})

	t.Run("one listing fails, the other completes", func(t *testing.T) {
		lister.failing[client.MeasureType] = true
		t.Cleanup(func() { delete(lister.failing, client.MeasureType) })

		require.ErrorIs(t, p.SelectGroup(t.Context(), "g1"), errOffline)
		assert.Empty(t, p.Measures())
		assert.Len(t, p.Datasets(), 1)
	})

	t.Run("rows of the previous group are cleared", func(t *testing.T) {
		require.NoError(t, p.SelectGroup(t.Context(), "g2"))
		assert.Empty(t, p.Measures())
		assert.Empty(t, p.Datasets())
	})
}

func TestSelectMeasure(t *testing.T) {
	lister := newFakeLister()
	p := New(lister)

	placeholder := Choice{Value: NoValue, Title: "(no value)"}

	t.Run("replaces all options but the placeholder", func(t *testing.T) {
		sel := NewSelect(placeholder, Choice{Value: "old", Title: "Old"})

		require.NoError(t, p.SelectMeasure(t.Context(), "/m1", sel))
		assert.Equal(t, []Choice{
			placeholder,
			{Value: "d1", Title: "All units"},
			{Value: "d2", Title: "North"},
		}, sel.Choices())
	})

	t.Run("failure leaves the options untouched", func(t *testing.T) {
		lister.failing["/m1"] = true
		t.Cleanup(func() { delete(lister.failing, "/m1") })

		sel := NewSelect(placeholder, Choice{Value: "old", Title: "Old"})
		require.ErrorIs(t, p.SelectMeasure(t.Context(), "/m1", sel), errOffline)
		assert.Len(t, sel.Choices(), 2)
	})

	t.Run("stale response is dropped", func(t *testing.T) {
		gate := make(chan struct{})
		lister.mu.Lock()
		lister.gates["/m1"] = gate
		lister.mu.Unlock()

		sel := NewSelect(placeholder)
		slow := make(chan error, 1)
		go func() {
			slow <- p.SelectMeasure(context.Background(), "/m1", sel)
		}()

		// wait for the slow load to start before superseding it
		require.Eventually(t, func() bool {
			sel.mu.Lock()
			defer sel.mu.Unlock()

			return sel.gen == 1
		}, testTimeout, testTick)

		require.NoError(t, p.SelectMeasure(t.Context(), "/m2", sel))
		close(gate)
		require.NoError(t, <-slow)

		assert.Equal(t, []Choice{placeholder, {Value: "d3", Title: "South"}}, sel.Choices())
	})
}

func TestExtractSelection(t *testing.T) {
	t.Run("incomplete", func(t *testing.T) {
		_, err := ExtractSelection(url.Values{"selected_measures": {"m1"}})
		require.ErrorIs(t, err, ErrIncompleteSelection)
	})

	t.Run("bad goal", func(t *testing.T) {
		_, err := ExtractSelection(url.Values{
			"selected_measures": {"m1"},
			"selected_datasets": {"d1"},
			"goal-m1":           {"high"},
		})
		require.Error(t, err)
	})

	form := url.Values{
		"selected_measures:list": {"m1", "m2", "m3"},
		"selected_datasets":      {"d1", "d2"},
		"charttype-m2":           {ChartTypeRunBar},
		"charttype-m3":           {"named-line"},
		"goal-m1":                {"12.5"},
		"tabular_legend:list":    {"m2"},
		"title-m1":               {"Falls"},
		"title-m2":               {"Restraints"},
		"title-d1":               {"All units"},
		"title-d2":               {"North"},
	}

	sel, err := ExtractSelection(form)
	require.NoError(t, err)
	require.Len(t, sel.Charts, 3)
	require.Len(t, sel.Series, 2)

	falls := sel.Charts[0]
	assert.EqualT(t, KindTimeSeries, falls.Kind)
	assert.EqualT(t, model.ChartLine, falls.ChartType)
	assert.EqualT(t, "abbr+year", falls.LabelDefault)
	require.NotNil(t, falls.Goal)
	assert.InDelta(t, 12.5, *falls.Goal, 1e-9)
	assert.True(t, falls.ShowGoal)
	assert.EqualT(t, "#ff0000", falls.GoalColor)
	assert.Empty(t, falls.LegendPlacement)

	restraints := sel.Charts[1]
	assert.EqualT(t, model.ChartBar, restraints.ChartType)
	assert.EqualT(t, "tabular", restraints.LegendPlacement)
	assert.EqualT(t, model.LabelsOmit, restraints.PointLabels)
	assert.Nil(t, restraints.Goal)

	assert.EqualT(t, KindNamed, sel.Charts[2].Kind)

	t.Run("descriptors", func(t *testing.T) {
		descriptors := sel.Descriptors()
		require.Len(t, descriptors, 3)

		assert.True(t, descriptors[0].IsTimeSeries())
		assert.False(t, descriptors[2].IsTimeSeries())
		require.Len(t, descriptors[1].Series, 2)
		assert.EqualT(t, "North", descriptors[1].Series[1].Title)
		assert.Empty(t, descriptors[1].Rendered())
	})
}
