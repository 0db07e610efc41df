package cleaning

import (
	"math"
	"testing"
	"time"

	"gapfill/domain/core"
	"gapfill/domain/series"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRules(t *testing.T) {
	rules, err := ParseRules("SWTP Total Influent Flow<3.7; Rainfall (in)>12 ;SWTP Total Influent Flow>90")
	require.NoError(t, err)
	require.Len(t, rules, 2)

	flow := rules[0]
	assert.Equal(t, "SWTP Total Influent Flow", flow.Column)
	require.NotNil(t, flow.Below)
	require.NotNil(t, flow.Above)
	assert.Equal(t, 3.7, *flow.Below)
	assert.Equal(t, 90.0, *flow.Above)

	assert.Equal(t, "Rainfall (in)", rules[1].Column)
	assert.Nil(t, rules[1].Below)

	empty, err := ParseRules("  ")
	require.NoError(t, err)
	assert.Empty(t, empty)

	for _, bad := range []string{"<3", "flow<", "flow<abc", "flow"} {
		_, err := ParseRules(bad)
		assert.Error(t, err, bad)
	}
}

func TestRuleMatches(t *testing.T) {
	below := 3.7
	r := Rule{Column: "flow", Below: &below}
	assert.True(t, r.Matches(3.69))
	assert.False(t, r.Matches(3.7))
	assert.False(t, r.Matches(math.NaN()))
	assert.Equal(t, "flow<3.7", r.String())
}

func TestApply(t *testing.T) {
	table := &series.Table{
		Timestamps: []time.Time{time.Unix(0, 0), time.Unix(3600, 0), time.Unix(7200, 0), time.Unix(10800, 0)},
		Columns: []series.Column{
			{Name: "SWTP Total Influent Flow", Values: []float64{12, 0.5, 3.6, 15}},
			{Name: "Rainfall", Values: []float64{0, 0.1, 0, 0}},
		},
	}

	rules, err := ParseRules("SWTP Total Influent Flow<3.7")
	require.NoError(t, err)

	summary, err := Apply(table, rules)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Total())

	flow := table.Columns[0].Values
	assert.Equal(t, 12.0, flow[0])
	assert.True(t, math.IsNaN(flow[1]))
	assert.True(t, math.IsNaN(flow[2]))
	assert.Equal(t, []float64{0, 0.1, 0, 0}, table.Columns[1].Values)
}

func TestApplyUnknownColumnChangesNothing(t *testing.T) {
	table := &series.Table{
		Timestamps: []time.Time{time.Unix(0, 0)},
		Columns:    []series.Column{{Name: "flow", Values: []float64{1}}},
	}
	rules, err := ParseRules("flow<5;depth<0")
	require.NoError(t, err)

	_, err = Apply(table, rules)
	assert.ErrorIs(t, err, core.ErrColumnNotFound)
	assert.Equal(t, 1.0, table.Columns[0].Values[0])
}
