package testkit

import (
	"math"
	"math/rand"
	"time"

	"gapfill/domain/series"
)

// Column names produced by the hourly generator
const (
	ColumnFlow        = "SWTP Total Influent Flow"
	ColumnRainfall    = "Rainfall (in)"
	ColumnGroundwater = "Groundwater Depth (ft)"
	ColumnGauge       = "Gauge Height (ft)"
)

// Config configures the hourly data generator
type Config struct {
	Rows  int       `json:"rows"`
	Seed  int64     `json:"seed"`
	Start time.Time `json:"start"`
	// LowFlowReadings injects flow readings below 3.7 that a sentinel rule should flag
	LowFlowReadings int `json:"low_flow_readings"`
}

// DefaultConfig returns one month of hourly readings
func DefaultConfig() Config {
	return Config{
		Rows:            24 * 30,
		Seed:            42,
		Start:           time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		LowFlowReadings: 3,
	}
}

// InjectedGap records a run of missing values written by the generator
type InjectedGap struct {
	Column string
	Run    series.Run
}

// HourlyDataGenerator produces environmental sensor tables with gaps of every class
type HourlyDataGenerator struct {
	config Config
	rng    *rand.Rand
	gaps   []InjectedGap
}

// NewHourlyDataGenerator creates a new generator
func NewHourlyDataGenerator(config Config) *HourlyDataGenerator {
	if config.Start.IsZero() {
		config.Start = DefaultConfig().Start
	}
	return &HourlyDataGenerator{
		config: config,
		rng:    rand.New(rand.NewSource(config.Seed)),
	}
}

// Generate is shorthand for NewHourlyDataGenerator(config).Table()
func Generate(config Config) *series.Table {
	return NewHourlyDataGenerator(config).Table()
}

// Table builds the table. Gaps never touch the first or last row.
func (g *HourlyDataGenerator) Table() *series.Table {
	n := g.config.Rows
	g.gaps = nil

	timestamps := make([]time.Time, n)
	for i := range timestamps {
		timestamps[i] = g.config.Start.Add(time.Duration(i) * time.Hour)
	}

	table := &series.Table{
		TimeColumn: "DateTime",
		Timestamps: timestamps,
		Columns: []series.Column{
			{Name: ColumnFlow, Values: g.flow(n)},
			{Name: ColumnRainfall, Values: g.rainfall(n)},
			{Name: ColumnGroundwater, Values: g.groundwater(n)},
			{Name: ColumnGauge, Values: g.gauge(n)},
		},
	}

	for i := range table.Columns {
		g.injectGaps(&table.Columns[i])
	}
	return table
}

// InjectedGaps lists the runs written by the last call to Table
func (g *HourlyDataGenerator) InjectedGaps() []InjectedGap {
	return g.gaps
}

// flow follows a diurnal cycle with noise; a few readings dip below the
// plant's plausible minimum.
func (g *HourlyDataGenerator) flow(n int) []float64 {
	values := make([]float64, n)
	for i := range values {
		hour := float64(i % 24)
		values[i] = 18 + 6*math.Sin(2*math.Pi*(hour-6)/24) + g.rng.NormFloat64()*0.4
	}
	for k := 0; k < g.config.LowFlowReadings && n > 2; k++ {
		values[1+g.rng.Intn(n-2)] = 1 + g.rng.Float64()*2
	}
	return values
}

func (g *HourlyDataGenerator) rainfall(n int) []float64 {
	values := make([]float64, n)
	storm := 0
	for i := range values {
		if storm == 0 && g.rng.Float64() < 0.02 {
			storm = 3 + g.rng.Intn(8)
		}
		if storm > 0 {
			values[i] = math.Round(g.rng.Float64()*40) / 100
			storm--
		}
	}
	return values
}

func (g *HourlyDataGenerator) groundwater(n int) []float64 {
	values := make([]float64, n)
	for i := range values {
		t := float64(i)
		values[i] = 12 + 0.002*t + 0.5*math.Sin(2*math.Pi*t/(24*7)) + g.rng.NormFloat64()*0.01
	}
	return values
}

func (g *HourlyDataGenerator) gauge(n int) []float64 {
	values := make([]float64, n)
	for i := range values {
		t := float64(i)
		values[i] = 3 + 0.3*math.Sin(2*math.Pi*t/24) + 0.1*math.Cos(2*math.Pi*t/12) + g.rng.NormFloat64()*0.02
	}
	return values
}

var gapLengths = []int{1, 1, 2, 2, 3, 4, 5, 6, 8, 12}

// injectGaps writes runs separated by at least a spline neighbourhood of
// observed values, so every short or medium gap is fillable.
func (g *HourlyDataGenerator) injectGaps(col *series.Column) {
	n := len(col.Values)
	i := 12 + g.rng.Intn(12)
	for {
		length := gapLengths[g.rng.Intn(len(gapLengths))]
		if i+length+12 >= n {
			return
		}
		for j := i; j < i+length; j++ {
			col.Values[j] = series.Missing()
		}
		g.gaps = append(g.gaps, InjectedGap{Column: col.Name, Run: series.Run{Start: i, Length: length}})
		i += length + 12 + g.rng.Intn(36)
	}
}
