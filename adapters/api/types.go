package api

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"gapfill/adapters/stats/gapfill"
	"gapfill/domain/core"
	"gapfill/domain/imputation"
	"gapfill/domain/series"

	"github.com/tidwall/gjson"
)

// ImputeResponse is the body returned by POST /api/v1/impute. Values still
// missing after imputation are encoded as null.
type ImputeResponse struct {
	Name   string                  `json:"name"`
	Values []*float64              `json:"values"`
	Report imputation.ColumnReport `json:"report"`
	Traces []gapfill.Trace         `json:"traces,omitempty"`
}

// RunView describes one run found by a scan
type RunView struct {
	Start  int                 `json:"start"`
	Length int                 `json:"length"`
	Class  imputation.GapClass `json:"class"`
	Method imputation.Method   `json:"method"`
	From   *time.Time          `json:"from,omitempty"`
	To     *time.Time          `json:"to,omitempty"`
}

// ScanResponse is the body returned by POST /api/v1/scan
type ScanResponse struct {
	Name    string    `json:"name"`
	Length  int       `json:"length"`
	Missing int       `json:"missing"`
	Runs    []RunView `json:"runs"`
}

// ErrorResponse is returned for every failed request
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// ParseSeriesRequest decodes {name, timestamps?, values} leniently: a value
// may be a number, null, or a string such as "NaN" or "12.5".
func ParseSeriesRequest(body []byte) (series.Series, error) {
	if !gjson.ValidBytes(body) {
		return series.Series{}, core.NewMalformedInputError("request body is not valid JSON")
	}
	root := gjson.ParseBytes(body)

	name := root.Get("name").String()
	if name == "" {
		name = "series"
	}

	raw := root.Get("values")
	if !raw.IsArray() {
		return series.Series{}, core.NewMalformedInputError("values must be an array")
	}
	items := raw.Array()
	values := make([]float64, len(items))
	for i, item := range items {
		v, err := parseValue(item)
		if err != nil {
			return series.Series{}, core.NewMalformedInputError(fmt.Sprintf("values[%d]: %v", i, err))
		}
		values[i] = v
	}

	var timestamps []time.Time
	if ts := root.Get("timestamps"); ts.Exists() && ts.Type != gjson.Null {
		if !ts.IsArray() {
			return series.Series{}, core.NewMalformedInputError("timestamps must be an array")
		}
		for i, item := range ts.Array() {
			t, err := time.Parse(time.RFC3339, item.String())
			if err != nil {
				return series.Series{}, core.NewMalformedInputError(fmt.Sprintf("timestamps[%d]: %v", i, err))
			}
			timestamps = append(timestamps, t)
		}
		if timestamps == nil {
			timestamps = []time.Time{}
		}
	}

	return series.New(name, timestamps, values), nil
}

func parseValue(item gjson.Result) (float64, error) {
	var v float64
	switch item.Type {
	case gjson.Null:
		return series.Missing(), nil
	case gjson.Number:
		v = item.Float()
	case gjson.String:
		s := strings.TrimSpace(item.Str)
		switch strings.ToLower(s) {
		case "", "nan", "null", "na":
			return series.Missing(), nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, err
		}
		v = f
	default:
		return 0, fmt.Errorf("unsupported value %s", item.Raw)
	}
	if math.IsInf(v, 0) {
		return 0, fmt.Errorf("infinite value %s", item.Raw)
	}
	return v, nil
}

// nullable converts missing readings to nil for JSON encoding
func nullable(values []float64) []*float64 {
	out := make([]*float64, len(values))
	for i := range values {
		if !series.IsMissing(values[i]) {
			v := values[i]
			out[i] = &v
		}
	}
	return out
}

func scanResponse(s series.Series, policy imputation.Policy) ScanResponse {
	resp := ScanResponse{
		Name:    s.Name,
		Length:  s.Len(),
		Missing: s.MissingCount(),
		Runs:    []RunView{},
	}
	for run := range gapfill.Scan(s.Values) {
		view := RunView{
			Start:  run.Start,
			Length: run.Length,
			Class:  policy.Classify(run.Length),
			Method: policy.MethodFor(run.Length),
		}
		if len(s.Timestamps) == s.Len() {
			from, to := s.Timestamps[run.Start], s.Timestamps[run.End()]
			view.From, view.To = &from, &to
		}
		resp.Runs = append(resp.Runs, view)
	}
	return resp
}
