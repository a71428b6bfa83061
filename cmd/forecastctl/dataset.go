package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/kedastral/forecastcore/pkg/batch"
	"github.com/kedastral/forecastcore/pkg/forecast/series"
)

// loadJobs reads a grouped CSV of history rows and partitions it into one
// batch.Job per distinct group key, grounded on pkg/adapters's DataFrame
// row shape (a flat slice of observations later reshaped per consumer).
func loadJobs(path, groupCol, tsCol, valueCol string) ([]batch.Job, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[h] = i
	}
	groupIdx, ok := idx[groupCol]
	if !ok {
		return nil, fmt.Errorf("input: missing group column %q", groupCol)
	}
	tsIdx, ok := idx[tsCol]
	if !ok {
		return nil, fmt.Errorf("input: missing timestamp column %q", tsCol)
	}
	valIdx, ok := idx[valueCol]
	if !ok {
		return nil, fmt.Errorf("input: missing value column %q", valueCol)
	}

	type rawRow struct {
		ts  time.Time
		val float64
	}
	byGroup := make(map[string][]rawRow)
	order := make([]string, 0)

	for {
		rec, err := r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("read row: %w", err)
		}

		group := rec[groupIdx]
		ts, err := time.Parse(time.RFC3339, rec[tsIdx])
		if err != nil {
			return nil, fmt.Errorf("parse timestamp %q: %w", rec[tsIdx], err)
		}
		var val float64
		if _, err := fmt.Sscanf(rec[valIdx], "%g", &val); err != nil {
			return nil, fmt.Errorf("parse value %q: %w", rec[valIdx], err)
		}

		if _, seen := byGroup[group]; !seen {
			order = append(order, group)
		}
		byGroup[group] = append(byGroup[group], rawRow{ts: ts, val: val})
	}

	jobs := make([]batch.Job, 0, len(order))
	for _, group := range order {
		rows := byGroup[group]
		sort.Slice(rows, func(i, j int) bool { return rows[i].ts.Before(rows[j].ts) })

		timestamps := make([]time.Time, len(rows))
		values := make([]float64, len(rows))
		for i, row := range rows {
			timestamps[i] = row.ts
			values[i] = row.val
		}

		// series.TimeSeries is constructed as a bare literal rather than
		// through series.New: a non-finite observation here must survive
		// to Fit time so the dispatcher classifies it as
		// NonFiniteObservation instead of rejecting the row at load time.
		ts := series.TimeSeries{Name: group, Timestamps: timestamps, Values: values}
		jobs = append(jobs, batch.Job{GroupKey: group, Series: ts})
	}

	return jobs, nil
}
