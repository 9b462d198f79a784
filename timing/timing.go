//
// timing.go
//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

// Package timing records timing samples of a PCF program execution
// and renders them as a profiling report.
package timing

import (
	"fmt"
	"io"
	"time"

	"github.com/markkurossi/pcf/pcf"
	"github.com/markkurossi/tabulate"
)

// FileSize renders byte counts with decimal units.
type FileSize uint64

func (s FileSize) String() string {
	if s > 1000*1000*1000*1000 {
		return fmt.Sprintf("%dTB", s/(1000*1000*1000*1000))
	} else if s > 1000*1000*1000 {
		return fmt.Sprintf("%dGB", s/(1000*1000*1000))
	} else if s > 1000*1000 {
		return fmt.Sprintf("%dMB", s/(1000*1000))
	} else if s > 1000 {
		return fmt.Sprintf("%dkB", s/1000)
	} else {
		return fmt.Sprintf("%dB", s)
	}
}

// Timing records timing samples and renders a profiling report.
type Timing struct {
	Start   time.Time
	Samples []*Sample
}

// New creates a new Timing instance.
func New() *Timing {
	return &Timing{
		Start: time.Now(),
	}
}

// Sample adds a timing sample with label and data columns.
func (t *Timing) Sample(label string, cols []string) *Sample {
	start := t.Start
	if len(t.Samples) > 0 {
		start = t.Samples[len(t.Samples)-1].End
	}
	sample := &Sample{
		Label: label,
		Start: start,
		End:   time.Now(),
		Cols:  cols,
	}
	t.Samples = append(t.Samples, sample)
	return sample
}

// Print prints the profiling report and the interpreter counters to
// w. The tables argument is the size of the garbled tables in bytes.
func (t *Timing) Print(w io.Writer, stats pcf.Counters, tables uint64) {
	if len(t.Samples) == 0 {
		return
	}

	tab := tabulate.New(tabulate.UnicodeLight)
	tab.Header("Op").SetAlign(tabulate.ML)
	tab.Header("Time").SetAlign(tabulate.MR)
	tab.Header("%").SetAlign(tabulate.MR)
	tab.Header("Count").SetAlign(tabulate.MR)

	total := t.Samples[len(t.Samples)-1].End.Sub(t.Start)
	for _, sample := range t.Samples {
		row := tab.Row()
		row.Column(sample.Label)

		duration := sample.End.Sub(sample.Start)
		row.Column(duration.String())
		row.Column(percent(float64(duration), float64(total)))

		for _, col := range sample.Cols {
			row.Column(col)
		}

		for idx, sub := range sample.Samples {
			row := tab.Row()
			row.Column(prefix(idx, len(sample.Samples)) + sub.Label).
				SetFormat(tabulate.FmtItalic)

			var d time.Duration
			if sub.Abs > 0 {
				d = sub.Abs
			} else {
				d = sub.End.Sub(sub.Start)
			}
			row.Column(d.String()).SetFormat(tabulate.FmtItalic)
			row.Column(percent(float64(d), float64(duration))).
				SetFormat(tabulate.FmtItalic)
		}
	}
	row := tab.Row()
	row.Column("Total").SetFormat(tabulate.FmtBold)
	row.Column(total.String()).SetFormat(tabulate.FmtBold)
	row.Column("").SetFormat(tabulate.FmtBold)
	row.Column(fmt.Sprintf("%v", stats.Steps)).SetFormat(tabulate.FmtBold)

	counters := []struct {
		label string
		count uint64
	}{
		{"Gates", stats.Gates},
		{"Dlgt", stats.Delegated},
		{"I/O", stats.IORounds},
		{"Calls", stats.Calls},
	}
	for idx, c := range counters {
		row = tab.Row()
		row.Column(prefix(idx, len(counters)+1) + c.label).
			SetFormat(tabulate.FmtItalic)
		row.Column("")
		row.Column(percent(float64(c.count), float64(stats.Steps))).
			SetFormat(tabulate.FmtItalic)
		row.Column(fmt.Sprintf("%v", c.count)).SetFormat(tabulate.FmtItalic)
	}
	row = tab.Row()
	row.Column(prefix(len(counters), len(counters)+1) + "Xfer").
		SetFormat(tabulate.FmtItalic)
	row.Column("")
	row.Column("")
	row.Column(FileSize(tables).String()).SetFormat(tabulate.FmtItalic)

	tab.Print(w)
}

func prefix(idx, count int) string {
	if idx+1 >= count {
		return "╰╴"
	}
	return "├╴"
}

func percent(v, total float64) string {
	if total == 0 {
		return ""
	}
	return fmt.Sprintf("%.2f%%", v/total*100)
}

// Sample contains information about one timing sample.
type Sample struct {
	Label   string
	Start   time.Time
	End     time.Time
	Abs     time.Duration
	Cols    []string
	Samples []*Sample
}

// SubSample adds a sub-sample for a timing sample.
func (s *Sample) SubSample(label string, end time.Time) {
	start := s.Start
	if len(s.Samples) > 0 {
		start = s.Samples[len(s.Samples)-1].End
	}
	s.Samples = append(s.Samples, &Sample{
		Label: label,
		Start: start,
		End:   end,
	})
}

// AbsSubSample adds an absolute sub-sample for a timing sample.
func (s *Sample) AbsSubSample(label string, duration time.Duration) {
	s.Samples = append(s.Samples, &Sample{
		Label: label,
		Abs:   duration,
	})
}
