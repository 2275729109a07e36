// Package progress provides progress indicators for bulk operations.
//
// Purpose:
//
//	Show how far a bulk operation (sending a server notice to many users)
//	has come. Human-oriented runs get a terminal progress bar; runs with
//	machine-readable output get one JSON progress event per step so the
//	stream stays parseable.
//
// Dependencies:
//   - github.com/schollz/progressbar/v3: terminal progress bar
//   - encoding/json: structured progress event output
package progress

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
)

// Modes an Indicator can run in.
const (
	ModeBar  = "bar"
	ModeJSON = "json"
	ModeOff  = "off"
)

// Indicator displays progress for bulk operations.
type Indicator struct {
	writer io.Writer
	mode   string
	bar    *progressbar.ProgressBar
	start  time.Time
	now    func() time.Time
}

// NewIndicator creates a new progress indicator writing to w (stderr if nil).
func NewIndicator(w io.Writer, mode string) *Indicator {
	if w == nil {
		w = os.Stderr
	}
	return &Indicator{
		writer: w,
		mode:   mode,
		now:    time.Now,
	}
}

// ProgressEvent represents one progress step in JSON mode.
type ProgressEvent struct {
	Timestamp       string  `json:"timestamp"`
	Operation       string  `json:"operation"`
	PercentComplete float64 `json:"percent_complete"`
	ItemsProcessed  int     `json:"items_processed"`
	TotalItems      int     `json:"total_items"`
	Elapsed         string  `json:"elapsed"`
	Remaining       string  `json:"remaining,omitempty"`
}

// Start begins an operation over total items.
func (p *Indicator) Start(op string, total int) {
	p.start = p.now()
	if p.mode != ModeBar || total <= 0 {
		return
	}
	p.bar = progressbar.NewOptions(total,
		progressbar.OptionSetWriter(p.writer),
		progressbar.OptionSetDescription(op),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(p.writer, "\n")
		}),
	)
}

// Update reports that processed of total items are done.
func (p *Indicator) Update(op string, processed, total int) error {
	if total == 0 {
		return nil
	}

	switch p.mode {
	case ModeBar:
		if p.bar == nil {
			return nil
		}
		return p.bar.Set(processed)
	case ModeJSON:
		elapsed := p.now().Sub(p.start)
		remaining := time.Duration(0)
		if processed > 0 {
			avgTimePerItem := elapsed / time.Duration(processed)
			remaining = avgTimePerItem * time.Duration(total-processed)
		}
		return json.NewEncoder(p.writer).Encode(ProgressEvent{
			Timestamp:       p.now().UTC().Format(time.RFC3339),
			Operation:       op,
			PercentComplete: float64(processed) / float64(total) * 100,
			ItemsProcessed:  processed,
			TotalItems:      total,
			Elapsed:         elapsed.Round(time.Millisecond).String(),
			Remaining:       remaining.Round(time.Millisecond).String(),
		})
	default:
		return nil
	}
}

// Complete marks progress as complete.
func (p *Indicator) Complete(op string, total int) error {
	switch p.mode {
	case ModeBar:
		if p.bar == nil {
			return nil
		}
		return p.bar.Finish()
	case ModeJSON:
		return json.NewEncoder(p.writer).Encode(ProgressEvent{
			Timestamp:       p.now().UTC().Format(time.RFC3339),
			Operation:       op,
			PercentComplete: 100,
			ItemsProcessed:  total,
			TotalItems:      total,
			Elapsed:         p.now().Sub(p.start).Round(time.Millisecond).String(),
		})
	default:
		return nil
	}
}
