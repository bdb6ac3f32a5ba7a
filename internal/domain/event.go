package domain

import (
	"context"
	"encoding/json"
	"math"
	"time"
)

// RawEvent represents an unprocessed message from the source topic.
type RawEvent struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// Values is a flattened, row-major grid. Missing cells are NaN in memory and
// null on the wire.
type Values []float64

func (v Values) MarshalJSON() ([]byte, error) {
	out := make([]*float64, len(v))
	for i, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			continue
		}
		out[i] = &x
	}
	return json.Marshal(out)
}

func (v *Values) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	var raw []*float64
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	out := make(Values, len(raw))
	for i, x := range raw {
		if x == nil {
			out[i] = math.NaN()
			continue
		}
		out[i] = *x
	}
	*v = out
	return nil
}

// Snapshot is one time step of gridded fields on a regular lat/lon mesh, as
// published to the source topic. Every grid holds Rows*Cols values in
// row-major order; rows run along latitude and columns along longitude.
//
// Potential temperature is taken from Theta when present, otherwise derived
// from Temperature (K) and either the Pressure grid or the single
// PressureLevel (hPa). Winds and heights are at 850 hPa; the prior winds come
// from the previous time step.
type Snapshot struct {
	ID        string    `json:"id"`
	ValidTime time.Time `json:"valid_time"`
	Rows      int       `json:"rows"`
	Cols      int       `json:"cols"`

	Lat Values `json:"lat"`
	Lon Values `json:"lon"`

	Theta         Values   `json:"theta,omitempty"`
	Temperature   Values   `json:"temperature,omitempty"`
	Pressure      Values   `json:"pressure,omitempty"`
	PressureLevel *float64 `json:"pressure_level,omitempty"`
	H850          Values   `json:"h850,omitempty"`

	U850      Values `json:"u850,omitempty"`
	V850      Values `json:"v850,omitempty"`
	U850Prior Values `json:"u850_prior,omitempty"`
	V850Prior Values `json:"v850_prior,omitempty"`

	RawPayload []byte `json:"-"`
}

// Front kinds.
const (
	KindWarm = "warm"
	KindCold = "cold"
)

// FrontCell is one flagged grid cell.
type FrontCell struct {
	Row  int     `json:"row"`
	Col  int     `json:"col"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
	Kind string  `json:"kind"`
}

// MethodResult summarizes one detection method's output for a snapshot.
type MethodResult struct {
	Method    string `json:"method"`
	WarmCells int    `json:"warm_cells"`
	ColdCells int    `json:"cold_cells"`

	// TerrainMasked counts front cells cleared because they sit above the
	// elevation limit.
	TerrainMasked int `json:"terrain_masked,omitempty"`

	Warm  Values      `json:"warm,omitempty"`
	Cold  Values      `json:"cold"`
	Cells []FrontCell `json:"cells"`
}

// FrontEvent is the detection result for one snapshot, published to the sink
// topic.
type FrontEvent struct {
	ID         string    `json:"id"`
	SnapshotID string    `json:"snapshot_id"`
	ValidTime  time.Time `json:"valid_time"`
	Rows       int       `json:"rows"`
	Cols       int       `json:"cols"`

	Results []MethodResult `json:"results"`

	// Skipped lists configured methods whose inputs the snapshot lacked.
	Skipped []string `json:"skipped,omitempty"`

	ProcessedAt time.Time `json:"processed_at"`
}

// MethodNames returns the names of the methods that produced results, in
// order.
func (e FrontEvent) MethodNames() []string {
	out := make([]string, len(e.Results))
	for i, r := range e.Results {
		out[i] = r.Method
	}
	return out
}
