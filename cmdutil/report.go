package cmdutil

import (
	"os"

	"github.com/gocarina/gocsv"

	trpx "github.com/emdiffract/trpx"
)

// Report summarizes one processed file. The csv tags shape the rows of the
// optional --csv report.
type Report struct {
	Input      string  `csv:"input"`
	Output     string  `csv:"output"`
	Frames     int     `csv:"frames"`
	Values     int     `csv:"values_per_frame"`
	ProlixBits int     `csv:"prolix_bits"`
	RawBytes   int64   `csv:"raw_bytes"`
	TerseBytes int64   `csv:"terse_bytes"`
	Ratio      float64 `csv:"ratio"`
}

func newReport(input, output string, c *trpx.Container, rawBytes int64) *Report {
	r := &Report{
		Input:      input,
		Output:     output,
		Frames:     c.NumberOfFrames(),
		Values:     c.NumberOfValues(),
		ProlixBits: c.ProlixBits(),
		RawBytes:   rawBytes,
		TerseBytes: c.PayloadSize(),
	}
	if rawBytes > 0 {
		r.Ratio = float64(r.TerseBytes) / float64(rawBytes)
	}
	return r
}

// WriteCSV writes the reports to path as a CSV table with a header row.
func WriteCSV(path string, reports []*Report) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return gocsv.MarshalFile(&reports, f)
}
