package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/banshee-data/scenebench/internal/apeval"
)

// formatFloat writes NaN as "nan" so undefined classes stay visible.
func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return "nan"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// WriteInstanceCSV writes one row per class: class,class id,ap,ap50[,ap25].
func WriteInstanceCSV(w io.Writer, s apeval.Summary) error {
	cw := csv.NewWriter(w)
	header := []string{"class", "class id", "ap", "ap50"}
	if s.Has25 {
		header = append(header, "ap25")
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, c := range s.Classes {
		row := []string{c.Label, strconv.Itoa(c.ID), formatFloat(c.AP), formatFloat(c.AP50)}
		if s.Has25 {
			row = append(row, formatFloat(c.AP25))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

const tableWidth = 64

// WriteInstanceTable prints the per-class AP table followed by the average
// row.
func WriteInstanceTable(w io.Writer, s apeval.Summary) error {
	var b strings.Builder
	rule := strings.Repeat("#", tableWidth)

	b.WriteString("\n" + rule + "\n")
	fmt.Fprintf(&b, "%-15s:%15s%15s", "what", "AP", "AP_50%")
	if s.Has25 {
		fmt.Fprintf(&b, "%15s", "AP_25%")
	}
	b.WriteString("\n" + rule + "\n")

	row := func(name string, ap, ap50, ap25 float64) {
		fmt.Fprintf(&b, "%-15s:%15.3f%15.3f", name, ap, ap50)
		if s.Has25 {
			fmt.Fprintf(&b, "%15.3f", ap25)
		}
		b.WriteString("\n")
	}
	for _, c := range s.Classes {
		row(c.Label, c.AP, c.AP50, c.AP25)
	}
	b.WriteString(strings.Repeat("-", tableWidth) + "\n")
	row("average", s.MeanAP, s.AP50, s.AP25)
	b.WriteString("\n")

	_, err := io.WriteString(w, b.String())
	return err
}
