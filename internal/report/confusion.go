package report

import (
	"bufio"
	"fmt"
	"io"

	"github.com/banshee-data/scenebench/internal/confusion"
)

// WriteConfusion dumps the IoU table and the count matrix over valid ids.
func WriteConfusion(w io.Writer, m *confusion.Matrix) error {
	return writeConfusion(w, m, 14, false)
}

// WriteSceneTypeConfusion is WriteConfusion with an added recall table and
// a wider name column.
func WriteSceneTypeConfusion(w io.Writer, m *confusion.Matrix) error {
	return writeConfusion(w, m, 32, true)
}

func writeConfusion(w io.Writer, m *confusion.Matrix, nameWidth int, recall bool) error {
	bw := bufio.NewWriter(w)
	scoreLine := func(s confusion.ClassScore) {
		fmt.Fprintf(bw, "%-*s(%-2d): %5.3f\n", nameWidth, s.Label, s.ID, s.Value)
	}

	fmt.Fprintln(bw, "iou scores")
	for _, s := range m.IoUs() {
		scoreLine(s)
	}
	if recall {
		fmt.Fprintln(bw, "recall scores")
		for _, s := range m.Recalls() {
			scoreLine(s)
		}
	}

	reg := m.Registry()
	ids := reg.IDs()
	fmt.Fprint(bw, "\nconfusion matrix\n\t\t\t")
	for _, id := range ids {
		fmt.Fprintf(bw, "%-8d", id)
	}
	fmt.Fprintln(bw)
	for _, r := range ids {
		name, _ := reg.Name(r)
		fmt.Fprintf(bw, "%-*s(%-2d)", nameWidth, name, r)
		for _, c := range ids {
			fmt.Fprintf(bw, "\t%5.3f", float64(m.At(r, c)))
		}
		fmt.Fprintln(bw)
	}
	return bw.Flush()
}
