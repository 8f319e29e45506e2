package report

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/scenebench/internal/apeval"
	"github.com/banshee-data/scenebench/internal/confusion"
	"github.com/banshee-data/scenebench/internal/labels"
)

func testSummary(has25 bool) apeval.Summary {
	return apeval.Summary{
		MeanAP: 0.75, AP50: 0.75, AP25: 1, Has25: has25,
		Classes: []apeval.ClassSummary{
			{Label: "chair", ID: 5, AP: 0.5, AP50: 0.5, AP25: 1},
			{Label: "table", ID: 7, AP: 1, AP50: 1, AP25: 1},
			{Label: "sofa", ID: 6, AP: math.NaN(), AP50: math.NaN(), AP25: math.NaN()},
		},
	}
}

func TestWriteInstanceCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteInstanceCSV(&buf, testSummary(true)))
	want := "class,class id,ap,ap50,ap25\n" +
		"chair,5,0.5,0.5,1\n" +
		"table,7,1,1,1\n" +
		"sofa,6,nan,nan,nan\n"
	assert.Equal(t, want, buf.String())

	buf.Reset()
	require.NoError(t, WriteInstanceCSV(&buf, testSummary(false)))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Equal(t, "class,class id,ap,ap50", lines[0])
	assert.Equal(t, "chair,5,0.5,0.5", lines[1])
}

func TestWriteInstanceTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteInstanceTable(&buf, testSummary(true)))
	out := buf.String()

	assert.Contains(t, out, "what           :             AP         AP_50%         AP_25%")
	assert.Contains(t, out, "chair          :          0.500          0.500          1.000")
	assert.Contains(t, out, "sofa           :            NaN")
	assert.Contains(t, out, "average        :          0.750          0.750          1.000")

	buf.Reset()
	require.NoError(t, WriteInstanceTable(&buf, testSummary(false)))
	assert.NotContains(t, buf.String(), "AP_25%")
}

func testMatrix(t *testing.T) *confusion.Matrix {
	t.Helper()
	reg := labels.MustRegistry([]string{"wall", "floor"}, []int{1, 2})
	m := confusion.New(reg)
	// wall: 2 correct, 1 predicted floor; floor: 1 correct.
	_, err := m.Accumulate([]int64{1, 1, 2, 2}, []int64{1, 1, 1, 2})
	require.NoError(t, err)
	return m
}

func TestWriteConfusion(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteConfusion(&buf, testMatrix(t)))
	want := "iou scores\n" +
		"wall          (1 ): 0.667\n" +
		"floor         (2 ): 0.500\n" +
		"\nconfusion matrix\n" +
		"\t\t\t1       2       \n" +
		"wall          (1 )\t2.000\t1.000\n" +
		"floor         (2 )\t0.000\t1.000\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteSceneTypeConfusion(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSceneTypeConfusion(&buf, testMatrix(t)))
	out := buf.String()
	assert.Contains(t, out, "recall scores\n")
	assert.Contains(t, out, "wall"+strings.Repeat(" ", 28)+"(1 ): 0.667\n")
	iouAt := strings.Index(out, "iou scores")
	recallAt := strings.Index(out, "recall scores")
	matrixAt := strings.Index(out, "confusion matrix")
	assert.True(t, iouAt < recallAt && recallAt < matrixAt, "sections out of order:\n%s", out)
}

func TestSavePRCurves(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pr.png")
	series := []CurveSeries{
		{Label: "chair", AP: 0.5, Curve: apeval.Curve{Precision: []float64{0.5, 1, 1}, Recall: []float64{1, 0.5, 0}}},
		{Label: "sofa", AP: math.NaN()},
	}
	require.NoError(t, SavePRCurves(path, "AP@0.5", series))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("\x89PNG")), "expected a PNG file")

	err = SavePRCurves(filepath.Join(t.TempDir(), "empty.png"), "none", series[1:])
	assert.Error(t, err)
}

func TestLegendLabel(t *testing.T) {
	assert.Equal(t, "chair (AP 0.500)", legendLabel(CurveSeries{Label: "chair", AP: 0.5}))
	assert.Equal(t, "sofa (AP n/a)", legendLabel(CurveSeries{Label: "sofa", AP: math.NaN()}))
}

func TestWritePage(t *testing.T) {
	var buf bytes.Buffer
	s := testSummary(true)
	m := testMatrix(t)
	err := WritePage(&buf, "scenebench",
		InstanceChart("Instance AP", s),
		ScoreChart("Semantic IoU", "IoU", m.IoUs()),
	)
	require.NoError(t, err)
	out := buf.String()
	assert.Contains(t, out, "<html")
	assert.Contains(t, out, "Instance AP")
	assert.Contains(t, out, "Semantic IoU")
	assert.Contains(t, out, "chair")
	assert.NotContains(t, out, "NaN")
}

func TestBarValue(t *testing.T) {
	assert.Nil(t, barValue(math.NaN()).Value)
	assert.Equal(t, 0.667, barValue(2.0/3).Value)
}
