package confusion

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/scenebench/internal/faults"
	"github.com/banshee-data/scenebench/internal/labels"
)

func wallFloor(t *testing.T) *labels.Registry {
	t.Helper()
	r, err := labels.NewRegistry([]string{"wall", "floor", "chair"}, []int{1, 2, 5})
	require.NoError(t, err)
	return r
}

func TestAccumulate(t *testing.T) {
	m := New(wallFloor(t))
	assert.Equal(t, 7, m.Size())

	gt := []int64{1, 1, 1, 2, 2, 0, 3}
	pred := []int64{1, 1, 2, 2, 9, 1, 1}
	scored, err := m.Accumulate(pred, gt)
	require.NoError(t, err)
	// Ids 0 and 3 are not registered and are skipped.
	assert.EqualValues(t, 5, scored)
	assert.EqualValues(t, 5, m.Total())
	require.NoError(t, m.CheckTotal(scored))

	assert.EqualValues(t, 2, m.At(1, 1))
	assert.EqualValues(t, 1, m.At(1, 2))
	// 9 maps to the unknown sentinel MaxID+1.
	assert.EqualValues(t, 1, m.At(2, 6))
	assert.EqualValues(t, 0, m.At(99, 1))
}

func TestAccumulate_LengthMismatch(t *testing.T) {
	m := New(wallFloor(t))
	_, err := m.Accumulate([]int64{1}, []int64{1, 2})
	assert.True(t, faults.Is(err, faults.UserFault))
	assert.Zero(t, m.Total())
}

func TestIoU(t *testing.T) {
	m := New(wallFloor(t))
	_, err := m.Accumulate(
		[]int64{1, 1, 2, 2, 9, 1},
		[]int64{1, 1, 1, 2, 2, 2},
	)
	require.NoError(t, err)

	// wall: tp 2, fn 1, fp 1 (floor predicted wall).
	iou, tp, denom := m.IoU(1)
	assert.InDelta(t, 0.5, iou, 1e-12)
	assert.EqualValues(t, 2, tp)
	assert.EqualValues(t, 4, denom)

	// floor: tp 1, fn 2 (one wall, one unknown), fp 1.
	iou, _, denom = m.IoU(2)
	assert.InDelta(t, 0.25, iou, 1e-12)
	assert.EqualValues(t, 4, denom)

	iou, _, _ = m.IoU(5)
	assert.True(t, math.IsNaN(iou), "absent class")
	iou, _, _ = m.IoU(4)
	assert.True(t, math.IsNaN(iou), "unregistered id")

	assert.InDelta(t, 0.375, m.MeanIoU(), 1e-12)
}

func TestRecall(t *testing.T) {
	m := New(wallFloor(t))
	m.AddPair(1, 1)
	m.AddPair(1, 2)
	m.AddPair(2, 2)
	assert.False(t, m.AddPair(7, 1))

	r, tp, denom := m.Recall(1)
	assert.InDelta(t, 0.5, r, 1e-12)
	assert.EqualValues(t, 1, tp)
	assert.EqualValues(t, 2, denom)
	r, _, _ = m.Recall(2)
	assert.Equal(t, 1.0, r)
	r, _, _ = m.Recall(5)
	assert.True(t, math.IsNaN(r))
	require.NoError(t, m.CheckTotal(3))
}

func TestMerge(t *testing.T) {
	reg := wallFloor(t)
	a, b, whole := New(reg), New(reg), New(reg)
	gtA, predA := []int64{1, 2, 5}, []int64{1, 1, 5}
	gtB, predB := []int64{5, 5, 2}, []int64{2, 5, 2}

	_, err := a.Accumulate(predA, gtA)
	require.NoError(t, err)
	_, err = b.Accumulate(predB, gtB)
	require.NoError(t, err)
	_, err = whole.Accumulate(append(predA, predB...), append(gtA, gtB...))
	require.NoError(t, err)

	require.NoError(t, a.Merge(b))
	assert.Equal(t, whole.IoUs(), a.IoUs())
	require.NoError(t, a.CheckTotal(6))

	other, err := labels.NewRegistry([]string{"x"}, []int{40})
	require.NoError(t, err)
	assert.True(t, faults.Is(a.Merge(New(other)), faults.InternalInvariantFault))
}

func TestCheckTotal_Mismatch(t *testing.T) {
	m := New(wallFloor(t))
	m.AddPair(1, 1)
	err := m.CheckTotal(2)
	assert.True(t, faults.Is(err, faults.InternalInvariantFault))
	assert.True(t, faults.Fatal(err))
}
