package rollbuf

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func samplesRange(n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(i)
	}
	return out
}

func TestPushWithinCapacity(t *testing.T) {
	buf := New(10)
	buf.Push(samplesRange(4))
	require.Equal(t, 4, buf.Len())
	require.Equal(t, samplesRange(4), buf.Snapshot())
}

func TestPushDropsOldestBeyondCapacity(t *testing.T) {
	buf := New(4)
	buf.Push(samplesRange(3))
	buf.Push([]float32{10, 11, 12})
	require.Equal(t, 4, buf.Len())
	require.Equal(t, []float32{2, 10, 11, 12}, buf.Snapshot())
}

func TestPushSuffixInvariantAcrossManySmallPushes(t *testing.T) {
	const capacity = 50
	buf := New(capacity)
	var total []float32
	for i := 0; i < 200; i++ {
		chunk := []float32{float32(i)}
		buf.Push(chunk)
		total = append(total, chunk...)

		want := total
		if len(want) > capacity {
			want = want[len(want)-capacity:]
		}
		require.LessOrEqual(t, buf.Len(), capacity)
		require.Equal(t, want, buf.Snapshot())
	}
}

func TestClearResetsLenKeepsCapacity(t *testing.T) {
	buf := New(8)
	buf.Push(samplesRange(8))
	buf.Clear()
	require.Equal(t, 0, buf.Len())
	require.Equal(t, 8, buf.Capacity())
	require.Empty(t, buf.Snapshot())
}

func TestPushEmptyIsNoop(t *testing.T) {
	buf := New(4)
	buf.Push(samplesRange(2))
	buf.Push(nil)
	require.Equal(t, 2, buf.Len())
}
