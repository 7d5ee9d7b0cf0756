package frame

import (
	"fmt"
	"image"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFrame(number int64) *Frame {
	return &Frame{
		Image:     image.NewGray(image.Rect(0, 0, 4, 4)),
		Timestamp: time.Now(),
		Number:    number,
		Source:    "test",
	}
}

func TestRingBufferAddAndEvict(t *testing.T) {
	t.Parallel()

	rb := NewRingBuffer(3)
	for i := int64(0); i < 5; i++ {
		rb.Add(testFrame(i))
	}

	assert.Equal(t, 3, rb.Len())
	assert.Equal(t, []int64{2, 3, 4}, rb.Numbers())

	minNum, maxNum, ok := rb.Range()
	require.True(t, ok)
	assert.Equal(t, int64(2), minNum)
	assert.Equal(t, int64(4), maxNum)
}

func TestRingBufferRetainsMostRecent(t *testing.T) {
	t.Parallel()

	const capacity = 7
	const inserts = 100

	rb := NewRingBuffer(capacity)
	for i := int64(0); i < inserts; i++ {
		rb.Add(testFrame(i))
	}

	require.Equal(t, capacity, rb.Len())
	want := make([]int64, 0, capacity)
	for i := int64(inserts - capacity); i < inserts; i++ {
		want = append(want, i)
	}
	assert.Equal(t, want, rb.Numbers())
}

func TestRingBufferGetByIndex(t *testing.T) {
	t.Parallel()

	rb := NewRingBuffer(4)
	for i := int64(0); i < 6; i++ {
		rb.Add(testFrame(i))
	}

	// Index 0 is the oldest retained frame.
	require.NotNil(t, rb.Get(0))
	assert.Equal(t, int64(2), rb.Get(0).Number)
	assert.Equal(t, int64(5), rb.Get(3).Number)
	assert.Nil(t, rb.Get(4))
	assert.Nil(t, rb.Get(-1))
}

func TestRingBufferLatest(t *testing.T) {
	t.Parallel()

	rb := NewRingBuffer(2)
	assert.Nil(t, rb.Latest())

	rb.Add(testFrame(10))
	rb.Add(testFrame(11))
	rb.Add(testFrame(12))

	require.NotNil(t, rb.Latest())
	assert.Equal(t, int64(12), rb.Latest().Number)
}

func TestRingBufferByNumber(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		capacity int
		inserts  int64
		lookup   int64
		found    bool
	}{
		{"present newest", 5, 10, 9, true},
		{"present oldest retained", 5, 10, 5, true},
		{"evicted", 5, 10, 4, false},
		{"never inserted", 5, 10, 42, false},
		{"empty buffer", 5, 0, 0, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			rb := NewRingBuffer(tc.capacity)
			for i := int64(0); i < tc.inserts; i++ {
				rb.Add(testFrame(i))
			}

			got := rb.ByNumber(tc.lookup)
			if tc.found {
				require.NotNil(t, got)
				assert.Equal(t, tc.lookup, got.Number)
			} else {
				assert.Nil(t, got)
			}
		})
	}
}

func TestRingBufferClear(t *testing.T) {
	t.Parallel()

	rb := NewRingBuffer(3)
	rb.Add(testFrame(0))
	rb.Add(testFrame(1))
	rb.Clear()

	assert.Equal(t, 0, rb.Len())
	assert.Nil(t, rb.Latest())
	_, _, ok := rb.Range()
	assert.False(t, ok)
	assert.InDelta(t, 0.0, rb.FillPercent(), 0.001)
}

func TestRingBufferFillPercent(t *testing.T) {
	t.Parallel()

	rb := NewRingBuffer(4)
	assert.InDelta(t, 0.0, rb.FillPercent(), 0.001)

	rb.Add(testFrame(0))
	assert.InDelta(t, 25.0, rb.FillPercent(), 0.001)

	for i := int64(1); i < 8; i++ {
		rb.Add(testFrame(i))
	}
	assert.InDelta(t, 100.0, rb.FillPercent(), 0.001)
}

func TestRingBufferConcurrentAccess(t *testing.T) {
	t.Parallel()

	rb := NewRingBuffer(16)
	var wg sync.WaitGroup

	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(base int64) {
			defer wg.Done()
			for i := int64(0); i < 250; i++ {
				rb.Add(testFrame(base*1000 + i))
				rb.Latest()
				rb.ByNumber(base*1000 + i)
			}
		}(int64(w))
	}
	wg.Wait()

	assert.Equal(t, 16, rb.Len())
}

func TestFrameClone(t *testing.T) {
	t.Parallel()

	img := image.NewGray(image.Rect(0, 0, 2, 2))
	img.Pix[0] = 17

	orig := &Frame{Image: img, Timestamp: time.Now(), Number: 3, Source: "cam"}
	clone := orig.Clone()

	require.NotNil(t, clone)
	assert.Equal(t, orig.Number, clone.Number)
	assert.Equal(t, orig.Source, clone.Source)

	// Mutating the original pixel data must not leak into the clone.
	img.Pix[0] = 99
	cloned, ok := clone.Image.(*image.Gray)
	require.True(t, ok)
	assert.Equal(t, uint8(17), cloned.Pix[0])
}

func TestCloneImageFormats(t *testing.T) {
	t.Parallel()

	rect := image.Rect(0, 0, 3, 3)
	images := []image.Image{
		image.NewRGBA(rect),
		image.NewNRGBA(rect),
		image.NewGray(rect),
		image.NewGray16(rect),
	}

	for i, img := range images {
		t.Run(fmt.Sprintf("format_%d", i), func(t *testing.T) {
			t.Parallel()

			c := CloneImage(img)
			require.NotNil(t, c)
			assert.Equal(t, img.Bounds(), c.Bounds())
			assert.NotSame(t, img, c)
		})
	}

	assert.Nil(t, CloneImage(nil))
}
