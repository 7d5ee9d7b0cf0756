package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilderBasics(t *testing.T) {
	t.Parallel()

	base := NewStd("source unreachable")
	err := New(base).
		Component("pipeline").
		Category(CategorySourceOpen).
		Context("source", "camera0").
		Build()

	var ee *EnhancedError
	require.True(t, As(err, &ee))
	assert.Equal(t, "source unreachable", ee.Error())
	assert.Equal(t, "pipeline", ee.Component)
	assert.Equal(t, CategorySourceOpen, ee.Category)

	v, ok := ee.GetContext("source")
	require.True(t, ok)
	assert.Equal(t, "camera0", v)

	assert.True(t, Is(err, base))
}

func TestBuilderDefaultsToGeneric(t *testing.T) {
	t.Parallel()

	err := Newf("bad state: %d", 7).Build()

	var ee *EnhancedError
	require.True(t, As(err, &ee))
	assert.Equal(t, CategoryGeneric, ee.Category)
	assert.False(t, ee.Timestamp.IsZero())
}

func TestBuilderPreservesWrappedCategory(t *testing.T) {
	t.Parallel()

	inner := New(NewStd("disk full")).Category(CategoryDiskUsage).Build()
	outer := New(fmt.Errorf("recording session: %w", inner)).Build()

	var ee *EnhancedError
	require.True(t, As(outer, &ee))
	assert.Equal(t, CategoryDiskUsage, ee.Category)
}

func TestCategoryMatchingWithIs(t *testing.T) {
	t.Parallel()

	a := New(NewStd("first")).Category(CategoryProcessing).Build()
	b := New(NewStd("second")).Category(CategoryProcessing).Build()
	c := New(NewStd("third")).Category(CategoryRecording).Build()

	assert.True(t, Is(a, b))
	assert.False(t, Is(a, c))
}

func TestFrameContext(t *testing.T) {
	t.Parallel()

	err := New(NewStd("transform fault")).
		Category(CategoryProcessing).
		FrameContext(42, "convolution").
		Build()

	var ee *EnhancedError
	require.True(t, As(err, &ee))

	num, ok := ee.GetContext("frame_number")
	require.True(t, ok)
	assert.Equal(t, int64(42), num)

	src, ok := ee.GetContext("frame_source")
	require.True(t, ok)
	assert.Equal(t, "convolution", src)
}

func TestComponentAutoDetection(t *testing.T) {
	t.Parallel()

	// Built from within the errors package itself, so detection has
	// nothing to report.
	err := New(NewStd("plain")).Build()

	var ee *EnhancedError
	require.True(t, As(err, &ee))
	assert.Equal(t, ComponentUnknown, ee.Component)
}
