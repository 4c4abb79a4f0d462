package subtitle

import (
	"fmt"
	"math"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatTimestamp(t *testing.T) {
	t.Run("should format zero as all-zero timestamp", func(t *testing.T) {
		assert.Equal(t, "00:00:00,000", FormatTimestamp(0))
	})

	t.Run("should format hours minutes seconds and milliseconds", func(t *testing.T) {
		assert.Equal(t, "01:01:01,500", FormatTimestamp(3661.5))
	})

	t.Run("should truncate fractional milliseconds instead of rounding", func(t *testing.T) {
		// 3661.2345 carries a 4th decimal digit; truncation keeps ,234
		assert.Equal(t, "01:01:01,234", FormatTimestamp(3661.2345))
		assert.Equal(t, "00:00:00,999", FormatTimestamp(0.9999))
	})

	t.Run("should zero-pad all fields", func(t *testing.T) {
		assert.Equal(t, "00:00:07,000", FormatTimestamp(7))
		assert.Equal(t, "00:00:00,125", FormatTimestamp(0.125))
		assert.Equal(t, "00:09:07,500", FormatTimestamp(547.5))
	})

	t.Run("should widen the hours field beyond two digits", func(t *testing.T) {
		// 100 hours of media
		assert.Equal(t, "100:00:00,000", FormatTimestamp(360000))
	})

	t.Run("should always match the subtitle timestamp pattern", func(t *testing.T) {
		pattern := regexp.MustCompile(`^\d{2,}:\d{2}:\d{2},\d{3}$`)

		inputs := []float64{0, 0.001, 1.5, 59.999, 60, 3599.5, 3600, 3661.2345, 86399.123, 360000.5}
		for _, seconds := range inputs {
			formatted := FormatTimestamp(seconds)
			assert.Regexp(t, pattern, formatted, "input %v", seconds)
		}
	})

	t.Run("should round-trip to within one millisecond", func(t *testing.T) {
		inputs := []float64{0, 0.25, 1.5, 61.061, 3661.2345, 7322.999, 86399.001}
		for _, seconds := range inputs {
			formatted := FormatTimestamp(seconds)
			parsed, err := parseTimestamp(formatted)
			require.NoError(t, err, "input %v", seconds)
			assert.InDelta(t, seconds, parsed, 0.001, "input %v", seconds)
		}
	})
}

func TestFormatVTTTimestamp(t *testing.T) {
	t.Run("should use a dot millisecond separator", func(t *testing.T) {
		assert.Equal(t, "01:01:01.234", formatVTTTimestamp(3661.2345))
	})
}

func TestParseTimestamp(t *testing.T) {
	t.Run("should reject out-of-range fields", func(t *testing.T) {
		invalid := []string{
			"00:60:00,000",
			"00:00:60,000",
			"not a timestamp",
		}
		for _, ts := range invalid {
			_, err := parseTimestamp(ts)
			assert.Error(t, err, "input %q", ts)
		}
	})

	t.Run("should parse widened hours", func(t *testing.T) {
		parsed, err := parseTimestamp("100:00:00,500")
		require.NoError(t, err)
		assert.InDelta(t, 360000.5, parsed, 0.0001)
	})
}

func BenchmarkFormatTimestamp(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_ = FormatTimestamp(math.Mod(float64(i)*1.7, 86400))
	}
}

func ExampleFormatTimestamp() {
	fmt.Println(FormatTimestamp(186.4))
	// Output: 00:03:06,400
}
