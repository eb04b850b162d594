package coord

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompare(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"1.2.0", "1.1.9", 1},
		{"2.0", "1.99.99", 1},
		{"1.10", "1.9", 1},
		{"1.0.1", "1.0", 1},
		{"1.0", "1.0.0", 0},
		{"1.0", "1.0-ga", 0},
		{"1.0", "1.0.final", 0},
		{"1.0-SNAPSHOT", "1.0", -1},
		{"1.0-alpha", "1.0-beta", -1},
		{"1.0-beta-2", "1.0-beta-10", -1},
		{"1.0-M1", "1.0-RC1", -1},
		{"1.0-rc1", "1.0-cr1", 0},
		{"1.0-rc2", "1.0", -1},
		{"1.0-rc1", "1.0-SNAPSHOT", -1},
		{"1.0-sp1", "1.0", 1},
		{"1.0-jre", "1.0", 1},
		{"32.1.3-jre", "31.1-jre", 1},
		{"32.1.3-android", "32.1.3-jre", -1},
		{"1.0rc1", "1.0-rc-1", 0},
		{"1.1", "1.1-alpha", 1},
		{"1.0.0.1", "1.0", 1},
		{"007", "7", 0},
		{"12345678901234567890", "9", 1},
	}
	for _, tt := range tests {
		t.Run(tt.a+" vs "+tt.b, func(t *testing.T) {
			assert.Equal(t, tt.want, Compare(tt.a, tt.b))
			assert.Equal(t, -tt.want, Compare(tt.b, tt.a), "comparison must be antisymmetric")
		})
	}
}

func TestCompareTrailingNumeric(t *testing.T) {
	for i := 0; i < 20; i++ {
		lo := "3.4." + itoa(i)
		hi := "3.4." + itoa(i+1)
		assert.Equal(t, 1, Compare(hi, lo), "%s > %s", hi, lo)
	}
}

func itoa(i int) string {
	if i < 10 {
		return string(rune('0' + i))
	}
	return itoa(i/10) + string(rune('0'+i%10))
}

func TestLatestOf(t *testing.T) {
	_, ok := LatestOf(nil)
	assert.False(t, ok)

	_, ok = LatestOf([]string{})
	assert.False(t, ok)

	v, ok := LatestOf([]string{"1.0", "1.1", "1.0.1"})
	assert.True(t, ok)
	assert.Equal(t, "1.1", v)

	v, _ = LatestOf([]string{"2.0-SNAPSHOT", "1.9", "2.0-rc1"})
	assert.Equal(t, "2.0-SNAPSHOT", v)

	v, _ = LatestOf([]string{"1.0", "1.0.0"})
	assert.Equal(t, "1.0", v, "first of equal versions wins")
}
