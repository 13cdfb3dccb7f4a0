package matcher

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseExperience(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want experienceBand
		ok   bool
	}{
		{"2-4 years", experienceBand{Min: 2, Max: 4}, true},
		{"0-1 yrs", experienceBand{Min: 0, Max: 1}, true},
		{"3 years", experienceBand{Min: 3, Max: 3}, true},
		{"5+ years", experienceBand{Min: 5, Max: math.Inf(1)}, true},
		{"Fresher", experienceBand{Min: 0, Max: 0}, true},
		{"Entry Level", experienceBand{Min: 0, Max: 0}, true},
		{"4 - 2 years", experienceBand{Min: 2, Max: 4}, true},
		{"", experienceBand{}, false},
		{"Any graduate welcome", experienceBand{}, false},
	}
	for _, tc := range cases {
		got, ok := parseExperience(tc.in)
		require.Equal(t, tc.ok, ok, tc.in)
		if ok {
			require.Equal(t, tc.want, got, tc.in)
		}
	}
}

func TestBandOverlap(t *testing.T) {
	t.Parallel()

	require.True(t, experienceBand{Min: 2, Max: 4}.overlaps(experienceBand{Min: 3, Max: 3}))
	require.True(t, experienceBand{Min: 0, Max: 0}.overlaps(experienceBand{Min: 0, Max: 1}))
	require.True(t, experienceBand{Min: 5, Max: math.Inf(1)}.overlaps(experienceBand{Min: 7, Max: 9}))
	require.False(t, experienceBand{Min: 0, Max: 1}.overlaps(experienceBand{Min: 2, Max: 4}))
}

func TestTokenizeKeepsSkillSymbols(t *testing.T) {
	t.Parallel()

	toks := tokenize("C++ and C# developer, 3+ years of Go")
	require.Contains(t, toks, "c++")
	require.Contains(t, toks, "c#")
	require.Contains(t, toks, "developer")
	require.Contains(t, toks, "go")
	require.NotContains(t, toks, "and")
	require.NotContains(t, toks, "of")
}
