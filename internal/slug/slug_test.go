package slug

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMake_SimpleTitle_Lowercases(t *testing.T) {
	require.Equal(t, "intro", Make("Intro"))
}

func TestMake_SpacesAndPunctuation_CollapseToSingleHyphen(t *testing.T) {
	require.Equal(t, "unit-1", Make("Unit 1"))
	require.Equal(t, "whats-next", Make("What's next?"))
	require.Equal(t, "a-b-c", Make("a -- b:: c"))
}

func TestMake_Diacritics_Folded(t *testing.T) {
	require.Equal(t, "ecriture-numerique", Make("Écriture numérique"))
}

func TestMake_LeadingTrailingSeparators_Trimmed(t *testing.T) {
	require.Equal(t, "trimmed", Make("  trimmed!  "))
}

func TestMake_EmptyTitle_EmptySlug(t *testing.T) {
	require.Equal(t, "", Make(""))
}
