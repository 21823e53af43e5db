package match

import (
	"testing"

	"github.com/dgallion1/payrecon/internal/segment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pairView struct {
	key       segment.Identity
	a, b      *segment.EmployeeDocument
	matchedBy MatchedBy
}

func view(pairs []Pair) []pairView {
	out := make([]pairView, len(pairs))
	for i, p := range pairs {
		out[i] = pairView{p.Key, p.A, p.B, p.MatchedBy}
	}
	return out
}

func doc(key, nir, last, first string) *segment.EmployeeDocument {
	id := segment.Unidentified
	if key != "" {
		id = segment.IdentityOf(key)
	}
	return &segment.EmployeeDocument{Identity: id, NIR: nir, LastName: last, FirstName: first}
}

func TestPairMaps_SameNIR(t *testing.T) {
	a := doc("1850578006084", "1850578006084", "DUPONT", "Jean")
	b := doc("1850578006084", "1850578006084", "DUPONT", "Jean")

	pairs := PairMaps(segment.NewDocuments(a), segment.NewDocuments(b))
	require.Len(t, pairs, 1)
	assert.Equal(t, ByNIR, pairs[0].MatchedBy)
	assert.Same(t, a, pairs[0].A)
	assert.Same(t, b, pairs[0].B)
}

func TestPairMaps_DifferentKeyEqualNIR(t *testing.T) {
	a := doc("1850578006084", "1850578006084", "", "")
	b := doc("E042", "1850578006084", "", "")

	pairs := PairMaps(segment.NewDocuments(a), segment.NewDocuments(b))
	require.Len(t, pairs, 1)
	assert.Equal(t, ByNIR, pairs[0].MatchedBy)
	assert.Same(t, a, pairs[0].A)
	assert.Same(t, b, pairs[0].B)
	assert.Equal(t, a.Identity, pairs[0].Key)
}

func TestPairMaps_ExactKeyWithoutNIR(t *testing.T) {
	a := doc("E042", "", "", "")
	b := doc("E042", "", "", "")

	pairs := PairMaps(segment.NewDocuments(a), segment.NewDocuments(b))
	require.Len(t, pairs, 1)
	assert.Equal(t, ByExactKey, pairs[0].MatchedBy)
}

func TestPairMaps_NameFallback(t *testing.T) {
	a := doc("E042", "", "Dupont", "Jean")
	b := doc("B-7", "", "DUPONT ", "JEAN")
	other := doc("B-9", "", "MARTIN", "Sophie")

	pairs := PairMaps(segment.NewDocuments(a), segment.NewDocuments(b, other))
	assert.ElementsMatch(t, []pairView{
		{a.Identity, a, b, ByName},
		{other.Identity, nil, other, ByEmployeeCode},
	}, view(pairs))
}

func TestPairMaps_NameFallbackFromSideB(t *testing.T) {
	a := doc("E042", "", "DUPONT", "Jean")
	other := doc("E043", "", "DURAND", "Paul")
	b := doc("1850578006084", "1850578006084", "DUPONT", "Jean")

	pairs := PairMaps(segment.NewDocuments(other, a), segment.NewDocuments(b))
	assert.ElementsMatch(t, []pairView{
		{other.Identity, other, nil, ByEmployeeCode},
		{a.Identity, a, b, ByName},
	}, view(pairs))
}

func TestPairMaps_NameRequiresSurname(t *testing.T) {
	a := doc("E042", "", "", "Jean")
	b := doc("B-7", "", "", "Jean")

	pairs := PairMaps(segment.NewDocuments(a), segment.NewDocuments(b))
	assert.ElementsMatch(t, []pairView{
		{a.Identity, a, nil, ByEmployeeCode},
		{b.Identity, nil, b, ByEmployeeCode},
	}, view(pairs))
}

func TestPairMaps_CandidateUsedOnce(t *testing.T) {
	a1 := doc("E1", "", "DUPONT", "Jean")
	a2 := doc("E2", "", "DUPONT", "Jean")
	b := doc("B1", "", "DUPONT", "Jean")

	pairs := PairMaps(segment.NewDocuments(a1, a2), segment.NewDocuments(b))
	assert.ElementsMatch(t, []pairView{
		{a1.Identity, a1, b, ByName},
		{a2.Identity, a2, nil, ByEmployeeCode},
	}, view(pairs))
}

func TestPairMaps_CandidateWithOwnPairIsNotStolen(t *testing.T) {
	// B's DUPONT is keyed E1 in both files, so it pairs by key, not with A's E9.
	a9 := doc("E9", "", "DUPONT", "Jean")
	a1 := doc("E1", "", "", "")
	b1 := doc("E1", "", "DUPONT", "Jean")

	pairs := PairMaps(segment.NewDocuments(a9, a1), segment.NewDocuments(b1))
	assert.ElementsMatch(t, []pairView{
		{a9.Identity, a9, nil, ByEmployeeCode},
		{a1.Identity, a1, b1, ByExactKey},
	}, view(pairs))
}

func TestPairMaps_SingleDocumentSentinel(t *testing.T) {
	a := doc("", "", "", "")
	b := doc("", "", "", "")

	pairs := PairMaps(segment.NewDocuments(a), segment.NewDocuments(b))
	require.Len(t, pairs, 1)
	assert.True(t, pairs[0].Key.IsUnidentified())
	assert.Equal(t, BySingleDocument, pairs[0].MatchedBy)
}

func TestPairMaps_OneSidedSentinel(t *testing.T) {
	a := doc("", "", "", "")
	b := doc("E042", "", "", "")

	pairs := PairMaps(segment.NewDocuments(a), segment.NewDocuments(b))
	assert.ElementsMatch(t, []pairView{
		{segment.Unidentified, a, nil, BySingleDocument},
		{b.Identity, nil, b, ByEmployeeCode},
	}, view(pairs))
}

func TestPairMaps_EveryDocumentAppearsOnce(t *testing.T) {
	as := segment.NewDocuments(
		doc("", "", "", ""),
		doc("1", "1000000000001", "A", "X"),
		doc("2", "", "B", "Y"),
		doc("3", "", "C", "Z"),
	)
	bs := segment.NewDocuments(
		doc("1", "1000000000001", "A", "X"),
		doc("9", "", "B", "Y"),
		doc("8", "", "Q", "Q"),
	)

	seenA := map[*segment.EmployeeDocument]int{}
	seenB := map[*segment.EmployeeDocument]int{}
	keys := map[segment.Identity]int{}
	for _, p := range PairMaps(as, bs) {
		keys[p.Key]++
		if p.A != nil {
			seenA[p.A]++
		}
		if p.B != nil {
			seenB[p.B]++
		}
		assert.False(t, p.A == nil && p.B == nil)
	}
	for _, d := range as.All() {
		assert.Equal(t, 1, seenA[d], "A doc %s", d.Identity)
	}
	for _, d := range bs.All() {
		assert.Equal(t, 1, seenB[d], "B doc %s", d.Identity)
	}
	for k, n := range keys {
		assert.Equal(t, 1, n, "key %s", k)
	}
}

func TestPairMaps_Empty(t *testing.T) {
	assert.Empty(t, PairMaps(segment.NewDocuments(), segment.NewDocuments()))
	assert.Empty(t, PairMaps(nil, nil))
}

func TestMatchedBy_Label(t *testing.T) {
	assert.Equal(t, "Nom + Prénom", ByName.Label())
	assert.Equal(t, "Unique", BySingleDocument.Label())
	assert.Equal(t, "other", MatchedBy("other").Label())
}
