package detect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/pci-dss-extractor/internal/lexicon"
)

func TestDetect_English(t *testing.T) {
	d := NewDetector()

	text := `PCI DSS SAQ D v4.0.1 Requirements and Testing Procedures
	• Examine system configuration standards.
	• Interview responsible personnel.
	Guidance: verify that controls are In Place. Applicability Notes apply.`

	res := d.Detect(text)
	assert.Equal(t, lexicon.CodeEnglish, res.Code)
	assert.Greater(t, res.Confidence, 0.5)
	assert.False(t, res.Fallback)
	assert.Empty(t, res.FallbackReason)
	assert.Equal(t, "English extractor", res.ExtractorLabel)
	require.Len(t, res.Scores, 2)
	assert.Zero(t, res.Scores[0].Hits)
}

func TestDetect_French(t *testing.T) {
	d := NewDetector()

	text := `SAQ D de PCI DSS v4.0.1 Exigences et procédures
	• Examiner les normes de configuration.
	• Interroger le personnel responsable.
	Conseils : vérifier que les contrôles sont En Place. Notes d’Applicabilité.`

	res := d.Detect(text)
	assert.Equal(t, lexicon.CodeFrench, res.Code)
	assert.Greater(t, res.Confidence, 0.5)
	assert.False(t, res.Fallback)
	assert.Equal(t, "Français", res.Name)
	assert.Equal(t, "French", res.NameEN)
}

func TestDetect_NoKeywordsFallsBackToFrench(t *testing.T) {
	d := NewDetector()

	res := d.Detect("Lorem ipsum dolor sit amet, 1234.")
	assert.Equal(t, lexicon.CodeFrench, res.Code)
	assert.Zero(t, res.Confidence)
	assert.Equal(t, "0.0%", res.ConfidencePercentage)
	assert.True(t, res.Fallback)
	assert.Equal(t, FallbackNoKeywords, res.FallbackReason)
	assert.True(t, res.LowConfidence)
}

func TestDetect_TieFallsBackToFrench(t *testing.T) {
	d := NewDetector()

	res := d.Detect("requirements exigences")
	assert.Equal(t, lexicon.CodeFrench, res.Code)
	assert.InDelta(t, 0.5, res.Confidence, 1e-9)
	assert.Equal(t, "50.0%", res.ConfidencePercentage)
	assert.True(t, res.Fallback)
	assert.Equal(t, FallbackTie, res.FallbackReason)
	assert.True(t, res.LowConfidence)
}

func TestDetect_ConfidenceIsShareOfAllHits(t *testing.T) {
	d := NewDetector()

	// 3 English hits, 1 French hit
	res := d.Detect("guidance guidance examine conseils")
	assert.Equal(t, lexicon.CodeEnglish, res.Code)
	assert.InDelta(t, 0.75, res.Confidence, 1e-9)
	assert.Equal(t, "75.0%", res.ConfidencePercentage)
	assert.False(t, res.LowConfidence)
}

func TestDetect_Deterministic(t *testing.T) {
	d := NewDetector()
	text := "Examiner conseils guidance"
	assert.Equal(t, d.Detect(text), d.Detect(text))
}

func TestDescribe(t *testing.T) {
	d := NewDetector()

	res, ok := d.Describe(lexicon.CodeEnglish)
	require.True(t, ok)
	assert.Equal(t, lexicon.CodeEnglish, res.Code)
	assert.Equal(t, FallbackForced, res.FallbackReason)
	assert.False(t, res.Fallback)
	assert.Equal(t, 1.0, res.Confidence)

	_, ok = d.Describe("de")
	assert.False(t, ok)
}

func TestNewDetectorWithSet(t *testing.T) {
	_, err := NewDetectorWithSet(nil, 0.5)
	assert.Error(t, err)

	_, err = NewDetectorWithSet(lexicon.Default(), 1.5)
	assert.Error(t, err)

	d, err := NewDetectorWithSet(lexicon.Default(), 0.9)
	require.NoError(t, err)
	assert.Equal(t, 0.9, d.Threshold())

	res := d.Detect("guidance guidance examine conseils")
	assert.True(t, res.LowConfidence)
}

func TestCountWord(t *testing.T) {
	tests := []struct {
		name string
		text string
		word string
		want int
	}{
		{name: "single", text: "examine the logs", word: "examine", want: 1},
		{name: "repeated", text: "examine examine", word: "examine", want: 2},
		{name: "embedded prefix", text: "reexamine", word: "examine", want: 0},
		{name: "embedded suffix", text: "examiner", word: "examine", want: 0},
		{name: "punctuation boundary", text: "(examine), examine.", word: "examine", want: 2},
		{name: "accented neighbour", text: "éexaminer", word: "examiner", want: 0},
		{name: "multi word", text: "not in place / in place", word: "in place", want: 2},
		{name: "empty word", text: "anything", word: "", want: 0},
		{name: "no match", text: "nothing here", word: "guidance", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CountWord(tt.text, tt.word))
		})
	}
}

func TestNormalize(t *testing.T) {
	// decomposed e + combining acute composes to é
	assert.Equal(t, "v\u00e9rifier", Normalize("Ve\u0301rifier"))
	assert.Equal(t, "notes d'applicabilité", Normalize("Notes d\u2019Applicabilité"))
	assert.Equal(t, "en place", Normalize("En\u00a0Place"))
}
