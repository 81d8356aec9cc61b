package recommend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/admi-n/solidity-vulnlab/src/internal/scanner"
	"github.com/admi-n/solidity-vulnlab/src/internal/signature"
)

func TestRecommendFirstEncounteredOrder(t *testing.T) {
	catalog := signature.Default()
	e := New(catalog, zaptest.NewLogger(t))

	recs := e.Recommend([]scanner.Finding{
		{SignatureID: "tx-origin", MatchCount: 1},
		{SignatureID: "reentrancy", MatchCount: 2},
		{SignatureID: "tx-origin", MatchCount: 1},
	})

	require.Len(t, recs, 2)
	assert.Equal(t, "tx-origin", recs[0].SignatureID)
	assert.Equal(t, signature.SeverityHigh, recs[0].Priority)
	assert.Equal(t, "reentrancy", recs[1].SignatureID)
	assert.Equal(t, signature.SeverityCritical, recs[1].Priority)

	sig, _ := catalog.Get("reentrancy")
	assert.Equal(t, sig.Remediations, recs[1].Options, "options are emitted unmodified")
}

func TestRecommendKeepsSharedGuidancePerSignature(t *testing.T) {
	catalog, err := signature.Load([]byte(`
signatures:
  - id: a
    name: A
    severity: high
    confidence: 0.5
    matchers: [{pattern: x}]
    remediations:
      - {id: guard, name: Guard, difficulty: Easy, security_gain: 50, code: "same"}
  - id: b
    name: B
    severity: low
    confidence: 0.5
    matchers: [{pattern: y}]
    remediations:
      - {id: guard, name: Guard, difficulty: Easy, security_gain: 50, code: "same"}
`))
	require.NoError(t, err)

	recs := New(catalog, nil).Recommend([]scanner.Finding{{SignatureID: "b"}, {SignatureID: "a"}})

	require.Len(t, recs, 2)
	assert.Equal(t, recs[0].Options, recs[1].Options)
	assert.Equal(t, signature.SeverityLow, recs[0].Priority)
}

func TestRecommendSkipsUnknownAndEmpty(t *testing.T) {
	e := New(signature.Default(), zaptest.NewLogger(t))

	assert.Empty(t, e.Recommend(nil))
	assert.Empty(t, e.Recommend([]scanner.Finding{{SignatureID: "nope"}}))
}

func TestRecommendReturnsCopies(t *testing.T) {
	catalog := signature.Default()
	e := New(catalog, nil)

	recs := e.Recommend([]scanner.Finding{{SignatureID: "reentrancy"}})
	recs[0].Options[0].Name = "mutated"

	sig, _ := catalog.Get("reentrancy")
	assert.NotEqual(t, "mutated", sig.Remediations[0].Name)
}
