package compliance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/admi-n/solidity-vulnlab/src/internal/scanner"
	"github.com/admi-n/solidity-vulnlab/src/internal/signature"
)

func TestCheckNoFindingsIsCompliant(t *testing.T) {
	c := New(signature.Default())

	sum := c.Check(nil)

	assert.True(t, sum.Compliant)
	assert.Equal(t, sum.Total, sum.Passed)
	for _, r := range sum.Results {
		assert.True(t, r.Compliant, r.StandardID)
		assert.Empty(t, r.Violations)
	}
}

func TestCheckReportsViolations(t *testing.T) {
	c := New(signature.Default())
	findings := []scanner.Finding{{SignatureID: "reentrancy"}, {SignatureID: "tx-origin"}}

	sum := c.Check(findings)

	require.NotEmpty(t, sum.Results)
	assert.False(t, sum.Compliant)
	byID := map[string]Result{}
	for _, r := range sum.Results {
		byID[r.StandardID] = r
	}
	assert.Equal(t, []string{"reentrancy"}, byID["swc-critical"].Violations)
	assert.Equal(t, []string{"tx-origin"}, byID["access-control"].Violations)
	assert.Equal(t, []string{"reentrancy"}, byID["value-transfer"].Violations)
	assert.True(t, byID["arithmetic-safety"].Compliant)
	assert.True(t, byID["randomness"].Compliant)
	assert.Equal(t, 2, sum.Passed)
}

func TestCheckIsDeterministic(t *testing.T) {
	c := New(signature.Default())
	findings := []scanner.Finding{{SignatureID: "unchecked-call"}, {SignatureID: "integer-overflow"}}

	first := c.Check(findings)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, c.Check(findings))
	}
}
