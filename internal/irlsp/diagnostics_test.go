package irlsp

import (
	"testing"

	"github.com/arneph/katara-ir/internal/irchecker"
	"github.com/arneph/katara-ir/internal/irparse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertParseErrorsConvertsToZeroBasedPositions(t *testing.T) {
	errs := []irparse.ParseError{
		{Pos: irparse.Position{Line: 3, Col: 5}, Msg: "unexpected token"},
	}
	diagnostics := ConvertParseErrors(errs)
	require.Len(t, diagnostics, 1)

	d := diagnostics[0]
	assert.Equal(t, uint32(2), d.Range.Start.Line)
	assert.Equal(t, uint32(4), d.Range.Start.Character)
	assert.Equal(t, "unexpected token", d.Message)
}

func TestConvertParseErrorsClampsNegativePositions(t *testing.T) {
	errs := []irparse.ParseError{
		{Pos: irparse.Position{Line: 0, Col: 0}, Msg: "bad"},
	}
	diagnostics := ConvertParseErrors(errs)
	require.Len(t, diagnostics, 1)
	assert.Equal(t, uint32(0), diagnostics[0].Range.Start.Line)
	assert.Equal(t, uint32(0), diagnostics[0].Range.Start.Character)
}

func TestConvertIssuesAnchorsAtDocumentStart(t *testing.T) {
	src := `@0 () => () {
{0}
  jcc #t, {1}, {2}
{1}
  jmp {2}
{2}
  %0:i64 = phi #0:i64{0}
  ret
}
`
	prog, errs := irparse.Parse([]byte(src))
	require.Empty(t, errs)

	issues := irchecker.Check(prog)
	require.NotEmpty(t, issues)

	diagnostics := ConvertIssues(issues)
	require.Len(t, diagnostics, len(issues))
	for _, d := range diagnostics {
		assert.Equal(t, uint32(0), d.Range.Start.Line)
		assert.Equal(t, uint32(0), d.Range.Start.Character)
		assert.NotEmpty(t, d.Message)
	}
}

func TestMax0(t *testing.T) {
	assert.Equal(t, 0, max0(-5))
	assert.Equal(t, 0, max0(0))
	assert.Equal(t, 3, max0(3))
}
