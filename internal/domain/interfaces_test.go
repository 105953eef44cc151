package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSuiteCountStats(t *testing.T) {
	s := Suite{Tests: []GeneratedTest{
		{Name: "a", Kind: KindFunctional, AIGenerated: true},
		{Name: "b", Kind: KindAdapted},
		{Name: "c", Kind: KindEdgeCase, AIGenerated: true},
		{Name: "d", Kind: KindEdgeCase},
		{Name: "e", Kind: KindIntegration},
		{Name: "f", Kind: KindFallback},
	}}
	s.CountStats()

	assert.Equal(t, SuiteStats{Total: 6, AIGenerated: 2, Adapted: 1, Fallback: 1, EdgeCase: 2, Integration: 1}, s.Stats)
}
