package summarizer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShortTextIsKept(t *testing.T) {
	s := New(2, 0)
	assert.Equal(t, "Tests a login button. Checks the click.", s.Summarize("Tests a  login button.\n Checks the click."))
}

func TestKeepsRecurringSentencesInOrder(t *testing.T) {
	s := New(2, 1000)
	text := "Selenium checks for the login form. " +
		"The weather was nice. " +
		"The login form test fills the login fields. " +
		"Lunch happened."
	got := s.Summarize(text)
	assert.Equal(t, "Selenium checks for the login form. The login form test fills the login fields.", got)
}

func TestTruncatesAtWordBoundary(t *testing.T) {
	s := New(1, 20)
	got := s.Summarize("A very long single sentence about scrolling lists without any end")
	assert.True(t, strings.HasSuffix(got, "..."))
	assert.LessOrEqual(t, len(got), 23)
	assert.NotContains(t, got, "scrol ")
}
