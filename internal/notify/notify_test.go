package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeAddsPrefix(t *testing.T) {
	s := NewSender("generic+https://example.com/send?to={phone}", "+91")

	assert.Equal(t, "+919657838159", s.normalize("9657838159"))
	assert.Equal(t, "+919657838159", s.normalize(" 9657838159 "))
	assert.Equal(t, "+15551234567", s.normalize("+15551234567"))
	assert.Equal(t, "", s.normalize(""))
}

func TestBuildURLSubstitutesPhone(t *testing.T) {
	s := NewSender("generic+https://example.com/send?to={phone}", "+91")

	got := s.buildURL("9657838159")
	assert.Equal(t, "generic+https://example.com/send?to=%2B919657838159", got)
}

func TestSendWithoutTemplateFails(t *testing.T) {
	s := NewSender("", "+91")
	assert.Error(t, s.Send("9657838159", "hello"))
}
