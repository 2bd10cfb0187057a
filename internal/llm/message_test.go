package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseDataURL_RoundTripsWithDataURL(t *testing.T) {
	att, ok := ParseDataURL("data:image/png;base64,QUJD")
	assert := assert.New(t)
	assert.True(ok)
	assert.Equal("image/png", att.MIMEType)
	assert.Equal("QUJD", att.Base64Data)
	assert.Equal("data:image/png;base64,QUJD", att.DataURL())
}

func TestParseDataURL_RejectsNonDataURL(t *testing.T) {
	_, ok := ParseDataURL("https://example.com/img.png")
	assert.False(t, ok)
}

func TestParseDataURL_RejectsMissingBase64Marker(t *testing.T) {
	_, ok := ParseDataURL("data:image/png,QUJD")
	assert.False(t, ok)
}

func TestKnob_EnabledAndDisabled(t *testing.T) {
	e := Enabled(5)
	v, ok := e.Value()
	assert.True(t, ok)
	assert.Equal(t, 5, v)

	d := Disabled[int]()
	_, ok = d.Value()
	assert.False(t, ok)
}
