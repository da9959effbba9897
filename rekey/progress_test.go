package rekey

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgressTracker(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgressTracker(&buf, 10, 4)

	p.Add(3) // before Start: ignored
	assert.Empty(t, buf.String())

	p.Start()
	p.Add(3)
	assert.Empty(t, buf.String(), "below report interval")

	p.Add(2)
	assert.Contains(t, buf.String(), "Rekeyed 5/10 credentials (50.0%)")

	p.Add(100)
	assert.Contains(t, buf.String(), "Rekeyed 10/10")

	p.Finish()
	assert.True(t, strings.HasSuffix(buf.String(), "\n"))
	assert.Positive(t, p.Elapsed())
}

func TestProgressTracker_ZeroTotal(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgressTracker(&buf, 0, 0)
	p.Start()
	p.Finish()
	assert.Contains(t, buf.String(), "Rekeyed 0/0 credentials (100.0%)")
}
