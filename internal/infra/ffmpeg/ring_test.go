// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package ffmpeg

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLineRing(t *testing.T) {
	r := NewLineRing(3)
	assert.Empty(t, r.Lines())

	r.Add("a")
	r.Add("b")
	assert.Equal(t, []string{"a", "b"}, r.Lines())

	r.Add("c")
	r.Add("d")
	assert.Equal(t, []string{"b", "c", "d"}, r.Lines())

	for i := 0; i < 10; i++ {
		r.Add(fmt.Sprint(i))
	}
	assert.Equal(t, []string{"7", "8", "9"}, r.Lines())
}

func TestLineRing_DefaultCapacity(t *testing.T) {
	r := NewLineRing(0)
	for i := 0; i < 60; i++ {
		r.Add(fmt.Sprint(i))
	}
	lines := r.Lines()
	assert.Len(t, lines, 50)
	assert.Equal(t, "10", lines[0])
}
