// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseString(t *testing.T) {
	t.Setenv("HLSLADDER_TEST_STRING", "from-env")
	assert.Equal(t, "from-env", ParseString("HLSLADDER_TEST_STRING", "default"))
	assert.Equal(t, "default", ParseString("HLSLADDER_TEST_STRING_UNSET", "default"))

	t.Setenv("HLSLADDER_TEST_STRING_EMPTY", "")
	assert.Equal(t, "default", ParseString("HLSLADDER_TEST_STRING_EMPTY", "default"))
}

func TestParseInt(t *testing.T) {
	tests := []struct {
		name   string
		value  string
		set    bool
		want   int
		defVal int
	}{
		{"valid", "42", true, 42, 7},
		{"padded", " 3 ", true, 3, 7},
		{"invalid", "many", true, 7, 7},
		{"empty", "", true, 7, 7},
		{"unset", "", false, 7, 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.set {
				t.Setenv("HLSLADDER_TEST_INT", tt.value)
			}
			assert.Equal(t, tt.want, ParseInt("HLSLADDER_TEST_INT", tt.defVal))
		})
	}
}

func TestParseDuration(t *testing.T) {
	t.Setenv("HLSLADDER_TEST_DUR", "90s")
	assert.Equal(t, 90*time.Second, ParseDuration("HLSLADDER_TEST_DUR", time.Second))

	t.Setenv("HLSLADDER_TEST_DUR_BAD", "ninety")
	assert.Equal(t, time.Second, ParseDuration("HLSLADDER_TEST_DUR_BAD", time.Second))
}

func TestParseBool(t *testing.T) {
	for value, want := range map[string]bool{"true": true, "YES": true, "1": true, "false": false, "no": false, "0": false} {
		t.Setenv("HLSLADDER_TEST_BOOL", value)
		assert.Equal(t, want, ParseBool("HLSLADDER_TEST_BOOL", !want), value)
	}
	t.Setenv("HLSLADDER_TEST_BOOL", "maybe")
	assert.True(t, ParseBool("HLSLADDER_TEST_BOOL", true))
}
