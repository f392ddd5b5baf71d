// Copyright (c) 2026 Changas. All rights reserved.
// Author: dev@changas.app

package slug_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/changas-app/changas/pkg/slug"
)

/*
TestFrom covers accent folding, casing, and hyphen cleanup.
*/
func TestFrom(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"simple", "Ana Garcia", "ana-garcia"},
		{"accents", "Ana García", "ana-garcia"},
		{"enie", "Señor Plomería", "senor-plomeria"},
		{"punctuation", "María, González!", "maria-gonzalez"},
		{"multiple_spaces", "a   b", "a-b"},
		{"leading_trailing", " --hola-- ", "hola"},
		{"digits", "Depto 4B", "depto-4b"},
		{"empty", "", ""},
		{"only_symbols", "!!!", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, slug.From(tt.input))
		})
	}
}
