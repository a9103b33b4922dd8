// Copyright (c) 2025 neisii
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"strings"
	"testing"
)

func TestNewTheme_ExplicitBackground(t *testing.T) {
	tests := []struct {
		name     string
		wantDark bool
		glamour  string
	}{
		{"dark", true, "dark"},
		{"LIGHT", false, "light"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			theme := NewTheme(tt.name)
			if theme.IsDark != tt.wantDark {
				t.Errorf("IsDark = %v, want %v", theme.IsDark, tt.wantDark)
			}
			if got := theme.GlamourStyle(); got != tt.glamour {
				t.Errorf("GlamourStyle() = %q, want %q", got, tt.glamour)
			}
		})
	}
}

func TestGetLayoutMode(t *testing.T) {
	theme := NewTheme("dark")
	tests := []struct {
		width int
		want  LayoutMode
	}{
		{40, LayoutNarrow},
		{59, LayoutNarrow},
		{60, LayoutMedium},
		{99, LayoutMedium},
		{100, LayoutWide},
	}
	for _, tt := range tests {
		theme.SetSize(tt.width, 24)
		if got := theme.GetLayoutMode(); got != tt.want {
			t.Errorf("GetLayoutMode() at width %d = %v, want %v", tt.width, got, tt.want)
		}
	}
}

func TestRenderHelpersKeepMarkers(t *testing.T) {
	tests := []struct {
		name   string
		render func(string) string
		marker string
	}{
		{"success", RenderSuccess, StatusIndicators.Success},
		{"error", RenderError, StatusIndicators.Error},
		{"warning", RenderWarning, StatusIndicators.Warning},
		{"info", RenderInfo, StatusIndicators.Info},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := tt.render("saved")
			if !strings.Contains(out, tt.marker) || !strings.Contains(out, "saved") {
				t.Errorf("render = %q, want marker %q and message", out, tt.marker)
			}
		})
	}
}
