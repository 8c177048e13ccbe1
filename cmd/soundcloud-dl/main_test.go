package main

import (
	"testing"

	"github.com/handiism/soundcloud-downloader/internal/download"
	"github.com/handiism/soundcloud-downloader/internal/model"
)

func TestDryRunExitCode(t *testing.T) {
	tests := []struct {
		name string
		jobs []*download.Job
		want int
	}{
		{"nothing resolved", nil, exitFailure},
		{"job without tracks", []*download.Job{{Input: "https://soundcloud.com/a/b"}}, exitFailure},
		{"one track", []*download.Job{{Tracks: []*model.Track{{}}}}, exitOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := dryRunExitCode(tt.jobs); got != tt.want {
				t.Errorf("dryRunExitCode() = %d, want %d", got, tt.want)
			}
		})
	}
}
