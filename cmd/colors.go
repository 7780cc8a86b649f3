package cmd

import (
	"strings"

	"github.com/fatih/color"
	"github.com/khanhnv2901/wisafe/internal/domain/job"
	"github.com/khanhnv2901/wisafe/internal/domain/network"
)

var (
	colorSuccess  = color.New(color.FgGreen).SprintFunc()
	colorInfo     = color.New(color.FgCyan).SprintFunc()
	colorWarn     = color.New(color.FgYellow).SprintFunc()
	colorError    = color.New(color.FgRed).SprintFunc()
	colorCritical = color.New(color.FgRed, color.Bold).SprintFunc()
)

func formatLevelWithColor(level network.SecurityLevel) string {
	s := string(level)
	switch level {
	case network.LevelSafe:
		return colorSuccess(s)
	case network.LevelWarning:
		return colorWarn(s)
	case network.LevelDanger:
		return colorError(s)
	case network.LevelCritical:
		return colorCritical(s)
	default:
		return s
	}
}

func formatStatusWithColor(status string) string {
	switch strings.ToLower(status) {
	case string(network.CheckSafe), string(job.StatusCompleted):
		return colorSuccess(status)
	case string(network.CheckVulnerable), string(job.StatusFailed), string(job.StatusError):
		return colorError(status)
	case string(job.StatusRunning):
		return colorInfo(status)
	default:
		return status
	}
}
