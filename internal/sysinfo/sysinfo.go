// Package sysinfo identifies the host the server injects input into.
package sysinfo

import (
	"runtime"

	"github.com/shirou/gopsutil/v4/host"
)

// Platform overrides for Detect.
const (
	PlatformAuto  = "auto"
	PlatformApple = "apple"
	PlatformOther = "other"
)

// Host is a read-only view of the local machine.
type Host struct {
	hostname string
	os       string
	platform string
	apple    bool
}

// Snapshot is the part of Host reported by /status.
type Snapshot struct {
	Hostname string `json:"hostname"`
	OS       string `json:"os"`
	Platform string `json:"platform"`
	Uptime   uint64 `json:"uptime"`
}

// Detect queries the host once. override forces the Apple-family answer
// unless it is PlatformAuto or empty.
func Detect(override string) *Host {
	h := &Host{os: runtime.GOOS}
	if info, err := host.Info(); err == nil {
		h.hostname = info.Hostname
		h.platform = info.Platform
		if info.OS != "" {
			h.os = info.OS
		}
	}
	switch override {
	case PlatformApple:
		h.apple = true
	case PlatformOther:
		h.apple = false
	default:
		h.apple = isApple(h.os)
	}
	return h
}

func isApple(goos string) bool {
	switch goos {
	case "darwin", "ios":
		return true
	}
	return false
}

// IsApple reports whether shortcuts use Cmd instead of Ctrl.
func (h *Host) IsApple() bool { return h.apple }

func (h *Host) Snapshot() Snapshot {
	up, _ := host.Uptime()
	return Snapshot{Hostname: h.hostname, OS: h.os, Platform: h.platform, Uptime: up}
}
