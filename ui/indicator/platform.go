// Package indicator renders the small presence badge shown next to a peer.
package indicator

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/puyokura/cmppview/model"
)

// Platform is the presentation-side platform indicator.
type Platform int

const (
	Unknown Platform = iota
	Desktop
	Mobile
	Web
)

// FromModel maps a raw platform onto its indicator. Every value has one;
// anything unrecognised is Unknown.
func FromModel(p model.Platform) Platform {
	switch p {
	case model.PlatformDesktop:
		return Desktop
	case model.PlatformMobile:
		return Mobile
	case model.PlatformWeb:
		return Web
	default:
		return Unknown
	}
}

func (p Platform) String() string {
	switch p {
	case Desktop:
		return "desktop"
	case Mobile:
		return "mobile"
	case Web:
		return "web"
	default:
		return "unknown"
	}
}

// Icon is the glyph drawn for the platform.
func (p Platform) Icon() string {
	switch p {
	case Desktop:
		return "▣"
	case Mobile:
		return "▯"
	case Web:
		return "◎"
	default:
		return "?"
	}
}

// Color is the badge foreground.
func (p Platform) Color() lipgloss.Color {
	switch p {
	case Desktop:
		return lipgloss.Color("#43B581")
	case Mobile:
		return lipgloss.Color("#FAA61A")
	case Web:
		return lipgloss.Color("#7289DA")
	default:
		return lipgloss.Color("#747F8D")
	}
}

// Render returns the styled badge.
func (p Platform) Render() string {
	return lipgloss.NewStyle().Foreground(p.Color()).Render(p.Icon())
}
