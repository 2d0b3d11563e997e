package config

import "fmt"

// ScrollMode selects how the viewport moves to a new position.
type ScrollMode string

const (
	ScrollSmooth  ScrollMode = "smooth"  // Spring-animated
	ScrollInstant ScrollMode = "instant" // Jump
)

// PresenterConfig holds presenter interface configuration.
type PresenterConfig struct {
	// Reveal is "progressive" (earlier slides stay rendered) or "exclusive"
	Reveal string `json:"reveal" yaml:"reveal"`

	// RewindScroll applies to backward moves, AdvanceScroll to forward ones
	RewindScroll  ScrollMode `json:"rewind_scroll" yaml:"rewind_scroll"`
	AdvanceScroll ScrollMode `json:"advance_scroll" yaml:"advance_scroll"`

	// Theme is a glamour style name ("auto", "dark", "light", "notty")
	Theme string `json:"theme" yaml:"theme"`

	// SplitPaneRatio is the text pane share of split slides (0.0-1.0)
	SplitPaneRatio float64 `json:"split_pane_ratio" yaml:"split_pane_ratio"`

	// ProseWidth caps the render width of prose-layout posts (0 = no cap)
	ProseWidth int `json:"prose_width,omitempty" yaml:"prose_width,omitempty"`
}

// DefaultPresenterConfig returns sensible presenter defaults.
func DefaultPresenterConfig() *PresenterConfig {
	return &PresenterConfig{
		Reveal:         "progressive",
		RewindScroll:   ScrollInstant,
		AdvanceScroll:  ScrollSmooth,
		Theme:          "auto",
		SplitPaneRatio: 0.6, // 3/5 text, 2/5 graphics
		ProseWidth:     80,
	}
}

// Validate checks presenter values.
func (p *PresenterConfig) Validate() error {
	switch p.Reveal {
	case "", "progressive", "exclusive":
	default:
		return fmt.Errorf("invalid presenter.reveal: %q (valid: progressive, exclusive)", p.Reveal)
	}
	for name, m := range map[string]ScrollMode{
		"presenter.rewind_scroll":  p.RewindScroll,
		"presenter.advance_scroll": p.AdvanceScroll,
	} {
		switch m {
		case "", ScrollSmooth, ScrollInstant:
		default:
			return fmt.Errorf("invalid %s: %q (valid: smooth, instant)", name, m)
		}
	}
	if p.SplitPaneRatio < 0 || p.SplitPaneRatio > 1 {
		return fmt.Errorf("invalid presenter.split_pane_ratio: %v", p.SplitPaneRatio)
	}
	return nil
}
