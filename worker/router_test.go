package worker

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		mode Mode
		dest Destination
		want Strategy
	}{
		{ModeNavigate, DestinationDocument, StrategyNetworkFirst},
		// navigation wins over destination
		{ModeNavigate, DestinationImage, StrategyNetworkFirst},
		{ModeNoCORS, DestinationStyle, StrategyStaleWhileRevalidate},
		{ModeNoCORS, DestinationScript, StrategyStaleWhileRevalidate},
		{ModeCORS, DestinationImage, StrategyStaleWhileRevalidate},
		{ModeCORS, DestinationFont, StrategyStaleWhileRevalidate},
		{ModeCORS, DestinationEmpty, StrategyNetworkFallback},
		{ModeSameOrigin, DestinationDocument, StrategyNetworkFallback},
		{ModeSameOrigin, Destination("manifest"), StrategyNetworkFallback},
	}
	for _, tt := range tests {
		req := &Request{Mode: tt.mode, Destination: tt.dest}
		if got := Classify(req); got != tt.want {
			t.Errorf("Classify(%s, %s) = %s, want %s", tt.mode, tt.dest, got, tt.want)
		}
	}
}
