package domain

import "fmt"

// OperatingMode selects the analysis depth for a control-loop iteration.
// ModeFast and ModeFull force the corresponding graph; ModeAuto lets the
// loop's own heuristic decide.
type OperatingMode string

const (
	ModeAuto OperatingMode = "auto"
	ModeFast OperatingMode = "fast"
	ModeFull OperatingMode = "full"
)

// ParseMode validates a mode string from the control store or API.
func ParseMode(s string) (OperatingMode, error) {
	switch OperatingMode(s) {
	case ModeAuto, ModeFast, ModeFull:
		return OperatingMode(s), nil
	default:
		return "", fmt.Errorf("unknown operating mode %q", s)
	}
}
