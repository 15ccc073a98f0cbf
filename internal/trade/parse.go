// Package trade extracts trade signals from agent output and resolves the
// current trade state from the event feed.
package trade

import (
	"encoding/json"
	"strings"

	"github.com/quantfold/zerodte/internal/domain"
)

// ExtractSignal scans text bottom-up for the last line that decodes as a
// trade signal. Agents emit prose followed by a single JSON line, but the
// JSON is sometimes wrapped in a code fence or followed by trailing chatter,
// so every non-fence line is a candidate. A line counts as a signal when it
// carries both an action and a conviction.
func ExtractSignal(text string) (domain.Signal, bool) {
	lines := strings.Split(text, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if line == "" || strings.HasPrefix(line, "```") {
			continue
		}
		if !strings.HasPrefix(line, "{") {
			continue
		}

		var sig domain.Signal
		if err := json.Unmarshal([]byte(line), &sig); err != nil {
			continue
		}
		if sig.Action == "" || sig.Conviction == "" {
			continue
		}
		return sig, true
	}
	return domain.Signal{}, false
}
