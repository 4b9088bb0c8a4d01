package vision

import "strings"

// ParseReport parses a model response in format: condition | issues.
// The first usable line wins; preamble lines are skipped. Returns nil when
// no usable line is found.
func ParseReport(raw string) *ConditionReport {
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		// Skip common preambles
		if strings.HasPrefix(line, "Here") || strings.HasPrefix(line, "I see") || strings.HasPrefix(line, "Based on") {
			continue
		}

		report := &ConditionReport{Raw: raw}
		parts := strings.SplitN(line, "|", 2)
		report.Condition = strings.TrimSpace(parts[0])
		if len(parts) == 2 {
			issues := strings.TrimSpace(parts[1])
			if !strings.EqualFold(issues, "none") {
				report.Issues = issues
			}
		}

		if report.Condition == "" {
			continue
		}
		return report
	}

	return nil
}
