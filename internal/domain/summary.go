package domain

// Summary messages returned with synchronous checks.
const (
	SummaryNoActiveZones = "No active hunting zones at the selected time."
	SummaryContained     = "CRITICAL: Your entire route is inside an active hunting zone!"
	SummaryIntersects    = "WARNING: Your route crosses active hunting zones!"
	SummaryBufferOnly    = "CAUTION: Your route enters a buffer/safety zone near hunting areas."
	SummarySafe          = "Safe: No conflicts with active hunting zones."
)

// WorstClassification returns the most severe classification in verdicts, or
// None when there are none.
func WorstClassification(verdicts []Verdict) Classification {
	worst := None
	for _, v := range verdicts {
		if v.Classification.Severity() > worst.Severity() {
			worst = v.Classification
		}
	}
	return worst
}

// Summarize picks the message for a check that considered zonesChecked
// active zones and produced verdicts.
func Summarize(zonesChecked int, verdicts []Verdict) string {
	if zonesChecked == 0 {
		return SummaryNoActiveZones
	}
	switch WorstClassification(verdicts) {
	case Contained:
		return SummaryContained
	case Intersects:
		return SummaryIntersects
	case BufferOnly:
		return SummaryBufferOnly
	default:
		return SummarySafe
	}
}
