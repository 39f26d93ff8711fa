package extract

// Stage is a step of the cascade. A run moves through the stages in order
// and may end early; stages keep no state between runs.
type Stage int

const (
	NotStarted Stage = iota
	DirectAPITried
	StructuredTried
	HeuristicsAccumulated
	FallbackIfEmpty
	Deduplicated
	Done
)

var stageNames = [...]string{
	NotStarted:            "not_started",
	DirectAPITried:        "direct_api_tried",
	StructuredTried:       "structured_tried",
	HeuristicsAccumulated: "heuristics_accumulated",
	FallbackIfEmpty:       "fallback_if_empty",
	Deduplicated:          "deduplicated",
	Done:                  "done",
}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return "unknown"
	}
	return stageNames[s]
}
