package state

// Well-known session keys.
const (
	ModeKey       = "mode"
	PrefixCodeKey = "prefixCode"
	PrefixKey     = "prefix"
	CountKey      = "count"
	RecordKey     = "record"
	HistoryKey    = "commandHistory"
	MacroKey      = "macro"
	SearchKey     = "search"
	CapturedKey   = "captured"
)
