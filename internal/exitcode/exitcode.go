package exitcode

const (
	Success        = 0
	UsageError     = 1
	ConfigError    = 2
	FetchError     = 3
	PushError      = 4
	DBConnError    = 5
	PartialSuccess = 6
)
