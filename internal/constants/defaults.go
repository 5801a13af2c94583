package constants

import "time"

// Thresholds - Default bottleneck detection thresholds.
const (
	// DefaultSlowExecutionMs is the average duration at which an element is reported as slow.
	DefaultSlowExecutionMs = 50.0

	// DefaultVerySlowExecutionMs is the maximum duration at which an element is reported as critical.
	DefaultVerySlowExecutionMs = 200.0

	// DefaultLoopIterations is the execution count above which a profiled loop is inefficient.
	DefaultLoopIterations = 1000

	// DefaultLongWaitTicks is the wait length (in ticks) above which a wait is reported.
	DefaultLongWaitTicks = 100

	// DefaultExcessiveVariables is the per-file variable access count above which a file is reported.
	DefaultExcessiveVariables = 500

	// DefaultHighFrequencyCount is the execution count above which an element is reported as hot.
	DefaultHighFrequencyCount = 1000

	// DefaultHighFrequencyTotalMs escalates a hot element to high severity.
	DefaultHighFrequencyTotalMs = 1000.0

	// DefaultLoadCeiling is the host CPU utilisation (percent) above which load impact is reported.
	DefaultLoadCeiling = 90.0
)

// Reporting - Default report settings.
const (
	// DefaultMaxReportedIssues caps the issues printed in a report.
	DefaultMaxReportedIssues = 10

	// DefaultTopSlowest is the number of entries in the slowest operations section.
	DefaultTopSlowest = 10

	// DefaultBreakdownLines is the number of lines shown per file in the detailed breakdown.
	DefaultBreakdownLines = 5

	// DefaultReportFormat is the default report output format.
	DefaultReportFormat = "text"
)

// Profiling - Default session and load sampling settings.
const (
	// DefaultLoadInterval is the host load sampling interval.
	DefaultLoadInterval = 1 * time.Second

	// DefaultLoadWarnThreshold logs a warning when sampled load exceeds it.
	DefaultLoadWarnThreshold = 90.0

	// DefaultLoad is reported when the load has never been sampled successfully.
	DefaultLoad = 0.0

	// DefaultMaxScriptSize is the largest script file the loader reads (1MB).
	DefaultMaxScriptSize = 1 << 20
)

// Storage - Default persistence settings.
const (
	// DefaultStoreRetries is the number of attempts for a session write.
	DefaultStoreRetries = 3

	// DefaultStoreBackoff is the initial backoff between session write attempts.
	DefaultStoreBackoff = 50 * time.Millisecond
)
