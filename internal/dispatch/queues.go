package dispatch

// Logical work queue names. One durable queue per job type; the matching
// completion queue names live in configuration.
const (
	QueueGenerate   = "generate"
	QueueThread     = "thread"
	QueueTranscript = "transcript"
	QueueCloning    = "cloning"
)
