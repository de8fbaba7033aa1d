package config

const (
	// TopicJobLifecycle carries job enqueue/complete/fail events for
	// downstream analytics consumers.
	TopicJobLifecycle = "jobs.lifecycle"
)
