package puzzle

type Metrics struct {
	Round  uint64 `json:"round"`
	Solved bool   `json:"solved"`

	ErrorSizes         [2]int `json:"error_sizes"`
	MinimalCardinality int64  `json:"minimal_cardinality"`
	MaximalCardinality int64  `json:"maximal_cardinality"`

	Subscribers   int    `json:"subscribers"`
	RoundsTotal   uint64 `json:"rounds_total"`
	RejectedTotal uint64 `json:"rejected_total"`

	// RoundLogErrorsTotal counts rounds the round logger failed to write.
	RoundLogErrorsTotal uint64 `json:"round_log_errors_total"`

	QueueDepths QueueDepths `json:"queue_depths"`

	StepMS float64 `json:"step_ms"`
}

type QueueDepths struct {
	Submit  int `json:"submit"`
	Advance int `json:"advance"`
	Solve   int `json:"solve"`
}

// Metrics returns the figures recorded at the end of the last round.
func (r *Runner) Metrics() Metrics {
	if r == nil {
		return Metrics{}
	}
	m, _ := r.metrics.Load().(Metrics)
	return m
}
