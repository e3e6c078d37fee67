package ledger

// Warning is a recoverable problem found while aggregating.
type Warning struct {
	Line    int
	Message string
	Err     error
}

// DiagnosticSink receives warnings in input order. A nil sink discards them.
type DiagnosticSink func(Warning)

// Collector accumulates warnings for later inspection.
type Collector struct {
	warnings []Warning
}

// Sink returns a DiagnosticSink that appends to the collector.
func (c *Collector) Sink() DiagnosticSink {
	return func(w Warning) {
		c.warnings = append(c.warnings, w)
	}
}

// Warnings returns the collected warnings.
func (c *Collector) Warnings() []Warning {
	out := make([]Warning, len(c.warnings))
	copy(out, c.warnings)
	return out
}

// Tee fans a warning out to every non-nil sink.
func Tee(sinks ...DiagnosticSink) DiagnosticSink {
	return func(w Warning) {
		for _, s := range sinks {
			if s != nil {
				s(w)
			}
		}
	}
}
