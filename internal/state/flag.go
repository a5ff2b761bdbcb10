package state

// AnomalyFlag is the last anomaly signal received. Every Set replaces the
// previous value; a flapping producer produces a flapping flag.
type AnomalyFlag struct {
	on bool
}

// Set stores the signal.
func (f *AnomalyFlag) Set(on bool) {
	f.on = on
}

// Get returns the last stored signal, false before any signal.
func (f *AnomalyFlag) Get() bool {
	return f.on
}
