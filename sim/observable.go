package sim

// ObservableFunc evaluates a derived quantity of the current state.
type ObservableFunc func(st State) float64

// SiteObservableFunc evaluates a derived quantity at a sampling site.
type SiteObservableFunc func(st State, site int) float64

// SiteFunc supplies the sampling site for a site-parameterized observable at
// record time.
type SiteFunc func() int

type trackedObservable struct {
	fn     ObservableFunc
	siteFn SiteFunc
	atSite SiteObservableFunc
}

// ObservableRecorder tracks named observable functions and accumulates their
// recorded values. Registration order is preserved; recording appends one
// value per tracked name.
type ObservableRecorder struct {
	names   []string
	tracked map[string]trackedObservable
	values  map[string][]float64
}

// NewObservableRecorder creates an empty recorder.
func NewObservableRecorder() *ObservableRecorder {
	return &ObservableRecorder{
		tracked: make(map[string]trackedObservable),
		values:  make(map[string][]float64),
	}
}

// Track registers an observable function under name. Re-tracking a name
// replaces its function but keeps accumulated values.
func (r *ObservableRecorder) Track(name string, fn ObservableFunc) {
	if _, ok := r.tracked[name]; !ok {
		r.names = append(r.names, name)
	}
	r.tracked[name] = trackedObservable{fn: fn}
}

// TrackAt registers a site-parameterized observable; siteFn is consulted at
// every record point to pick the sampling site.
func (r *ObservableRecorder) TrackAt(name string, fn SiteObservableFunc, siteFn SiteFunc) {
	if _, ok := r.tracked[name]; !ok {
		r.names = append(r.names, name)
	}
	r.tracked[name] = trackedObservable{atSite: fn, siteFn: siteFn}
}

// Record evaluates every tracked observable against st and appends the
// results to the per-name accumulators.
func (r *ObservableRecorder) Record(st State) {
	for _, name := range r.names {
		obs := r.tracked[name]
		if obs.atSite != nil {
			r.values[name] = append(r.values[name], obs.atSite(st, obs.siteFn()))
			continue
		}
		r.values[name] = append(r.values[name], obs.fn(st))
	}
}

// Values returns the accumulated records for name (nil if never recorded).
func (r *ObservableRecorder) Values(name string) []float64 {
	return r.values[name]
}

// ListTracked returns the tracked names in registration order.
func (r *ObservableRecorder) ListTracked() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}
