package backend

import "time"

// Defaults for transient-status retries against the engine API.
const (
	DefaultRetryCount = 4
	DefaultBackoff    = 5 * time.Second
)

// transientStatus lists the HTTP status codes worth retrying. Anything
// else propagates on first occurrence.
var transientStatus = map[int]bool{
	408: true,
	500: true,
	502: true,
	503: true,
	504: true,
}

// Retry reruns engine calls whose transport error carries a transient
// status code, sleeping Delay*2^attempt between attempts. Status
// extracts the HTTP status from an error; Sleep is injectable for
// tests and defaults to time.Sleep.
type Retry struct {
	Times  int
	Delay  time.Duration
	Status func(error) (int, bool)
	Sleep  func(time.Duration)
}

// Do runs fn, retrying on transient status up to Times extra attempts.
func (r Retry) Do(fn func() error) error {
	sleep := r.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}

	var err error
	for attempt := 0; attempt <= r.Times; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}
		if r.Status == nil {
			return err
		}
		status, ok := r.Status(err)
		if !ok || !transientStatus[status] || attempt == r.Times {
			return err
		}
		sleep(r.Delay * (1 << attempt))
	}
	return err
}
