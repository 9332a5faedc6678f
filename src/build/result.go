package build

// Result is the terminal outcome of one build attempt. Exactly one of
// imageID and failReason is set: a result either names the image it
// produced or the reason the engine refused to produce one.
type Result struct {
	imageID    string
	failReason string
	logs       []string
}

// NewResult reports a successful build of imageID.
func NewResult(imageID string, logs []string) *Result {
	return &Result{imageID: imageID, logs: logs}
}

// NewFailedResult reports an in-band build failure, the engine ran the
// build and the build itself failed.
func NewFailedResult(reason string, logs []string) *Result {
	if reason == "" {
		reason = "build failed"
	}
	return &Result{failReason: reason, logs: logs}
}

func (r *Result) ImageID() string { return r.imageID }

func (r *Result) IsFailed() bool { return r.failReason != "" }

func (r *Result) FailReason() string { return r.failReason }

func (r *Result) Logs() []string { return r.logs }
