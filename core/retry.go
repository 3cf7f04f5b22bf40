package session

import "time"

const (
	defaultMaxRetries        = 8
	defaultRetryBaseDelay    = 500 * time.Millisecond
	defaultRetryMaxDelay     = 8 * time.Second
	retryBackoffMultiplier   = 1.5
	defaultFirstFrameTimeout = 4 * time.Second
)

type retryPolicy struct {
	maxRetries        int
	baseDelay         time.Duration
	maxDelay          time.Duration
	firstFrameTimeout time.Duration
}

func defaultRetryPolicy() retryPolicy {
	return retryPolicy{
		maxRetries:        defaultMaxRetries,
		baseDelay:         defaultRetryBaseDelay,
		maxDelay:          defaultRetryMaxDelay,
		firstFrameTimeout: defaultFirstFrameTimeout,
	}
}

// retryState tracks one stream's backoff cycle. It is constructed fresh when
// a stream first fails and disposed on success, give-up or teardown.
type retryState struct {
	attempt   int
	nextDelay time.Duration
	timer     *time.Timer
}

func newRetryState(policy retryPolicy) *retryState {
	return &retryState{nextDelay: policy.baseDelay}
}

// next reserves the next attempt's delay and advances the backoff. The
// second return is false once the retry budget is exhausted.
func (r *retryState) next(policy retryPolicy) (time.Duration, bool) {
	if r.attempt >= policy.maxRetries {
		return 0, false
	}
	r.attempt++

	delay := r.nextDelay
	r.nextDelay = time.Duration(float64(r.nextDelay) * retryBackoffMultiplier)
	if r.nextDelay > policy.maxDelay {
		r.nextDelay = policy.maxDelay
	}
	return delay, true
}

func (r *retryState) cancel() {
	if r == nil {
		return
	}
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
}
