package logging_test

import (
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/seito-lab/taskfunnel/pkg/utils/logging"
)

func TestThrottleSuppressesWithinWindow(t *testing.T) {
	th := logging.NewThrottle(time.Minute)

	gt.Bool(t, th.Allow("storage_init_failed")).True()
	gt.Bool(t, th.Allow("storage_init_failed")).False()
	gt.Bool(t, th.Allow("storage_init_failed")).False()

	// A different key is tracked independently
	gt.Bool(t, th.Allow("reply_failed")).True()
}

func TestThrottleAllowsAfterWindow(t *testing.T) {
	th := logging.NewThrottle(10 * time.Millisecond)

	gt.Bool(t, th.Allow("k")).True()
	gt.Bool(t, th.Allow("k")).False()

	time.Sleep(15 * time.Millisecond)
	gt.Bool(t, th.Allow("k")).True()
}
