package utils

import (
	"math/rand"
	"time"
)

// Delay sleeps for a uniform-random duration between minSec and maxSec.
// Used between scroll iterations and between candidate visits to keep
// request pacing irregular.
func Delay(minSec, maxSec float64) {
	if maxSec < minSec {
		maxSec = minSec
	}
	span := maxSec - minSec
	d := minSec + rand.Float64()*span
	time.Sleep(time.Duration(d * float64(time.Second)))
}
