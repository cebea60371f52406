package config

import "time"

// Default wait durations. TimeoutConfig carries the same values as env
// defaults; these are for code that runs without a Config.
const (
	ShortWait       = 5 * time.Second
	MediumWait      = 10 * time.Second
	LongWait        = 20 * time.Second
	PageLoadTimeout = 30 * time.Second
	ImplicitWait    = 10 * time.Second
)
