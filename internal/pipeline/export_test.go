package pipeline

import "time"

// SetPublishBackoff shortens publisher retries in tests.
func (p *Pipeline) SetPublishBackoff(d time.Duration) { p.publishBackoff = d }
