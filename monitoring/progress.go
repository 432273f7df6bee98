package monitoring

import (
	"fmt"
	"sync"
	"time"
)

// A ProgressBar is a tracker of the progress
type ProgressBar struct {
	sync.Mutex
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	StartTime  time.Time `json:"start_time"`
	Total      uint64    `json:"total"`
	Finished   uint64    `json:"finished"`
	InProgress uint64    `json:"in_progress"`
}

// IncrementInProgress adds the number of in-progress element.
func (b *ProgressBar) IncrementInProgress(amount uint64) {
	b.Lock()
	defer b.Unlock()

	b.InProgress += amount
}

// IncrementFinished add a certain amount to finished element.
func (b *ProgressBar) IncrementFinished(amount uint64) {
	b.Lock()
	defer b.Unlock()

	b.Finished += amount
}

// MoveInProgressToFinished reduces the number of in progress item by a certain
// amount and increase the finished item by the same amount.
func (b *ProgressBar) MoveInProgressToFinished(amount uint64) {
	b.Lock()
	defer b.Unlock()

	b.InProgress -= amount
	b.Finished += amount
}

// Percent returns the finished fraction in percent.
func (b *ProgressBar) Percent() float64 {
	b.Lock()
	defer b.Unlock()

	if b.Total == 0 {
		return 100
	}

	return 100 * float64(b.Finished) / float64(b.Total)
}

// String renders the bar on a single line.
func (b *ProgressBar) String() string {
	const width = 30

	percent := b.Percent()

	b.Lock()
	defer b.Unlock()

	filled := int(percent / 100 * width)
	bar := make([]byte, width)

	for i := range bar {
		if i < filled {
			bar[i] = '='
		} else {
			bar[i] = ' '
		}
	}

	return fmt.Sprintf("%s [%s] %d/%d (%.1f%%) %s",
		b.Name, bar, b.Finished, b.Total, percent,
		time.Since(b.StartTime).Truncate(time.Millisecond))
}
