package docindex

import "fmt"

// Progress reports how many of the submitted files have been processed.
type Progress struct {
	Total     int
	Completed int
}

// Done reports whether every submitted file has been processed.
func (p Progress) Done() bool {
	return p.Completed >= p.Total
}

// String returns a human-readable status such as "3 of 10 processed".
func (p Progress) String() string {
	return fmt.Sprintf("%d of %d processed", p.Completed, p.Total)
}

// ProgressFunc is called after every file completion.
type ProgressFunc func(Progress)
