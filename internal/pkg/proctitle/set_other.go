//go:build !linux

package proctitle

// Set only validates the title where the platform has no rename call.
func Set(title string) error {
	_, err := short(title)
	return err
}
