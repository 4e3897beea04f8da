//go:build !windows

package wmi

// NewLocator always fails outside Windows.
func NewLocator() (Locator, error) {
	return nil, ErrUnsupported
}
