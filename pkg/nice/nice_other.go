//go:build !unix

package nice

// Set validates n; priorities are not changed on this platform.
func Set(n int) error {
	return validate(n)
}
