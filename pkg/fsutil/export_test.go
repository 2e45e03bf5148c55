package fsutil

// MoveAcrossDevices exposes the copy-based move used when rename fails with
// EXDEV.
func MoveAcrossDevices(src, dst string) error {
	return moveAcross(src, dst)
}
