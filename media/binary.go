package media

// IsBinaryContent checks if the given byte slice appears to be binary content.
// Only the first 512 bytes are inspected; a null byte marks the data as binary.
func IsBinaryContent(data []byte) bool {
	checkSize := min(len(data), 512)
	for i := 0; i < checkSize; i++ {
		if data[i] == 0 {
			return true
		}
	}
	return false
}
