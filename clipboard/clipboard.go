package clipboard

import cb "github.com/atotto/clipboard"

// Unsupported reports whether no clipboard utility is available.
func Unsupported() bool {
	return cb.Unsupported
}

func Read() (string, error) {
	return cb.ReadAll()
}

func Copy(text string) error {
	return cb.WriteAll(text)
}
