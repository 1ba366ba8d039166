package store

// Keys of the persisted editor state.
const (
	KeyCVJSON       = "cvJSON"
	KeyCVSavedTime  = "cvSavedTime"
	KeyPrimaryColor = "primary-color"
	KeyTheme        = "theme"
)

const (
	DefaultPrimaryColor = "#950e0e"
	DefaultTheme        = "xenking"
)

// Backend is a string key-value store. Get reports ok=false for missing keys.
type Backend interface {
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
}
