package core

// Navigator moves the user to another view of the client.
type Navigator interface {
	Navigate(route string)
}

// Notifier shows short-lived toasts.
type Notifier interface {
	Success(msg string)
	Info(msg string)
	Error(msg string)
}

// LocalStore is the client's small persistent key/value storage.
type LocalStore interface {
	Get(key string) (string, bool)
	Set(key, value string) error
	Remove(key string) error
}
