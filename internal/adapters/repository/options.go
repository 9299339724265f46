package repository

import "time"

// Option applies a configuration option to the SQLStore.
type Option func(*SQLStore)

// WithMaxOpenConns caps the postgres connection pool. SQLite always uses one
// connection so writers never contend for the file lock.
func WithMaxOpenConns(n int) Option {
	return func(s *SQLStore) {
		if n > 0 {
			s.maxOpenConns = n
		}
	}
}

// WithConnectTimeout bounds how long Open retries the initial ping.
func WithConnectTimeout(d time.Duration) Option {
	return func(s *SQLStore) {
		if d > 0 {
			s.connectTimeout = d
		}
	}
}

// WithBusyTimeout sets the SQLite busy timeout.
func WithBusyTimeout(d time.Duration) Option {
	return func(s *SQLStore) {
		if d > 0 {
			s.busyTimeout = d
		}
	}
}
