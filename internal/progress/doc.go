// Package progress tracks live upload state for polling clients.
//
// Each upload gets one in-memory entry holding status, percentage, a
// human-readable stage description and an ETA estimate. Terminal entries
// are evicted after a TTL by a background sweep; in-flight entries are
// never evicted.
package progress
