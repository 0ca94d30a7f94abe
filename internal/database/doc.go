// Package database provides SQLite database operations for the clipfold
// application.
//
// It handles storage and retrieval of:
//   - Video records and their technical metadata
//   - Processing status, progress and error state
//   - Media URLs written on completion
//
// The database uses WAL mode for improved concurrent read performance
// and includes automatic schema initialization.
package database
