// Package handlers provides HTTP request handlers for the clipfold API.
//
// It includes handlers for:
//   - Video upload and background processing kickoff
//   - Upload progress and audit trail queries
//   - Processing statistics
//   - Upload deletion
//   - Health checks
package handlers
