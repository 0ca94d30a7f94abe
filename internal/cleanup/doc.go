// Package cleanup tracks temp files and partially-built directories for
// one processing job and removes them when the job fails. A successful
// job disarms its manager; a manager still armed when the job ends is a
// leak and gets logged as such.
package cleanup
