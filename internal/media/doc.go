// Package media generates still images from video sources using FFmpeg.
//
// It extracts single frames at computed timestamps for thumbnails
// (320x180, letterboxed) and posters (up to 1920x1080, aspect
// preserved). When direct ffmpeg JPEG output fails, the frame is piped
// out as PNG and finished with the imaging library.
package media
