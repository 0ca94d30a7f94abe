// Package startup handles application initialization: environment-based
// configuration, directory preparation, media tool verification and the
// startup/shutdown log banners.
package startup
