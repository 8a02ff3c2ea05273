// Package qa implements the objective verification battery applied to the
// final rendered artifact. Checks are pure: the verify stage gathers
// observations through the media toolchain and feeds them in, which keeps
// every threshold testable without rendering video.
package qa
