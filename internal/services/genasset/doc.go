// Package genasset talks to a generative media API for thumbnails and
// supplementary footage. Jobs are submitted, polled until they finish, and
// the produced asset is downloaded to a local path. The whole service is
// optional; the pipeline degrades to frame grabs when it is disabled.
package genasset
