//go:build release
// +build release

package config

// devBypassAllowed is hard-disabled in release builds: a production process
// with resolution bypassed must refuse to start.
const devBypassAllowed = false
