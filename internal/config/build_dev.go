//go:build !release
// +build !release

package config

// devBypassAllowed permits -dev-bypass outside release builds only.
const devBypassAllowed = true
