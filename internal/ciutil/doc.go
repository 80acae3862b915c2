// Package ciutil centralizes environment detection and the environment
// variables read by integration tests, so CI runs and local runs resolve
// broker and cache endpoints the same way.
package ciutil
