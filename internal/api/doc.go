// Package api wires the HTTP surface: schedule lifecycle, manual and
// ad-hoc runs, execution visibility, and recording session control.
package api
