// Package connpool bounds the number of concurrently in-flight downstream
// calls.
//
// Each admitted call holds a Slot until it completes. A background sweep
// (driven by the admission maintenance scheduler) evicts slots whose
// holders never released them, so a leaked slot cannot permanently shrink
// capacity.
package connpool
