// Package watcher turns filesystem notifications under a folder into
// debounced batches of changed paths.
//
// Rapid bursts (editors writing temp files, copies of many files) collapse
// into one batch once the folder has been quiet for the debounce window.
// Batches are handed to a single handler, so handler runs never overlap.
package watcher
