// Package watcher reports changes to the regular files directly inside a
// directory.
//
// The package implements a hybrid watching strategy:
//   - Primary: fsnotify for efficient event-based watching
//   - Fallback: Polling for environments where fsnotify fails (network mounts, Docker volumes)
//
// Subdirectories are not watched. Events carry absolute paths and are
// delivered one at a time in the order they were observed; a slow consumer
// slows the watcher down rather than losing events. Debouncing is optional
// and keeps that order.
//
// Usage:
//
//	w, err := watcher.New(watcher.DefaultOptions())
//	if err != nil {
//	    return err
//	}
//	defer w.Stop()
//
//	if err := w.Start(ctx, "/path/to/dir"); err != nil {
//	    return err
//	}
//
//	for event := range w.Events() {
//	    switch event.Operation {
//	    case watcher.OpCreate:
//	        // Handle file creation
//	    case watcher.OpModify:
//	        // Handle file modification
//	    case watcher.OpDelete:
//	        // Handle file deletion
//	    case watcher.OpRename:
//	        // event.OldPath was renamed to event.Path
//	    }
//	}
package watcher
